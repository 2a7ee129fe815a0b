package config

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/stellalpha/vaultcore/internal/domain"
)

// Config holds the runtime settings for the vault core.
type Config struct {
	Admin             string `yaml:"admin"`
	PlatformFeeBps    uint32 `yaml:"platform_fee_bps"`
	PerformanceFeeBps uint32 `yaml:"performance_fee_bps"`
	SnapshotDir       string `yaml:"snapshot_dir"`
	JournalDir        string `yaml:"journal_dir"`
	SimulateRateBps   uint64 `yaml:"simulate_rate_bps"`
}

// Get loads configuration from the yaml file given via --config, or from the
// remaining CLI flags when no file is provided.
func Get() (Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	admin := flag.String("admin", "", "platform admin identity")
	platformBps := flag.Uint("platformfeebps", uint(domain.DefaultPlatformFeeBps), "platform fee in basis points")
	performanceBps := flag.Uint("performancefeebps", uint(domain.DefaultPerformanceFeeBps), "performance fee in basis points")
	snapshotDir := flag.String("snapshotdir", "./state", "directory for ledger snapshots")
	journalDir := flag.String("journaldir", "./wal/ops", "directory for the operation journal")
	simulateRate := flag.Uint64("simulateratebps", 9500, "simulated router output rate in basis points")
	flag.Parse()

	if *configPath != "" {
		return Load(*configPath)
	}

	cfg := Config{
		Admin:             *admin,
		PlatformFeeBps:    uint32(*platformBps),
		PerformanceFeeBps: uint32(*performanceBps),
		SnapshotDir:       *snapshotDir,
		JournalDir:        *journalDir,
		SimulateRateBps:   *simulateRate,
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads and validates a yaml config file.
func Load(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(f, &cfg); err != nil {
		return Config{}, err
	}
	if cfg.SnapshotDir == "" {
		cfg.SnapshotDir = "./state"
	}
	if cfg.JournalDir == "" {
		cfg.JournalDir = "./wal/ops"
	}
	if cfg.SimulateRateBps == 0 {
		cfg.SimulateRateBps = 9500
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Admin == "" {
		return fmt.Errorf("'admin' param is required")
	}
	if c.PlatformFeeBps > domain.BpsDenominator {
		return fmt.Errorf("incorrect 'platform_fee_bps' param: %d exceeds %d", c.PlatformFeeBps, domain.BpsDenominator)
	}
	if c.PerformanceFeeBps > domain.BpsDenominator {
		return fmt.Errorf("incorrect 'performance_fee_bps' param: %d exceeds %d", c.PerformanceFeeBps, domain.BpsDenominator)
	}
	if c.SimulateRateBps > domain.BpsDenominator {
		return fmt.Errorf("incorrect 'simulate_rate_bps' param: %d exceeds %d", c.SimulateRateBps, domain.BpsDenominator)
	}
	return nil
}

// Write saves the config to a yaml file. Used by the setup wizard.
func Write(path string, cfg Config) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	payload, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}
