// Command vaultcore runs the delegated trade-execution vault core.
// Owners fund vaults and carve out allocations for delegated authorities;
// the core enforces the spend and slippage bounds on every routed swap.
//
// Usage:
//
//	vaultcore --setup (interactive configuration wizard)
//	vaultcore --config config.yaml
//	vaultcore (uses CLI arguments)
package main

import (
	"flag"
	"log"

	"go.uber.org/zap"

	"github.com/stellalpha/vaultcore/config"
	"github.com/stellalpha/vaultcore/internal"
	"github.com/stellalpha/vaultcore/internal/domain"
	"github.com/stellalpha/vaultcore/internal/services/trading"
	"github.com/stellalpha/vaultcore/internal/setup"
)

func main() {
	setupMode := flag.Bool("setup", false, "run the interactive configuration wizard")

	cfg, err := config.Get()
	if *setupMode {
		if err := setup.RunTUI(); err != nil {
			log.Fatal(err)
		}
		cfg, err = config.Load("config.gen.yaml")
	}
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	router := trading.NewSimulateRouter(cfg.SimulateRateBps, logger)
	engine, err := internal.NewEngine(cfg, router, logger)
	if err != nil {
		logger.Fatal("failed to start engine", zap.Error(err))
	}
	defer engine.Close()

	if err := engine.InitFeePolicy(domain.ID(cfg.Admin)); err != nil {
		logger.Info("fee policy already present", zap.Error(err))
	}

	logger.Info("vault core ready",
		zap.String("admin", cfg.Admin),
		zap.Uint32("platform_fee_bps", cfg.PlatformFeeBps),
		zap.Uint32("performance_fee_bps", cfg.PerformanceFeeBps),
		zap.Int("vaults", len(engine.Vaults())))
}
