package setup

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/stellalpha/vaultcore/config"
	"github.com/stellalpha/vaultcore/internal/domain"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// RunTUI launches the terminal configuration wizard.
func RunTUI() error {
	var (
		admin           string
		platformBps     string
		performanceBps  string
		simulateRateBps string
		snapshotDir     string
		journalDir      string
		confirm         bool
	)

	// defaults
	platformBps = strconv.FormatUint(uint64(domain.DefaultPlatformFeeBps), 10)
	performanceBps = strconv.FormatUint(uint64(domain.DefaultPerformanceFeeBps), 10)
	simulateRateBps = "9500"
	snapshotDir = "./state"
	journalDir = "./wal/ops"

	// step 1: welcome
	fmt.Print("\033[H\033[2J") // Clear screen
	fmt.Println(headerStyle.Render("VAULTCORE CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Let's get your vault core configured.\n"))

	// admin identity
	fmt.Println(stepStyle.Render("STEP 1: ADMIN"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Platform Admin Identity").
				Description("Identity that initializes the fee policy and receives collected fees").
				Value(&admin).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("admin identity cannot be empty")
					}
					return nil
				}),
		),
	).Run()
	if err != nil {
		return err
	}

	// fees
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("VAULTCORE CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 2: FEES"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Platform Fee (bps)").
				Description("Skimmed from every swap input (10 = 0.10%)").
				Value(&platformBps).
				Validate(validateBps),
			huh.NewInput().
				Title("Performance Fee (bps)").
				Description("Charged on profits above the high water mark (2000 = 20%)").
				Value(&performanceBps).
				Validate(validateBps),
		),
	).Run()
	if err != nil {
		return err
	}

	// routing
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("VAULTCORE CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 3: ROUTING"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Simulated Route Rate (bps)").
				Description("Output quoted per unit of spend budget (9500 = 95%)").
				Value(&simulateRateBps).
				Validate(validateBps),
		),
	).Run()
	if err != nil {
		return err
	}

	// storage
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("VAULTCORE CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 4: STORAGE"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Snapshot Directory").
				Value(&snapshotDir),
			huh.NewInput().
				Title("Journal Directory").
				Value(&journalDir),
		),
	).Run()
	if err != nil {
		return err
	}

	// confirmation
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("VAULTCORE CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("FINAL CONFIRMATION"))

	summary := fmt.Sprintf(
		"Admin: %s\nPlatform Fee: %s bps\nPerformance Fee: %s bps\nRoute Rate: %s bps\nSnapshots: %s\nJournal: %s\n",
		admin, platformBps, performanceBps, simulateRateBps, snapshotDir, journalDir,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save and start").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}

	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	cfg := config.Config{
		Admin:             admin,
		PlatformFeeBps:    mustBps(platformBps),
		PerformanceFeeBps: mustBps(performanceBps),
		SnapshotDir:       snapshotDir,
		JournalDir:        journalDir,
		SimulateRateBps:   uint64(mustBps(simulateRateBps)),
	}

	filename := "config.gen.yaml"
	if err := config.Write(filename, cfg); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s\nStarting vault core...", filename)))
	time.Sleep(1500 * time.Millisecond) // small pause to read success message
	return nil
}

func validateBps(s string) error {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return fmt.Errorf("must be a whole number")
	}
	if v > domain.BpsDenominator {
		return fmt.Errorf("must be between 0 and %d", domain.BpsDenominator)
	}
	return nil
}

// mustBps is only called on values validateBps already accepted.
func mustBps(s string) uint32 {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid bps value:", s)
		os.Exit(1)
	}
	return uint32(v)
}
