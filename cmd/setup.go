package cmd

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/promptroute/internal/config"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	cfg, _ := config.Load()

	model := cfg.General.DefaultModel
	historyCap := fmt.Sprintf("%d", cfg.General.HistoryCap)
	watch := cfg.Pricing.WatchConfig

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Default completion model").
				Options(
					huh.NewOption("gpt-3.5-turbo", "gpt-3.5-turbo"),
					huh.NewOption("gpt-4", "gpt-4"),
					huh.NewOption("gpt-4-turbo", "gpt-4-turbo"),
				).
				Value(&model),
			huh.NewSelect[string]().
				Title("Conversation history cap (turns)").
				Options(
					huh.NewOption("10", "10"),
					huh.NewOption("20 (default)", "20"),
					huh.NewOption("50", "50"),
				).
				Value(&historyCap),
			huh.NewConfirm().
				Title("Reload pricing when the config file changes?").
				Value(&watch),
		),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("setup aborted: %w", err)
	}

	cfg.General.DefaultModel = model
	if n, err := strconv.Atoi(historyCap); err == nil {
		cfg.General.HistoryCap = n
	}
	cfg.Pricing.WatchConfig = watch

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.ConfigPath())
	fmt.Println("  Set OPENAI_API_KEY in your environment or a .env file to use a real completion backend.")
	fmt.Println("  Run `promptroute setup` anytime to reconfigure.")
	fmt.Println()
	return nil
}
