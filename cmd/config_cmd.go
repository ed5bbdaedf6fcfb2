package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/promptroute/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fmt.Printf("  Config file: %s\n", config.ConfigPath())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Default model: %s\n", cfg.General.DefaultModel)
	fmt.Printf("    History cap:   %d turns\n", cfg.General.HistoryCap)
	fmt.Printf("    Data dir:      %s\n", cfg.DataDir())
	fmt.Println()

	fmt.Println("  [Pricing]")
	fmt.Printf("    Config path: %s\n", cfg.PricingPath())
	fmt.Printf("    Watch file:  %v\n", cfg.Pricing.WatchConfig)
	fmt.Println()

	fmt.Println("  [Completion]")
	if key := config.APIKey(); key != "" {
		fmt.Printf("    API key: %s\n", maskAPIKey(key))
	} else {
		fmt.Println("    API key: not configured (demo backend)")
	}
	if cfg.Completion.BaseURL != "" {
		fmt.Printf("    Base URL: %s\n", cfg.Completion.BaseURL)
	}
	fmt.Println()

	fmt.Println("  [Serve]")
	fmt.Printf("    Address: %s\n", cfg.Serve.Addr)
	fmt.Println()

	fmt.Println("  Run `promptroute setup` to reconfigure.")
	return nil
}

func maskAPIKey(key string) string {
	if len(key) > 16 {
		return key[:8] + "..." + key[len(key)-4:]
	}
	if len(key) > 4 {
		return key[:4] + "..."
	}
	return "****"
}
