package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/promptroute/internal/cli"
	"github.com/theirongolddev/promptroute/internal/pricing"
)

var flagRefreshMethod string

var pricingCmd = &cobra.Command{
	Use:   "pricing",
	Short: "Show the active pricing table",
	RunE:  runPricing,
}

var pricingInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show pricing table provenance",
	RunE:  runPricingInfo,
}

var pricingRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh the pricing table",
	Long: "Refresh the pricing table from the config file (manual) or a remote " +
		"source (github, external_api, web_scrape, auto).",
	RunE: runPricingRefresh,
}

func init() {
	pricingRefreshCmd.Flags().StringVar(&flagRefreshMethod, "method", "manual",
		"Refresh method: manual, github, external_api, web_scrape, auto")
	pricingCmd.AddCommand(pricingInfoCmd)
	pricingCmd.AddCommand(pricingRefreshCmd)
	rootCmd.AddCommand(pricingCmd)
}

func runPricing(_ *cobra.Command, _ []string) error {
	env, err := buildEnv()
	if err != nil {
		return err
	}
	defer env.close()

	table := env.engine.Pricing().Active()

	models := make([]string, 0, len(table.Models))
	for m := range table.Models {
		models = append(models, m)
	}
	sort.Strings(models)

	rows := make([][]string, 0, len(models))
	for _, m := range models {
		r := table.Models[m]
		rows = append(rows, []string{
			m,
			fmt.Sprintf("$%.4f", r.Input),
			fmt.Sprintf("$%.4f", r.Output),
		})
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("PRICING  per 1K tokens"))
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Model", "Input", "Output"},
		Rows:    rows,
	}))
	fmt.Printf("\n  Source: %s\n\n", table.Source)
	return nil
}

func runPricingInfo(_ *cobra.Command, _ []string) error {
	env, err := buildEnv()
	if err != nil {
		return err
	}
	defer env.close()

	info := env.engine.Pricing().Info()

	fmt.Println()
	fmt.Printf("  Source:       %s\n", info.Source)
	if !info.LastUpdated.IsZero() {
		fmt.Printf("  Last updated: %s\n", info.LastUpdated.Format("2006-01-02 15:04 MST"))
	}
	fmt.Printf("  Models:       %d\n", info.ModelCount)
	fmt.Printf("  Config file:  %s", env.cfg.PricingPath())
	if !info.ConfigFileExists {
		fmt.Print(" (missing, using built-in rates)")
	}
	fmt.Println()
	fmt.Println()
	return nil
}

func runPricingRefresh(cmd *cobra.Command, _ []string) error {
	env, err := buildEnv()
	if err != nil {
		return err
	}
	defer env.close()

	method := pricing.Method(flagRefreshMethod)
	switch method {
	case pricing.MethodManual, pricing.MethodGitHub, pricing.MethodExternalAPI,
		pricing.MethodWebScrape, pricing.MethodAuto:
	default:
		return fmt.Errorf("unknown refresh method %q", flagRefreshMethod)
	}

	ok := env.engine.Pricing().Refresh(cmd.Context(), method)
	info := env.engine.Pricing().Info()

	fmt.Println()
	if ok {
		fmt.Printf("  Refreshed via %s: %d models, source %s\n", method, info.ModelCount, info.Source)
	} else {
		fmt.Printf("  %s\n", cli.Warn(fmt.Sprintf("Refresh via %s failed; keeping %s table", method, info.Source)))
	}
	fmt.Println()
	return nil
}
