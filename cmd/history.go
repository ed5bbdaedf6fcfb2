package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/promptroute/internal/cli"
)

var (
	flagHistoryLimit   int
	flagHistorySession string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded turns from the transcript store",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&flagHistoryLimit, "limit", "n", 20, "Max turns to show")
	historyCmd.Flags().StringVarP(&flagHistorySession, "session", "s", "", "Filter to one session id")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(_ *cobra.Command, _ []string) error {
	env, err := buildEnv()
	if err != nil {
		return err
	}
	defer env.close()

	if env.store == nil {
		return fmt.Errorf("transcript store unavailable")
	}

	turns, err := env.store.Recent(flagHistorySession, flagHistoryLimit)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}
	if len(turns) == 0 {
		fmt.Println("\n  No recorded turns.")
		return nil
	}

	rows := make([][]string, 0, len(turns))
	for _, r := range turns {
		rows = append(rows, []string{
			r.RecordedAt.Format("01-02 15:04"),
			r.Target,
			truncateCell(r.UserContent, 40),
			cli.FormatTokens(int64(r.InputTokens + r.OutputTokens)),
			cli.FormatCost(r.TotalCost),
		})
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("HISTORY"))
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"When", "Target", "Query", "Tokens", "Cost"},
		Rows:    rows,
	}))

	counts, err := env.store.TargetCounts()
	if err == nil && len(counts) > 0 {
		fmt.Printf("\n  All time: general %d • document %d • database %d\n",
			counts["general"], counts["document"], counts["database"])
	}
	fmt.Println()
	return nil
}

// truncateCell shortens a query for its table column. Counted in runes
// so a multi-byte character is never split.
func truncateCell(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
