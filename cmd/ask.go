package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/promptroute/internal/cli"
	"github.com/theirongolddev/promptroute/internal/engine"
	"github.com/theirongolddev/promptroute/internal/session"
)

var askCmd = &cobra.Command{
	Use:   "ask [query]",
	Short: "Dispatch a single query and print the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	env, err := buildEnv()
	if err != nil {
		return err
	}
	defer env.close()

	sess := env.newSession()
	query := strings.Join(args, " ")
	target := env.engine.Route(query, sess.Capabilities)

	msg, err := env.engine.Dispatch(cmd.Context(), sess, query)
	if errors.Is(err, engine.ErrEmptyQuery) {
		return fmt.Errorf("query is empty")
	}

	fmt.Println()
	fmt.Printf("  %s %s\n", cli.Accent("["+target.String()+"]"), msg.Content)

	if ev := msg.Evidence; ev != nil {
		switch ev.Kind {
		case session.EvidenceCitations:
			for _, c := range ev.Citations {
				fmt.Printf("    %s\n", cli.Muted(fmt.Sprintf("source: %s (%.2f)", c.FileName, c.Score)))
			}
		case session.EvidenceSQL:
			fmt.Printf("    %s\n", cli.Muted(fmt.Sprintf("sql: %s (%d rows)", ev.SQL, ev.RowCount)))
		}
	}
	if msg.Usage != nil {
		fmt.Printf("    %s\n", cli.Muted(cli.FormatUsageLine(*msg.Usage)))
	}
	fmt.Println()

	// The turn is recorded either way; a failed execution still reports
	// its error to the shell.
	var execErr *engine.ExecutionError
	if errors.As(err, &execErr) {
		return err
	}
	return nil
}
