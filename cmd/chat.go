package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/promptroute/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive chat REPL",
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(_ *cobra.Command, _ []string) error {
	env, err := buildEnv()
	if err != nil {
		return err
	}
	defer env.close()

	app := tui.NewChat(env.engine, env.newSession())
	if _, err := tea.NewProgram(app).Run(); err != nil {
		return fmt.Errorf("chat error: %w", err)
	}
	return nil
}
