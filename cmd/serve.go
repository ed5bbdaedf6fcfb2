package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/promptroute/internal/daemon"
)

var flagServeAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP dispatch daemon",
	Long: "Run a long-lived HTTP service exposing dispatch, session totals, " +
		"and pricing refresh on a local address.",
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagServeAddr, "addr", "", "Listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	env, err := buildEnv()
	if err != nil {
		return err
	}
	defer env.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The daemon keeps its pricing table fresh by watching the config
	// file for operator edits.
	if env.cfg.Pricing.WatchConfig {
		go env.engine.Pricing().Watch(ctx)
	}

	addr := env.cfg.Serve.Addr
	if flagServeAddr != "" {
		addr = flagServeAddr
	}

	svc := daemon.New(daemon.Config{
		Addr:         addr,
		DefaultModel: env.model(),
		HistoryCap:   env.cfg.General.HistoryCap,
		Capabilities: env.caps,
	}, env.engine)

	if err := svc.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
