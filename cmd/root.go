// Package cmd implements the promptroute CLI commands.
package cmd

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/promptroute/internal/adapter"
	"github.com/theirongolddev/promptroute/internal/classify"
	"github.com/theirongolddev/promptroute/internal/config"
	"github.com/theirongolddev/promptroute/internal/engine"
	"github.com/theirongolddev/promptroute/internal/llm"
	"github.com/theirongolddev/promptroute/internal/pricing"
	"github.com/theirongolddev/promptroute/internal/session"
	"github.com/theirongolddev/promptroute/internal/transcript"
)

var (
	flagModel string
	flagDB    string
	flagDocs  bool
	flagDemo  bool
)

var rootCmd = &cobra.Command{
	Use:   "promptroute",
	Short: "Query routing and cost-accounted dispatch",
	Long: "Route natural-language queries to document, database, or general " +
		"backends, with per-turn token and cost accounting.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagModel, "model", "m", "", "Completion model (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "Attach a sqlite database (path, or 'sample' for the bundled demo)")
	rootCmd.PersistentFlags().BoolVar(&flagDocs, "docs", false, "Attach the demo document index")
	rootCmd.PersistentFlags().BoolVar(&flagDemo, "demo", false, "Use canned backends instead of the completion API")
}

// runtimeEnv is everything a dispatching command needs: the engine, a
// session template, and the resources to close on exit.
type runtimeEnv struct {
	cfg    config.Config
	engine *engine.Engine
	caps   session.Capabilities

	db    *sql.DB
	store *transcript.Store
}

// newSession creates a session carrying the configured model and the
// capabilities implied by the attached backends.
func (env *runtimeEnv) newSession() *session.Session {
	sess := session.New(env.model(), env.cfg.General.HistoryCap)
	sess.Capabilities = env.caps
	return sess
}

func (env *runtimeEnv) model() string {
	if flagModel != "" {
		return flagModel
	}
	return env.cfg.General.DefaultModel
}

func (env *runtimeEnv) close() {
	if env.db != nil {
		_ = env.db.Close()
	}
	if env.store != nil {
		_ = env.store.Close()
	}
}

// buildEnv wires the engine from config and flags: pricing loader,
// classifier, whichever adapters have a backend, and the transcript
// store for persistence.
func buildEnv() (*runtimeEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	env := &runtimeEnv{cfg: cfg}
	loader := pricing.NewLoader(cfg.PricingPath())

	classifier := classify.New()
	if len(cfg.Classifier.DatabaseKeywords) > 0 || len(cfg.Classifier.DocumentKeywords) > 0 {
		classifier = classify.NewWithKeywords(cfg.Classifier.DatabaseKeywords, cfg.Classifier.DocumentKeywords)
	}

	adapters, err := buildAdapters(env)
	if err != nil {
		return nil, err
	}

	env.engine = engine.New(classifier, loader, adapters...)

	store, err := transcript.Open(cfg.TranscriptPath())
	if err != nil {
		// Persistence is optional; dispatch still works from memory.
		fmt.Fprintf(os.Stderr, "  transcript store unavailable: %v\n", err)
	} else {
		env.store = store
		env.engine.SetRecorder(store)
	}

	return env, nil
}

func buildAdapters(env *runtimeEnv) ([]adapter.Adapter, error) {
	var adapters []adapter.Adapter

	client := llm.NewClient(config.APIKey(), env.cfg.Completion.BaseURL)
	if flagDemo || client == nil {
		adapters = append(adapters, adapter.NewGeneral(adapter.DemoCompletion{}))
	} else {
		adapters = append(adapters, adapter.NewGeneral(client))
	}

	if flagDB != "" {
		db, err := openDatabase(flagDB)
		if err != nil {
			return nil, err
		}
		env.db = db
		env.caps.HasDatabase = true

		var gen adapter.SQLGenerator = adapter.DemoGenerator{}
		if !flagDemo && client != nil {
			gen = llm.NewSQLGen(client, env.model())
		}
		adapters = append(adapters, adapter.NewDatabase(gen, db, adapter.SQLiteSchema{DB: db}))
	}

	if flagDocs {
		env.caps.HasDocumentIndex = true
		adapters = append(adapters, adapter.NewDocument(adapter.DemoDocuments{}))
	}

	return adapters, nil
}

func openDatabase(src string) (*sql.DB, error) {
	if src == "sample" {
		return adapter.OpenSampleDB()
	}
	if _, err := os.Stat(src); err != nil {
		return nil, fmt.Errorf("database file %s: %w", src, err)
	}
	db, err := sql.Open("sqlite", src)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", src, err)
	}
	return db, nil
}
