// Package cmd implements the docuqueryctl commands. They operate on the local
// index snapshot and registry configured for the selected environment.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/docuquery/internal/app"
	"github.com/kailas-cloud/docuquery/internal/config"
	logpkg "github.com/kailas-cloud/docuquery/internal/logger"
	"github.com/kailas-cloud/docuquery/internal/version"
)

var (
	// envName selects config/<env>.yaml
	envName string
	// outputFormat is table or json
	outputFormat string
	// configPath overrides the environment lookup
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "docuqueryctl",
	Short: "Manage and query a local docuquery index",
	Long: `docuqueryctl ingests documents into the docuquery index and asks questions
against it without running the HTTP server.

Examples:
  # Index a couple of notes
  docuqueryctl ingest notes.md handbook.txt --user alice

  # Ask a question
  docuqueryctl query "What is the refund policy?" --top-k 5

  # Inspect what is indexed
  docuqueryctl docs list
  docuqueryctl stats`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envName, "env", "", "Config environment (defaults to $ENV or local)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a config file (overrides --env)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table, json")
}

func loadConfig() (config.Config, string, error) {
	_ = godotenv.Load()

	env := envName
	if env == "" {
		env = config.GetEnv()
	}
	if configPath != "" {
		cfg, err := config.LoadFile(configPath)
		return cfg, env, err
	}
	cfg, err := config.Load(env)
	return cfg, env, err
}

// withApp wires the components, runs fn and persists the index afterwards.
func withApp(ctx context.Context, opts app.Options, fn func(*app.App) error) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logpkg.NewLogger("cli", cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	a, err := app.New(ctx, cfg, logger, opts)
	if err != nil {
		return err //nolint:wrapcheck // already descriptive
	}

	runErr := fn(a)
	if err := a.Close(ctx); err != nil && runErr == nil {
		return fmt.Errorf("save index: %w", err)
	}
	return runErr
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
