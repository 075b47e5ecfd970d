// Package main provides the feedback engine CLI entrypoint.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/signalsift-ai/feedback-engine/internal/config"
	"github.com/signalsift-ai/feedback-engine/internal/enrichment"
	"github.com/signalsift-ai/feedback-engine/internal/observability"
	"github.com/signalsift-ai/feedback-engine/internal/storage"
)

var (
	// Global flags
	cfgFile    string
	outputJSON bool
	verbose    bool

	// Configuration and logger
	cfg    *config.Config
	logger *observability.Logger
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "feedback-engine-cli",
	Short: "Feedback engine CLI for ingestion, enrichment, and search",
	Long: `Feedback engine CLI provides commands for managing customer feedback data.

Use this tool to:
- Ingest raw feedback exports from support, chat, issue tracker, email, social, and forum sources
- Run AI enrichment over unanalyzed records with keyword fallbacks
- Ask free-text questions answered with filtered results and a summary

All commands support --json for automation.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logFormat := "console"
		if outputJSON {
			logFormat = "json"
		}
		logLevel := cfg.Observability.LogLevel
		if verbose {
			logLevel = "debug"
		}

		logger = observability.NewLogger(observability.LogConfig{
			Level:       logLevel,
			Format:      logFormat,
			ServiceName: "feedback-engine-cli",
		})

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: uses env vars)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(newIngestCmd())
	rootCmd.AddCommand(newSearchCmd())
	rootCmd.AddCommand(newEnrichCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newMigrateCmd creates the migrate subcommand.
func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase(cfg)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			if err := storage.Migrate(context.Background(), db); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}

			Success("Schema ready on %s", cfg.Database.Driver)
			return nil
		},
	}
}

// newVersionCmd creates the version subcommand.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			if outputJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.Encode(map[string]string{"version": "0.1.0"})
				return
			}
			fmt.Println("feedback-engine-cli v0.1.0")
		},
	}
}

// openDatabase opens a database connection based on the configuration.
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	return storage.Open(storage.OpenOptions{
		Driver:        cfg.Database.Driver,
		SQLitePath:    cfg.Database.SQLite.Path,
		SQLiteJournal: cfg.Database.SQLite.JournalMode,
		PostgresDSN:   cfg.Database.Postgres.DSN,
		MaxOpenConns:  cfg.Database.Postgres.MaxOpenConns,
		MaxIdleConns:  cfg.Database.Postgres.MaxIdleConns,
	})
}

// newCompleter builds a completion client from config, or nil when no API key
// is configured so commands run on keyword fallbacks alone.
func newCompleter(cfg *config.Config) enrichment.Completer {
	apiKey := cfg.Completion.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if apiKey == "" {
		return nil
	}

	client, err := enrichment.NewCompletionClient(enrichment.ClientConfig{
		APIKey:      apiKey,
		Model:       cfg.Completion.Model,
		BaseURL:     cfg.Completion.BaseURL,
		Temperature: cfg.Completion.Temperature,
		MaxTokens:   cfg.Completion.MaxTokens,
		Timeout:     cfg.Completion.Timeout,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to create completion client, using keyword fallbacks")
		return nil
	}
	return client
}
