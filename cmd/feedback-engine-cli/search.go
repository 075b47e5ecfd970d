package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/signalsift-ai/feedback-engine/internal/cache"
	"github.com/signalsift-ai/feedback-engine/internal/search"
	"github.com/signalsift-ai/feedback-engine/internal/storage"
)

// newSearchCmd creates the search subcommand.
func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search stored feedback with a natural language query",
		Long: `Search parses a natural language question into filters, runs the matching
query against stored feedback, and prints a summary plus the result rows.

Examples:
  feedback-engine-cli search "show me critical issues from enterprise customers"
  feedback-engine-cli search "negative feedback about workers ai" --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				return fmt.Errorf("query must not be empty")
			}

			db, err := openDatabase(cfg)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			repos := storage.NewRepositories(db)
			summarizer := search.NewSummarizer(logger, newCompleter(cfg))

			var cacheClient cache.Client
			if cfg.Search.CacheResults {
				cacheClient = cache.NewMemoryClient(cfg.Cache.MaxEntries)
				defer cacheClient.Close()
			}

			agent := search.NewAgent(logger, repos, summarizer, cacheClient, cfg.Cache.TTL)

			spin := NewSpinner("Searching feedback...")
			spin.Start()
			resp, err := agent.ProcessQuery(ctx, query)
			spin.Stop()
			if err != nil {
				return err
			}

			if outputJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}

			fmt.Println(resp.Summary)
			fmt.Println()
			KeyValue("Results", resp.Count)
			for _, row := range resp.Results {
				printResultRow(row)
			}

			return nil
		},
	}

	return cmd
}

func printResultRow(row storage.Row) {
	urgency := rowField(row, "urgency")
	text := rowField(row, "summary")
	if text == "" {
		text = rowField(row, "content")
	}
	if len(text) > 120 {
		text = text[:120] + "..."
	}

	label := UrgencyColor(urgency).Sprintf("[%s]", strings.ToUpper(urgency))
	fmt.Printf("  %s (%s, %s) %s\n",
		label, rowField(row, "source"), rowField(row, "customer_tier"), text)
}

func rowField(row storage.Row, key string) string {
	v, ok := row[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
