package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/signalsift-ai/feedback-engine/internal/enrichment"
	"github.com/signalsift-ai/feedback-engine/internal/storage"
)

// newEnrichCmd creates the enrich subcommand.
func newEnrichCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Run sentiment and theme analysis over unanalyzed feedback",
		Long: `Enrich loads stored feedback that has not been analyzed yet and runs the
sentiment and theme analyzers over it in chunks. Without an API key the
analyzers fall back to keyword heuristics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
			defer cancel()

			db, err := openDatabase(cfg)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			repos := storage.NewRepositories(db)
			analyzer := enrichment.NewAnalyzer(logger, newCompleter(cfg))
			enricher := enrichment.NewBatchEnricher(logger, analyzer, repos, enrichment.BatchConfig{
				ChunkSize:  cfg.Enrichment.ChunkSize,
				ChunkPause: cfg.Enrichment.ChunkPause,
			})

			spin := NewSpinner("Enriching feedback...")
			spin.Start()
			result, err := enricher.EnrichAll(ctx, limit)
			spin.Stop()
			if err != nil {
				return err
			}

			if outputJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]interface{}{
					"analyzed": result.Analyzed,
					"stored":   result.Stored,
					"failed":   result.Failed,
					"errors":   result.Errors,
					"duration": result.Duration.String(),
				})
			}

			if result.Analyzed == 0 {
				Info("Nothing to enrich")
				return nil
			}

			Success("Enrichment completed")
			KeyValue("Analyzed", result.Analyzed)
			KeyValue("Stored", result.Stored)
			KeyValue("Failed", result.Failed)
			KeyValue("Duration", result.Duration.Round(time.Millisecond))
			for _, msg := range result.Errors {
				Warning("%s", msg)
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum records to enrich (0 means all pending)")

	return cmd
}
