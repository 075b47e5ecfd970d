package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/signalsift-ai/feedback-engine/internal/ingest"
	"github.com/signalsift-ai/feedback-engine/internal/storage"
)

// ingestFileItem is one row in an ingestion export file.
type ingestFileItem struct {
	Source string                 `json:"source"`
	Fields map[string]interface{} `json:"fields"`
}

// newIngestCmd creates the ingest subcommand.
func newIngestCmd() *cobra.Command {
	var (
		input  string
		source string
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest raw feedback rows from a JSON export",
		Long: `Ingest reads a JSON array of feedback rows, normalizes each one into the
canonical schema, scores it, and stores it.

Each row is either {"source": "...", "fields": {...}} or, with --source set,
a bare field object tagged with that source.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()

			data, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			items, err := decodeItems(data, source)
			if err != nil {
				return fmt.Errorf("parse input: %w", err)
			}
			if len(items) == 0 {
				return fmt.Errorf("no rows in %s", input)
			}

			db, err := openDatabase(cfg)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			if err := storage.Migrate(ctx, db); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}

			repos := storage.NewRepositories(db)
			pipeline := ingest.NewPipeline(logger, repos)

			var bar = NewProgressBar(int64(len(items)), "ingesting")
			var stored, rejected int
			var rowErrors []string

			start := time.Now()
			for i, item := range items {
				_, err := pipeline.IngestOne(ctx, item)
				switch {
				case err == nil:
					stored++
				case errors.Is(err, ingest.ErrUnknownSource), errors.Is(err, ingest.ErrMissingContent):
					rejected++
					rowErrors = append(rowErrors, fmt.Sprintf("row %d: %v", i, err))
				default:
					return fmt.Errorf("store row %d: %w", i, err)
				}
				_ = bar.Add(1)
			}
			_ = bar.Finish()
			duration := time.Since(start)

			if outputJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]interface{}{
					"processed": len(items),
					"stored":    stored,
					"rejected":  rejected,
					"errors":    rowErrors,
					"duration":  duration.String(),
				})
			}

			Success("Ingestion completed")
			KeyValue("Stored", stored)
			KeyValue("Rejected", rejected)
			KeyValue("Duration", duration.Round(time.Millisecond))
			for _, msg := range rowErrors {
				Warning("%s", msg)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "path to JSON export file (required)")
	cmd.Flags().StringVar(&source, "source", "", "source tag applied to bare field objects")

	_ = cmd.MarkFlagRequired("input")

	return cmd
}

// decodeItems accepts either tagged rows or, when defaultSource is set, bare
// field objects.
func decodeItems(data []byte, defaultSource string) ([]ingest.RawItem, error) {
	if defaultSource != "" {
		var fields []map[string]interface{}
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, err
		}
		items := make([]ingest.RawItem, len(fields))
		for i, f := range fields {
			items[i] = ingest.RawItem{Source: storage.Source(defaultSource), Fields: f}
		}
		return items, nil
	}

	var tagged []ingestFileItem
	if err := json.Unmarshal(data, &tagged); err != nil {
		return nil, err
	}
	items := make([]ingest.RawItem, len(tagged))
	for i, t := range tagged {
		items[i] = ingest.RawItem{Source: storage.Source(t.Source), Fields: t.Fields}
	}
	return items, nil
}
