package enrichment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/signalsift-ai/feedback-engine/internal/observability"
	"github.com/signalsift-ai/feedback-engine/internal/storage"
)

// BatchConfig controls enrichment pacing. Records within a chunk are analyzed
// concurrently; chunks run sequentially with a fixed pause between them to
// stay under provider rate limits.
type BatchConfig struct {
	ChunkSize  int
	ChunkPause time.Duration
}

// BatchResult summarizes one enrichment run.
type BatchResult struct {
	Analyzed int
	Stored   int
	Failed   int
	Errors   []string
	Duration time.Duration
}

// BatchEnricher analyzes and persists analyses for batches of records.
type BatchEnricher struct {
	logger   *observability.Logger
	analyzer *Analyzer
	repos    *storage.Repositories
	config   BatchConfig
}

// NewBatchEnricher creates a batch enricher.
func NewBatchEnricher(logger *observability.Logger, analyzer *Analyzer, repos *storage.Repositories, cfg BatchConfig) *BatchEnricher {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 5
	}
	if cfg.ChunkPause <= 0 {
		cfg.ChunkPause = time.Second
	}
	return &BatchEnricher{
		logger:   logger,
		analyzer: analyzer,
		repos:    repos,
		config:   cfg,
	}
}

// EnrichAll analyzes every record that has no stored analysis yet.
func (b *BatchEnricher) EnrichAll(ctx context.Context, limit int) (*BatchResult, error) {
	records, err := b.repos.Feedback.ListUnanalyzed(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list unanalyzed: %w", err)
	}
	return b.Enrich(ctx, records)
}

// Enrich analyzes the given records chunk by chunk and persists the results.
// Analysis never fails per record; only persistence faults are counted as
// failures.
func (b *BatchEnricher) Enrich(ctx context.Context, records []*storage.FeedbackRecord) (*BatchResult, error) {
	start := time.Now()
	result := &BatchResult{}

	b.logger.Info().
		Int("records", len(records)).
		Int("chunk_size", b.config.ChunkSize).
		Msg("Starting enrichment batch")

	for i := 0; i < len(records); i += b.config.ChunkSize {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			return result, err
		}

		end := i + b.config.ChunkSize
		if end > len(records) {
			end = len(records)
		}
		chunk := records[i:end]

		analyses := make([]*storage.AnalysisResult, len(chunk))
		var wg sync.WaitGroup
		for j, rec := range chunk {
			wg.Add(1)
			go func(j int, rec *storage.FeedbackRecord) {
				defer wg.Done()
				analyses[j] = b.analyzer.Analyze(ctx, rec)
			}(j, rec)
		}
		wg.Wait()
		result.Analyzed += len(chunk)

		for j, analysis := range analyses {
			if err := b.store(ctx, analysis); err != nil {
				result.Failed++
				result.Errors = append(result.Errors, fmt.Sprintf("record %s: %v", chunk[j].ID, err))
				b.logger.Warn().
					Err(err).
					Str("feedback_id", chunk[j].ID.String()).
					Msg("Failed to persist analysis")
				continue
			}
			result.Stored++
		}

		if end < len(records) {
			select {
			case <-ctx.Done():
				result.Duration = time.Since(start)
				return result, ctx.Err()
			case <-time.After(b.config.ChunkPause):
			}
		}
	}

	result.Duration = time.Since(start)

	b.logger.Info().
		Int("analyzed", result.Analyzed).
		Int("stored", result.Stored).
		Int("failed", result.Failed).
		Dur("duration", result.Duration).
		Msg("Enrichment batch completed")

	return result, nil
}

// store upserts the analysis and rebuilds the record's theme links.
func (b *BatchEnricher) store(ctx context.Context, analysis *storage.AnalysisResult) error {
	if err := b.repos.Analyses.Upsert(ctx, analysis); err != nil {
		return fmt.Errorf("upsert analysis: %w", err)
	}

	if err := b.repos.Themes.ReplaceLinks(ctx, analysis.FeedbackID, analysis.Themes); err != nil {
		return fmt.Errorf("link themes: %w", err)
	}
	return nil
}
