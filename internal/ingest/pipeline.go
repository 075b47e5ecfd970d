// Package ingest normalizes raw feedback rows and persists them as canonical
// feedback records ready for enrichment and search.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/signalsift-ai/feedback-engine/internal/observability"
	"github.com/signalsift-ai/feedback-engine/internal/storage"
)

// RawItem is one source row queued for ingestion.
type RawItem struct {
	Source storage.Source
	Fields map[string]interface{}
}

// IngestionResult summarizes one ingestion batch.
type IngestionResult struct {
	JobID       uuid.UUID
	Processed   int
	Stored      int
	Rejected    int
	Errors      []string
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
}

// Pipeline orchestrates the feedback ingestion process: normalize each raw
// row, score it, and upsert it into storage. Invalid rows are counted and
// reported; they never abort the batch.
type Pipeline struct {
	logger     *observability.Logger
	normalizer *Normalizer
	repos      *storage.Repositories
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(logger *observability.Logger, repos *storage.Repositories) *Pipeline {
	return &Pipeline{
		logger:     logger,
		normalizer: NewNormalizer(),
		repos:      repos,
	}
}

// Ingest normalizes and stores a batch of raw rows. The returned result
// carries per-row errors; the error return is reserved for storage faults
// that make the whole batch unusable.
func (p *Pipeline) Ingest(ctx context.Context, items []RawItem) (*IngestionResult, error) {
	jobID := uuid.New()
	result := &IngestionResult{
		JobID:     jobID,
		StartedAt: time.Now(),
	}

	p.logger.Info().
		Str("job_id", jobID.String()).
		Int("items", len(items)).
		Msg("Starting ingestion batch")

	for i, item := range items {
		result.Processed++

		rec, err := p.normalizer.Normalize(item.Source, item.Fields)
		if err != nil {
			result.Rejected++
			result.Errors = append(result.Errors, fmt.Sprintf("item %d: %v", i, err))
			p.logger.Warn().
				Err(err).
				Str("job_id", jobID.String()).
				Str("source", string(item.Source)).
				Int("item", i).
				Msg("Rejected invalid feedback item")
			continue
		}

		id, err := p.repos.Feedback.Upsert(ctx, rec)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return result, err
			}
			result.Rejected++
			result.Errors = append(result.Errors, fmt.Sprintf("item %d: store: %v", i, err))
			p.logger.Warn().
				Err(err).
				Str("job_id", jobID.String()).
				Str("source", string(item.Source)).
				Msg("Failed to persist feedback record")
			continue
		}

		rec.ID = id
		result.Stored++
		p.logger.Debug().
			Str("feedback_id", id.String()).
			Str("source", string(item.Source)).
			Int("urgency_score", rec.UrgencyScore).
			Int("value_score", rec.ValueScore).
			Msg("Persisted feedback record")
	}

	result.CompletedAt = time.Now()
	result.Duration = result.CompletedAt.Sub(result.StartedAt)

	p.logger.Info().
		Str("job_id", jobID.String()).
		Int("processed", result.Processed).
		Int("stored", result.Stored).
		Int("rejected", result.Rejected).
		Dur("duration", result.Duration).
		Msg("Ingestion batch completed")

	return result, nil
}

// IngestOne normalizes and stores a single raw row, returning the stored
// record. Validation faults surface directly to the caller.
func (p *Pipeline) IngestOne(ctx context.Context, item RawItem) (*storage.FeedbackRecord, error) {
	rec, err := p.normalizer.Normalize(item.Source, item.Fields)
	if err != nil {
		return nil, err
	}

	id, err := p.repos.Feedback.Upsert(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("persist feedback: %w", err)
	}
	rec.ID = id

	p.logger.Debug().
		Str("feedback_id", id.String()).
		Str("source", string(item.Source)).
		Msg("Persisted feedback record")

	return rec, nil
}
