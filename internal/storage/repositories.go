package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common errors.
var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// DB represents a database connection interface.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// FeedbackRepository handles feedback record persistence.
type FeedbackRepository struct {
	db DB
}

// NewFeedbackRepository creates a new feedback repository.
func NewFeedbackRepository(db DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// dedupeKey derives a stable identity for a record from its source and content,
// so re-ingesting the same export is idempotent.
func dedupeKey(rec *FeedbackRecord) string {
	h := sha256.Sum256([]byte(string(rec.Source) + "|" + rec.Content + "|" + rec.CreatedAt.UTC().Format(time.RFC3339)))
	return hex.EncodeToString(h[:])
}

// Upsert inserts a feedback record, updating the ingestion timestamp on
// conflict, and returns the stored identifier.
func (r *FeedbackRepository) Upsert(ctx context.Context, rec *FeedbackRecord) (uuid.UUID, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.IngestedAt.IsZero() {
		rec.IngestedAt = time.Now()
	}

	query := `
		INSERT INTO feedback (id, dedupe_key, source, author_email, author_username, content,
			product_area, customer_tier, urgency, urgency_score, value_score, engagement_score,
			metadata, created_at, resolved_at, ingested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (dedupe_key) DO UPDATE SET ingested_at = excluded.ingested_at
		RETURNING id
	`
	var id uuid.UUID
	err := r.db.QueryRowContext(ctx, query,
		rec.ID, dedupeKey(rec), rec.Source, rec.AuthorEmail, rec.AuthorUsername, rec.Content,
		rec.ProductArea, rec.CustomerTier, rec.Urgency, rec.UrgencyScore, rec.ValueScore,
		rec.EngagementScore, string(rec.Metadata), rec.CreatedAt, rec.ResolvedAt, rec.IngestedAt,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("upsert feedback: %w", err)
	}
	rec.ID = id
	return id, nil
}

// GetByID retrieves a feedback record by ID.
func (r *FeedbackRepository) GetByID(ctx context.Context, id uuid.UUID) (*FeedbackRecord, error) {
	query := `
		SELECT id, source, author_email, author_username, content, product_area,
			customer_tier, urgency, urgency_score, value_score, engagement_score,
			metadata, created_at, resolved_at, ingested_at
		FROM feedback WHERE id = $1
	`
	rec := &FeedbackRecord{}
	var metadata sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID, &rec.Source, &rec.AuthorEmail, &rec.AuthorUsername, &rec.Content,
		&rec.ProductArea, &rec.CustomerTier, &rec.Urgency, &rec.UrgencyScore,
		&rec.ValueScore, &rec.EngagementScore, &metadata, &rec.CreatedAt,
		&rec.ResolvedAt, &rec.IngestedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if metadata.Valid {
		rec.Metadata = []byte(metadata.String)
	}
	return rec, nil
}

// ListUnanalyzed lists records that have no stored analysis yet, oldest first.
func (r *FeedbackRepository) ListUnanalyzed(ctx context.Context, limit int) ([]*FeedbackRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT f.id, f.source, f.author_email, f.author_username, f.content, f.product_area,
			f.customer_tier, f.urgency, f.urgency_score, f.value_score, f.engagement_score,
			f.metadata, f.created_at, f.resolved_at, f.ingested_at
		FROM feedback f
		LEFT JOIN sentiment_analyses sa ON sa.feedback_id = f.id
		WHERE sa.id IS NULL
		ORDER BY f.ingested_at
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*FeedbackRecord
	for rows.Next() {
		rec := &FeedbackRecord{}
		var metadata sql.NullString
		if err := rows.Scan(
			&rec.ID, &rec.Source, &rec.AuthorEmail, &rec.AuthorUsername, &rec.Content,
			&rec.ProductArea, &rec.CustomerTier, &rec.Urgency, &rec.UrgencyScore,
			&rec.ValueScore, &rec.EngagementScore, &metadata, &rec.CreatedAt,
			&rec.ResolvedAt, &rec.IngestedAt,
		); err != nil {
			return nil, err
		}
		if metadata.Valid {
			rec.Metadata = []byte(metadata.String)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// AnalysisRepository handles sentiment analysis persistence.
type AnalysisRepository struct {
	db DB
}

// NewAnalysisRepository creates a new analysis repository.
func NewAnalysisRepository(db DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Upsert stores an analysis for a record, replacing any previous one so the
// most-recent-analysis invariant holds.
func (r *AnalysisRepository) Upsert(ctx context.Context, a *AnalysisResult) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.AnalyzedAt.IsZero() {
		a.AnalyzedAt = time.Now()
	}

	query := `
		INSERT INTO sentiment_analyses (id, feedback_id, sentiment, urgency, summary,
			value_score, confidence, analyzed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (feedback_id) DO UPDATE SET
			sentiment = excluded.sentiment,
			urgency = excluded.urgency,
			summary = excluded.summary,
			value_score = excluded.value_score,
			confidence = excluded.confidence,
			analyzed_at = excluded.analyzed_at
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.FeedbackID, a.Sentiment, a.Urgency, a.Summary,
		a.ValueScore, a.Confidence, a.AnalyzedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert analysis: %w", err)
	}
	return nil
}

// GetLatest retrieves the stored analysis for a feedback record.
func (r *AnalysisRepository) GetLatest(ctx context.Context, feedbackID uuid.UUID) (*AnalysisResult, error) {
	query := `
		SELECT id, feedback_id, sentiment, urgency, summary, value_score, confidence, analyzed_at
		FROM sentiment_analyses
		WHERE feedback_id = $1
	`
	a := &AnalysisResult{}
	err := r.db.QueryRowContext(ctx, query, feedbackID).Scan(
		&a.ID, &a.FeedbackID, &a.Sentiment, &a.Urgency, &a.Summary,
		&a.ValueScore, &a.Confidence, &a.AnalyzedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	themes, err := r.themesFor(ctx, feedbackID)
	if err != nil {
		return nil, err
	}
	a.Themes = themes
	return a, nil
}

func (r *AnalysisRepository) themesFor(ctx context.Context, feedbackID uuid.UUID) ([]string, error) {
	query := `
		SELECT t.name
		FROM themes t
		JOIN feedback_themes ft ON ft.theme_id = t.id
		WHERE ft.feedback_id = $1
		ORDER BY t.name
	`
	rows, err := r.db.QueryContext(ctx, query, feedbackID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ThemeRepository handles theme reference data and feedback-theme links.
type ThemeRepository struct {
	db DB
}

// NewThemeRepository creates a new theme repository.
func NewThemeRepository(db DB) *ThemeRepository {
	return &ThemeRepository{db: db}
}

// Ensure inserts a theme by name if missing and returns its identifier.
func (r *ThemeRepository) Ensure(ctx context.Context, name string) (uuid.UUID, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return uuid.Nil, ErrInvalidInput
	}

	query := `
		INSERT INTO themes (id, name)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = excluded.name
		RETURNING id
	`
	var id uuid.UUID
	if err := r.db.QueryRowContext(ctx, query, uuid.New(), name).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("ensure theme: %w", err)
	}
	return id, nil
}

// Link attaches a theme to a feedback record. Linking twice is a no-op.
func (r *ThemeRepository) Link(ctx context.Context, feedbackID, themeID uuid.UUID) error {
	query := `
		INSERT INTO feedback_themes (feedback_id, theme_id)
		VALUES ($1, $2)
		ON CONFLICT (feedback_id, theme_id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, feedbackID, themeID); err != nil {
		return fmt.Errorf("link theme: %w", err)
	}
	return nil
}

// ReplaceLinks replaces all theme links for a record with the given theme names.
func (r *ThemeRepository) ReplaceLinks(ctx context.Context, feedbackID uuid.UUID, names []string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM feedback_themes WHERE feedback_id = $1`, feedbackID); err != nil {
		return fmt.Errorf("clear theme links: %w", err)
	}
	for _, name := range names {
		themeID, err := r.Ensure(ctx, name)
		if err != nil {
			return err
		}
		if err := r.Link(ctx, feedbackID, themeID); err != nil {
			return err
		}
	}
	return nil
}

// Repositories bundles all repositories together.
type Repositories struct {
	Feedback *FeedbackRepository
	Analyses *AnalysisRepository
	Themes   *ThemeRepository
	Search   *SearchRepository
}

// NewRepositories creates all repositories with the given database connection.
func NewRepositories(db DB) *Repositories {
	return &Repositories{
		Feedback: NewFeedbackRepository(db),
		Analyses: NewAnalysisRepository(db),
		Themes:   NewThemeRepository(db),
		Search:   NewSearchRepository(db),
	}
}
