// Package handlers provides HTTP handlers for the feedback engine API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/signalsift-ai/feedback-engine/internal/enrichment"
	"github.com/signalsift-ai/feedback-engine/internal/ingest"
	"github.com/signalsift-ai/feedback-engine/internal/observability"
	"github.com/signalsift-ai/feedback-engine/internal/storage"
)

// CacheInvalidator drops cached search responses after feedback data changes.
type CacheInvalidator interface {
	Invalidate(ctx context.Context)
}

// FeedbackHandler handles feedback ingestion and analysis requests.
type FeedbackHandler struct {
	logger      *observability.Logger
	pipeline    *ingest.Pipeline
	analyzer    *enrichment.Analyzer
	repos       *storage.Repositories
	invalidator CacheInvalidator
}

// NewFeedbackHandler creates a new feedback handler. A nil invalidator skips
// search cache invalidation.
func NewFeedbackHandler(logger *observability.Logger, pipeline *ingest.Pipeline, analyzer *enrichment.Analyzer, repos *storage.Repositories, invalidator CacheInvalidator) *FeedbackHandler {
	return &FeedbackHandler{
		logger:      logger,
		pipeline:    pipeline,
		analyzer:    analyzer,
		repos:       repos,
		invalidator: invalidator,
	}
}

// invalidateCache drops cached search responses so queries see fresh data.
func (h *FeedbackHandler) invalidateCache(ctx context.Context) {
	if h.invalidator != nil {
		h.invalidator.Invalidate(ctx)
	}
}

// FeedbackItemDTO is one raw feedback row in an ingestion request.
type FeedbackItemDTO struct {
	Source string                 `json:"source"`
	Fields map[string]interface{} `json:"fields"`
}

// FeedbackRecordDTO is the stored record returned by the API.
type FeedbackRecordDTO struct {
	ID              string   `json:"id"`
	Source          string   `json:"source"`
	AuthorEmail     string   `json:"authorEmail,omitempty"`
	AuthorUsername  string   `json:"authorUsername,omitempty"`
	Content         string   `json:"content"`
	ProductArea     string   `json:"productArea,omitempty"`
	CustomerTier    string   `json:"customerTier"`
	Urgency         string   `json:"urgency"`
	UrgencyScore    int      `json:"urgencyScore"`
	ValueScore      int      `json:"valueScore"`
	EngagementScore *float64 `json:"engagementScore,omitempty"`
	CreatedAt       string   `json:"createdAt"`
}

// AnalysisDTO is a stored analysis returned by the API.
type AnalysisDTO struct {
	FeedbackID string   `json:"feedbackId"`
	Sentiment  string   `json:"sentiment"`
	Urgency    string   `json:"urgency"`
	Themes     []string `json:"themes"`
	Summary    string   `json:"summary"`
	ValueScore int      `json:"valueScore"`
	Confidence float64  `json:"confidence"`
}

// BatchResultDTO summarizes a batch ingestion.
type BatchResultDTO struct {
	JobID     string   `json:"jobId"`
	Processed int      `json:"processed"`
	Stored    int      `json:"stored"`
	Rejected  int      `json:"rejected"`
	Errors    []string `json:"errors,omitempty"`
}

// Ingest handles POST /v1/feedback.
func (h *FeedbackHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var dto FeedbackItemDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	rec, err := h.pipeline.IngestOne(r.Context(), ingest.RawItem{
		Source: storage.Source(dto.Source),
		Fields: dto.Fields,
	})
	if err != nil {
		if errors.Is(err, ingest.ErrUnknownSource) || errors.Is(err, ingest.ErrMissingContent) {
			writeError(w, http.StatusBadRequest, "invalid input", err.Error())
			return
		}
		h.logger.Error().Err(err).Msg("Ingestion failed")
		writeError(w, http.StatusInternalServerError, "ingestion failed", "")
		return
	}

	h.invalidateCache(r.Context())
	writeJSON(w, http.StatusCreated, toRecordDTO(rec))
}

// IngestBatch handles POST /v1/feedback/batch.
func (h *FeedbackHandler) IngestBatch(w http.ResponseWriter, r *http.Request) {
	var dtos []FeedbackItemDTO
	if err := json.NewDecoder(r.Body).Decode(&dtos); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if len(dtos) == 0 {
		writeError(w, http.StatusBadRequest, "invalid input", "empty batch")
		return
	}

	items := make([]ingest.RawItem, len(dtos))
	for i, dto := range dtos {
		items[i] = ingest.RawItem{
			Source: storage.Source(dto.Source),
			Fields: dto.Fields,
		}
	}

	result, err := h.pipeline.Ingest(r.Context(), items)
	if err != nil {
		h.logger.Error().Err(err).Msg("Batch ingestion failed")
		writeError(w, http.StatusInternalServerError, "ingestion failed", "")
		return
	}

	if result.Stored > 0 {
		h.invalidateCache(r.Context())
	}

	writeJSON(w, http.StatusOK, BatchResultDTO{
		JobID:     result.JobID.String(),
		Processed: result.Processed,
		Stored:    result.Stored,
		Rejected:  result.Rejected,
		Errors:    result.Errors,
	})
}

// Get handles GET /v1/feedback/{id}.
func (h *FeedbackHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid feedback id", "")
		return
	}

	rec, err := h.repos.Feedback.GetByID(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "feedback not found", "")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("feedback_id", id.String()).Msg("Lookup failed")
		writeError(w, http.StatusInternalServerError, "lookup failed", "")
		return
	}

	writeJSON(w, http.StatusOK, toRecordDTO(rec))
}

// Analyze handles POST /v1/feedback/{id}/analyze. Analysis is total: a model
// fault degrades to keyword inference rather than failing the request.
func (h *FeedbackHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid feedback id", "")
		return
	}

	rec, err := h.repos.Feedback.GetByID(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "feedback not found", "")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("feedback_id", id.String()).Msg("Lookup failed")
		writeError(w, http.StatusInternalServerError, "lookup failed", "")
		return
	}

	analysis := h.analyzer.Analyze(r.Context(), rec)

	if err := h.repos.Analyses.Upsert(r.Context(), analysis); err != nil {
		h.logger.Error().Err(err).Str("feedback_id", id.String()).Msg("Failed to persist analysis")
		writeError(w, http.StatusInternalServerError, "analysis failed", "")
		return
	}
	if err := h.repos.Themes.ReplaceLinks(r.Context(), id, analysis.Themes); err != nil {
		h.logger.Error().Err(err).Str("feedback_id", id.String()).Msg("Failed to link themes")
		writeError(w, http.StatusInternalServerError, "analysis failed", "")
		return
	}

	h.invalidateCache(r.Context())
	writeJSON(w, http.StatusOK, AnalysisDTO{
		FeedbackID: analysis.FeedbackID.String(),
		Sentiment:  string(analysis.Sentiment),
		Urgency:    string(analysis.Urgency),
		Themes:     analysis.Themes,
		Summary:    analysis.Summary,
		ValueScore: analysis.ValueScore,
		Confidence: analysis.Confidence,
	})
}

func toRecordDTO(rec *storage.FeedbackRecord) FeedbackRecordDTO {
	dto := FeedbackRecordDTO{
		ID:              rec.ID.String(),
		Source:          string(rec.Source),
		Content:         rec.Content,
		CustomerTier:    string(rec.CustomerTier),
		Urgency:         string(rec.Urgency),
		UrgencyScore:    rec.UrgencyScore,
		ValueScore:      rec.ValueScore,
		EngagementScore: rec.EngagementScore,
		CreatedAt:       rec.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if rec.AuthorEmail != nil {
		dto.AuthorEmail = *rec.AuthorEmail
	}
	if rec.AuthorUsername != nil {
		dto.AuthorUsername = *rec.AuthorUsername
	}
	if rec.ProductArea != nil {
		dto.ProductArea = *rec.ProductArea
	}
	return dto
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message, detail string) {
	resp := map[string]string{"error": message}
	if detail != "" {
		resp["detail"] = detail
	}
	writeJSON(w, status, resp)
}
