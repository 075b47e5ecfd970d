package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/signalsift-ai/feedback-engine/internal/observability"
	"github.com/signalsift-ai/feedback-engine/internal/search"
	"github.com/signalsift-ai/feedback-engine/internal/storage"
)

// SearchHandler handles free-text search requests.
type SearchHandler struct {
	logger *observability.Logger
	agent  *search.Agent
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(logger *observability.Logger, agent *search.Agent) *SearchHandler {
	return &SearchHandler{logger: logger, agent: agent}
}

// SearchRequestDTO is the search request body.
type SearchRequestDTO struct {
	Query string `json:"query"`
}

// SearchResponseDTO is the search response.
type SearchResponseDTO struct {
	Results []storage.Row `json:"results"`
	Summary string        `json:"summary"`
	Count   int           `json:"count"`
}

// Query handles POST /v1/search. Store faults surface only as the generic
// query-failed message.
func (h *SearchHandler) Query(w http.ResponseWriter, r *http.Request) {
	var dto SearchRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if strings.TrimSpace(dto.Query) == "" {
		writeError(w, http.StatusBadRequest, "invalid input", "query is required")
		return
	}

	resp, err := h.agent.ProcessQuery(r.Context(), dto.Query)
	if err != nil {
		if errors.Is(err, search.ErrQueryFailed) {
			writeError(w, http.StatusInternalServerError, "query failed", "")
			return
		}
		h.logger.Error().Err(err).Msg("Search failed")
		writeError(w, http.StatusInternalServerError, "query failed", "")
		return
	}

	writeJSON(w, http.StatusOK, SearchResponseDTO{
		Results: resp.Results,
		Summary: resp.Summary,
		Count:   resp.Count,
	})
}
