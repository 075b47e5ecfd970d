package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/signalsift-ai/feedback-engine/internal/cache"
	"github.com/signalsift-ai/feedback-engine/internal/observability"
	"github.com/signalsift-ai/feedback-engine/internal/storage"
)

// ErrQueryFailed is the only error ProcessQuery surfaces for store faults.
// The underlying cause is logged, never returned, so callers cannot leak it.
var ErrQueryFailed = errors.New("query failed")

const cacheKeyPrefix = "search:response:"

// QueryResponse is the answer to one free-text query.
type QueryResponse struct {
	Results []storage.Row `json:"results"`
	Summary string        `json:"summary"`
	Count   int           `json:"count"`
}

// Agent answers free-text questions over stored feedback: parse intent, run
// the compiled query, summarize the rows.
type Agent struct {
	logger     *observability.Logger
	repos      *storage.Repositories
	summarizer *Summarizer
	cache      cache.Client
	cacheTTL   time.Duration
}

// NewAgent creates a search agent. A nil cache disables response caching.
func NewAgent(logger *observability.Logger, repos *storage.Repositories, summarizer *Summarizer, cacheClient cache.Client, cacheTTL time.Duration) *Agent {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Agent{
		logger:     logger,
		repos:      repos,
		summarizer: summarizer,
		cache:      cacheClient,
		cacheTTL:   cacheTTL,
	}
}

// ProcessQuery answers one free-text query. Intent parsing and summarization
// are total; only a store fault produces an error, and then only the generic
// one.
func (a *Agent) ProcessQuery(ctx context.Context, query string) (*QueryResponse, error) {
	intent := ParseIntent(query)

	key := cacheKey(query)
	if cached, ok := a.cachedResponse(ctx, key); ok {
		return cached, nil
	}

	sqlQuery, args := BuildQuery(intent)

	start := time.Now()
	rows, err := a.repos.Search.Query(ctx, sqlQuery, args)
	if err != nil {
		a.logger.Error().
			Err(err).
			Str("query", query).
			Msg("Search query failed")
		return nil, ErrQueryFailed
	}

	summary := a.summarizer.Summarize(ctx, query, rows)

	resp := &QueryResponse{
		Results: rows,
		Summary: summary,
		Count:   len(rows),
	}

	a.logger.Info().
		Str("query", query).
		Int("count", resp.Count).
		Int("limit", intent.Limit).
		Str("sort_by", intent.SortBy).
		Dur("duration", time.Since(start)).
		Msg("Processed search query")

	a.storeResponse(ctx, key, resp)
	return resp, nil
}

// cacheKey hashes the normalized query text.
func cacheKey(query string) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	hash := sha256.Sum256([]byte(normalized))
	return cacheKeyPrefix + hex.EncodeToString(hash[:16])
}

func (a *Agent) cachedResponse(ctx context.Context, key string) (*QueryResponse, bool) {
	if a.cache == nil {
		return nil, false
	}

	data, err := a.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			a.logger.Debug().Err(err).Str("key", key).Msg("Cache get error")
		}
		return nil, false
	}

	var resp QueryResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		a.logger.Warn().Err(err).Str("key", key).Msg("Failed to unmarshal cached response")
		return nil, false
	}

	a.logger.Debug().Str("key", key).Msg("Cache hit")
	return &resp, true
}

// storeResponse caches the response best-effort; a cache fault never fails
// the request.
func (a *Agent) storeResponse(ctx context.Context, key string, resp *QueryResponse) {
	if a.cache == nil {
		return
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := a.cache.Set(ctx, key, data, a.cacheTTL); err != nil {
		a.logger.Debug().Err(err).Str("key", key).Msg("Failed to cache response")
	}
}

// Invalidate drops all cached search responses, called after new feedback is
// ingested or re-analyzed.
func (a *Agent) Invalidate(ctx context.Context) {
	if a.cache == nil {
		return
	}
	if err := a.cache.DeleteByPrefix(ctx, cacheKeyPrefix); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to invalidate search cache")
	}
}
