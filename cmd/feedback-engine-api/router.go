// Package main provides the API router setup.
package main

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/signalsift-ai/feedback-engine/cmd/feedback-engine-api/handlers"
	"github.com/signalsift-ai/feedback-engine/cmd/feedback-engine-api/middleware"
	"github.com/signalsift-ai/feedback-engine/internal/cache"
	"github.com/signalsift-ai/feedback-engine/internal/config"
	"github.com/signalsift-ai/feedback-engine/internal/enrichment"
	"github.com/signalsift-ai/feedback-engine/internal/ingest"
	"github.com/signalsift-ai/feedback-engine/internal/observability"
	"github.com/signalsift-ai/feedback-engine/internal/search"
	"github.com/signalsift-ai/feedback-engine/internal/storage"
)

// NewRouter creates the main API router with all routes configured.
func NewRouter(logger *observability.Logger, cfg *config.Config, db *sql.DB) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(chimiddleware.Timeout(cfg.Server.ReadTimeout))

	// Health checks (unauthenticated)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"feedback-engine"}`))
	})

	r.Get("/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.PingContext(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.Write([]byte(`{"status":"ready"}`))
	})

	repos := storage.NewRepositories(db)

	var completer enrichment.Completer
	if cfg.Completion.APIKey != "" {
		client, err := enrichment.NewCompletionClient(enrichment.ClientConfig{
			APIKey:      cfg.Completion.APIKey,
			Model:       cfg.Completion.Model,
			BaseURL:     cfg.Completion.BaseURL,
			Temperature: cfg.Completion.Temperature,
			MaxTokens:   cfg.Completion.MaxTokens,
			Timeout:     cfg.Completion.Timeout,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("Completion client unavailable, keyword fallbacks only")
		} else {
			completer = client
		}
	} else {
		logger.Info().Msg("No completion API key configured, keyword fallbacks only")
	}

	var cacheClient cache.Client
	if cfg.Search.CacheResults {
		switch cfg.Cache.Driver {
		case "redis":
			redisClient, err := cache.NewRedisClient(cache.RedisConfig{
				Addr:     cfg.Cache.Redis.Addr,
				Password: cfg.Cache.Redis.Password,
				DB:       cfg.Cache.Redis.DB,
				PoolSize: cfg.Cache.Redis.PoolSize,
			})
			if err != nil {
				logger.Warn().Err(err).Msg("Redis unavailable, using in-memory cache")
				cacheClient = cache.NewMemoryClient(cfg.Cache.MaxEntries)
			} else {
				cacheClient = redisClient
			}
		default:
			cacheClient = cache.NewMemoryClient(cfg.Cache.MaxEntries)
		}
	}

	pipeline := ingest.NewPipeline(logger, repos)
	analyzer := enrichment.NewAnalyzer(logger, completer)
	summarizer := search.NewSummarizer(logger, completer)
	agent := search.NewAgent(logger, repos, summarizer, cacheClient, cfg.Cache.TTL)

	feedbackHandler := handlers.NewFeedbackHandler(logger, pipeline, analyzer, repos, agent)
	searchHandler := handlers.NewSearchHandler(logger, agent)

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.Server.APIKey))

		r.Route("/feedback", func(r chi.Router) {
			r.Post("/", feedbackHandler.Ingest)
			r.Post("/batch", feedbackHandler.IngestBatch)
			r.Get("/{id}", feedbackHandler.Get)
			r.Post("/{id}/analyze", feedbackHandler.Analyze)
		})

		r.Post("/search", searchHandler.Query)
	})

	return r
}
