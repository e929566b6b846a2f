package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jerry-assistant/ragcore/internal/api"
	"github.com/jerry-assistant/ragcore/internal/api/handlers"
	"github.com/jerry-assistant/ragcore/internal/api/middleware"
)

type RouterConfig struct {
	APIKey           string
	Logger           *slog.Logger
	RetrievalHandler *handlers.RetrievalHandler
	CacheHandler     *handlers.CacheHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog(cfg.Logger))
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.StaticAPIKey(cfg.APIKey))

		r.Post("/search", cfg.RetrievalHandler.Search)
		r.Post("/context", cfg.RetrievalHandler.Context)

		r.Get("/stats", cfg.CacheHandler.Stats)
		r.Post("/cache/clear", cfg.CacheHandler.Clear)
		r.Post("/cache/optimize", cfg.CacheHandler.Optimize)
	})

	return r
}
