package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/aqacs/internal/api/handlers"
	"github.com/cloo-solutions/aqacs/internal/api/middleware"
)

// RouterConfig wires handlers into the router. A nil AuthValidator leaves
// every route open; a nil Snapshots omits the X-Active-Snapshot header.
type RouterConfig struct {
	AuthValidator   middleware.AuthValidator
	Snapshots       middleware.SnapshotSource
	HealthHandler   *handlers.HealthHandler
	TariffHandler   *handlers.TariffHandler
	SemanticHandler *handlers.SemanticHandler
	QAHandler       *handlers.QAHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 64 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.BodyLimit(maxBodyBytes))
	if cfg.Snapshots != nil {
		r.Use(middleware.ActiveSnapshot(cfg.Snapshots))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", cfg.HealthHandler.Health)

		r.Group(func(r chi.Router) {
			if cfg.AuthValidator != nil {
				r.Use(middleware.APIKeyAuth(cfg.AuthValidator))
			}

			r.Post("/tariff", cfg.TariffHandler.Lookup)
			r.Get("/search", cfg.TariffHandler.Search)
			r.Get("/semantic", cfg.SemanticHandler.Search)
			r.Post("/qa", cfg.QAHandler.Ask)
		})
	})

	return r
}
