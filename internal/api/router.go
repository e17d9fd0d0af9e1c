package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	apiMiddleware "github.com/phrazzld/recipe-forge/internal/api/middleware"
	"github.com/spf13/afero"
)

// RouterConfig holds what the read API serves.
type RouterConfig struct {
	Items *ItemHandler
	Runs  *RunHandler

	// Images serves the files of an image run under /images/
	Images afero.Fs
}

// NewRouter creates the read API router.
func NewRouter(cfg RouterConfig, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(logger))

	r.Route("/api", func(r chi.Router) {
		if cfg.Items != nil {
			r.Get("/items", cfg.Items.ListItems)
			r.Get("/items/{id}", cfg.Items.GetItem)
		}
		if cfg.Runs != nil {
			r.Get("/runs/{runID}/outcomes", cfg.Runs.ListOutcomes)
			r.Get("/jobs/{jobID}", cfg.Runs.GetJob)
		}
	})

	if cfg.Images != nil {
		files := http.FileServer(afero.NewHttpFs(cfg.Images))
		r.Handle("/images/*", http.StripPrefix("/images", files))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
