package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ykurilov/banana-editor/internal/http/handlers"
	"github.com/ykurilov/banana-editor/internal/infra"
	"github.com/ykurilov/banana-editor/internal/middleware"
)

func NewRouter(app *handlers.App, logger infra.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimiddleware.RequestID,
		chimiddleware.RealIP,
		chimiddleware.Recoverer,
		middleware.NoIndex,
		middleware.CORS,
		middleware.Logger(logger),
	)

	// Health
	r.Get("/v1/healthz", app.Health)

	r.Route("/api", func(r chi.Router) {
		// Provider calls are slow and metered; keep one client from
		// monopolizing them.
		limited := r.With(middleware.RateLimit(30, time.Minute))
		limited.Post("/edit", app.Edit)
		limited.Post("/upload", app.Upload)
		r.Route("/session/{id}", func(r chi.Router) {
			r.Get("/", app.SessionList)
			r.Get("/archive", app.SessionArchive)
			r.Get("/file/{name}", app.SessionFile)
			r.Delete("/file/{name}", app.SessionFileDelete)
		})
	})

	// Everything else is the front-end bundle.
	r.NotFound(app.Static)

	return r
}
