// Package httpapi assembles the chi router for the public JSON API.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"nexus/internal/http/handlers"
	"nexus/internal/middleware"
)

// RouterOptions tunes the outer HTTP surface.
type RouterOptions struct {
	AllowedOrigins []string
	// GenerateLimit caps generation requests per client IP per minute.
	// Zero disables the limiter.
	GenerateLimit int
}

// NewRouter wires middleware and routes around the handler set.
func NewRouter(app *handlers.App, logger zerolog.Logger, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(logger),
		chimw.Timeout(60*time.Second),
	)

	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			MaxAge:         300,
		}).Handler)
	}

	r.Get("/v1/healthz", app.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/wideo", func(r chi.Router) {
			if opts.GenerateLimit > 0 {
				r.With(middleware.RateLimit(opts.GenerateLimit, time.Minute)).
					Post("/generuj", app.VideoGenerate)
			} else {
				r.Post("/generuj", app.VideoGenerate)
			}
			r.Post("/wiralnosc", app.ViralityPredict)
			r.Get("/historia", app.VideoHistory)
			r.Route("/{sesja_id}", func(r chi.Router) {
				r.Get("/status", app.VideoStatus)
				r.Post("/anuluj", app.VideoCancel)
				r.Get("/pobierz", app.VideoDownload)
				r.Get("/miniaturka", app.VideoThumbnail)
			})
		})

		r.Route("/serie", func(r chi.Router) {
			r.Post("/generuj", app.SeriesGenerate)
			r.Get("/", app.SeriesList)
			r.Route("/{seria_id}", func(r chi.Router) {
				r.Get("/", app.SeriesGet)
				r.Post("/kontynuuj", app.SeriesContinue)
				r.Delete("/", app.SeriesDelete)
			})
		})

		r.Get("/statystyki/platforma", app.PlatformStats)
	})

	return r
}
