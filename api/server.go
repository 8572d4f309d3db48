/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. hlog:       Request-scoped zerolog logger and access log
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for frontends

ROUTE GROUPS:
  /health               Liveness
  /metrics              Prometheus (when a gatherer is configured)
  /api/grid             Month grid
  /api/actions/*        Action CRUD and views
  /api/facets/*         Facet options
  /api/summary          Counts and shares
  /api/export.ics       iCalendar export
  /api/store            Raw store passthrough
  /api/admin/*          Compaction

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/actioncal/serve.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/hlog"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	// AllowedOrigins for CORS. Empty allows any origin.
	AllowedOrigins []string
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(hlog.NewHandler(h.Log))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, took time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", middleware.GetReqID(r.Context())).
			Int("status", status).
			Int("size", size).
			Dur("took", took).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", h.Health)
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/grid", h.GetGrid)

		r.Route("/actions", func(r chi.Router) {
			r.Get("/", h.ListActions)
			r.Post("/", h.CreateAction)
			r.Put("/{id}", h.ReplaceAction)
			r.Delete("/by-id/{id}", h.DeleteByID)
			r.Delete("/{date}/{index}", h.DeleteAt)
		})

		r.Route("/facets", func(r chi.Router) {
			r.Get("/subjects", h.SubjectOptions)
			r.Get("/actors", h.ActorOptions)
		})

		r.Get("/summary", h.Summary)
		r.Get("/export.ics", h.ExportICS)

		r.Get("/store", h.GetStore)
		r.Put("/store", h.PutStore)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/compact", h.Compact)
			r.Get("/compactions", h.ListCompactions)
		})
	})

	return r
}
