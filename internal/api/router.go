package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter mounts the members API. Fixed segments (image, document,
// validate) are registered before the {id} catch-all so they are not
// swallowed by it.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)

	r.Get("/api", h.Root)
	r.Get("/api/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/members", func(r chi.Router) {
		r.Post("/", h.CreateMember)
		r.Get("/", h.ListMembers)
		r.Get("/image/{fileId}", h.GetDocumentImage)
		r.Get("/document/{documentNumber}", h.GetMemberByDocument)
		r.Get("/validate/{documentNumber}", h.ValidateInLedger)
		r.Get("/{id}", h.GetMember)
		r.Patch("/{id}", h.UpdateMember)
		r.Delete("/{id}", h.DeleteMember)
	})

	return r
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
