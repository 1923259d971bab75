package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/colin-rod/tribe-mvp-sub000/pkg/requestid"
)

// NewRouter mounts the notification endpoints with the standard middleware
// chain. The caller wires any authentication in front of it.
func NewRouter(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(requestid.Middleware)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/jobs/{id}", func(r chi.Router) {
			r.Get("/", h.GetJob)
			r.Post("/cancel", h.CancelJob)
		})

		r.Route("/recipients/{recipientID}", func(r chi.Router) {
			r.Get("/jobs", h.ListJobs)
			r.Get("/quiet-hours", h.QuietHoursStatus)
		})
	})

	return r
}
