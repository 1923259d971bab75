package api

import (
	"context"
	"log/slog"

	"github.com/colin-rod/tribe-mvp-sub000/pkg/httpserver"
)

// Serve mounts the notification router plus a /health endpoint on a graceful
// HTTP server and blocks until ctx is cancelled or the server fails. The
// health checks run on every probe; pass pg and redis healthchecks from the
// wiring layer.
func Serve(ctx context.Context, cfg httpserver.Config, h *Handler, log *slog.Logger, healthchecks ...func(context.Context) error) error {
	if log == nil {
		log = slog.Default()
	}

	router := NewRouter(h)
	router.Get("/health", httpserver.HealthCheckHandler(ctx, log, healthchecks...))

	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
	return srv.Run(ctx, router)
}
