package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// HealthCheckFn probes one dependency and returns nil when it is reachable.
type HealthCheckFn func(ctx context.Context) error

// HealthHandler serves the health-check endpoint, probing each registered
// dependency on every request.
type HealthHandler struct {
	checks map[string]HealthCheckFn
	logger *slog.Logger
}

// NewHealthHandler creates a HealthHandler with the provided logger.
func NewHealthHandler(logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		checks: map[string]HealthCheckFn{},
		logger: logger,
	}
}

// WithCheck registers a named dependency probe and returns the handler for
// chaining.
func (h *HealthHandler) WithCheck(name string, fn HealthCheckFn) *HealthHandler {
	h.checks[name] = fn
	return h
}

// HealthCheck responds with the overall status and the result of each
// dependency probe. Any failing probe degrades the response to 503.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := "ok"
	httpStatus := http.StatusOK
	deps := map[string]string{}

	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			deps[name] = err.Error()
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
			h.logger.WarnContext(ctx, "health check failed",
				slog.String("dependency", name),
				slog.String("error", err.Error()),
			)
		} else {
			deps[name] = "ok"
		}
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":       status,
		"dependencies": deps,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}
