package view

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"idlens/internal/platform/metrics"
	"idlens/internal/platform/middleware"
	"idlens/pkg/platform/middleware/metadata"
	"idlens/pkg/platform/middleware/requestid"
	"idlens/pkg/platform/middleware/requesttime"
)

// NewRouter wires the middleware chain, the view routes and /metrics.
func NewRouter(h *Handler, logger *slog.Logger, m *metrics.Metrics, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(middleware.AccessLog(logger, m))
	r.Use(chimw.Recoverer)

	h.Register(r)
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(gatherer))
	}
	return r
}
