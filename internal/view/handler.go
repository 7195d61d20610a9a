// Package view serves the identity page and its JSON API.
package view

import (
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"idlens/internal/audit"
	"idlens/internal/identity/models"
	"idlens/internal/resolution"
	dErrors "idlens/pkg/domain-errors"
	"idlens/pkg/platform/httputil"
	"idlens/pkg/requestcontext"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// Resolver is the part of the resolution controller the view depends on.
type Resolver interface {
	Snapshot() resolution.State
	SetSearchTerm(ctx context.Context, term string)
	SubmitSearch(ctx context.Context, term string) ([]models.Identity, resolution.Outcome)
}

// AuditReader lists recent discovery audit events.
type AuditReader interface {
	Recent(ctx context.Context, limit int) ([]audit.Event, error)
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Handler handles the page and API endpoints.
type Handler struct {
	resolver Resolver
	audit    AuditReader
	gateway  *Gateway
	checks   map[string]HealthCheck
	apiMW    []func(http.Handler) http.Handler
	logger   *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

func WithAuditReader(r AuditReader) Option {
	return func(h *Handler) {
		h.audit = r
	}
}

func WithGateway(g *Gateway) Option {
	return func(h *Handler) {
		h.gateway = g
	}
}

// WithAPIMiddleware wraps the routes that reach discovery (the page and
// /api), for example with a rate limit.
func WithAPIMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.apiMW = append(h.apiMW, mw...)
	}
}

// WithHealthCheck adds a named dependency check to /healthz.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(h *Handler) {
		h.checks[name] = check
	}
}

// New creates a view Handler.
func New(resolver Resolver, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		resolver: resolver,
		logger:   logger,
		checks:   make(map[string]HealthCheck),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the view routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	// the page resolves ?q= against discovery, so it shares the API limits
	r.With(h.apiMW...).Get("/", h.handlePage)
	r.Get("/healthz", h.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Use(h.apiMW...)
		r.Get("/identity", h.handleGetIdentity)
		r.Put("/search", h.handleSetSearch)
		r.Get("/search", h.handleGetSearch)
		r.Get("/search/resolve", h.handleResolveSearch)
		if h.audit != nil {
			r.Get("/audit", h.handleListAudit)
		}
	})
}

type pageData struct {
	Identity *identityResponse
	Term     string
	Options  []string
}

func (h *Handler) handlePage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	term := r.URL.Query().Get("q")
	if term != "" {
		// form submission without scripts: resolve before rendering
		h.resolver.SubmitSearch(ctx, term)
	}

	state := h.resolver.Snapshot()
	data := pageData{
		Term:    term,
		Options: state.Options,
	}
	if state.Primary != nil {
		id := h.toIdentityResponse(*state.Primary)
		data.Identity = &id
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		h.logger.ErrorContext(ctx, "failed to render page",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}

func (h *Handler) handleGetIdentity(w http.ResponseWriter, r *http.Request) {
	state := h.resolver.Snapshot()
	if state.Primary == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "No identity information found"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.toIdentityResponse(*state.Primary))
}

func (h *Handler) handleSetSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	var req searchRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid search request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.resolver.SetSearchTerm(ctx, req.Term)
	httputil.WriteJSON(w, http.StatusAccepted, searchRequest{Term: req.Term})
}

func (h *Handler) handleGetSearch(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.toSearchResponse(h.resolver.Snapshot()))
}

func (h *Handler) handleResolveSearch(w http.ResponseWriter, r *http.Request) {
	req := searchRequest{Term: r.URL.Query().Get("q")}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	_, out := h.resolver.SubmitSearch(r.Context(), req.Term)
	httputil.WriteJSON(w, http.StatusOK, resolveResponse{
		searchResponse: h.toSearchResponse(h.resolver.Snapshot()),
		Outcome:        toOutcomeResponse(out),
	})
}

func (h *Handler) handleListAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := defaultAuditLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer"))
			return
		}
		limit = min(n, maxAuditLimit)
	}

	events, err := h.audit.Recent(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list audit events",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit events"))
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, auditResponse{Events: events})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := healthResponse{Status: "ok"}
	status := http.StatusOK
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			if resp.Checks == nil {
				resp.Checks = make(map[string]string)
			}
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			h.logger.WarnContext(ctx, "health check failed",
				"request_id", requestcontext.RequestID(ctx),
				"check", name,
				"error", err,
			)
		}
	}
	httputil.WriteJSON(w, status, resp)
}
