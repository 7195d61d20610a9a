package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"idlens/internal/identity/models"
	"idlens/pkg/platform/circuit"
	"idlens/pkg/platform/sentinel"
	"idlens/pkg/requestcontext"
)

const (
	opResolveByKey        = "resolve_by_key"
	opResolveByAttributes = "resolve_by_attributes"

	pathByKey        = "v1/discover/by-key"
	pathByAttributes = "v1/discover/by-attributes"

	// maxResponseBytes bounds a single discovery response body.
	maxResponseBytes = 4 << 20

	defaultTimeout       = 10 * time.Second
	defaultProbeInterval = 5 * time.Second

	tracerName = "idlens/internal/discovery"
)

type byKeyRequest struct {
	IdentityKey string `json:"identityKey"`
	Description string `json:"description"`
}

type byAttributesRequest struct {
	Attributes  Attributes `json:"attributes"`
	Description string     `json:"description"`
}

type resultsEnvelope struct {
	Results json.RawMessage `json:"results"`
}

// HTTPClient calls the discovery service over HTTP/JSON.
//
// A circuit breaker guards the service: once open, calls fail fast with
// CategoryOutage except for one probe per probe interval, whose success
// counts towards closing it again.
type HTTPClient struct {
	baseURL       *url.URL
	http          *http.Client
	breaker       *circuit.Breaker
	probeInterval time.Duration
	metrics       *Metrics
	tracer        trace.Tracer
	logger        *slog.Logger

	probeMu   sync.Mutex
	lastProbe time.Time
	now       func() time.Time
}

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client (its Timeout is kept).
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTPClient) {
		h.http = c
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) HTTPOption {
	return func(h *HTTPClient) {
		if d > 0 {
			h.http.Timeout = d
		}
	}
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(b *circuit.Breaker) HTTPOption {
	return func(h *HTTPClient) {
		h.breaker = b
	}
}

// WithProbeInterval sets how often an open breaker lets a probe through.
func WithProbeInterval(d time.Duration) HTTPOption {
	return func(h *HTTPClient) {
		h.probeInterval = d
	}
}

func WithMetrics(m *Metrics) HTTPOption {
	return func(h *HTTPClient) {
		h.metrics = m
	}
}

func WithLogger(logger *slog.Logger) HTTPOption {
	return func(h *HTTPClient) {
		h.logger = logger
	}
}

// WithTracerProvider selects the OpenTelemetry provider; the global one is
// used otherwise.
func WithTracerProvider(tp trace.TracerProvider) HTTPOption {
	return func(h *HTTPClient) {
		h.tracer = tp.Tracer(tracerName)
	}
}

// NewHTTPClient builds a client for the service rooted at baseURL.
func NewHTTPClient(baseURL string, opts ...HTTPOption) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse discovery base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("discovery base URL must be http(s), got %q", baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	h := &HTTPClient{
		baseURL:       u,
		http:          &http.Client{Timeout: defaultTimeout},
		breaker:       circuit.New("discovery"),
		probeInterval: defaultProbeInterval,
		tracer:        otel.GetTracerProvider().Tracer(tracerName),
		logger:        slog.Default(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

func (h *HTTPClient) ResolveByKey(ctx context.Context, identityKey, description string) ([]models.RawRecord, error) {
	return h.post(ctx, opResolveByKey, pathByKey, byKeyRequest{
		IdentityKey: identityKey,
		Description: description,
	})
}

func (h *HTTPClient) ResolveByAttributes(ctx context.Context, attrs Attributes, description string) ([]models.RawRecord, error) {
	return h.post(ctx, opResolveByAttributes, pathByAttributes, byAttributesRequest{
		Attributes:  attrs,
		Description: description,
	})
}

func (h *HTTPClient) post(ctx context.Context, op, path string, payload any) ([]models.RawRecord, error) {
	ctx, span := h.tracer.Start(ctx, "discovery."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	start := time.Now()
	records, err := h.do(ctx, op, path, payload)
	h.metrics.observeRequest(op, time.Since(start))

	outcome := "ok"
	switch {
	case err != nil && errors.Is(err, ErrNotCollection):
		outcome = "not_collection"
	case err != nil:
		outcome = string(CategoryOf(err))
	case len(records) == 0:
		outcome = "empty"
	}
	h.metrics.incrementOutcome(op, outcome)
	span.SetAttributes(
		attribute.String("discovery.outcome", outcome),
		attribute.Int("discovery.results", len(records)),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	return records, err
}

func (h *HTTPClient) do(ctx context.Context, op, path string, payload any) ([]models.RawRecord, error) {
	if !h.allow() {
		return nil, NewError(CategoryOutage, op, "circuit open", sentinel.ErrUnavailable)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, NewError(CategoryInternal, op, "encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL.JoinPath(path).String(), bytes.NewReader(body))
	if err != nil {
		return nil, NewError(CategoryInternal, op, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if reqID := requestcontext.RequestID(ctx); reqID != "" {
		req.Header.Set("X-Request-ID", reqID)
	}

	resp, err := h.http.Do(req)
	if err != nil {
		h.recordFailure(ctx)
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, NewError(CategoryTimeout, op, "request timed out", err)
		}
		return nil, NewError(CategoryOutage, op, "request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		h.recordSuccess(ctx)
		return []models.RawRecord{}, nil
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		h.recordSuccess(ctx)
		return nil, NewError(CategoryBadRequest, op, "service rejected request", statusError(resp))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		h.recordSuccess(ctx)
		return nil, NewError(CategoryAuthentication, op, "service denied request", statusError(resp))
	case resp.StatusCode == http.StatusTooManyRequests:
		h.recordFailure(ctx)
		return nil, NewError(CategoryRateLimited, op, "service rate limited request", statusError(resp))
	case resp.StatusCode >= 500:
		h.recordFailure(ctx)
		return nil, NewError(CategoryOutage, op, "service error", statusError(resp))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		h.recordSuccess(ctx)
		return nil, NewError(CategoryInternal, op, "unexpected status", statusError(resp))
	}
	h.recordSuccess(ctx)

	records, err := decodeResults(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if errors.Is(err, ErrNotCollection) {
			return nil, err
		}
		return nil, NewError(CategoryBadData, op, "decode response", err)
	}
	return records, nil
}

// decodeResults accepts {"results": [...]} and reports ErrNotCollection
// when results is missing, null, or not an array.
func decodeResults(r io.Reader) ([]models.RawRecord, error) {
	var env resultsEnvelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, err
	}
	raw := bytes.TrimSpace(env.Results)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, ErrNotCollection
	}
	records := []models.RawRecord{}
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// allow reports whether a call may proceed. While the breaker is open only
// one probe per probe interval goes through.
func (h *HTTPClient) allow() bool {
	if !h.breaker.IsOpen() {
		return true
	}
	h.probeMu.Lock()
	defer h.probeMu.Unlock()
	now := h.now()
	if now.Sub(h.lastProbe) < h.probeInterval {
		return false
	}
	h.lastProbe = now
	return true
}

func (h *HTTPClient) recordFailure(ctx context.Context) {
	_, change := h.breaker.RecordFailure()
	if change.Opened {
		h.metrics.setBreakerOpen(true)
		h.logger.WarnContext(ctx, "discovery circuit opened",
			"breaker", h.breaker.Name(),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

func (h *HTTPClient) recordSuccess(ctx context.Context) {
	_, change := h.breaker.RecordSuccess()
	if change.Closed {
		h.metrics.setBreakerOpen(false)
		h.logger.InfoContext(ctx, "discovery circuit closed",
			"breaker", h.breaker.Name(),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

func statusError(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := strings.TrimSpace(string(snippet))
	if msg == "" {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return fmt.Errorf("status %d: %s", resp.StatusCode, msg)
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
