// Package resolution owns the two pieces of identity state the front-end
// displays: the primary identity, resolved once for a configured key, and the
// search results, resolved again whenever the search term changes.
//
// Each state cell has exactly one writer, the apply step of its own
// resolution, guarded by its own mutex. Failures never escape: every
// resolution reports an Outcome and leaves state as it was.
package resolution

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"idlens/internal/discovery"
	"idlens/internal/identity/models"
	"idlens/internal/resolution/metrics"
	"idlens/pkg/domain"
	"idlens/pkg/requestcontext"
)

const (
	opPrimary = "primary"
	opSearch  = "search"
)

// Normalizer turns raw discovery records into display-ready identities.
type Normalizer interface {
	Normalize(rec models.RawRecord) models.Identity
	NormalizeAll(recs []models.RawRecord) []models.Identity
}

// Ordering decides which of several overlapping search completions wins.
type Ordering string

const (
	// OrderLatestIssued applies a completion only if it was issued after the
	// last applied search. Late answers to superseded terms are dropped.
	OrderLatestIssued Ordering = "issued"
	// OrderLatestArrival applies every completion as it arrives, so a slow
	// answer to an old term can overwrite a newer one.
	OrderLatestArrival Ordering = "arrival"
)

// ParseOrdering accepts "issued" or "arrival"; empty means OrderLatestIssued.
func ParseOrdering(s string) (Ordering, error) {
	switch Ordering(s) {
	case "", OrderLatestIssued:
		return OrderLatestIssued, nil
	case OrderLatestArrival:
		return OrderLatestArrival, nil
	default:
		return "", errors.New("ordering must be \"issued\" or \"arrival\"")
	}
}

// State is a point-in-time copy of controller state for rendering.
type State struct {
	Primary     *models.Identity  `json:"primary,omitempty"`
	Avatar      string            `json:"avatar,omitempty"`
	Resolved    bool              `json:"resolved"`
	SearchTerm  string            `json:"searchTerm"`
	ResultsTerm string            `json:"resultsTerm"`
	Results     []models.Identity `json:"results"`
	Options     []string          `json:"options"`
}

// Controller sequences discovery calls and reconciles their completions with
// current state.
type Controller struct {
	discovery  discovery.Client
	normalizer Normalizer
	logger     *slog.Logger
	metrics    *metrics.Metrics
	ordering   Ordering

	started atomic.Bool

	primaryMu sync.RWMutex
	primary   *models.Identity
	avatar    string
	resolved  bool

	searchMu    sync.RWMutex
	term        string
	applied     uint64
	resultsTerm string
	results     []models.Identity

	issued atomic.Uint64

	lifecycle context.Context
	stop      context.CancelFunc
	closeMu   sync.Mutex
	closed    bool
	wg        sync.WaitGroup
}

// Option configures a Controller.
type Option func(*Controller)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithOrdering selects how overlapping searches are reconciled.
func WithOrdering(o Ordering) Option {
	return func(c *Controller) {
		if o != "" {
			c.ordering = o
		}
	}
}

func New(client discovery.Client, normalizer Normalizer, opts ...Option) (*Controller, error) {
	if client == nil {
		return nil, errors.New("discovery client is required")
	}
	if normalizer == nil {
		return nil, errors.New("normalizer is required")
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		discovery:  client,
		normalizer: normalizer,
		logger:     slog.Default(),
		ordering:   OrderLatestIssued,
		results:    []models.Identity{},
		lifecycle:  ctx,
		stop:       cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Start resolves the primary identity for key in the background. Only the
// first call does anything; there is no retry or refresh.
func (c *Controller) Start(ctx context.Context, key string) {
	if !c.started.CompareAndSwap(false, true) {
		return
	}
	c.goTracked(ctx, func(ctx context.Context) {
		c.ResolvePrimary(ctx, key)
	})
}

// ResolvePrimary asks discovery about key and keeps the first record it
// returns. An empty answer leaves the primary identity explicitly absent; a
// failure leaves it untouched.
func (c *Controller) ResolvePrimary(ctx context.Context, key string) (*models.Identity, Outcome) {
	start := time.Now()
	defer func() {
		c.metrics.ObserveResolveLatency(opPrimary, time.Since(start))
	}()

	parsed, err := domain.ParseIdentityKey(key)
	if err != nil {
		return nil, c.failPrimary(ctx, key, err)
	}

	records, err := c.discovery.ResolveByKey(ctx, parsed.String(), domain.PurposeDiscoverIdentityKey.String())
	if err != nil {
		return nil, c.failPrimary(ctx, key, err)
	}

	if len(records) == 0 {
		c.applyPrimary(nil)
		out := Outcome{Status: StatusApplied, Diagnostic: EmptyResult}
		c.logger.InfoContext(ctx, "no identity found for key",
			"request_id", requestcontext.RequestID(ctx),
			"identity_key", parsed.String(),
		)
		c.metrics.IncrementOutcome(opPrimary, string(out.Status), string(out.Diagnostic))
		return nil, out
	}

	id := c.normalizer.Normalize(records[0])
	c.applyPrimary(&id)
	out := Outcome{Status: StatusApplied, Results: 1}
	c.logger.InfoContext(ctx, "primary identity resolved",
		"request_id", requestcontext.RequestID(ctx),
		"identity_key", parsed.String(),
		"name", id.Name,
		"records", len(records),
	)
	c.metrics.IncrementOutcome(opPrimary, string(out.Status), string(out.Diagnostic))
	return &id, out
}

func (c *Controller) failPrimary(ctx context.Context, key string, err error) Outcome {
	out := Outcome{Status: StatusFailed, Diagnostic: classify(err), Retryable: discovery.IsRetryable(err), Err: err}
	if out.Diagnostic == EmptyResult {
		c.applyPrimary(nil)
		out.Status = StatusApplied
	} else {
		c.markResolved()
	}
	c.logger.WarnContext(ctx, "primary identity resolution failed",
		"request_id", requestcontext.RequestID(ctx),
		"identity_key", key,
		"diagnostic", string(out.Diagnostic),
		"retryable", out.Retryable,
		"error", err,
	)
	c.metrics.IncrementOutcome(opPrimary, string(out.Status), string(out.Diagnostic))
	return out
}

func (c *Controller) applyPrimary(id *models.Identity) {
	c.primaryMu.Lock()
	defer c.primaryMu.Unlock()
	c.primary = id
	c.avatar = ProjectAvatar(id)
	c.resolved = true
}

func (c *Controller) markResolved() {
	c.primaryMu.Lock()
	defer c.primaryMu.Unlock()
	c.resolved = true
}

// SetSearchTerm records term and resolves it in the background. The request
// context contributes its values (request ID) but not its cancellation.
func (c *Controller) SetSearchTerm(ctx context.Context, term string) {
	c.setTerm(term)

	if term == "" {
		c.ResolveSearch(ctx, term)
		return
	}
	seq := c.issued.Add(1)
	c.goTracked(ctx, func(ctx context.Context) {
		c.resolveSearch(ctx, term, seq)
	})
}

// SubmitSearch records term like SetSearchTerm but resolves it before
// returning, for callers that render the results in the same request.
func (c *Controller) SubmitSearch(ctx context.Context, term string) ([]models.Identity, Outcome) {
	c.setTerm(term)
	return c.ResolveSearch(ctx, term)
}

func (c *Controller) setTerm(term string) {
	c.searchMu.Lock()
	defer c.searchMu.Unlock()
	c.term = term
}

// ResolveSearch resolves term against every indexed attribute and, unless a
// newer search already landed, replaces the search results. An empty term is
// a no-op that keeps the current results.
func (c *Controller) ResolveSearch(ctx context.Context, term string) ([]models.Identity, Outcome) {
	if term == "" {
		out := Outcome{Status: StatusSkipped}
		c.metrics.IncrementOutcome(opSearch, string(out.Status), string(out.Diagnostic))
		return c.currentResults(), out
	}
	return c.resolveSearch(ctx, term, c.issued.Add(1))
}

func (c *Controller) resolveSearch(ctx context.Context, term string, seq uint64) ([]models.Identity, Outcome) {
	start := time.Now()
	c.metrics.SearchStarted()
	defer func() {
		c.metrics.SearchFinished()
		c.metrics.ObserveResolveLatency(opSearch, time.Since(start))
	}()

	records, err := c.discovery.ResolveByAttributes(ctx, discovery.Attributes{Any: term}, domain.PurposeSearchIdentities.String())
	if err != nil {
		out := Outcome{Status: StatusFailed, Diagnostic: classify(err), Sequence: seq, Retryable: discovery.IsRetryable(err), Err: err}
		c.logger.WarnContext(ctx, "identity search failed",
			"request_id", requestcontext.RequestID(ctx),
			"sequence", seq,
			"diagnostic", string(out.Diagnostic),
			"retryable", out.Retryable,
			"error", err,
		)
		c.metrics.IncrementOutcome(opSearch, string(out.Status), string(out.Diagnostic))
		return c.currentResults(), out
	}

	ids := c.normalizer.NormalizeAll(records)

	out := Outcome{Status: StatusApplied, Sequence: seq, Results: len(ids)}
	if len(ids) == 0 {
		out.Diagnostic = EmptyResult
	}
	if !c.applySearch(term, seq, ids) {
		out.Status = StatusStale
		c.metrics.IncrementStaleDiscard()
		c.logger.DebugContext(ctx, "discarded stale search results",
			"request_id", requestcontext.RequestID(ctx),
			"sequence", seq,
		)
		c.metrics.IncrementOutcome(opSearch, string(out.Status), string(out.Diagnostic))
		return c.currentResults(), out
	}

	c.logger.DebugContext(ctx, "search results applied",
		"request_id", requestcontext.RequestID(ctx),
		"sequence", seq,
		"results", len(ids),
	)
	c.metrics.IncrementOutcome(opSearch, string(out.Status), string(out.Diagnostic))
	return slices.Clone(ids), out
}

// applySearch replaces the results wholesale. Under OrderLatestIssued it
// refuses completions issued before the last applied one.
func (c *Controller) applySearch(term string, seq uint64, ids []models.Identity) bool {
	c.searchMu.Lock()
	defer c.searchMu.Unlock()
	if c.ordering == OrderLatestIssued && seq <= c.applied {
		return false
	}
	c.applied = seq
	c.resultsTerm = term
	c.results = ids
	return true
}

func (c *Controller) currentResults() []models.Identity {
	c.searchMu.RLock()
	defer c.searchMu.RUnlock()
	return slices.Clone(c.results)
}

// Snapshot copies current state.
func (c *Controller) Snapshot() State {
	var s State

	c.primaryMu.RLock()
	if c.primary != nil {
		p := *c.primary
		s.Primary = &p
	}
	s.Avatar = c.avatar
	s.Resolved = c.resolved
	c.primaryMu.RUnlock()

	c.searchMu.RLock()
	s.SearchTerm = c.term
	s.ResultsTerm = c.resultsTerm
	s.Results = slices.Clone(c.results)
	c.searchMu.RUnlock()

	if s.Results == nil {
		s.Results = []models.Identity{}
	}
	s.Options = models.Names(s.Results)
	return s
}

// Wait blocks until all background resolutions have finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close stops accepting background work, cancels what is in flight and waits
// for it to finish.
func (c *Controller) Close() {
	c.closeMu.Lock()
	c.closed = true
	c.closeMu.Unlock()
	c.stop()
	c.wg.Wait()
}

func (c *Controller) goTracked(ctx context.Context, fn func(context.Context)) {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return
	}

	bg, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(c.lifecycle, cancel)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		defer stop()
		fn(bg)
	}()
}
