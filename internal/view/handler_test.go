package view

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idlens/internal/audit"
	"idlens/internal/discovery"
	"idlens/internal/identity/models"
	"idlens/internal/identity/normalizer"
	"idlens/internal/platform/metrics"
	"idlens/internal/ratelimit"
	"idlens/internal/resolution"
	"idlens/pkg/testutil"
)

const testKey = "0294c479f762f6baa97fbcd4393564c1d7bd8336ebd15928135bbcf575cd1a71a1"

type fixture struct {
	controller *resolution.Controller
	store      *audit.MemoryStore
	router     http.Handler
}

func newFixture(t *testing.T, records []models.RawRecord, opts ...Option) *fixture {
	t.Helper()
	logger, _ := testutil.BufferLogger()
	c, err := resolution.New(discovery.NewStaticClient(records, 0), normalizer.New(), resolution.WithLogger(logger))
	require.NoError(t, err)
	t.Cleanup(c.Close)

	store := audit.NewMemoryStore(10)
	gw, err := NewGateway("https://gateway.example/cdn/")
	require.NoError(t, err)

	opts = append([]Option{WithAuditReader(store), WithGateway(gw)}, opts...)
	h := New(c, logger, opts...)
	reg := prometheus.NewRegistry()
	return &fixture{
		controller: c,
		store:      store,
		router:     NewRouter(h, logger, metrics.New(reg), reg),
	}
}

func (f *fixture) start(t *testing.T) {
	t.Helper()
	f.controller.Start(context.Background(), testKey)
	f.controller.Wait()
}

func TestGetIdentity(t *testing.T) {
	testutil.Given(t, "the primary identity is not resolved", func(t *testing.T) {
		f := newFixture(t, discovery.DemoRecords(testKey))

		testutil.Then(t, "the endpoint reports not found", func(t *testing.T) {
			rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/api/identity"))
			testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
		})
	})

	testutil.Given(t, "the primary identity is resolved", func(t *testing.T) {
		f := newFixture(t, discovery.DemoRecords(testKey))
		f.start(t)

		testutil.Then(t, "the normalized identity is returned", func(t *testing.T) {
			rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/api/identity"))
			testutil.AssertStatusOK(t, rr)
			got := testutil.UnmarshalResponse[identityResponse](t, rr)
			assert.Equal(t, "Alice Example", got.Name)
			assert.Equal(t, "https://avatars.example/alice.png", got.AvatarURL)
			assert.Equal(t, "0294c479f7...", got.AbbreviatedKey)
			assert.Equal(t, "Government ID certified by IdentiCert", got.BadgeLabel)
			assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
		})
	})

	testutil.Given(t, "an avatar stored on UHRP", func(t *testing.T) {
		f := newFixture(t, []models.RawRecord{{
			Type:            "x",
			Subject:         testKey,
			DecryptedFields: map[string]string{"userName": "@alice", "profilePhoto": "uhrp://XUTabc123"},
			CertifierInfo:   models.CertifierInfo{Name: "SocialCert", IconURL: "https://socialcert.net/icon.png"},
		}})
		f.start(t)

		testutil.Then(t, "the avatar is served through the gateway", func(t *testing.T) {
			rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/api/identity"))
			got := testutil.UnmarshalResponse[identityResponse](t, rr)
			assert.Equal(t, "https://gateway.example/cdn/XUTabc123", got.AvatarURL)
			assert.Equal(t, "https://socialcert.net/icon.png", got.BadgeIconURL)
		})
	})
}

func TestSearchEndpoints(t *testing.T) {
	t.Run("PUT sets the term and results follow", func(t *testing.T) {
		f := newFixture(t, discovery.DemoRecords(testKey))

		rr := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodPut, "/api/search", map[string]string{"term": "ali"}))
		testutil.AssertStatus(t, rr, http.StatusAccepted)
		f.controller.Wait()

		rr = testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/api/search"))
		testutil.AssertStatusOK(t, rr)
		got := testutil.UnmarshalResponse[searchResponse](t, rr)
		assert.Equal(t, "ali", got.Term)
		assert.Equal(t, "ali", got.ResultsTerm)
		assert.Equal(t, []string{"Alice Example", "@alicia"}, got.Options)
		assert.Len(t, got.Results, 2)
	})

	t.Run("initial state has empty collections", func(t *testing.T) {
		f := newFixture(t, nil)
		rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/api/search"))
		body := string(testutil.ReadBody(t, rr))
		assert.Contains(t, body, `"results":[]`)
		assert.Contains(t, body, `"options":[]`)
	})

	t.Run("malformed bodies are rejected", func(t *testing.T) {
		f := newFixture(t, nil)
		tests := []struct {
			name string
			body string
			code string
		}{
			{name: "empty body", body: "", code: "bad_request"},
			{name: "not json", body: "{", code: "bad_request"},
			{name: "unknown field", body: `{"query":"x"}`, code: "bad_request"},
			{name: "term too long", body: `{"term":"` + strings.Repeat("a", maxTermLength+1) + `"}`, code: "validation_error"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rr := testutil.DoRequest(f.router, testutil.NewRequestWithBody(t, http.MethodPut, "/api/search", tt.body))
				testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, tt.code)
			})
		}
	})

	t.Run("resolve answers synchronously with the outcome", func(t *testing.T) {
		f := newFixture(t, discovery.DemoRecords(testKey))

		rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/api/search/resolve?q=bob"))
		testutil.AssertStatusOK(t, rr)
		got := testutil.UnmarshalResponse[resolveResponse](t, rr)
		assert.Equal(t, []string{"bob@example.com"}, got.Options)
		assert.Equal(t, "applied", got.Outcome.Status)
		assert.Equal(t, 1, got.Outcome.Results)

		rr = testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/api/search/resolve"))
		got = testutil.UnmarshalResponse[resolveResponse](t, rr)
		assert.Equal(t, "skipped", got.Outcome.Status)
		assert.Equal(t, []string{"bob@example.com"}, got.Options, "empty term keeps results")
	})
}

func TestPage(t *testing.T) {
	t.Run("without identity", func(t *testing.T) {
		f := newFixture(t, nil)
		rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/"))
		testutil.AssertStatusOK(t, rr)
		body := rr.Body.String()
		assert.Contains(t, body, "Resolved Identity Information")
		assert.Contains(t, body, "No identity information found")
		assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
	})

	t.Run("with identity and a search", func(t *testing.T) {
		f := newFixture(t, discovery.DemoRecords(testKey))
		f.start(t)

		rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/?q=carol"))
		body := rr.Body.String()
		assert.Contains(t, body, "Name: Alice Example")
		assert.Contains(t, body, "Key: 0294c479f7...")
		assert.Contains(t, body, "Learn more")
		assert.Contains(t, body, `<option value="carol#4242">`)
		assert.NotContains(t, body, "No identity information found")

		state := f.controller.Snapshot()
		assert.Equal(t, "carol", state.SearchTerm, "the submitted term is recorded")
		assert.Equal(t, "carol", state.ResultsTerm)
	})

	t.Run("badge without click url has no link", func(t *testing.T) {
		logger, _ := testutil.BufferLogger()
		h := New(stubResolver{state: resolution.State{Primary: &models.Identity{
			Name:         "Nameless",
			BadgeIconURL: "https://i/b.png",
			BadgeLabel:   "Certified",
		}}}, logger)
		rr := testutil.DoRequest(NewRouter(h, logger, nil, nil), testutil.NewRequest(t, http.MethodGet, "/"))
		body := rr.Body.String()
		assert.Contains(t, body, "Certified")
		assert.NotContains(t, body, "Learn more")
	})
}

func TestListAudit(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	for i, op := range []audit.Operation{audit.OperationResolveByKey, audit.OperationResolveByAttributes} {
		require.NoError(t, f.store.Append(ctx, audit.Event{
			ID:        string(rune('a' + i)),
			Timestamp: time.Now(),
			Operation: op,
			Purpose:   "Search for identities",
			Outcome:   "ok",
		}))
	}

	rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/api/audit?limit=1"))
	testutil.AssertStatusOK(t, rr)
	got := testutil.UnmarshalResponse[auditResponse](t, rr)
	require.Len(t, got.Events, 1)
	assert.Equal(t, audit.OperationResolveByAttributes, got.Events[0].Operation)

	for _, bad := range []string{"abc", "0", "-3"} {
		rr = testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/api/audit?limit="+bad))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
	}
}

func TestHealthAndMetrics(t *testing.T) {
	healthy := newFixture(t, nil, WithHealthCheck("redis", func(context.Context) error { return nil }))
	rr := testutil.DoRequest(healthy.router, testutil.NewRequest(t, http.MethodGet, "/healthz"))
	testutil.AssertStatusOK(t, rr)
	testutil.AssertJSONContains(t, rr, "status", "ok")

	sick := newFixture(t, nil, WithHealthCheck("redis", func(context.Context) error { return errors.New("connection refused") }))
	rr = testutil.DoRequest(sick.router, testutil.NewRequest(t, http.MethodGet, "/healthz"))
	testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
	got := testutil.UnmarshalResponse[healthResponse](t, rr)
	assert.Equal(t, "degraded", got.Status)
	assert.Equal(t, "connection refused", got.Checks["redis"])

	rr = testutil.DoRequest(healthy.router, testutil.NewRequest(t, http.MethodGet, "/metrics"))
	testutil.AssertStatusOK(t, rr)
	assert.Contains(t, rr.Body.String(), "idlens_http_requests_total")
}

func TestAPIMiddleware(t *testing.T) {
	logger, _ := testutil.BufferLogger()
	limiter := ratelimit.New(ratelimit.NewInMemoryBucketStore(), 2, time.Minute, logger)
	f := newFixture(t, discovery.DemoRecords(testKey), WithAPIMiddleware(limiter.Handler))

	rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/?q=bob"))
	testutil.AssertStatusOK(t, rr)
	assert.Equal(t, "2", rr.Header().Get("X-RateLimit-Limit"), "page searches count against the limit")

	rr = testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/api/search"))
	testutil.AssertStatusOK(t, rr)
	got := testutil.UnmarshalResponse[searchResponse](t, rr)
	assert.Equal(t, "bob", got.Term)

	rr = testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/?q=carol"))
	testutil.AssertStatus(t, rr, http.StatusTooManyRequests)
	testutil.AssertJSONContains(t, rr, "error", "rate_limit_exceeded")
	assert.Equal(t, "bob", f.controller.Snapshot().SearchTerm, "a limited page load never reaches discovery")

	rr = testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/api/search"))
	testutil.AssertStatus(t, rr, http.StatusTooManyRequests)

	// health stays outside the limit
	for range 3 {
		rr = testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/healthz"))
		testutil.AssertStatusOK(t, rr)
	}
}

type stubResolver struct {
	state resolution.State
}

func (s stubResolver) Snapshot() resolution.State            { return s.state }
func (s stubResolver) SetSearchTerm(context.Context, string) {}
func (s stubResolver) SubmitSearch(context.Context, string) ([]models.Identity, resolution.Outcome) {
	return s.state.Results, resolution.Outcome{Status: resolution.StatusSkipped}
}
