package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"idlens/internal/audit"
	"idlens/internal/discovery"
	"idlens/internal/identity/normalizer"
	"idlens/internal/platform/config"
	platformredis "idlens/internal/platform/redis"
	"idlens/internal/ratelimit"
	"idlens/internal/resolution"
	resolutionmetrics "idlens/internal/resolution/metrics"
	"idlens/internal/view"
	"idlens/pkg/platform/circuit"
)

const (
	auditBuffer   = 256
	auditCapacity = 1000
)

// app holds the wired components shared by every command.
type app struct {
	controller *resolution.Controller
	handler    *view.Handler
	audit      *audit.Worker
	redis      *platformredis.Client
	logger     *slog.Logger
}

// newApp wires discovery (HTTP or demo fixtures, optionally cached in Redis,
// always audited), the resolution controller and the rate-limited view handler.
func newApp(ctx context.Context, cfg config.Server, logger *slog.Logger, reg prometheus.Registerer) (*app, error) {
	ordering, err := resolution.ParseOrdering(cfg.Ordering)
	if err != nil {
		return nil, err
	}

	discoveryMetrics := discovery.NewMetrics(reg)
	var client discovery.Client
	if cfg.DemoMode() {
		logger.InfoContext(ctx, "no discovery URL configured, serving demo fixtures")
		client = discovery.NewStaticClient(discovery.DemoRecords(cfg.IdentityKey), 0)
	} else {
		httpClient, err := discovery.NewHTTPClient(cfg.Discovery.BaseURL,
			discovery.WithTimeout(cfg.Discovery.Timeout),
			discovery.WithBreaker(circuit.New("discovery",
				circuit.WithFailureThreshold(cfg.Discovery.FailureThreshold),
				circuit.WithSuccessThreshold(cfg.Discovery.SuccessThreshold),
			)),
			discovery.WithMetrics(discoveryMetrics),
			discovery.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		client = httpClient
	}

	rdb, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if rdb != nil {
		logger.InfoContext(ctx, "discovery cache enabled", "ttl", cfg.Redis.CacheTTL)
		client = discovery.NewCachedClient(client, rdb.Client,
			discovery.WithCacheTTL(cfg.Redis.CacheTTL),
			discovery.WithCacheMetrics(discoveryMetrics),
			discovery.WithCacheLogger(logger),
		)
	}

	publisher := audit.NewPublisher(auditBuffer, logger)
	store := audit.NewMemoryStore(auditCapacity)
	client = discovery.NewAuditedClient(client, publisher)

	normOpts, err := normalizerOptions(cfg.Normalizer)
	if err != nil {
		return nil, err
	}
	controller, err := resolution.New(client, normalizer.New(normOpts...),
		resolution.WithLogger(logger),
		resolution.WithMetrics(resolutionmetrics.New(reg)),
		resolution.WithOrdering(ordering),
	)
	if err != nil {
		return nil, err
	}

	gateway, err := view.NewGateway(cfg.UHRPGateway)
	if err != nil {
		return nil, err
	}
	var buckets ratelimit.BucketStore = ratelimit.NewInMemoryBucketStore()
	if rdb != nil {
		buckets = ratelimit.NewRedisBucketStore(rdb.Client)
	}
	limiter := ratelimit.New(buckets, cfg.RateLimit.Requests, cfg.RateLimit.Window, logger,
		ratelimit.WithRegisterer(reg),
	)

	viewOpts := []view.Option{
		view.WithAuditReader(store),
		view.WithGateway(gateway),
		view.WithAPIMiddleware(limiter.Handler),
	}
	if rdb != nil {
		viewOpts = append(viewOpts, view.WithHealthCheck("redis", rdb.Health))
	}

	return &app{
		controller: controller,
		handler:    view.New(controller, logger, viewOpts...),
		audit:      audit.NewWorker(store, publisher.Inbox(), logger),
		redis:      rdb,
		logger:     logger,
	}, nil
}

// normalizerOptions turns the normalizer config section into options,
// rejecting kinds the normalizer does not know.
func normalizerOptions(cfg config.NormalizerConfig) ([]normalizer.Option, error) {
	var opts []normalizer.Option
	for typeID, name := range cfg.Types {
		kind, err := normalizer.ParseKind(name)
		if err != nil {
			return nil, fmt.Errorf("normalizer type %q: %w", typeID, err)
		}
		opts = append(opts, normalizer.WithType(typeID, kind))
	}
	for name, url := range cfg.FallbackAvatars {
		kind, err := normalizer.ParseKind(name)
		if err != nil {
			return nil, fmt.Errorf("normalizer fallback avatar: %w", err)
		}
		opts = append(opts, normalizer.WithFallbackAvatar(kind, url))
	}
	return opts, nil
}

// close stops background resolutions and releases connections.
func (a *app) close() {
	a.controller.Close()
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis", "error", err)
		}
	}
}
