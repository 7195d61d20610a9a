// Package discovery talks to the external identity discovery service.
//
// The Client interface is the contract the resolution controller depends on.
// HTTPClient is the production implementation; CachedClient and
// AuditedClient decorate any Client; StaticClient serves fixtures for demo
// mode and tests.
package discovery

//go:generate mockgen -source=discovery.go -destination=mocks/mock_client.go -package=mocks Client

import (
	"context"

	"idlens/internal/identity/models"
)

// Attributes is an attribute query. Any matches against every attribute the
// service indexes (name, handle, email, ...) using the service's own
// relevance rules.
type Attributes struct {
	Any string `json:"any"`
}

// Client resolves raw identity records. Implementations return the records
// in service order; an empty slice means no match.
type Client interface {
	ResolveByKey(ctx context.Context, identityKey, description string) ([]models.RawRecord, error)
	ResolveByAttributes(ctx context.Context, attrs Attributes, description string) ([]models.RawRecord, error)
}
