package discovery

import (
	"context"
	"errors"

	"idlens/internal/audit"
	"idlens/internal/identity/models"
)

// AuditEmitter accepts audit events; *audit.Publisher satisfies it.
type AuditEmitter interface {
	Emit(ctx context.Context, event audit.Event) bool
}

// AuditedClient records every discovery request, with its disclosed purpose,
// in the audit trail. It sits outermost so cached answers are audited too.
type AuditedClient struct {
	inner   Client
	emitter AuditEmitter
}

func NewAuditedClient(inner Client, emitter AuditEmitter) *AuditedClient {
	return &AuditedClient{inner: inner, emitter: emitter}
}

func (c *AuditedClient) ResolveByKey(ctx context.Context, identityKey, description string) ([]models.RawRecord, error) {
	records, err := c.inner.ResolveByKey(ctx, identityKey, description)
	c.emitter.Emit(ctx, audit.Event{
		Operation: audit.OperationResolveByKey,
		Purpose:   description,
		Subject:   identityKey,
		Outcome:   outcomeOf(records, err),
		Results:   len(records),
	})
	return records, err
}

func (c *AuditedClient) ResolveByAttributes(ctx context.Context, attrs Attributes, description string) ([]models.RawRecord, error) {
	records, err := c.inner.ResolveByAttributes(ctx, attrs, description)
	c.emitter.Emit(ctx, audit.Event{
		Operation:   audit.OperationResolveByAttributes,
		Purpose:     description,
		QueryLength: len([]rune(attrs.Any)),
		Outcome:     outcomeOf(records, err),
		Results:     len(records),
	})
	return records, err
}

func outcomeOf(records []models.RawRecord, err error) string {
	switch {
	case errors.Is(err, ErrNotCollection):
		return "not_collection"
	case err != nil:
		return string(CategoryOf(err))
	case len(records) == 0:
		return "empty"
	default:
		return "ok"
	}
}
