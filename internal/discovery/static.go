package discovery

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"idlens/internal/identity/models"
)

// StaticClient answers from in-memory fixtures. Attribute queries match,
// case-insensitively, any decrypted field value or the certifier name.
type StaticClient struct {
	mu      sync.RWMutex
	byKey   map[string][]models.RawRecord
	records []models.RawRecord
	latency time.Duration
}

// NewStaticClient indexes records by subject for key lookups and keeps them,
// in order, for attribute queries.
func NewStaticClient(records []models.RawRecord, latency time.Duration) *StaticClient {
	c := &StaticClient{
		byKey:   make(map[string][]models.RawRecord),
		latency: latency,
	}
	for _, rec := range records {
		c.add(rec)
	}
	return c
}

// Add registers another fixture record.
func (c *StaticClient) Add(rec models.RawRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.add(rec)
}

func (c *StaticClient) add(rec models.RawRecord) {
	c.byKey[rec.Subject] = append(c.byKey[rec.Subject], rec)
	c.records = append(c.records, rec)
}

func (c *StaticClient) ResolveByKey(ctx context.Context, identityKey, _ string) ([]models.RawRecord, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.byKey[identityKey]), nil
}

func (c *StaticClient) ResolveByAttributes(ctx context.Context, attrs Attributes, _ string) ([]models.RawRecord, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	needle := strings.ToLower(attrs.Any)
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []models.RawRecord{}
	for _, rec := range c.records {
		if matches(rec, needle) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (c *StaticClient) wait(ctx context.Context) error {
	if c.latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(c.latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return NewError(CategoryTimeout, "static", "context done", ctx.Err())
	case <-t.C:
		return nil
	}
}

func matches(rec models.RawRecord, needle string) bool {
	if needle == "" {
		return false
	}
	if strings.Contains(strings.ToLower(rec.CertifierInfo.Name), needle) {
		return true
	}
	for _, v := range rec.DecryptedFields {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}

// DemoRecords are the fixtures served when no discovery URL is configured.
// The first record belongs to primaryKey.
func DemoRecords(primaryKey string) []models.RawRecord {
	socialCert := models.CertifierInfo{
		Name:    "SocialCert",
		IconURL: "https://socialcert.net/favicon.ico",
		Trust:   5,
	}
	identiCert := models.CertifierInfo{
		Name:    "IdentiCert",
		IconURL: "https://identicert.me/favicon.ico",
		Trust:   8,
	}
	return []models.RawRecord{
		{
			Type:    "identi",
			Subject: primaryKey,
			DecryptedFields: map[string]string{
				"firstName":    "Alice",
				"lastName":     "Example",
				"profilePhoto": "https://avatars.example/alice.png",
			},
			CertifierInfo: identiCert,
		},
		{
			Type:            "x",
			Subject:         "03a1b2c3d4e5f60718293a4b5c6d7e8f90a1b2c3d4e5f60718293a4b5c6d7e8f90",
			DecryptedFields: map[string]string{"userName": "@alicia", "profilePhoto": "https://avatars.example/alicia.png"},
			CertifierInfo:   socialCert,
		},
		{
			Type:            "email",
			Subject:         "02b1c2d3e4f50617283940a1b2c3d4e5f60718293a4b5c6d7e8f90a1b2c3d4e5f6",
			DecryptedFields: map[string]string{"email": "bob@example.com"},
			CertifierInfo:   socialCert,
		},
		{
			Type:            "discord",
			Subject:         "03c1d2e3f405162738495a6b7c8d9e0f1a2b3c4d5e6f708192a3b4c5d6e7f8091a",
			DecryptedFields: map[string]string{"userName": "carol#4242"},
			CertifierInfo:   socialCert,
		},
	}
}
