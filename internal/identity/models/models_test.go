package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentity_HasBadge(t *testing.T) {
	assert.False(t, Identity{}.HasBadge())
	assert.False(t, Identity{BadgeLabel: "Email certified by SocialCert"}.HasBadge())
	assert.False(t, Identity{BadgeIconURL: "https://certs/icon.png"}.HasBadge())
	assert.True(t, Identity{BadgeIconURL: "https://certs/icon.png", BadgeLabel: "ok"}.HasBadge())
}

func TestRawRecord_Field(t *testing.T) {
	assert.Equal(t, "", RawRecord{}.Field("email"))
	r := RawRecord{DecryptedFields: map[string]string{"email": "a@b.c"}}
	assert.Equal(t, "a@b.c", r.Field("email"))
}

func TestNames(t *testing.T) {
	ids := []Identity{{Name: "Alice"}, {}, {Name: "Bob"}}
	assert.Equal(t, []string{"Alice", "", "Bob"}, Names(ids))
	assert.Empty(t, Names(nil))
}
