// Package normalizer converts raw discovery records into display-ready
// identities.
//
// Normalization is pure and total: every record yields an Identity, unknown
// certificate types included. Certificate types are mapped onto a small set of
// kinds, each with its own field layout and badge wording.
package normalizer

import (
	"fmt"
	"strings"

	"idlens/internal/identity/models"
)

// Kind groups certificate types that share a field layout.
type Kind string

const (
	KindX          Kind = "x"
	KindDiscord    Kind = "discord"
	KindEmail      Kind = "email"
	KindPhone      Kind = "phone"
	KindIdenti     Kind = "identi"
	KindRegistrant Kind = "registrant"
	KindAnyone     Kind = "anyone"
	KindSelf       Kind = "self"
	KindUnknown    Kind = "unknown"
)

var knownKinds = []Kind{KindX, KindDiscord, KindEmail, KindPhone, KindIdenti, KindRegistrant, KindAnyone, KindSelf}

// ParseKind accepts a kind name from configuration. KindUnknown is accepted
// only as a fallback-avatar target.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if k == KindUnknown {
		return k, nil
	}
	for _, known := range knownKinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown identity kind %q", s)
}

const (
	abbreviatedKeyLen = 10

	unknownName = "Unknown Identity"

	socialCertURL  = "https://socialcert.net"
	identiCertURL  = "https://identicert.me"
	registrantURL  = "https://projectbabbage.com/docs/registrant"
	anyoneDocsURL  = "https://projectbabbage.com/docs/anyone-identity"
	selfDocsURL    = "https://projectbabbage.com/docs/self-identity"
	unknownDocsURL = "https://projectbabbage.com/docs/unknown-identity"
)

// Normalizer maps raw records to identities. The zero value is not usable;
// construct with New.
type Normalizer struct {
	kinds     map[string]Kind
	fallbacks map[Kind]string
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithType maps a deployment-specific certificate type identifier onto a kind.
func WithType(typeID string, kind Kind) Option {
	return func(n *Normalizer) {
		n.kinds[typeID] = kind
	}
}

// WithFallbackAvatar sets the avatar used for kind when the record carries none.
func WithFallbackAvatar(kind Kind, url string) Option {
	return func(n *Normalizer) {
		n.fallbacks[kind] = url
	}
}

// New builds a Normalizer that recognizes each kind by its own name as the
// certificate type, plus any WithType mappings.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		kinds:     make(map[string]Kind),
		fallbacks: make(map[Kind]string),
	}
	for _, k := range knownKinds {
		n.kinds[string(k)] = k
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// KindOf resolves the kind for a certificate type.
func (n *Normalizer) KindOf(certType string) Kind {
	if k, ok := n.kinds[certType]; ok {
		return k
	}
	return KindUnknown
}

// Normalize converts one raw record into an Identity.
func (n *Normalizer) Normalize(rec models.RawRecord) models.Identity {
	certifier := rec.CertifierInfo.Name
	id := models.Identity{
		AbbreviatedKey: Abbreviate(rec.Subject),
		BadgeIconURL:   rec.CertifierInfo.IconURL,
	}

	kind := n.KindOf(rec.Type)
	switch kind {
	case KindX, KindDiscord:
		id.Name = rec.Field("userName")
		id.AvatarURL = rec.Field("profilePhoto")
		id.BadgeLabel = platformLabel(kind) + " account certified by " + certifier
		id.BadgeClickURL = socialCertURL
	case KindEmail:
		id.Name = rec.Field("email")
		id.BadgeLabel = "Email certified by " + certifier
		id.BadgeClickURL = socialCertURL
	case KindPhone:
		id.Name = rec.Field("phoneNumber")
		id.BadgeLabel = "Phone certified by " + certifier
		id.BadgeClickURL = socialCertURL
	case KindIdenti:
		id.Name = strings.TrimSpace(rec.Field("firstName") + " " + rec.Field("lastName"))
		id.AvatarURL = rec.Field("profilePhoto")
		id.BadgeLabel = "Government ID certified by " + certifier
		id.BadgeClickURL = identiCertURL
	case KindRegistrant:
		id.Name = rec.Field("name")
		id.AvatarURL = rec.Field("icon")
		id.BadgeLabel = "Entity certified by " + certifier
		id.BadgeClickURL = registrantURL
	case KindAnyone:
		id.Name = "Anyone"
		id.BadgeLabel = "Represents the ability for anyone to access this information."
		id.BadgeClickURL = anyoneDocsURL
	case KindSelf:
		id.Name = "You"
		id.BadgeLabel = "Represents your ability to access this information."
		id.BadgeClickURL = selfDocsURL
	default:
		id.Name = unknownName
		id.AvatarURL = rec.Field("profilePhoto")
		id.BadgeLabel = "Unknown certificate type certified by " + certifier
		id.BadgeClickURL = unknownDocsURL
	}

	if id.AvatarURL == "" {
		id.AvatarURL = n.fallbacks[kind]
	}
	return id
}

// NormalizeAll maps Normalize over records, preserving order.
func (n *Normalizer) NormalizeAll(recs []models.RawRecord) []models.Identity {
	out := make([]models.Identity, len(recs))
	for i, rec := range recs {
		out[i] = n.Normalize(rec)
	}
	return out
}

// Abbreviate shortens an identity key for display: the first ten characters
// followed by "...". An empty key stays empty.
func Abbreviate(key string) string {
	if key == "" {
		return ""
	}
	if len(key) > abbreviatedKeyLen {
		key = key[:abbreviatedKeyLen]
	}
	return key + "..."
}

func platformLabel(k Kind) string {
	if k == KindDiscord {
		return "Discord"
	}
	return "X"
}
