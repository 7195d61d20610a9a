// Package models holds the identity value types shared by discovery,
// normalization, resolution and the view.
package models

// Identity is the display-ready description of a resolved entity.
// Every field is optional; the empty string means absent. Identities are
// values: a change produces a new Identity rather than mutating one.
type Identity struct {
	Name           string `json:"name,omitempty"`
	AvatarURL      string `json:"avatarURL,omitempty"`
	AbbreviatedKey string `json:"abbreviatedKey,omitempty"`
	BadgeIconURL   string `json:"badgeIconURL,omitempty"`
	BadgeLabel     string `json:"badgeLabel,omitempty"`
	BadgeClickURL  string `json:"badgeClickURL,omitempty"`
}

// HasBadge reports whether the badge block can be rendered. Both icon and
// label are required; the click URL is optional.
func (i Identity) HasBadge() bool {
	return i.BadgeIconURL != "" && i.BadgeLabel != ""
}

// CertifierInfo describes who vouched for a raw record.
type CertifierInfo struct {
	Name        string `json:"name"`
	IconURL     string `json:"iconUrl"`
	Description string `json:"description,omitempty"`
	Trust       int    `json:"trust,omitempty"`
}

// RawRecord is one identity certificate as returned by the discovery service.
type RawRecord struct {
	Type            string            `json:"type"`
	Subject         string            `json:"subject"`
	DecryptedFields map[string]string `json:"decryptedFields,omitempty"`
	CertifierInfo   CertifierInfo     `json:"certifierInfo"`
}

// Field returns a decrypted field or "" when absent.
func (r RawRecord) Field(name string) string {
	if r.DecryptedFields == nil {
		return ""
	}
	return r.DecryptedFields[name]
}

// Names projects identities onto their display names, preserving order.
// Missing names become "" so positions line up with the identities.
func Names(ids []Identity) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.Name
	}
	return out
}
