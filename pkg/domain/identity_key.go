package domain

import (
	"strings"

	dErrors "idlens/pkg/domain-errors"
)

// IdentityKey is the opaque key the discovery service indexes identities by.
// Its format belongs to the discovery service; locally it is only guaranteed
// to be non-empty and free of surrounding whitespace.
//
// Construct via ParseIdentityKey at trust boundaries; direct casting bypasses
// validation.
type IdentityKey string

// ParseIdentityKey trims s and rejects it when nothing is left. Keys the
// discovery service does not understand are reported by the service itself.
//
// Errors: returns CodeInvalidInput when the value is empty or blank.
func ParseIdentityKey(s string) (IdentityKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "identity key cannot be empty")
	}
	return IdentityKey(s), nil
}

func (k IdentityKey) String() string {
	return string(k)
}

func (k IdentityKey) IsNil() bool {
	return k == ""
}
