package domain

import dErrors "idlens/pkg/domain-errors"

// DiscoveryPurpose is the human-readable description sent with every discovery
// request. The service uses it for consent prompts and its own audit trail.
// Invariant: the value must be one of the supported purposes.
type DiscoveryPurpose string

const (
	PurposeDiscoverIdentityKey DiscoveryPurpose = "Discover Identity Key"
	PurposeSearchIdentities    DiscoveryPurpose = "Search for identities"
)

var validPurposes = map[DiscoveryPurpose]bool{
	PurposeDiscoverIdentityKey: true,
	PurposeSearchIdentities:    true,
}

// ParseDiscoveryPurpose constructs a DiscoveryPurpose from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseDiscoveryPurpose(s string) (DiscoveryPurpose, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "purpose cannot be empty")
	}
	p := DiscoveryPurpose(s)
	if !p.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid purpose")
	}
	return p, nil
}

func (p DiscoveryPurpose) IsValid() bool {
	return validPurposes[p]
}

func (p DiscoveryPurpose) String() string {
	return string(p)
}
