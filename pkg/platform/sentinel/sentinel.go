package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Caches and clients return these
// (optionally wrapped) so callers can decide between fallthrough and failure.
//
//   - ErrNotFound: entry does not exist (cache miss, 404 from a collaborator)
//   - ErrUnavailable: dependency temporarily unavailable (breaker open, outage)
//   - ErrInvalidState: operation not valid in the current state
var (
	ErrNotFound     = errors.New("not found")
	ErrUnavailable  = errors.New("unavailable")
	ErrInvalidState = errors.New("invalid state")
)
