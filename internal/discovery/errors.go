package discovery

import (
	"errors"
	"fmt"
)

// Category is the normalized failure taxonomy for discovery calls.
type Category string

const (
	// CategoryTimeout: the service did not answer in time.
	CategoryTimeout Category = "timeout"
	// CategoryOutage: the service is unreachable, failing, or the breaker is open.
	CategoryOutage Category = "outage"
	// CategoryRateLimited: too many requests.
	CategoryRateLimited Category = "rate_limited"
	// CategoryAuthentication: credentials or permissions were rejected.
	CategoryAuthentication Category = "authentication"
	// CategoryBadRequest: the service rejected the key or query as malformed.
	CategoryBadRequest Category = "bad_request"
	// CategoryBadData: the service answered with something undecodable.
	CategoryBadData Category = "bad_data"
	// CategoryInternal: anything else.
	CategoryInternal Category = "internal"
)

// ErrNotCollection is returned when the service answers successfully but the
// results field is not an array.
var ErrNotCollection = errors.New("discovery results are not a collection")

// Error wraps discovery failures with a category.
type Error struct {
	Category   Category
	Operation  string
	Message    string
	Underlying error
	Retryable  bool
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("discovery %s [%s]: %s: %v", e.Operation, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("discovery %s [%s]: %s", e.Operation, e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

// NewError creates a categorized error. Timeouts, outages and rate limits are
// marked retryable.
func NewError(category Category, operation, message string, underlying error) *Error {
	return &Error{
		Category:   category,
		Operation:  operation,
		Message:    message,
		Underlying: underlying,
		Retryable: category == CategoryTimeout ||
			category == CategoryOutage ||
			category == CategoryRateLimited,
	}
}

// IsRetryable reports whether err is a retryable discovery error.
func IsRetryable(err error) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Retryable
	}
	return false
}

// CategoryOf extracts the category, defaulting to CategoryInternal.
func CategoryOf(err error) Category {
	var de *Error
	if errors.As(err, &de) {
		return de.Category
	}
	return CategoryInternal
}
