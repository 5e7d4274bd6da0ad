package prodigi

import (
	"errors"
	"fmt"
)

// Error kinds the pricing pipeline must distinguish: rate limits are
// retried, not-found surfaces as "product unavailable", everything else is
// a provider failure the caller may retry later.
const (
	KindRateLimited = "rate_limited"
	KindNotFound    = "not_found"
	KindServer      = "server_error"
	KindBadRequest  = "bad_request"
)

// APIError is a failed provider call with enough detail for diagnostics.
type APIError struct {
	Kind       string
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("prodigi: %s (status %d): %s", e.Kind, e.StatusCode, e.Detail)
}

// Retryable reports whether another attempt could succeed.
func (e *APIError) Retryable() bool {
	return e.Kind == KindRateLimited || e.Kind == KindServer
}

// IsRateLimited reports whether err is a provider rate-limit rejection.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindRateLimited
}

// IsNotFound reports whether the provider knows nothing about the request.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindNotFound
}
