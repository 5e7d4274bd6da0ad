package pricing

import (
	"errors"
	"fmt"

	"github.com/artframerapp/artframer/internal/prodigi"
)

// PricingError means the pricing calculation could not produce a usable
// result. Detail carries provider diagnostics; Retryable tells the caller
// whether backing off and trying again could help.
type PricingError struct {
	Detail string
	Err    error
}

func (e *PricingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pricing failed: %s: %v", e.Detail, e.Err)
	}
	return fmt.Sprintf("pricing failed: %s", e.Detail)
}

func (e *PricingError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the underlying provider failure is transient.
func (e *PricingError) Retryable() bool {
	var apiErr *prodigi.APIError
	if errors.As(e.Err, &apiErr) {
		return apiErr.Retryable()
	}
	return false
}
