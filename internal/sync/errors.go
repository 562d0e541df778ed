package sync

import (
	"errors"
	"fmt"

	"github.com/sourcepulse/cloudsync/internal/upload"
)

// ErrNoToken is returned inside the result when no bearer token could be
// obtained. The push aborts before any network call.
var ErrNoToken = upload.ErrMissingToken

// TableError records one table's (or the push's own) failure.
//
// Table is empty for push-level failures such as a missing token.
// Retryable mirrors the uploader's classification: a later identical
// push could succeed (5xx/transport) or cannot (4xx, auth).
type TableError struct {
	Table     string
	Retryable bool
	Err       error
}

func (e TableError) Error() string {
	if e.Table == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("table %s: %v", e.Table, e.Err)
}

func (e TableError) Unwrap() error {
	return e.Err
}

// IsAuthError reports whether err is the push-level authentication
// failure (missing or empty token).
func IsAuthError(err error) bool {
	return errors.Is(err, ErrNoToken)
}
