package upload

import "errors"

// ErrMissingToken is returned when no bearer token is available.
// The whole push must abort before any network call: no rows may leave
// the machine without an identity attached.
var ErrMissingToken = errors.New("missing or empty bearer token")

// RequestError describes a failed upload request.
//
// Status is the HTTP status code, or zero for transport failures
// (connection refused, timeout, DNS). Classification:
//
//	4xx            non-retryable (schema/auth/validation; retry cannot help)
//	5xx, transport retryable (upsert absorbs the duplicate delivery)
type RequestError struct {
	Table  string
	Status int
	Err    error
}

func (e *RequestError) Error() string {
	if e.Status != 0 {
		return "upload to " + e.Table + " failed: " + e.Err.Error()
	}
	return "upload to " + e.Table + " failed (transport): " + e.Err.Error()
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Retryable reports whether a later identical push could succeed.
func (e *RequestError) Retryable() bool {
	if e.Status == 0 {
		return true
	}
	return e.Status >= 500
}

// IsRetryable classifies any error from this package. Unknown errors are
// treated as retryable, the safe default under idempotent upsert.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrMissingToken) {
		return false
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Retryable()
	}
	return true
}
