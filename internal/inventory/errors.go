package inventory

import (
	"errors"
	"fmt"
)

// Sentinel errors for per-item fetch/delete outcomes. The API client
// wraps its transport failures into these so the rest of the tool never
// inspects HTTP status codes.
var (
	// ErrNotFound means the object id no longer exists on the server.
	ErrNotFound = errors.New("object not found")

	// ErrUnsupported means the server variant cannot perform the
	// requested operation (e.g. deletes disabled for a type on this
	// deployment mode). Permanent; never retried.
	ErrUnsupported = errors.New("operation not supported on this server")
)

// TransientError marks a failure worth retrying: timeouts, 5xx
// responses, connection resets. Anything not wrapped in TransientError
// is treated as permanent.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// FatalError is an authentication or connectivity failure detected at
// the start of a run. It aborts the whole invocation before any report
// or removal work begins.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("cannot reach server: %v", e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// IsFatal reports whether err should unwind the whole invocation.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
