package domain

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse indicates the remote service replied with a body that
// parses but lacks the expected structure. It propagates exactly like a
// transport failure: wrapped in a *RemoteError that terminates the run.
var ErrMalformedResponse = errors.New("malformed remote response")

// ErrPlaceNotFound indicates a geocoding lookup returned no results.
var ErrPlaceNotFound = errors.New("place not found")

// RemoteError is the terminal outcome of a failed block fetch: transient
// retries were exhausted, or the service answered with a non-retriable
// status. Per-attempt errors never cross the client boundary.
type RemoteError struct {
	Status   int // last HTTP status, 0 for network-level failures
	Attempts int // attempts made before giving up
	Err      error
}

func (e *RemoteError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("remote climate service failed after %d attempt(s): status %d: %v", e.Attempts, e.Status, e.Err)
	}
	return fmt.Sprintf("remote climate service failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }
