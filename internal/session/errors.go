package session

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSession is returned by operations that need a current session.
	ErrNoSession = errors.New("session: no current session")
	// ErrSuperseded means another transition (usually a sign-out) committed while
	// this operation was in flight; its result was discarded.
	ErrSuperseded = errors.New("session: superseded by a newer transition")
)

// VerificationError means the provider rejected a token pair (expired, malformed,
// wrong audience, revoked refresh token).
type VerificationError struct {
	Reason string
	Err    error
}

func (e *VerificationError) Error() string {
	if e.Err == nil {
		return "session: verification failed: " + e.Reason
	}
	return fmt.Sprintf("session: verification failed: %s: %v", e.Reason, e.Err)
}

func (e *VerificationError) Unwrap() error { return e.Err }
