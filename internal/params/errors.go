package params

import (
	"errors"
	"fmt"
)

// ErrControlNotFound reports that a control could not be located on the surface.
var ErrControlNotFound = errors.New("control not found")

// SurfaceError wraps a failed surface operation. It is recoverable: the
// reconciler that hits it evicts its cache entry (or engages a fallback),
// logs, and the adjustment pass continues with the next parameter.
type SurfaceError struct {
	Op   string
	Role Role
	Err  error
}

func (e *SurfaceError) Error() string {
	return fmt.Sprintf("surface %s %s: %v", e.Op, e.Role, e.Err)
}

func (e *SurfaceError) Unwrap() error { return e.Err }

// ParseError reports a read-back value that could not be parsed to the
// expected type. Recoverable; the cache entry is evicted.
type ParseError struct {
	Role Role
	Raw  string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s value %q: %v", e.Role, e.Raw, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// DisconnectedError is the cancellation signal. It propagates immediately
// through every layer; no further surface writes or cache commits are
// attempted once it is raised.
type DisconnectedError struct {
	Stage string
}

func (e *DisconnectedError) Error() string {
	return fmt.Sprintf("client disconnected at stage: %s", e.Stage)
}

// SubmissionError reports that all submission strategies were exhausted.
// Fatal; propagated to the caller after a diagnostic snapshot.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit failed: button, enter, and combo key all failed: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// DisconnectCheck is polled at named checkpoints between and within
// reconciliation steps. Returning true aborts the adjustment pass.
type DisconnectCheck func(stage string) bool

// IsDisconnect reports whether err carries a DisconnectedError anywhere in
// its chain.
func IsDisconnect(err error) bool {
	var d *DisconnectedError
	return errors.As(err, &d)
}
