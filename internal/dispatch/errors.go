package dispatch

import (
	"errors"
	"fmt"

	"recobot/internal/browser"
	"recobot/internal/dispatch/render"
)

// Error taxonomy re-exported for callers that only import dispatch.
type (
	RenderError       = render.Error
	LaunchError       = browser.LaunchError
	ReadyTimeoutError = browser.ReadyTimeoutError
	DeliveryError     = browser.DeliveryError
)

var (
	ErrNilRun      = errors.New("nil run")
	errCancelled   = errors.New("cancelled before delivery")
	errSessionLost = errors.New("not attempted: browser session closed")
)

// GroupingError means the input could not be partitioned; nothing was sent.
type GroupingError struct {
	Err error
}

func (e *GroupingError) Error() string { return fmt.Sprintf("group input: %v", e.Err) }
func (e *GroupingError) Unwrap() error { return e.Err }

// SessionError means the browser went away while delivering to Group. The
// report returned alongside it is partial but still lists every group.
type SessionError struct {
	Group string
	Err   error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("browser session lost while delivering to %q: %v", e.Group, e.Err)
}
func (e *SessionError) Unwrap() error { return e.Err }

// Fatal reports whether err ended a run before all groups were attempted.
func Fatal(err error) bool {
	var (
		le *LaunchError
		re *ReadyTimeoutError
		se *SessionError
		ge *GroupingError
	)
	return errors.As(err, &le) || errors.As(err, &re) || errors.As(err, &se) || errors.As(err, &ge)
}
