package browser

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrElementTimeout marks a located-element wait that ran out of time.
	ErrElementTimeout = errors.New("element wait timed out")
	// ErrSessionClosed means the browser went away; the session cannot continue.
	ErrSessionClosed = errors.New("browser session closed")
	ErrNotReady      = errors.New("driver not ready")
	ErrNoSources     = errors.New("no browser provisioning source configured")
)

// LaunchError is returned when no browser could be provisioned.
type LaunchError struct {
	Sources []string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch browser (sources %q): %v", e.Sources, e.Err)
}
func (e *LaunchError) Unwrap() error { return e.Err }

// ReadyTimeoutError is returned when the client did not become usable in
// time, usually because nobody completed the QR login.
type ReadyTimeoutError struct {
	Timeout time.Duration
	Err     error
}

func (e *ReadyTimeoutError) Error() string {
	return fmt.Sprintf("messaging client not ready after %s (login not completed?): %v", e.Timeout, e.Err)
}
func (e *ReadyTimeoutError) Unwrap() error { return e.Err }

// DeliveryError is a per-group failure. The session stays usable unless the
// cause is ErrSessionClosed.
type DeliveryError struct {
	Group string
	Step  string
	Err   error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to %q: %s: %v", e.Group, e.Step, e.Err)
}
func (e *DeliveryError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a bounded wait running out.
func (e *DeliveryError) Timeout() bool { return errors.Is(e.Err, ErrElementTimeout) }
