package eventbus

import "time"

// Dispatch lifecycle event types.
const (
	RunStarted     = "dispatch.run.started"
	GroupDelivered = "dispatch.group.delivered"
	GroupFailed    = "dispatch.group.failed"
	RunFinished    = "dispatch.run.finished"
	RunAborted     = "dispatch.run.aborted"
)

// RunInfo is the payload of run-level events.
type RunInfo struct {
	RunID   string
	Mode    string
	Trigger string
	Groups  int
	OK      int
	Fail    int
	Took    time.Duration
	Error   string
}

// GroupInfo is the payload of per-group events.
type GroupInfo struct {
	RunID  string
	Group  string
	Kind   string
	Reason string
	Took   time.Duration
}
