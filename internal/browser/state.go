package browser

type State int

const (
	StateUninitialized State = iota
	StateLaunching
	StateAwaitingReady
	StateReady
	StateSearching
	StateSelecting
	StateComposing
	StateSending
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateLaunching:
		return "LAUNCHING"
	case StateAwaitingReady:
		return "AWAITING_READY"
	case StateReady:
		return "READY"
	case StateSearching:
		return "SEARCHING"
	case StateSelecting:
		return "SELECTING"
	case StateComposing:
		return "COMPOSING"
	case StateSending:
		return "SENDING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}
