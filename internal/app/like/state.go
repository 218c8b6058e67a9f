// Package like orchestrates like/unlike operations against local state and
// the backend.
package like

// State represents the coordinator's gate state.
type State int

const (
	StateIdle State = iota // ready for the next gesture
	StateBusy              // a toggle is in flight or cooling down
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBusy:
		return "busy"
	default:
		return "unknown"
	}
}
