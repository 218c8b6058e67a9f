package like

// EventType identifies the kind of coordinator event.
type EventType int

const (
	EventToggleCommitted  EventType = iota // optimistic change confirmed (or local-only)
	EventToggleRolledBack                  // remote rejected the change, state restored
	EventStateChanged                      // gate transitioned between Idle and Busy
)

// String returns the string representation of the event type.
func (t EventType) String() string {
	switch t {
	case EventToggleCommitted:
		return "toggle_committed"
	case EventToggleRolledBack:
		return "toggle_rolled_back"
	case EventStateChanged:
		return "state_changed"
	default:
		return "unknown"
	}
}

// Event is emitted on the coordinator's event channel.
type Event struct {
	Type   EventType
	SongID string
	Liked  bool // resulting liked state of the song, where applicable
	State  State
}
