package api

import "time"

// EventType identifies an engine event
type EventType int

const (
	EventTrackStarted EventType = iota
	EventTrackEnded
	EventTrackLooped
	EventSeeked
	EventStateChange
	EventError
)

// EventTypes lists every event type, in declaration order.
var EventTypes = []EventType{
	EventTrackStarted,
	EventTrackEnded,
	EventTrackLooped,
	EventSeeked,
	EventStateChange,
	EventError,
}

func (t EventType) String() string {
	switch t {
	case EventTrackStarted:
		return "track_started"
	case EventTrackEnded:
		return "track_ended"
	case EventTrackLooped:
		return "track_looped"
	case EventSeeked:
		return "seeked"
	case EventStateChange:
		return "state_change"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is published by the engine after it applies a command or reaches the
// end of a track. Position is the transport timestamp when it was emitted.
type Event struct {
	Type     EventType
	Track    Track
	Position time.Duration
	State    Snapshot
	Err      error
}
