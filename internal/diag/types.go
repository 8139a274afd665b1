package diag

import "time"

// EventType names a diagnostic event.
type EventType string

const (
	EventModeChanged        EventType = "mode.changed"
	EventSessionStarted     EventType = "session.started"
	EventSessionEnded       EventType = "session.ended"
	EventTickOverrun        EventType = "tick.overrun"
	EventTickSkipped        EventType = "tick.skipped"
	EventConfigInvalid      EventType = "config.invalid"
	EventCaptureUnavailable EventType = "capture.unavailable"
	EventDispatchFailed     EventType = "dispatch.failed"
	EventSampleDropped      EventType = "sample.dropped"
)

// Event is one diagnostic occurrence published on the bus.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      map[string]interface{}
}

// Handler consumes published events.
type Handler func(Event)

// SubscriptionID identifies one registered handler.
type SubscriptionID uint64
