package manager

// Event names published by the manager.
const (
	EventCompiled     = "compiled"
	EventDataLoaded   = "data_loaded"
	EventSampled      = "sampled"
	EventSampleFailed = "sample_failed"
	EventClosed       = "closed"
)

// Event represents a session lifecycle event.
// Minimal and stable: name + session ID and optional fields via key/values.
type Event struct {
	Name      string
	SessionID string
	Fields    map[string]any
}

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
