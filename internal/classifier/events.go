package classifier

// Event represents a classifier lifecycle or outcome event.
// Minimal and stable: a name plus optional key/values.
type Event struct {
	Name   string
	Fields map[string]any
}

// Event names.
const (
	EventLoaded        = "loaded"
	EventWarmup        = "warmup"
	EventClassify      = "classify"
	EventClassifyError = "classify_error"
	EventClosed        = "closed"
)

// EventPublisher receives events from the classifier. Implementations should
// be lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
