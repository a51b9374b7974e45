package classifier

import "github.com/rs/zerolog"

// LogPublisher writes events to a zerolog logger. Errors are logged at warn,
// per-request outcomes at debug, lifecycle events at info.
type LogPublisher struct {
	Logger zerolog.Logger
}

func (p LogPublisher) Publish(e Event) {
	var ev *zerolog.Event
	switch e.Name {
	case EventClassifyError:
		ev = p.Logger.Warn()
	case EventClassify:
		ev = p.Logger.Debug()
	default:
		ev = p.Logger.Info()
	}
	ev.Str("component", "classifier").Fields(e.Fields).Msg(e.Name)
}
