package core

// UI-refresh topics fired after mutating operations, consumed by external
// presentation layers.
const (
	TopicProjectsChanged = "projects-changed"
	TopicTasksChanged    = "tasks-changed"
	TopicMeetingsChanged = "meetings-changed"
)

// EventSink receives UI-refresh notifications. Implementations must be safe
// for concurrent use and must never block the caller for long.
type EventSink interface {
	Emit(topic string)
}

// NoOpSink discards all notifications.
type NoOpSink struct{}

// Emit discards the notification.
func (NoOpSink) Emit(string) {}

// SinkFunc adapts a function to the EventSink interface.
type SinkFunc func(topic string)

// Emit calls the wrapped function.
func (f SinkFunc) Emit(topic string) { f(topic) }
