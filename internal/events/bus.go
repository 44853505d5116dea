package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting.
// Delivery is asynchronous; handlers run on the dispatcher's goroutines.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers.
// A nil bus drops the event, so publishers need no guard.
// Usage: bus.Publish(EncodeCompletedEvent{...})
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	switch e := ev.(type) {
	case EncodeStartedEvent:
		event.Publish(b.dispatcher, e)
	case EncodeCompletedEvent:
		event.Publish(b.dispatcher, e)
	case EncodeFailedEvent:
		event.Publish(b.dispatcher, e)
	case EncodeSkippedEvent:
		event.Publish(b.dispatcher, e)
	case RunCompletedEvent:
		event.Publish(b.dispatcher, e)
	case ReportWrittenEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function.
// The handler type determines which events it receives.
// Returns an unsubscribe function.
// Usage: unsub := bus.Subscribe(func(e EncodeFailedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(EncodeStartedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(EncodeCompletedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(EncodeFailedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(EncodeSkippedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(RunCompletedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ReportWrittenEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
