package diag

import "github.com/kelindar/event"

// Bus wraps a kelindar/event dispatcher for broadcasting daemon lifecycle
// events to in-process observers.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{dispatcher: event.NewDispatcher()}
}

// Publish publishes ev to all subscribers registered for its concrete type.
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case EventAdmitted:
		event.Publish(b.dispatcher, e)
	case EventDropped:
		event.Publish(b.dispatcher, e)
	case ChildSpawned:
		event.Publish(b.dispatcher, e)
	case ChildReaped:
		event.Publish(b.dispatcher, e)
	case BacklogEnqueued:
		event.Publish(b.dispatcher, e)
	case BacklogDrained:
		event.Publish(b.dispatcher, e)
	case ColdplugFinished:
		event.Publish(b.dispatcher, e)
	case Quiescent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers handler for the event type it accepts, returning an
// unsubscribe function. Usage: bus.Subscribe(func(e diag.ChildSpawned) { ... }).
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(EventAdmitted):
		return event.Subscribe(b.dispatcher, h)
	case func(EventDropped):
		return event.Subscribe(b.dispatcher, h)
	case func(ChildSpawned):
		return event.Subscribe(b.dispatcher, h)
	case func(ChildReaped):
		return event.Subscribe(b.dispatcher, h)
	case func(BacklogEnqueued):
		return event.Subscribe(b.dispatcher, h)
	case func(BacklogDrained):
		return event.Subscribe(b.dispatcher, h)
	case func(ColdplugFinished):
		return event.Subscribe(b.dispatcher, h)
	case func(Quiescent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
