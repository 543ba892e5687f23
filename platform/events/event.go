// Package events provides the in-process event bus the modules use to
// react to each other's lifecycle changes without importing each other.
// This is part of the platform layer and contains no business logic.
package events

import (
	"context"
	"time"
)

// Event is implemented by every domain event carried on the bus.
type Event interface {
	// EventName identifies the event type; subscriptions match on it.
	EventName() string
	// OccurredAt is the moment the event was raised.
	OccurredAt() time.Time
}

// Handler reacts to events it subscribed to.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function into a Handler.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle calls the wrapped function.
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// BaseEvent carries the timestamp shared by every event type. Embed it
// and implement EventName on the concrete type.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// OccurredAt is the moment the event was raised.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps a base event with the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now()}
}

// Bus publishes domain events and routes them to subscribed handlers.
type Bus interface {
	// Publish dispatches the event to its subscribers without waiting for
	// them; handler errors are logged, not returned.
	Publish(ctx context.Context, event Event)

	// PublishSync dispatches inline and returns the first handler error.
	PublishSync(ctx context.Context, event Event) error

	// Subscribe registers a handler for the event name, as returned by
	// Event.EventName.
	Subscribe(eventName string, handler Handler)
}
