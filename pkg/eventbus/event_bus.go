// Package eventbus carries backend events to the execution side over watermill.
package eventbus

import (
	"context"
	"fmt"

	"github.com/machinehq/flowbuilder/pkg/events"
)

// Event is anything the bus can route by type.
type Event interface {
	GetType() events.EventType
}

// EventPublisher publishes events. Events sharing a key are delivered in order.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

// EventSubscriber routes decoded events to one handler per type. Register handlers before Subscribe.
type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

// EventHandler receives a pointer to the decoded event. A returned error nacks the message.
type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}

// On registers a handler typed to the event it expects.
func On[T Event](sub EventSubscriber, eventType events.EventType, fn func(ctx context.Context, event *T) error) error {
	return sub.Handle(eventType, func(ctx context.Context, event any) error {
		typed, ok := event.(*T)
		if !ok {
			return fmt.Errorf("event %s: unexpected payload %T", eventType, event)
		}

		return fn(ctx, typed)
	})
}
