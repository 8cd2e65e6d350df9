// Package messagequeue defines the message queue port (interface).
package messagequeue

import "context"

// Handler processes a message received from the queue.
// The context carries request-scoped values such as the request ID.
type Handler func(ctx context.Context, subject string, data []byte) error

// Publisher sends messages. The router depends only on this half.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Queue is the port interface for publishing and subscribing to messages.
type Queue interface {
	Publisher

	// Subscribe registers a handler for messages on the given subject.
	// The returned function cancels the subscription.
	Subscribe(ctx context.Context, subject string, handler Handler) (cancel func(), err error)

	// Close shuts down the queue connection.
	Close() error

	// IsConnected reports whether the queue is currently connected.
	IsConnected() bool
}

// Subject prefixes for a2agate route events. A route event is published on
// SubjectRoutes + "." + state, e.g. "a2a.routes.ROUTED".
const (
	SubjectRoutes   = "a2a.routes"
	SubjectRegistry = "a2a.registry" // a2a.registry.{published,retired}
)

// RouteSubject returns the subject for a route event in the given state.
func RouteSubject(state string) string {
	return SubjectRoutes + "." + state
}
