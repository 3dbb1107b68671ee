package transport

import "context"

// Relay is one relay endpoint connection.
type Relay interface {
	// URL identifies the endpoint.
	URL() string

	// Healthy reports whether the connection is currently usable.
	Healthy() bool

	// Publish delivers an event to the relay.
	Publish(ctx context.Context, ev Event) error

	// Subscribe streams events matching the filter until ctx is done.
	Subscribe(ctx context.Context, f Filter) (<-chan Event, error)
}

// Publisher is the narrow fan-out interface the coordinators depend on.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}
