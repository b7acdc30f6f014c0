package bus

import "context"

// Publisher sends messages to the bus. Implementations must be safe for
// concurrent use: fan-out publishes one message per recipient from parallel
// goroutines.
type Publisher interface {
	// Publish sends one message with the given routing key. An error means
	// the broker itself rejected or could not take the message; it does NOT
	// retry (retries are the OutboundPublisher's job).
	Publish(ctx context.Context, routingKey string, body []byte) error
	Close() error
}

// Delivery is one message handed to a consumer. The consumer must call
// exactly one of Ack or Nack; Nack makes the message eligible for
// redelivery.
type Delivery interface {
	RoutingKey() string
	MessageID() string
	Body() []byte
	Ack()
	Nack()
}

// Subscriber receives messages from the bus. Subscribe returns a channel
// closed when the subscriber is closed or the context is cancelled.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan Delivery, error)
	Close() error
}
