package bus

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// queueSize bounds each subscriber's in-flight queue. Publishing blocks once
// a subscriber falls this far behind, applying backpressure instead of
// dropping messages.
const queueSize = 256

// Memory is an in-process bus used for development and tests. It gives the
// same guarantees the engine assumes of a real broker: durable per-message
// ack within the process lifetime, and redelivery on Nack.
type Memory struct {
	mu     sync.Mutex
	subs   []chan Delivery
	done   chan struct{}
	closed bool
}

var (
	_ Publisher  = &Memory{}
	_ Subscriber = &Memory{}
)

// ErrUnavailable is reported when the broker cannot take messages at all,
// as opposed to a single publish failing.
var ErrUnavailable = goerr.New("message bus unavailable")

func NewMemory() *Memory {
	return &Memory{done: make(chan struct{})}
}

type memoryDelivery struct {
	routingKey string
	messageID  string
	body       []byte
	bus        *Memory
	ch         chan Delivery
}

func (d *memoryDelivery) RoutingKey() string { return d.routingKey }
func (d *memoryDelivery) MessageID() string  { return d.messageID }
func (d *memoryDelivery) Body() []byte       { return d.body }
func (d *memoryDelivery) Ack()               {}

func (d *memoryDelivery) Nack() {
	d.bus.redeliver(d)
}

func (b *Memory) Publish(ctx context.Context, routingKey string, body []byte) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return goerr.Wrap(ErrUnavailable, "bus is closed")
	}
	subs := append([]chan Delivery(nil), b.subs...)
	b.mu.Unlock()

	bodyCopy := append([]byte(nil), body...)
	messageID := uuid.NewString()
	for _, ch := range subs {
		d := &memoryDelivery{
			routingKey: routingKey,
			messageID:  messageID,
			body:       bodyCopy,
			bus:        b,
			ch:         ch,
		}
		if err := b.send(ctx, ch, d); err != nil {
			return err
		}
	}

	return nil
}

func (b *Memory) send(ctx context.Context, ch chan Delivery, d *memoryDelivery) (err error) {
	defer func() {
		// The subscriber may unsubscribe while the send is queued; losing
		// the message on shutdown is acceptable.
		_ = recover()
	}()
	select {
	case ch <- d:
	case <-ctx.Done():
		err = goerr.Wrap(ctx.Err(), "publish cancelled", goerr.V("routing_key", d.routingKey))
	}
	return err
}

func (b *Memory) Subscribe(ctx context.Context) (<-chan Delivery, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, goerr.Wrap(ErrUnavailable, "bus is closed")
	}

	ch := make(chan Delivery, queueSize)
	b.subs = append(b.subs, ch)

	// The Subscriber contract closes the channel on context cancellation,
	// so consumer loops ranging over it terminate on shutdown.
	go func() {
		select {
		case <-ctx.Done():
			b.unsubscribe(ch)
		case <-b.done:
		}
	}()

	return ch, nil
}

func (b *Memory) unsubscribe(ch chan Delivery) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	for i, sub := range b.subs {
		if sub == ch {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			break
		}
	}
	b.mu.Unlock()
	close(ch)
}

func (b *Memory) redeliver(d *memoryDelivery) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return
	}

	// Nack happens on the consumer goroutine: requeue asynchronously so a
	// full queue cannot deadlock the consumer against itself.
	go func() {
		defer func() {
			// The subscriber channel may close while the redelivery is in
			// flight; losing the message on shutdown is acceptable.
			_ = recover()
		}()
		d.ch <- d
	}()
}

func (b *Memory) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	close(b.done)
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
	return nil
}
