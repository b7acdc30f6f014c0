package bus_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/tradefin-lab/rfpcore/pkg/domain/model"
	"github.com/tradefin-lab/rfpcore/pkg/domain/types"
	"github.com/tradefin-lab/rfpcore/pkg/service/bus"
)

type countingPublisher struct {
	mu       sync.Mutex
	attempts int
	errs     []error
}

func (p *countingPublisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts++
	if len(p.errs) == 0 {
		return nil
	}
	err := p.errs[0]
	p.errs = p.errs[1:]
	return err
}

func (p *countingPublisher) Close() error { return nil }

func testEnvelope() *model.RFPEnvelope {
	return &model.RFPEnvelope{
		Version:           model.EnvelopeVersion,
		RDID:              "rd-1",
		SenderStaticID:    "trader-1",
		RecipientStaticID: "bank-a",
		MessageID:         "m-1",
	}
}

func TestOutboundPublisherSend(t *testing.T) {
	ctx := context.Background()

	t.Run("first attempt succeeds", func(t *testing.T) {
		pub := &countingPublisher{}
		outbound := bus.NewOutboundPublisher(pub, 3, time.Millisecond)

		result, err := outbound.Send(ctx, model.RoutingKeyRequest, testEnvelope())
		gt.NoError(t, err).Required()
		gt.Value(t, result.Status).Equal(types.ActionStatusProcessed)
		gt.Value(t, result.RecipientStaticID).Equal("bank-a")
		gt.Number(t, pub.attempts).Equal(1)
	})

	t.Run("retries transient failures", func(t *testing.T) {
		pub := &countingPublisher{errs: []error{
			errors.New("flaky"),
			errors.New("flaky"),
		}}
		outbound := bus.NewOutboundPublisher(pub, 3, time.Millisecond)

		result, err := outbound.Send(ctx, model.RoutingKeyRequest, testEnvelope())
		gt.NoError(t, err).Required()
		gt.Value(t, result.Status).Equal(types.ActionStatusProcessed)
		gt.Number(t, pub.attempts).Equal(3)
	})

	t.Run("exhausted retries mark the recipient Failed without an error", func(t *testing.T) {
		pub := &countingPublisher{errs: []error{
			errors.New("down"),
			errors.New("down"),
			errors.New("down"),
		}}
		outbound := bus.NewOutboundPublisher(pub, 3, time.Millisecond)

		result, err := outbound.Send(ctx, model.RoutingKeyRequest, testEnvelope())
		gt.NoError(t, err).Required()
		gt.Value(t, result.Status).Equal(types.ActionStatusFailed)
		gt.Number(t, pub.attempts).Equal(3)
	})

	t.Run("broker outage aborts immediately", func(t *testing.T) {
		pub := &countingPublisher{errs: []error{bus.ErrUnavailable}}
		outbound := bus.NewOutboundPublisher(pub, 3, time.Millisecond)

		_, err := outbound.Send(ctx, model.RoutingKeyRequest, testEnvelope())
		gt.Bool(t, errors.Is(err, bus.ErrUnavailable)).True()
		gt.Number(t, pub.attempts).Equal(1)
	})
}

func TestMemoryBus(t *testing.T) {
	t.Run("publish reaches a subscriber", func(t *testing.T) {
		b := bus.NewMemory()
		defer b.Close()

		ch, err := b.Subscribe(context.Background())
		gt.NoError(t, err).Required()

		gt.NoError(t, b.Publish(context.Background(), model.RoutingKeyRequest, []byte(`{"rdId":"rd-1"}`)))

		select {
		case d := <-ch:
			gt.Value(t, d.RoutingKey()).Equal(model.RoutingKeyRequest)
			gt.Value(t, string(d.Body())).Equal(`{"rdId":"rd-1"}`)
			gt.Value(t, d.MessageID()).NotEqual("")
			d.Ack()
		case <-time.After(time.Second):
			t.Fatal("no delivery received")
		}
	})

	t.Run("nack redelivers the message", func(t *testing.T) {
		b := bus.NewMemory()
		defer b.Close()

		ch, err := b.Subscribe(context.Background())
		gt.NoError(t, err).Required()

		gt.NoError(t, b.Publish(context.Background(), model.RoutingKeyReject, []byte("x")))

		first := <-ch
		first.Nack()

		select {
		case second := <-ch:
			gt.Value(t, second.MessageID()).Equal(first.MessageID())
			second.Ack()
		case <-time.After(time.Second):
			t.Fatal("message was not redelivered")
		}
	})

	t.Run("cancelling the context closes the subscription", func(t *testing.T) {
		b := bus.NewMemory()
		defer b.Close()

		ctx, cancel := context.WithCancel(context.Background())
		ch, err := b.Subscribe(ctx)
		gt.NoError(t, err).Required()

		cancel()

		select {
		case _, ok := <-ch:
			gt.Bool(t, ok).False()
		case <-time.After(time.Second):
			t.Fatal("subscription channel did not close on cancellation")
		}
	})

	t.Run("publish after close reports the bus unavailable", func(t *testing.T) {
		b := bus.NewMemory()
		gt.NoError(t, b.Close())

		err := b.Publish(context.Background(), model.RoutingKeyRequest, []byte("x"))
		gt.Bool(t, errors.Is(err, bus.ErrUnavailable)).True()
	})
}
