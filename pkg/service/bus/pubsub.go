package bus

import (
	"context"
	"sync"

	"cloud.google.com/go/pubsub"
	"github.com/m-mizutani/goerr/v2"
	"github.com/tradefin-lab/rfpcore/pkg/utils/logging"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// routingKeyAttr is the Pub/Sub attribute carrying the routing key.
const routingKeyAttr = "routingKey"

// PubSub is a Google Cloud Pub/Sub backed bus. One topic carries all RFP
// negotiation messages; the routing key travels as a message attribute.
type PubSub struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	sub    *pubsub.Subscription

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

var (
	_ Publisher  = &PubSub{}
	_ Subscriber = &PubSub{}
)

func NewPubSub(ctx context.Context, projectID, topicID, subscriptionID string) (*PubSub, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create pubsub client", goerr.V("projectID", projectID))
	}

	p := &PubSub{
		client: client,
		topic:  client.Topic(topicID),
	}
	if subscriptionID != "" {
		p.sub = client.Subscription(subscriptionID)
	}
	return p, nil
}

func (p *PubSub) Publish(ctx context.Context, routingKey string, body []byte) error {
	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       body,
		Attributes: map[string]string{routingKeyAttr: routingKey},
	})

	if _, err := result.Get(ctx); err != nil {
		if status.Code(err) == codes.Unavailable {
			return goerr.Wrap(ErrUnavailable, "pubsub broker unreachable", goerr.V("routing_key", routingKey))
		}
		return goerr.Wrap(err, "failed to publish message", goerr.V("routing_key", routingKey))
	}

	return nil
}

type pubsubDelivery struct {
	msg *pubsub.Message
}

func (d *pubsubDelivery) RoutingKey() string { return d.msg.Attributes[routingKeyAttr] }
func (d *pubsubDelivery) MessageID() string  { return d.msg.ID }
func (d *pubsubDelivery) Body() []byte       { return d.msg.Data }
func (d *pubsubDelivery) Ack()               { d.msg.Ack() }
func (d *pubsubDelivery) Nack()              { d.msg.Nack() }

func (p *PubSub) Subscribe(ctx context.Context) (<-chan Delivery, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sub == nil {
		return nil, goerr.New("pubsub subscription is not configured")
	}
	if p.started {
		return nil, goerr.New("pubsub subscriber already started")
	}
	p.started = true

	recvCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	ch := make(chan Delivery, queueSize)
	go func() {
		defer close(ch)
		defer close(p.done)

		// Receive blocks until the context is cancelled. Message-level
		// errors surface as Nacks; only subscription-level failures end the
		// loop.
		err := p.sub.Receive(recvCtx, func(ctx context.Context, msg *pubsub.Message) {
			select {
			case ch <- &pubsubDelivery{msg: msg}:
			case <-ctx.Done():
				msg.Nack()
			}
		})
		if err != nil && recvCtx.Err() == nil {
			logging.From(recvCtx).Error("pubsub receive terminated", "error", err)
		}
	}()

	return ch, nil
}

func (p *PubSub) Close() error {
	p.mu.Lock()
	cancel := p.cancel
	done := p.done
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	p.topic.Stop()
	return p.client.Close()
}
