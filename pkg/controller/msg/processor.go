package msg

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tradefin-lab/rfpcore/pkg/domain/model"
	"github.com/tradefin-lab/rfpcore/pkg/service/bus"
	"github.com/tradefin-lab/rfpcore/pkg/usecase"
	"github.com/tradefin-lab/rfpcore/pkg/utils/errutil"
	"github.com/tradefin-lab/rfpcore/pkg/utils/logging"
)

const (
	DefaultWorkers    = 4
	DefaultRetryDelay = 300 * time.Millisecond
)

// ProcessorService is the consumer loop for inbound RFP messages. It routes
// each delivery to the handler bound to its routing key. Poison messages
// (unparseable, invalid or unroutable) are acked so they never wedge the
// queue; transient handler failures are nacked for redelivery after a short
// delay.
type ProcessorService struct {
	subscriber bus.Subscriber
	ingest     *usecase.IngestUseCase
	workers    int
	retryDelay time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Option func(*ProcessorService)

func WithWorkers(n int) Option {
	return func(s *ProcessorService) {
		if n > 0 {
			s.workers = n
		}
	}
}

func WithRetryDelay(d time.Duration) Option {
	return func(s *ProcessorService) {
		if d > 0 {
			s.retryDelay = d
		}
	}
}

func New(subscriber bus.Subscriber, ingest *usecase.IngestUseCase, opts ...Option) *ProcessorService {
	s := &ProcessorService{
		subscriber: subscriber,
		ingest:     ingest,
		workers:    DefaultWorkers,
		retryDelay: DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start subscribes to the bus and spawns the worker pool. It returns once
// the subscription is established; processing continues until Stop or
// context cancellation.
func (s *ProcessorService) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	deliveries, err := s.subscriber.Subscribe(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to subscribe")
	}

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx, deliveries)
	}

	logging.From(ctx).Info("message processor started", "workers", s.workers)
	return nil
}

// Stop cancels the subscription and waits for in-flight deliveries.
func (s *ProcessorService) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *ProcessorService) worker(ctx context.Context, deliveries <-chan bus.Delivery) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case delivery, ok := <-deliveries:
			if !ok {
				return
			}
			s.process(ctx, delivery)
		}
	}
}

func (s *ProcessorService) process(ctx context.Context, delivery bus.Delivery) {
	logger := logging.From(ctx).With(
		"routing_key", delivery.RoutingKey(),
		"message_id", delivery.MessageID(),
	)

	handler, ok := s.ingest.Handler(delivery.RoutingKey())
	if !ok {
		logger.Warn("no handler for routing key, dropping")
		delivery.Ack()
		return
	}

	var env model.RFPEnvelope
	if err := json.Unmarshal(delivery.Body(), &env); err != nil {
		logger.Warn("malformed envelope, dropping", "error", err)
		delivery.Ack()
		return
	}
	if err := env.Validate(); err != nil {
		logger.Warn("invalid envelope, dropping", "error", err)
		delivery.Ack()
		return
	}

	hctx := logging.With(ctx, logger)
	if err := handler(hctx, &env); err != nil {
		_ = errutil.Handle(hctx, err, "failed to process inbound message, requeueing")
		select {
		case <-time.After(s.retryDelay):
		case <-ctx.Done():
		}
		delivery.Nack()
		return
	}

	delivery.Ack()
}
