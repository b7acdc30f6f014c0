package bus

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tradefin-lab/rfpcore/pkg/domain/model"
	"github.com/tradefin-lab/rfpcore/pkg/domain/types"
	"github.com/tradefin-lab/rfpcore/pkg/utils/logging"
)

const (
	DefaultPublishMaxRetries = 3
	DefaultPublishMaxDelay   = 300 * time.Millisecond
)

// OutboundPublisher publishes one envelope per recipient with bounded
// retries. A publish that keeps failing marks that recipient Failed and
// never aborts the other recipients; only a broker-level outage is raised
// as an error to the caller.
type OutboundPublisher struct {
	publisher  Publisher
	maxRetries int
	maxDelay   time.Duration
}

func NewOutboundPublisher(publisher Publisher, maxRetries int, maxDelay time.Duration) *OutboundPublisher {
	if maxRetries <= 0 {
		maxRetries = DefaultPublishMaxRetries
	}
	if maxDelay <= 0 {
		maxDelay = DefaultPublishMaxDelay
	}
	return &OutboundPublisher{
		publisher:  publisher,
		maxRetries: maxRetries,
		maxDelay:   maxDelay,
	}
}

// Send publishes the envelope to its recipient under the given routing key.
// The returned result reports the per-recipient outcome; the error is
// non-nil only for a systemic broker outage (ErrUnavailable), which the
// caller must treat as a failure of the whole operation.
func (p *OutboundPublisher) Send(ctx context.Context, routingKey string, env *model.RFPEnvelope) (*model.OutboundActionResult, error) {
	result := &model.OutboundActionResult{
		RecipientStaticID: env.RecipientStaticID,
		Status:            types.ActionStatusCreated,
	}

	body, err := json.Marshal(env)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal envelope",
			goerr.V("rd_id", env.RDID),
			goerr.V("recipient_static_id", env.RecipientStaticID))
	}

	var lastErr error
	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		lastErr = p.publisher.Publish(ctx, routingKey, body)
		if lastErr == nil {
			result.Status = types.ActionStatusProcessed
			return result, nil
		}
		if errors.Is(lastErr, ErrUnavailable) {
			return nil, goerr.Wrap(lastErr, "message bus unreachable",
				goerr.V("rd_id", env.RDID),
				goerr.V("recipient_static_id", env.RecipientStaticID))
		}

		if attempt < p.maxRetries {
			select {
			case <-time.After(p.backoff(attempt)):
			case <-ctx.Done():
				result.Status = types.ActionStatusFailed
				return result, nil
			}
		}
	}

	logging.From(ctx).Warn("publish failed after retries",
		"rd_id", env.RDID,
		"recipient_static_id", env.RecipientStaticID,
		"routing_key", routingKey,
		"attempts", p.maxRetries,
		"error", lastErr,
	)
	result.Status = types.ActionStatusFailed
	return result, nil
}

// backoff grows linearly with the attempt number, capped at maxDelay.
func (p *OutboundPublisher) backoff(attempt int) time.Duration {
	delay := p.maxDelay / time.Duration(p.maxRetries) * time.Duration(attempt)
	if delay > p.maxDelay {
		return p.maxDelay
	}
	return delay
}
