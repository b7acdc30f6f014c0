package config

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tradefin-lab/rfpcore/pkg/service/bus"
	"github.com/tradefin-lab/rfpcore/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Bus holds CLI flags for message bus backend configuration
type Bus struct {
	backend        string
	projectID      string
	topicID        string
	subscriptionID string
}

// Flags returns CLI flags for bus configuration
func (b *Bus) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "bus-backend",
			Usage:       "Message bus backend type (pubsub or memory)",
			Value:       "pubsub",
			Sources:     cli.EnvVars("RFPCORE_BUS_BACKEND"),
			Destination: &b.backend,
		},
		&cli.StringFlag{
			Name:        "pubsub-project-id",
			Usage:       "Pub/Sub Project ID (required when using pubsub backend)",
			Sources:     cli.EnvVars("RFPCORE_PUBSUB_PROJECT_ID"),
			Destination: &b.projectID,
		},
		&cli.StringFlag{
			Name:        "pubsub-topic-id",
			Usage:       "Pub/Sub topic for outbound RFP messages",
			Value:       "rfp-messages",
			Sources:     cli.EnvVars("RFPCORE_PUBSUB_TOPIC_ID"),
			Destination: &b.topicID,
		},
		&cli.StringFlag{
			Name:        "pubsub-subscription-id",
			Usage:       "Pub/Sub subscription for inbound RFP messages",
			Value:       "rfp-messages-sub",
			Sources:     cli.EnvVars("RFPCORE_PUBSUB_SUBSCRIPTION_ID"),
			Destination: &b.subscriptionID,
		},
	}
}

// Configure initializes the bus backend. The memory backend returns a single
// loopback instance serving both roles, which makes a standalone process
// deliver its own messages (development mode). The caller closes the
// publisher; the subscriber shares its lifecycle.
func (b *Bus) Configure(ctx context.Context) (bus.Publisher, bus.Subscriber, error) {
	switch b.backend {
	case "pubsub":
		if b.projectID == "" {
			return nil, nil, goerr.New("pubsub-project-id is required when using pubsub backend")
		}
		ps, err := bus.NewPubSub(ctx, b.projectID, b.topicID, b.subscriptionID)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to initialize pubsub bus")
		}
		logging.Default().Info("Using Pub/Sub message bus",
			"project_id", b.projectID,
			"topic_id", b.topicID,
			"subscription_id", b.subscriptionID,
		)
		return ps, ps, nil

	case "memory":
		logging.Default().Info("Using in-memory message bus (development mode)")
		m := bus.NewMemory()
		return m, m, nil

	default:
		return nil, nil, goerr.New("invalid bus backend", goerr.V("backend", b.backend))
	}
}
