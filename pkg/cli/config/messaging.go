package config

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tradefin-lab/rfpcore/pkg/service/bus"
	"github.com/urfave/cli/v3"
)

// Messaging holds CLI flags for the RFP messaging behavior: the company
// identity on the bus, publish retry bounds and the consumer loop tuning.
type Messaging struct {
	companyStaticID   string
	publishMaxRetries int64
	publishMaxDelay   time.Duration
	consumeRetryDelay time.Duration
	consumeWorkers    int64
}

// Flags returns CLI flags for messaging configuration
func (m *Messaging) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "company-static-id",
			Usage:       "Static ID identifying this company on the bus (required)",
			Sources:     cli.EnvVars("RFPCORE_COMPANY_STATIC_ID"),
			Destination: &m.companyStaticID,
		},
		&cli.IntFlag{
			Name:        "publish-max-retries",
			Usage:       "Publish attempts per recipient before marking it Failed",
			Value:       bus.DefaultPublishMaxRetries,
			Sources:     cli.EnvVars("RFPCORE_PUBLISH_MAX_RETRIES"),
			Destination: &m.publishMaxRetries,
		},
		&cli.DurationFlag{
			Name:        "publish-max-delay",
			Usage:       "Upper bound of the publish retry backoff",
			Value:       bus.DefaultPublishMaxDelay,
			Sources:     cli.EnvVars("RFPCORE_PUBLISH_MAX_DELAY"),
			Destination: &m.publishMaxDelay,
		},
		&cli.DurationFlag{
			Name:        "consume-retry-delay",
			Usage:       "Delay before redelivering a failed inbound message",
			Value:       300 * time.Millisecond,
			Sources:     cli.EnvVars("RFPCORE_CONSUME_RETRY_DELAY"),
			Destination: &m.consumeRetryDelay,
		},
		&cli.IntFlag{
			Name:        "consume-workers",
			Usage:       "Number of concurrent inbound message workers",
			Value:       4,
			Sources:     cli.EnvVars("RFPCORE_CONSUME_WORKERS"),
			Destination: &m.consumeWorkers,
		},
	}
}

// Validate checks the required messaging settings.
func (m *Messaging) Validate() error {
	if m.companyStaticID == "" {
		return goerr.New("company-static-id is required")
	}
	return nil
}

func (m *Messaging) CompanyStaticID() string { return m.companyStaticID }

func (m *Messaging) PublishMaxRetries() int { return int(m.publishMaxRetries) }

func (m *Messaging) PublishMaxDelay() time.Duration { return m.publishMaxDelay }

func (m *Messaging) ConsumeRetryDelay() time.Duration { return m.consumeRetryDelay }

func (m *Messaging) ConsumeWorkers() int { return int(m.consumeWorkers) }
