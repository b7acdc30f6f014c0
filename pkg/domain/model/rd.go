package model

import (
	"time"

	"github.com/tradefin-lab/rfpcore/pkg/domain/types"
)

// RDApplication is a receivables discounting application. The discounting
// terms are immutable once created; the only field this engine ever mutates
// is AcceptedParticipantStaticID, set exactly once when a quote is accepted.
type RDApplication struct {
	StaticID                    string
	TradeSourceID               string
	InvoiceAmount               float64
	Currency                    string
	AdvanceRate                 float64
	AcceptedParticipantStaticID string
	CreatedAt                   time.Time
	UpdatedAt                   time.Time
}

// RDInfo is the aggregate read model for an RD: the application itself plus
// its RFP (if any), per-participant summaries and the derived status.
type RDInfo struct {
	RD                          *RDApplication
	RFP                         *RFPRequest
	Status                      types.RDStatus
	AcceptedParticipantStaticID string
	ParticipantSummaries        []*ParticipantRFPSummary
}
