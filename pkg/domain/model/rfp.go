package model

import (
	"time"

	"github.com/tradefin-lab/rfpcore/pkg/domain/types"
)

// RFPRequest records the fan-out of a request for proposal. There is at most
// one per RD and it is immutable after creation.
type RFPRequest struct {
	StaticID             string
	RDID                 string
	RequesterStaticID    string
	ParticipantStaticIDs []string
	CreatedAt            time.Time
}

// OutboundActionResult is the delivery outcome for one fan-out recipient.
type OutboundActionResult struct {
	RecipientStaticID string             `json:"recipientStaticId"`
	Status            types.ActionStatus `json:"status"`
}
