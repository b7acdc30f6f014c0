package model

import (
	"github.com/m-mizutani/goerr/v2"

	"github.com/tradefin-lab/rfpcore/pkg/domain/types"
)

// EnvelopeVersion is the wire schema version of RFPEnvelope.
const EnvelopeVersion = 1

// RoutingKeyPrefix namespaces all RFP negotiation messages on the bus.
const RoutingKeyPrefix = "RFP.rd"

// Routing keys, one per message kind. The key equals the request/reply type.
const (
	RoutingKeyRequest     = RoutingKeyPrefix + ".Request"
	RoutingKeySubmitQuote = RoutingKeyPrefix + ".SubmitQuote"
	RoutingKeyReject      = RoutingKeyPrefix + ".Reject"
	RoutingKeyDecline     = RoutingKeyPrefix + ".Decline"
	RoutingKeyAccept      = RoutingKeyPrefix + ".Accept"
)

// RFPEnvelope is the bus message body for both the fan-out request and all
// replies. (RDID, RecipientStaticID) is the correlation key set at fan-out
// time; (SenderStaticID, MessageID) is the reply idempotency key.
type RFPEnvelope struct {
	Version           int             `json:"version"`
	Type              types.ReplyType `json:"type,omitempty"`
	RDID              string          `json:"rdId"`
	RFPID             string          `json:"rfpId,omitempty"`
	SenderStaticID    string          `json:"senderStaticId"`
	RecipientStaticID string          `json:"recipientStaticId"`
	MessageID         string          `json:"messageId"`
	Comment           string          `json:"comment,omitempty"`
	Quote             *Quote          `json:"quote,omitempty"`
	RD                *RDApplication  `json:"rd,omitempty"`
}

// Validate checks the fields every inbound envelope must carry.
func (e *RFPEnvelope) Validate() error {
	if e.RDID == "" {
		return goerr.New("envelope is missing rdId")
	}
	if e.SenderStaticID == "" {
		return goerr.New("envelope is missing senderStaticId")
	}
	if e.MessageID == "" {
		return goerr.New("envelope is missing messageId")
	}
	return nil
}

// ReplyRoutingKey returns the routing key for a reply of the given type.
func ReplyRoutingKey(t types.ReplyType) string {
	switch t {
	case types.ReplyTypeSubmitted:
		return RoutingKeySubmitQuote
	case types.ReplyTypeRejected:
		return RoutingKeyReject
	case types.ReplyTypeDeclined:
		return RoutingKeyDecline
	case types.ReplyTypeAccepted:
		return RoutingKeyAccept
	default:
		return RoutingKeyPrefix + "." + t.String()
	}
}
