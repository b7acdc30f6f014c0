package model

import (
	"time"

	"github.com/tradefin-lab/rfpcore/pkg/domain/types"
)

// ParticipantRFPReply is one immutable entry in a participant's reply log.
// (SenderStaticID, MessageID) is the idempotency key: re-delivery of the
// same bus message must never append a second entry.
type ParticipantRFPReply struct {
	StaticID       string
	Type           types.ReplyType
	SenderStaticID string
	MessageID      string
	Comment        string
	QuoteID        string
	CreatedAt      time.Time
}

// ParticipantRFPRecord holds the append-only reply history for one
// (rdId, participantStaticId) pair. A record exists iff the participant was
// included in the RFP fan-out.
type ParticipantRFPRecord struct {
	RDID                string
	ParticipantStaticID string
	Replies             []*ParticipantRFPReply
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// HasMessage reports whether a reply with the given idempotency key was
// already appended.
func (r *ParticipantRFPRecord) HasMessage(senderStaticID, messageID string) bool {
	for _, reply := range r.Replies {
		if reply.SenderStaticID == senderStaticID && reply.MessageID == messageID {
			return true
		}
	}
	return false
}

// LastReply returns the most recently appended reply, or nil for a fresh
// record.
func (r *ParticipantRFPRecord) LastReply() *ParticipantRFPReply {
	if len(r.Replies) == 0 {
		return nil
	}
	return r.Replies[len(r.Replies)-1]
}

// ParticipantRFPSummary is the read model for one participant: its derived
// status plus the reply history with quotes resolved.
type ParticipantRFPSummary struct {
	ParticipantStaticID string
	Status              types.ParticipantRFPStatus
	Replies             []*ParticipantReplyView
}

// ParticipantReplyView is a reply enriched with its quote document, as
// returned by the summary reads.
type ParticipantReplyView struct {
	Type           types.ReplyType
	SenderStaticID string
	Comment        string
	CreatedAt      time.Time
	Quote          *Quote
}
