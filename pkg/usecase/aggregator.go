package usecase

import (
	"github.com/tradefin-lab/rfpcore/pkg/domain/model"
	"github.com/tradefin-lab/rfpcore/pkg/domain/types"
)

// The derived-state functions below are the only source of truth for
// negotiation status. No status field is ever persisted for a participant:
// everything is recomputed from the append-only reply logs on read.

// participantStatus derives one participant's status from its reply log.
//
// acceptedParticipantID is the RD-level winner ("" if none yet). Accepting
// one quote implicitly closes every other participant: a non-winner that
// got as far as submitting is reported QUOTE_DECLINED, one that rejected
// stays REQUEST_DECLINED, and one that never answered is reported
// REQUEST_EXPIRED. expired applies the external timer verdict to
// participants with an empty log.
func participantStatus(record *model.ParticipantRFPRecord, acceptedParticipantID string, expired bool) types.ParticipantRFPStatus {
	if acceptedParticipantID != "" {
		if record.ParticipantStaticID == acceptedParticipantID {
			return types.ParticipantStatusQuoteAccepted
		}
		if hasReplyOfType(record, types.ReplyTypeDeclined) || hasReplyOfType(record, types.ReplyTypeSubmitted) {
			return types.ParticipantStatusQuoteDeclined
		}
		if hasReplyOfType(record, types.ReplyTypeRejected) {
			return types.ParticipantStatusRequestDeclined
		}
		return types.ParticipantStatusRequestExpired
	}

	last := record.LastReply()
	if last == nil {
		if expired {
			return types.ParticipantStatusRequestExpired
		}
		return types.ParticipantStatusRequested
	}

	// Only guard-approved replies are ever appended, so the last entry's
	// target status is the participant's status.
	return model.TransitionTarget(last.Type)
}

// rdStatus derives the aggregate RD status from the participant statuses.
func rdStatus(rfpExists bool, acceptedParticipantID string, statuses []types.ParticipantRFPStatus) types.RDStatus {
	if !rfpExists {
		return types.RDStatusPendingRequest
	}
	if acceptedParticipantID != "" {
		return types.RDStatusQuoteAccepted
	}

	some := func(s types.ParticipantRFPStatus) bool {
		for _, status := range statuses {
			if status == s {
				return true
			}
		}
		return false
	}
	every := func(s types.ParticipantRFPStatus) bool {
		for _, status := range statuses {
			if status != s {
				return false
			}
		}
		return len(statuses) > 0
	}

	switch {
	case some(types.ParticipantStatusQuoteSubmitted):
		return types.RDStatusQuoteSubmitted
	case every(types.ParticipantStatusRequestDeclined):
		return types.RDStatusRequestDeclined
	case every(types.ParticipantStatusRequestExpired):
		return types.RDStatusRequestExpired
	case every(types.ParticipantStatusQuoteDeclined):
		return types.RDStatusQuoteDeclined
	default:
		return types.RDStatusRequested
	}
}

func hasReplyOfType(record *model.ParticipantRFPRecord, t types.ReplyType) bool {
	for _, reply := range record.Replies {
		if reply.Type == t {
			return true
		}
	}
	return false
}
