package model

import "github.com/tradefin-lab/rfpcore/pkg/domain/types"

// replyTransitions maps a participant's current derived status to the reply
// types that may legally be appended. Both directions of the negotiation
// (locally-initiated replies and inbound bus messages) consult this same
// table, so a trader and a bank can never disagree on legality.
var replyTransitions = map[types.ParticipantRFPStatus][]types.ReplyType{
	types.ParticipantStatusRequested: {
		types.ReplyTypeSubmitted,
		types.ReplyTypeRejected,
	},
	types.ParticipantStatusQuoteSubmitted: {
		types.ReplyTypeAccepted,
		types.ReplyTypeDeclined,
		types.ReplyTypeSubmitted, // resubmission
	},
	// REQUEST_DECLINED, REQUEST_EXPIRED, QUOTE_DECLINED and QUOTE_ACCEPTED
	// are terminal: no entry, no accepted replies.
}

// CanTransition reports whether appending a reply of type t is a legal
// transition from the given participant status.
func CanTransition(from types.ParticipantRFPStatus, t types.ReplyType) bool {
	for _, allowed := range replyTransitions[from] {
		if allowed == t {
			return true
		}
	}
	return false
}

// TransitionTarget returns the participant status that a reply of type t
// produces. It is only meaningful for types accepted by CanTransition.
func TransitionTarget(t types.ReplyType) types.ParticipantRFPStatus {
	switch t {
	case types.ReplyTypeSubmitted:
		return types.ParticipantStatusQuoteSubmitted
	case types.ReplyTypeRejected:
		return types.ParticipantStatusRequestDeclined
	case types.ReplyTypeDeclined:
		return types.ParticipantStatusQuoteDeclined
	case types.ReplyTypeAccepted:
		return types.ParticipantStatusQuoteAccepted
	default:
		return types.ParticipantStatusRequested
	}
}
