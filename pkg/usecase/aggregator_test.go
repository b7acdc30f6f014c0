package usecase

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/tradefin-lab/rfpcore/pkg/domain/model"
	"github.com/tradefin-lab/rfpcore/pkg/domain/types"
)

func record(participantID string, replyTypes ...types.ReplyType) *model.ParticipantRFPRecord {
	r := &model.ParticipantRFPRecord{
		RDID:                "rd-1",
		ParticipantStaticID: participantID,
	}
	for i, t := range replyTypes {
		r.Replies = append(r.Replies, &model.ParticipantRFPReply{
			Type:           t,
			SenderStaticID: participantID,
			MessageID:      participantID + "-" + string(rune('a'+i)),
			CreatedAt:      time.Now().UTC(),
		})
	}
	return r
}

func TestParticipantStatus(t *testing.T) {
	t.Run("no replies means requested", func(t *testing.T) {
		gt.Value(t, participantStatus(record("bank-a"), "", false)).
			Equal(types.ParticipantStatusRequested)
	})

	t.Run("no replies and expired window means expired", func(t *testing.T) {
		gt.Value(t, participantStatus(record("bank-a"), "", true)).
			Equal(types.ParticipantStatusRequestExpired)
	})

	t.Run("last reply wins", func(t *testing.T) {
		gt.Value(t, participantStatus(record("bank-a", types.ReplyTypeSubmitted), "", false)).
			Equal(types.ParticipantStatusQuoteSubmitted)
		gt.Value(t, participantStatus(record("bank-a", types.ReplyTypeRejected), "", false)).
			Equal(types.ParticipantStatusRequestDeclined)
		gt.Value(t, participantStatus(record("bank-a", types.ReplyTypeSubmitted, types.ReplyTypeSubmitted), "", false)).
			Equal(types.ParticipantStatusQuoteSubmitted)
	})

	t.Run("winner is accepted", func(t *testing.T) {
		gt.Value(t, participantStatus(record("bank-a", types.ReplyTypeSubmitted, types.ReplyTypeAccepted), "bank-a", false)).
			Equal(types.ParticipantStatusQuoteAccepted)
	})

	t.Run("acceptance closes the other participants", func(t *testing.T) {
		// A non-winner with an open quote is reported declined
		gt.Value(t, participantStatus(record("bank-b", types.ReplyTypeSubmitted), "bank-a", false)).
			Equal(types.ParticipantStatusQuoteDeclined)
		// One that rejected stays declined on the request
		gt.Value(t, participantStatus(record("bank-c", types.ReplyTypeRejected), "bank-a", false)).
			Equal(types.ParticipantStatusRequestDeclined)
		// One that never answered is reported expired
		gt.Value(t, participantStatus(record("bank-d"), "bank-a", false)).
			Equal(types.ParticipantStatusRequestExpired)
	})
}

func TestRDStatus(t *testing.T) {
	t.Run("no RFP means pending request", func(t *testing.T) {
		gt.Value(t, rdStatus(false, "", nil)).Equal(types.RDStatusPendingRequest)
	})

	t.Run("winner means accepted", func(t *testing.T) {
		gt.Value(t, rdStatus(true, "bank-a", []types.ParticipantRFPStatus{
			types.ParticipantStatusQuoteAccepted,
			types.ParticipantStatusQuoteDeclined,
		})).Equal(types.RDStatusQuoteAccepted)
	})

	t.Run("any open quote means submitted", func(t *testing.T) {
		gt.Value(t, rdStatus(true, "", []types.ParticipantRFPStatus{
			types.ParticipantStatusRequested,
			types.ParticipantStatusQuoteSubmitted,
			types.ParticipantStatusRequestDeclined,
		})).Equal(types.RDStatusQuoteSubmitted)
	})

	t.Run("all declined means declined", func(t *testing.T) {
		gt.Value(t, rdStatus(true, "", []types.ParticipantRFPStatus{
			types.ParticipantStatusRequestDeclined,
			types.ParticipantStatusRequestDeclined,
		})).Equal(types.RDStatusRequestDeclined)
	})

	t.Run("all expired means expired", func(t *testing.T) {
		gt.Value(t, rdStatus(true, "", []types.ParticipantRFPStatus{
			types.ParticipantStatusRequestExpired,
			types.ParticipantStatusRequestExpired,
		})).Equal(types.RDStatusRequestExpired)
	})

	t.Run("mixed answers without a quote stay requested", func(t *testing.T) {
		gt.Value(t, rdStatus(true, "", []types.ParticipantRFPStatus{
			types.ParticipantStatusRequested,
			types.ParticipantStatusRequestDeclined,
		})).Equal(types.RDStatusRequested)
	})
}
