package model_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/tradefin-lab/rfpcore/pkg/domain/model"
	"github.com/tradefin-lab/rfpcore/pkg/domain/types"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		name    string
		from    types.ParticipantRFPStatus
		reply   types.ReplyType
		allowed bool
	}{
		{"requested accepts submission", types.ParticipantStatusRequested, types.ReplyTypeSubmitted, true},
		{"requested accepts rejection", types.ParticipantStatusRequested, types.ReplyTypeRejected, true},
		{"requested refuses acceptance", types.ParticipantStatusRequested, types.ReplyTypeAccepted, false},
		{"requested refuses decline", types.ParticipantStatusRequested, types.ReplyTypeDeclined, false},
		{"submitted accepts acceptance", types.ParticipantStatusQuoteSubmitted, types.ReplyTypeAccepted, true},
		{"submitted accepts decline", types.ParticipantStatusQuoteSubmitted, types.ReplyTypeDeclined, true},
		{"submitted accepts resubmission", types.ParticipantStatusQuoteSubmitted, types.ReplyTypeSubmitted, true},
		{"submitted refuses rejection", types.ParticipantStatusQuoteSubmitted, types.ReplyTypeRejected, false},
		{"declined request is terminal", types.ParticipantStatusRequestDeclined, types.ReplyTypeSubmitted, false},
		{"expired request is terminal", types.ParticipantStatusRequestExpired, types.ReplyTypeSubmitted, false},
		{"declined quote is terminal", types.ParticipantStatusQuoteDeclined, types.ReplyTypeSubmitted, false},
		{"accepted quote is terminal", types.ParticipantStatusQuoteAccepted, types.ReplyTypeSubmitted, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gt.Value(t, model.CanTransition(tc.from, tc.reply)).Equal(tc.allowed)
		})
	}
}

func TestTransitionTarget(t *testing.T) {
	gt.Value(t, model.TransitionTarget(types.ReplyTypeSubmitted)).Equal(types.ParticipantStatusQuoteSubmitted)
	gt.Value(t, model.TransitionTarget(types.ReplyTypeRejected)).Equal(types.ParticipantStatusRequestDeclined)
	gt.Value(t, model.TransitionTarget(types.ReplyTypeDeclined)).Equal(types.ParticipantStatusQuoteDeclined)
	gt.Value(t, model.TransitionTarget(types.ReplyTypeAccepted)).Equal(types.ParticipantStatusQuoteAccepted)
}

func TestReplyRoutingKey(t *testing.T) {
	gt.Value(t, model.ReplyRoutingKey(types.ReplyTypeSubmitted)).Equal("RFP.rd.SubmitQuote")
	gt.Value(t, model.ReplyRoutingKey(types.ReplyTypeRejected)).Equal("RFP.rd.Reject")
	gt.Value(t, model.ReplyRoutingKey(types.ReplyTypeDeclined)).Equal("RFP.rd.Decline")
	gt.Value(t, model.ReplyRoutingKey(types.ReplyTypeAccepted)).Equal("RFP.rd.Accept")
}

func TestEnvelopeValidate(t *testing.T) {
	env := &model.RFPEnvelope{
		Version:           model.EnvelopeVersion,
		RDID:              "rd-1",
		SenderStaticID:    "bank-a",
		RecipientStaticID: "trader-1",
		MessageID:         "m-1",
	}
	gt.NoError(t, env.Validate())

	missingRD := *env
	missingRD.RDID = ""
	gt.Error(t, missingRD.Validate())

	missingSender := *env
	missingSender.SenderStaticID = ""
	gt.Error(t, missingSender.Validate())

	missingMessage := *env
	missingMessage.MessageID = ""
	gt.Error(t, missingMessage.Validate())
}
