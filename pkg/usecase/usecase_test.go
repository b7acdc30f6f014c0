package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/tradefin-lab/rfpcore/pkg/domain/model"
	"github.com/tradefin-lab/rfpcore/pkg/domain/types"
	"github.com/tradefin-lab/rfpcore/pkg/repository/memory"
	"github.com/tradefin-lab/rfpcore/pkg/service/bus"
	"github.com/tradefin-lab/rfpcore/pkg/usecase"
)

// stubPublisher records published envelopes and can simulate per-recipient
// or broker-level failures.
type stubPublisher struct {
	mu        sync.Mutex
	published []publishedMessage
	failFor   map[string]error
}

type publishedMessage struct {
	routingKey string
	env        model.RFPEnvelope
}

func (p *stubPublisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	var env model.RFPEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err, ok := p.failFor[env.RecipientStaticID]; ok {
		return err
	}
	p.published = append(p.published, publishedMessage{routingKey: routingKey, env: env})
	return nil
}

func (p *stubPublisher) Close() error { return nil }

func (p *stubPublisher) messages() []publishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedMessage{}, p.published...)
}

func newTestUseCases(t *testing.T, companyID string, pub *stubPublisher) *usecase.UseCases {
	t.Helper()
	outbound := bus.NewOutboundPublisher(pub, 2, 1)
	return usecase.New(memory.New(), outbound, companyID)
}

func createTestRD(t *testing.T, uc *usecase.UseCases, staticID string) *model.RDApplication {
	t.Helper()
	rd, err := uc.RD.Create(context.Background(), &model.RDApplication{
		StaticID:      staticID,
		TradeSourceID: "trade-1",
		InvoiceAmount: 100000,
		Currency:      "USD",
		AdvanceRate:   80,
	})
	gt.NoError(t, err).Required()
	return rd
}

// ingest feeds an inbound envelope to the handler bound to its routing key.
func ingest(t *testing.T, uc *usecase.UseCases, routingKey string, env *model.RFPEnvelope) {
	t.Helper()
	handler, ok := uc.Ingest.Handler(routingKey)
	gt.Bool(t, ok).True()
	gt.NoError(t, handler(context.Background(), env)).Required()
}

func submitEnvelope(rdID, sender, messageID, quoteID string) *model.RFPEnvelope {
	return &model.RFPEnvelope{
		Version:           model.EnvelopeVersion,
		Type:              types.ReplyTypeSubmitted,
		RDID:              rdID,
		SenderStaticID:    sender,
		RecipientStaticID: "trader-1",
		MessageID:         messageID,
		Quote: &model.Quote{
			StaticID:        quoteID,
			RDID:            rdID,
			Advance:         80000,
			PricingPercent:  2.5,
			DaysDiscounting: 60,
		},
	}
}

func TestCreateRFP(t *testing.T) {
	ctx := context.Background()

	t.Run("fans out to each participant once", func(t *testing.T) {
		pub := &stubPublisher{}
		uc := newTestUseCases(t, "trader-1", pub)
		createTestRD(t, uc, "RD-1")

		result, err := uc.Request.CreateRFP(ctx, "RD-1", []string{"BankA", "BankB", "BankA"})
		gt.NoError(t, err).Required()
		gt.Value(t, result.RFPID).NotEqual("")
		gt.Array(t, result.ActionStatuses).Length(2)
		for _, status := range result.ActionStatuses {
			gt.Value(t, status.Status).Equal(types.ActionStatusProcessed)
		}

		msgs := pub.messages()
		gt.Array(t, msgs).Length(2)
		for _, msg := range msgs {
			gt.Value(t, msg.routingKey).Equal(model.RoutingKeyRequest)
			gt.Value(t, msg.env.SenderStaticID).Equal("trader-1")
			gt.Value(t, msg.env.RDID).Equal("RD-1")
			gt.Value(t, msg.env.RD).NotNil()
		}

		info, err := uc.Summary.GetRFPSummary(ctx, "RD-1")
		gt.NoError(t, err).Required()
		gt.Value(t, info.Status).Equal(types.RDStatusRequested)
		gt.Array(t, info.ParticipantSummaries).Length(2)
		for _, summary := range info.ParticipantSummaries {
			gt.Value(t, summary.Status).Equal(types.ParticipantStatusRequested)
		}
	})

	t.Run("rejects an empty participant list", func(t *testing.T) {
		uc := newTestUseCases(t, "trader-1", &stubPublisher{})
		createTestRD(t, uc, "RD-1")

		_, err := uc.Request.CreateRFP(ctx, "RD-1", nil)
		gt.Bool(t, errors.Is(err, usecase.ErrFieldValidation)).True()
		_, err = uc.Request.CreateRFP(ctx, "RD-1", []string{"", ""})
		gt.Bool(t, errors.Is(err, usecase.ErrFieldValidation)).True()
	})

	t.Run("rejects an unknown RD", func(t *testing.T) {
		uc := newTestUseCases(t, "trader-1", &stubPublisher{})

		_, err := uc.Request.CreateRFP(ctx, "no-such-rd", []string{"BankA"})
		gt.Bool(t, errors.Is(err, usecase.ErrFieldValidation)).True()
	})

	t.Run("rejects a second RFP for the same RD", func(t *testing.T) {
		uc := newTestUseCases(t, "trader-1", &stubPublisher{})
		createTestRD(t, uc, "RD-1")

		_, err := uc.Request.CreateRFP(ctx, "RD-1", []string{"BankA"})
		gt.NoError(t, err).Required()

		_, err = uc.Request.CreateRFP(ctx, "RD-1", []string{"BankB"})
		gt.Bool(t, errors.Is(err, usecase.ErrDuplicate)).True()
	})

	t.Run("tolerates partial fan-out failure", func(t *testing.T) {
		pub := &stubPublisher{failFor: map[string]error{
			"BankB": errors.New("recipient gateway down"),
		}}
		uc := newTestUseCases(t, "trader-1", pub)
		createTestRD(t, uc, "RD-1")

		result, err := uc.Request.CreateRFP(ctx, "RD-1", []string{"BankA", "BankB", "BankC"})
		gt.NoError(t, err).Required()
		gt.Array(t, result.ActionStatuses).Length(3)

		var failed, processed int
		for _, status := range result.ActionStatuses {
			switch status.Status {
			case types.ActionStatusFailed:
				failed++
				gt.Value(t, status.RecipientStaticID).Equal("BankB")
			case types.ActionStatusProcessed:
				processed++
			}
		}
		gt.Number(t, failed).Equal(1)
		gt.Number(t, processed).Equal(2)

		// The records of the succeeding recipients are independently queryable
		for _, participant := range []string{"BankA", "BankC"} {
			summary, err := uc.Summary.GetParticipantRFPSummary(ctx, "RD-1", participant)
			gt.NoError(t, err).Required()
			gt.Value(t, summary.Status).Equal(types.ParticipantStatusRequested)
		}
	})

	t.Run("aborts on broker outage", func(t *testing.T) {
		pub := &stubPublisher{failFor: map[string]error{
			"BankA": bus.ErrUnavailable,
		}}
		uc := newTestUseCases(t, "trader-1", pub)
		createTestRD(t, uc, "RD-1")

		_, err := uc.Request.CreateRFP(ctx, "RD-1", []string{"BankA"})
		gt.Bool(t, errors.Is(err, usecase.ErrPublisherUnavailable)).True()
	})
}

func TestNegotiationScenario(t *testing.T) {
	ctx := context.Background()
	pub := &stubPublisher{}
	uc := newTestUseCases(t, "trader-1", pub)
	createTestRD(t, uc, "RD-1")

	_, err := uc.Request.CreateRFP(ctx, "RD-1", []string{"BankA", "BankB"})
	gt.NoError(t, err).Required()

	// BankA submits quote Q1
	ingest(t, uc, model.RoutingKeySubmitQuote, submitEnvelope("RD-1", "BankA", "m-a1", "Q1"))

	summary, err := uc.Summary.GetParticipantRFPSummary(ctx, "RD-1", "BankA")
	gt.NoError(t, err).Required()
	gt.Value(t, summary.Status).Equal(types.ParticipantStatusQuoteSubmitted)
	gt.Array(t, summary.Replies).Length(1)
	gt.Value(t, summary.Replies[0].Quote).NotNil()

	// Redelivery of the same message appends nothing
	ingest(t, uc, model.RoutingKeySubmitQuote, submitEnvelope("RD-1", "BankA", "m-a1", "Q1"))
	summary, err = uc.Summary.GetParticipantRFPSummary(ctx, "RD-1", "BankA")
	gt.NoError(t, err).Required()
	gt.Array(t, summary.Replies).Length(1)

	// BankB submits quote Q2
	ingest(t, uc, model.RoutingKeySubmitQuote, submitEnvelope("RD-1", "BankB", "m-b1", "Q2"))

	info, err := uc.Summary.GetRFPSummary(ctx, "RD-1")
	gt.NoError(t, err).Required()
	gt.Value(t, info.Status).Equal(types.RDStatusQuoteSubmitted)

	// Trader accepts Q1 from BankA
	result, err := uc.Quote.AcceptQuote(ctx, "RD-1", "BankA", "Q1", "deal")
	gt.NoError(t, err).Required()
	// One Accept for the winner plus one Decline for BankB
	gt.Array(t, result.ActionStatuses).Length(2)

	info, err = uc.Summary.GetRFPSummary(ctx, "RD-1")
	gt.NoError(t, err).Required()
	gt.Value(t, info.Status).Equal(types.RDStatusQuoteAccepted)
	gt.Value(t, info.AcceptedParticipantStaticID).Equal("BankA")
	for _, summary := range info.ParticipantSummaries {
		switch summary.ParticipantStaticID {
		case "BankA":
			gt.Value(t, summary.Status).Equal(types.ParticipantStatusQuoteAccepted)
		case "BankB":
			gt.Value(t, summary.Status).Equal(types.ParticipantStatusQuoteDeclined)
		}
	}

	// A later accept attempt for BankB is a conflict
	_, err = uc.Quote.AcceptQuote(ctx, "RD-1", "BankB", "Q2", "")
	gt.Bool(t, errors.Is(err, usecase.ErrDuplicate)).True()

	info, err = uc.Summary.GetRFPSummary(ctx, "RD-1")
	gt.NoError(t, err).Required()
	gt.Value(t, info.AcceptedParticipantStaticID).Equal("BankA")

	// The accepted quote is frozen
	_, err = uc.Quote.UpdateQuote(ctx, &model.Quote{StaticID: "Q1", PricingPercent: 1.0})
	gt.Bool(t, errors.Is(err, usecase.ErrFieldValidation)).True()
}

func TestIngestIllegalTransition(t *testing.T) {
	ctx := context.Background()
	uc := newTestUseCases(t, "trader-1", &stubPublisher{})
	createTestRD(t, uc, "RD-1")

	_, err := uc.Request.CreateRFP(ctx, "RD-1", []string{"BankA"})
	gt.NoError(t, err).Required()

	// BankA declines the request outright
	ingest(t, uc, model.RoutingKeyReject, &model.RFPEnvelope{
		Version:           model.EnvelopeVersion,
		Type:              types.ReplyTypeRejected,
		RDID:              "RD-1",
		SenderStaticID:    "BankA",
		RecipientStaticID: "trader-1",
		MessageID:         "m-rej",
	})

	summary, err := uc.Summary.GetParticipantRFPSummary(ctx, "RD-1", "BankA")
	gt.NoError(t, err).Required()
	gt.Value(t, summary.Status).Equal(types.ParticipantStatusRequestDeclined)

	// A submission after the rejection is absorbed without appending
	ingest(t, uc, model.RoutingKeySubmitQuote, submitEnvelope("RD-1", "BankA", "m-late", "Q9"))

	summary, err = uc.Summary.GetParticipantRFPSummary(ctx, "RD-1", "BankA")
	gt.NoError(t, err).Required()
	gt.Value(t, summary.Status).Equal(types.ParticipantStatusRequestDeclined)
	gt.Array(t, summary.Replies).Length(1)
}

func TestIngestUnknownSender(t *testing.T) {
	ctx := context.Background()
	uc := newTestUseCases(t, "trader-1", &stubPublisher{})
	createTestRD(t, uc, "RD-1")

	_, err := uc.Request.CreateRFP(ctx, "RD-1", []string{"BankA"})
	gt.NoError(t, err).Required()

	// A reply from a bank that was never invited is absorbed
	ingest(t, uc, model.RoutingKeySubmitQuote, submitEnvelope("RD-1", "BankZ", "m-z1", "QZ"))

	info, err := uc.Summary.GetRFPSummary(ctx, "RD-1")
	gt.NoError(t, err).Required()
	gt.Value(t, info.Status).Equal(types.RDStatusRequested)
}

func TestIngestForeignRecipient(t *testing.T) {
	ctx := context.Background()

	t.Run("an accept addressed to another bank is ignored", func(t *testing.T) {
		uc := newTestUseCases(t, "BankB", &stubPublisher{})

		ingest(t, uc, model.RoutingKeyRequest, &model.RFPEnvelope{
			Version:           model.EnvelopeVersion,
			RDID:              "RD-1",
			RFPID:             "RFP-1",
			SenderStaticID:    "trader-1",
			RecipientStaticID: "BankB",
			MessageID:         "m-req",
			RD:                &model.RDApplication{InvoiceAmount: 100000, Currency: "USD"},
		})

		quote, err := uc.Quote.CreateQuote(ctx, &model.Quote{
			RDID:            "RD-1",
			Advance:         80000,
			PricingPercent:  2.5,
			DaysDiscounting: 60,
		})
		gt.NoError(t, err).Required()
		_, err = uc.Quote.SubmitQuote(ctx, "RD-1", quote.StaticID, "")
		gt.NoError(t, err).Required()

		// The trader accepts BankA on the shared topic; BankB sees the
		// envelope too and must not claim the win for itself.
		ingest(t, uc, model.RoutingKeyAccept, &model.RFPEnvelope{
			Version:           model.EnvelopeVersion,
			Type:              types.ReplyTypeAccepted,
			RDID:              "RD-1",
			SenderStaticID:    "trader-1",
			RecipientStaticID: "BankA",
			MessageID:         "m-acc",
		})

		summary, err := uc.Summary.GetParticipantRFPSummary(ctx, "RD-1", "BankB")
		gt.NoError(t, err).Required()
		gt.Value(t, summary.Status).Equal(types.ParticipantStatusQuoteSubmitted)

		info, err := uc.Summary.GetRFPSummary(ctx, "RD-1")
		gt.NoError(t, err).Required()
		gt.Value(t, info.AcceptedParticipantStaticID).Equal("")
	})

	t.Run("a trader ignores its own fan-out request", func(t *testing.T) {
		uc := newTestUseCases(t, "trader-1", &stubPublisher{})
		createTestRD(t, uc, "RD-1")

		_, err := uc.Request.CreateRFP(ctx, "RD-1", []string{"BankA"})
		gt.NoError(t, err).Required()

		// The shared topic loops the request back to its sender
		ingest(t, uc, model.RoutingKeyRequest, &model.RFPEnvelope{
			Version:           model.EnvelopeVersion,
			RDID:              "RD-1",
			SenderStaticID:    "trader-1",
			RecipientStaticID: "BankA",
			MessageID:         "m-loop",
			RD:                &model.RDApplication{InvoiceAmount: 100000, Currency: "USD"},
		})

		// No bogus participant record for the trader itself
		_, err = uc.Summary.GetParticipantRFPSummary(ctx, "RD-1", "trader-1")
		gt.Bool(t, errors.Is(err, usecase.ErrNotFound)).True()
	})
}

func TestBankSideFlow(t *testing.T) {
	ctx := context.Background()
	pub := &stubPublisher{}
	uc := newTestUseCases(t, "BankA", pub)

	// Inbound request from the trader seeds the local copy
	ingest(t, uc, model.RoutingKeyRequest, &model.RFPEnvelope{
		Version:           model.EnvelopeVersion,
		RDID:              "RD-1",
		RFPID:             "RFP-1",
		SenderStaticID:    "trader-1",
		RecipientStaticID: "BankA",
		MessageID:         "m-req",
		RD: &model.RDApplication{
			TradeSourceID: "trade-1",
			InvoiceAmount: 100000,
			Currency:      "USD",
			AdvanceRate:   80,
		},
	})

	summary, err := uc.Summary.GetParticipantRFPSummary(ctx, "RD-1", "BankA")
	gt.NoError(t, err).Required()
	gt.Value(t, summary.Status).Equal(types.ParticipantStatusRequested)

	// Drafting and submitting a quote notifies the requester
	quote, err := uc.Quote.CreateQuote(ctx, &model.Quote{
		RDID:            "RD-1",
		Advance:         80000,
		PricingPercent:  2.5,
		DaysDiscounting: 60,
	})
	gt.NoError(t, err).Required()

	result, err := uc.Quote.SubmitQuote(ctx, "RD-1", quote.StaticID, "our offer")
	gt.NoError(t, err).Required()
	gt.Value(t, result.RFPID).Equal("RFP-1")
	gt.Value(t, result.ActionStatus.RecipientStaticID).Equal("trader-1")
	gt.Value(t, result.ActionStatus.Status).Equal(types.ActionStatusProcessed)

	msgs := pub.messages()
	gt.Array(t, msgs).Length(1)
	gt.Value(t, msgs[0].routingKey).Equal(model.RoutingKeySubmitQuote)
	gt.Value(t, msgs[0].env.Quote).NotNil()

	// Rejecting after submitting is no longer allowed
	_, err = uc.Request.Reject(ctx, "RD-1", "changed our mind")
	gt.Bool(t, errors.Is(err, usecase.ErrFieldValidation)).True()

	// The trader accepts; the inbound Accept lands on our own record
	ingest(t, uc, model.RoutingKeyAccept, &model.RFPEnvelope{
		Version:           model.EnvelopeVersion,
		Type:              types.ReplyTypeAccepted,
		RDID:              "RD-1",
		RFPID:             "RFP-1",
		SenderStaticID:    "trader-1",
		RecipientStaticID: "BankA",
		MessageID:         "m-acc",
		Quote:             quote,
	})

	summary, err = uc.Summary.GetParticipantRFPSummary(ctx, "RD-1", "BankA")
	gt.NoError(t, err).Required()
	gt.Value(t, summary.Status).Equal(types.ParticipantStatusQuoteAccepted)
}

func TestBankSideReject(t *testing.T) {
	ctx := context.Background()
	pub := &stubPublisher{}
	uc := newTestUseCases(t, "BankA", pub)

	ingest(t, uc, model.RoutingKeyRequest, &model.RFPEnvelope{
		Version:           model.EnvelopeVersion,
		RDID:              "RD-1",
		RFPID:             "RFP-1",
		SenderStaticID:    "trader-1",
		RecipientStaticID: "BankA",
		MessageID:         "m-req",
		RD:                &model.RDApplication{InvoiceAmount: 100000, Currency: "USD"},
	})

	result, err := uc.Request.Reject(ctx, "RD-1", "not interested")
	gt.NoError(t, err).Required()
	gt.Value(t, result.ActionStatus.RecipientStaticID).Equal("trader-1")

	summary, err := uc.Summary.GetParticipantRFPSummary(ctx, "RD-1", "BankA")
	gt.NoError(t, err).Required()
	gt.Value(t, summary.Status).Equal(types.ParticipantStatusRequestDeclined)

	// Only one terminal rejection per RD
	_, err = uc.Request.Reject(ctx, "RD-1", "again")
	gt.Bool(t, errors.Is(err, usecase.ErrFieldValidation)).True()
}
