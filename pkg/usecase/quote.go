package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/tradefin-lab/rfpcore/pkg/domain/interfaces"
	"github.com/tradefin-lab/rfpcore/pkg/domain/model"
	"github.com/tradefin-lab/rfpcore/pkg/domain/types"
	"github.com/tradefin-lab/rfpcore/pkg/service/bus"
	"github.com/tradefin-lab/rfpcore/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

// QuoteUseCase owns the quote lifecycle: drafting and revising quotes on the
// bank side, submitting them into a negotiation, and accepting one on the
// trader side.
type QuoteUseCase struct {
	repo            interfaces.Repository
	outbound        *bus.OutboundPublisher
	companyStaticID string
	summary         *SummaryUseCase
}

func NewQuoteUseCase(repo interfaces.Repository, outbound *bus.OutboundPublisher, companyStaticID string, summary *SummaryUseCase) *QuoteUseCase {
	return &QuoteUseCase{
		repo:            repo,
		outbound:        outbound,
		companyStaticID: companyStaticID,
		summary:         summary,
	}
}

// CreateQuote drafts a new quote against an existing RD. Drafting does not
// touch the negotiation; the quote only becomes visible to the requester
// when it is submitted.
func (uc *QuoteUseCase) CreateQuote(ctx context.Context, quote *model.Quote) (*model.Quote, error) {
	if quote.RDID == "" {
		return nil, goerr.Wrap(ErrFieldValidation, "quote must reference an RD")
	}
	if quote.Advance < 0 || quote.PricingPercent < 0 || quote.DaysDiscounting < 0 {
		return nil, goerr.Wrap(ErrFieldValidation, "quote terms must not be negative")
	}

	if _, err := uc.repo.RD().Get(ctx, quote.RDID); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(ErrFieldValidation, "RD does not exist", goerr.V(RDIDKey, quote.RDID))
		}
		return nil, goerr.Wrap(err, "failed to get RD", goerr.V(RDIDKey, quote.RDID))
	}

	now := time.Now().UTC()
	quote.StaticID = uuid.NewString()
	quote.CreatedAt = now
	quote.UpdatedAt = now

	created, err := uc.repo.Quote().Create(ctx, quote)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create quote", goerr.V(RDIDKey, quote.RDID))
	}
	return created, nil
}

// UpdateQuote revises the terms of a drafted quote. A quote that an ACCEPTED
// reply references is frozen and can no longer change.
func (uc *QuoteUseCase) UpdateQuote(ctx context.Context, quote *model.Quote) (*model.Quote, error) {
	current, err := uc.repo.Quote().Get(ctx, quote.StaticID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(ErrNotFound, "quote not found", goerr.V(QuoteIDKey, quote.StaticID))
		}
		return nil, goerr.Wrap(err, "failed to get quote", goerr.V(QuoteIDKey, quote.StaticID))
	}
	if quote.Advance < 0 || quote.PricingPercent < 0 || quote.DaysDiscounting < 0 {
		return nil, goerr.Wrap(ErrFieldValidation, "quote terms must not be negative")
	}

	accepted, err := uc.quoteAccepted(ctx, current)
	if err != nil {
		return nil, err
	}
	if accepted {
		return nil, goerr.Wrap(ErrFieldValidation, "an accepted quote can not be updated",
			goerr.V(QuoteIDKey, quote.StaticID))
	}

	quote.RDID = current.RDID
	quote.CreatedAt = current.CreatedAt
	quote.UpdatedAt = time.Now().UTC()

	updated, err := uc.repo.Quote().Update(ctx, quote)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update quote", goerr.V(QuoteIDKey, quote.StaticID))
	}
	return updated, nil
}

// GetQuote retrieves a quote by static ID.
func (uc *QuoteUseCase) GetQuote(ctx context.Context, quoteID string) (*model.Quote, error) {
	quote, err := uc.repo.Quote().Get(ctx, quoteID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(ErrNotFound, "quote not found", goerr.V(QuoteIDKey, quoteID))
		}
		return nil, goerr.Wrap(err, "failed to get quote", goerr.V(QuoteIDKey, quoteID))
	}
	return quote, nil
}

// SubmitQuote submits a drafted quote to the requester. Resubmission with a
// revised quote is allowed while the negotiation is open. Bank side only.
func (uc *QuoteUseCase) SubmitQuote(ctx context.Context, rdID, quoteID, comment string) (*ReplyResult, error) {
	rd, rfp, record, err := loadNegotiation(ctx, uc.repo, rdID, uc.companyStaticID)
	if err != nil {
		return nil, err
	}

	quote, err := uc.GetQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if quote.RDID != rdID {
		return nil, goerr.Wrap(ErrFieldValidation, "quote belongs to a different RD",
			goerr.V(QuoteIDKey, quoteID),
			goerr.V(RDIDKey, rdID))
	}

	status := participantStatus(record, rd.AcceptedParticipantStaticID, false)
	if !model.CanTransition(status, types.ReplyTypeSubmitted) {
		return nil, goerr.Wrap(ErrFieldValidation, "quote submission is not allowed in the current status",
			goerr.V(RDIDKey, rdID),
			goerr.V("status", status))
	}

	reply := newReply(types.ReplyTypeSubmitted, uc.companyStaticID, "", comment, quoteID)
	if _, err := uc.repo.Reply().AppendReply(ctx, rdID, uc.companyStaticID, reply); err != nil {
		return nil, goerr.Wrap(err, "failed to append quote submission", goerr.V(RDIDKey, rdID))
	}

	env := &model.RFPEnvelope{
		Version:           model.EnvelopeVersion,
		Type:              types.ReplyTypeSubmitted,
		RDID:              rdID,
		RFPID:             rfp.StaticID,
		SenderStaticID:    uc.companyStaticID,
		RecipientStaticID: rfp.RequesterStaticID,
		MessageID:         reply.MessageID,
		Comment:           comment,
		Quote:             quote,
	}
	result, err := uc.outbound.Send(ctx, model.RoutingKeySubmitQuote, env)
	if err != nil {
		return nil, goerr.Wrap(ErrPublisherUnavailable, "failed to publish quote submission",
			goerr.V(RDIDKey, rdID))
	}
	return &ReplyResult{RFPID: rfp.StaticID, ActionStatus: result}, nil
}

// AcceptQuote accepts one participant's submitted quote, which closes the
// whole negotiation: the winner gets an Accept message and every other
// participant that still has a quote on the table gets a Decline. The winner
// slot is claimed atomically so a second accept always fails, whichever
// participant it names. Trader side only.
func (uc *QuoteUseCase) AcceptQuote(ctx context.Context, rdID, participantStaticID, quoteID, comment string) (*AcceptResult, error) {
	rd, record, status, err := uc.summary.negotiationState(ctx, rdID, participantStaticID)
	if err != nil {
		return nil, err
	}

	// A second accept is a conflict, not a bad transition, whichever
	// participant it names.
	if rd.AcceptedParticipantStaticID != "" {
		return nil, goerr.Wrap(ErrDuplicate, "a quote was already accepted for this RD",
			goerr.V(RDIDKey, rdID))
	}

	if !model.CanTransition(status, types.ReplyTypeAccepted) {
		return nil, goerr.Wrap(ErrFieldValidation, "acceptance is not allowed in the current status",
			goerr.V(RDIDKey, rdID),
			goerr.V(ParticipantIDKey, participantStaticID),
			goerr.V("status", status))
	}

	quote, err := uc.GetQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if quote.RDID != rdID {
		return nil, goerr.Wrap(ErrFieldValidation, "quote belongs to a different RD",
			goerr.V(QuoteIDKey, quoteID),
			goerr.V(RDIDKey, rdID))
	}
	if last := lastSubmission(record); last == nil || last.QuoteID != quoteID {
		return nil, goerr.Wrap(ErrFieldValidation, "quote is not the participant's latest submission",
			goerr.V(QuoteIDKey, quoteID),
			goerr.V(ParticipantIDKey, participantStaticID))
	}

	if err := uc.repo.RD().SetAcceptedParticipant(ctx, rdID, participantStaticID); err != nil {
		if errors.Is(err, interfaces.ErrDuplicate) {
			return nil, goerr.Wrap(ErrDuplicate, "a quote was already accepted for this RD",
				goerr.V(RDIDKey, rdID))
		}
		return nil, goerr.Wrap(err, "failed to record acceptance", goerr.V(RDIDKey, rdID))
	}

	reply := newReply(types.ReplyTypeAccepted, uc.companyStaticID, "", comment, quoteID)
	if _, err := uc.repo.Reply().AppendReply(ctx, rdID, participantStaticID, reply); err != nil {
		return nil, goerr.Wrap(err, "failed to append acceptance", goerr.V(RDIDKey, rdID))
	}

	return uc.notifyAcceptance(ctx, rdID, participantStaticID, quoteID, comment, reply.MessageID)
}

// notifyAcceptance publishes Accept to the winner and Decline to every other
// participant whose quote is still open.
func (uc *QuoteUseCase) notifyAcceptance(ctx context.Context, rdID, winnerID, quoteID, comment, messageID string) (*AcceptResult, error) {
	rfp, err := uc.repo.RFP().GetByRDID(ctx, rdID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get RFP", goerr.V(RDIDKey, rdID))
	}

	quote, err := uc.repo.Quote().Get(ctx, quoteID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get quote", goerr.V(QuoteIDKey, quoteID))
	}

	records, err := uc.repo.Reply().ListRecords(ctx, rdID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list participant records", goerr.V(RDIDKey, rdID))
	}

	type outboundMessage struct {
		routingKey string
		env        *model.RFPEnvelope
	}
	messages := []outboundMessage{{
		routingKey: model.RoutingKeyAccept,
		env: &model.RFPEnvelope{
			Version:           model.EnvelopeVersion,
			Type:              types.ReplyTypeAccepted,
			RDID:              rdID,
			RFPID:             rfp.StaticID,
			SenderStaticID:    uc.companyStaticID,
			RecipientStaticID: winnerID,
			MessageID:         messageID,
			Comment:           comment,
			Quote:             quote,
		},
	}}

	// Acceptance happened, so every non-winner with an open quote derives to
	// QUOTE_DECLINED. Tell them explicitly so their copy converges too.
	for _, other := range records {
		if other.ParticipantStaticID == winnerID {
			continue
		}
		last := other.LastReply()
		if last == nil || model.TransitionTarget(last.Type) != types.ParticipantStatusQuoteSubmitted {
			continue
		}
		messages = append(messages, outboundMessage{
			routingKey: model.RoutingKeyDecline,
			env: &model.RFPEnvelope{
				Version:           model.EnvelopeVersion,
				Type:              types.ReplyTypeDeclined,
				RDID:              rdID,
				RFPID:             rfp.StaticID,
				SenderStaticID:    uc.companyStaticID,
				RecipientStaticID: other.ParticipantStaticID,
				MessageID:         uuid.NewString(),
			},
		})
	}

	results := make([]*model.OutboundActionResult, len(messages))
	eg, ctx := errgroup.WithContext(ctx)
	for i, msg := range messages {
		eg.Go(func() error {
			result, err := uc.outbound.Send(ctx, msg.routingKey, msg.env)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		if errors.Is(err, bus.ErrUnavailable) {
			return nil, goerr.Wrap(ErrPublisherUnavailable, "acceptance fan-out aborted",
				goerr.V(RDIDKey, rdID))
		}
		return nil, goerr.Wrap(err, "acceptance fan-out failed", goerr.V(RDIDKey, rdID))
	}

	logging.From(ctx).Info("quote accepted",
		"rd_id", rdID,
		"participant_static_id", winnerID,
		"quote_id", quoteID,
		"declined", len(messages)-1,
	)

	return &AcceptResult{RFPID: rfp.StaticID, ActionStatuses: results}, nil
}

// quoteAccepted reports whether any participant's log carries an ACCEPTED
// reply referencing the quote.
func (uc *QuoteUseCase) quoteAccepted(ctx context.Context, quote *model.Quote) (bool, error) {
	records, err := uc.repo.Reply().ListRecords(ctx, quote.RDID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return false, nil
		}
		return false, goerr.Wrap(err, "failed to list participant records", goerr.V(RDIDKey, quote.RDID))
	}
	for _, record := range records {
		for _, reply := range record.Replies {
			if reply.Type == types.ReplyTypeAccepted && reply.QuoteID == quote.StaticID {
				return true, nil
			}
		}
	}
	return false, nil
}

// lastSubmission returns the most recent SUBMITTED reply, skipping over any
// later non-submission entries.
func lastSubmission(record *model.ParticipantRFPRecord) *model.ParticipantRFPReply {
	for i := len(record.Replies) - 1; i >= 0; i-- {
		if record.Replies[i].Type == types.ReplyTypeSubmitted {
			return record.Replies[i]
		}
	}
	return nil
}

// loadNegotiation loads the RD, its RFP and one participant record. The
// bank-side operations call it with the local company as the participant.
func loadNegotiation(ctx context.Context, repo interfaces.Repository, rdID, participantStaticID string) (*model.RDApplication, *model.RFPRequest, *model.ParticipantRFPRecord, error) {
	rd, err := repo.RD().Get(ctx, rdID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, nil, nil, goerr.Wrap(ErrNotFound, "RD not found", goerr.V(RDIDKey, rdID))
		}
		return nil, nil, nil, goerr.Wrap(err, "failed to get RD", goerr.V(RDIDKey, rdID))
	}

	rfp, err := repo.RFP().GetByRDID(ctx, rdID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, nil, nil, goerr.Wrap(ErrNotFound, "no RFP exists for this RD", goerr.V(RDIDKey, rdID))
		}
		return nil, nil, nil, goerr.Wrap(err, "failed to get RFP", goerr.V(RDIDKey, rdID))
	}

	record, err := repo.Reply().GetRecord(ctx, rdID, participantStaticID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, nil, nil, goerr.Wrap(ErrNotFound, "not a participant of the RFP",
				goerr.V(RDIDKey, rdID),
				goerr.V(ParticipantIDKey, participantStaticID))
		}
		return nil, nil, nil, goerr.Wrap(err, "failed to get participant record",
			goerr.V(RDIDKey, rdID),
			goerr.V(ParticipantIDKey, participantStaticID))
	}

	return rd, rfp, record, nil
}
