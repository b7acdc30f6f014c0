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
	"github.com/tradefin-lab/rfpcore/pkg/utils/logging"
)

// IngestHandler processes one validated inbound envelope. A nil return means
// the message is consumed for good, including the cases where it is absorbed
// as a duplicate or as an illegal transition. A non-nil return means a
// transient failure and the message should be redelivered.
type IngestHandler func(ctx context.Context, env *model.RFPEnvelope) error

// IngestUseCase applies inbound bus messages to the local state. Delivery is
// at-least-once, so every handler is idempotent on (senderStaticId,
// messageId); poison input is absorbed with a log line, never retried.
type IngestUseCase struct {
	repo            interfaces.Repository
	companyStaticID string
	handlers        map[string]IngestHandler
}

func NewIngestUseCase(repo interfaces.Repository, companyStaticID string) *IngestUseCase {
	uc := &IngestUseCase{
		repo:            repo,
		companyStaticID: companyStaticID,
	}
	uc.handlers = map[string]IngestHandler{
		model.RoutingKeyRequest:     uc.receiveRequest,
		model.RoutingKeySubmitQuote: uc.replyHandler(types.ReplyTypeSubmitted),
		model.RoutingKeyReject:      uc.replyHandler(types.ReplyTypeRejected),
		model.RoutingKeyDecline:     uc.replyHandler(types.ReplyTypeDeclined),
		model.RoutingKeyAccept:      uc.replyHandler(types.ReplyTypeAccepted),
	}
	return uc
}

// Handler returns the handler bound to a routing key, if any.
func (uc *IngestUseCase) Handler(routingKey string) (IngestHandler, bool) {
	h, ok := uc.handlers[routingKey]
	return h, ok
}

// receiveRequest handles an inbound RFP.rd.Request on the bank side: it
// mirrors the RD terms, records the RFP with its requester and seeds this
// company's own reply record. Every write tolerates a duplicate so
// redelivery is a no-op.
func (uc *IngestUseCase) receiveRequest(ctx context.Context, env *model.RFPEnvelope) error {
	logger := logging.From(ctx)

	// All parties share one topic, so every company sees every envelope.
	// Only the addressee acts; a trader drops its own fan-out here.
	if env.RecipientStaticID != uc.companyStaticID {
		logger.Debug("request addressed to another company, dropping",
			"rd_id", env.RDID, "recipient_static_id", env.RecipientStaticID)
		return nil
	}

	if env.RD == nil {
		logger.Warn("request envelope carries no RD payload, dropping",
			"rd_id", env.RDID, "sender_static_id", env.SenderStaticID)
		return nil
	}

	now := time.Now().UTC()

	rd := *env.RD
	rd.StaticID = env.RDID
	rd.AcceptedParticipantStaticID = ""
	rd.CreatedAt = now
	rd.UpdatedAt = now
	if _, err := uc.repo.RD().Create(ctx, &rd); err != nil && !errors.Is(err, interfaces.ErrDuplicate) {
		return goerr.Wrap(err, "failed to mirror RD", goerr.V(RDIDKey, env.RDID))
	}

	rfpID := env.RFPID
	if rfpID == "" {
		rfpID = uuid.NewString()
	}
	rfp := &model.RFPRequest{
		StaticID:          rfpID,
		RDID:              env.RDID,
		RequesterStaticID: env.SenderStaticID,
		CreatedAt:         now,
	}
	if _, err := uc.repo.RFP().Create(ctx, rfp); err != nil && !errors.Is(err, interfaces.ErrDuplicate) {
		return goerr.Wrap(err, "failed to record inbound RFP", goerr.V(RDIDKey, env.RDID))
	}

	record := &model.ParticipantRFPRecord{
		RDID:                env.RDID,
		ParticipantStaticID: uc.companyStaticID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if _, err := uc.repo.Reply().CreateRecord(ctx, record); err != nil && !errors.Is(err, interfaces.ErrDuplicate) {
		return goerr.Wrap(err, "failed to create own reply record", goerr.V(RDIDKey, env.RDID))
	}

	logger.Info("inbound RFP recorded",
		"rd_id", env.RDID,
		"rfp_id", rfpID,
		"requester_static_id", env.SenderStaticID,
	)
	return nil
}

func (uc *IngestUseCase) replyHandler(t types.ReplyType) IngestHandler {
	return func(ctx context.Context, env *model.RFPEnvelope) error {
		return uc.receiveReply(ctx, env, t)
	}
}

// receiveReply applies one inbound reply to the participant record it
// belongs to. Unknown RDs, unknown participants, duplicates and illegal
// transitions are absorbed; only transient storage failures propagate.
func (uc *IngestUseCase) receiveReply(ctx context.Context, env *model.RFPEnvelope, t types.ReplyType) error {
	logger := logging.From(ctx).With(
		"rd_id", env.RDID,
		"sender_static_id", env.SenderStaticID,
		"message_id", env.MessageID,
		"type", t.String(),
	)

	// Shared topic: act only on envelopes addressed to this company. An
	// Accept meant for another bank must never claim this bank's winner slot.
	if env.RecipientStaticID != uc.companyStaticID {
		logger.Debug("reply addressed to another company, dropping",
			"recipient_static_id", env.RecipientStaticID)
		return nil
	}

	rd, err := uc.repo.RD().Get(ctx, env.RDID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			logger.Warn("reply references an unknown RD, dropping")
			return nil
		}
		return goerr.Wrap(err, "failed to get RD", goerr.V(RDIDKey, env.RDID))
	}

	participantID := replyParticipant(t, env, uc.companyStaticID)
	record, err := uc.repo.Reply().GetRecord(ctx, env.RDID, participantID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			logger.Warn("reply references an unknown participant, dropping",
				"participant_static_id", participantID)
			return nil
		}
		return goerr.Wrap(err, "failed to get participant record",
			goerr.V(RDIDKey, env.RDID),
			goerr.V(ParticipantIDKey, participantID))
	}

	if record.HasMessage(env.SenderStaticID, env.MessageID) {
		logger.Debug("reply already processed, dropping")
		return nil
	}

	status := participantStatus(record, rd.AcceptedParticipantStaticID, false)
	if !model.CanTransition(status, t) {
		logger.Warn("reply is an illegal transition, dropping", "status", status.String())
		return nil
	}

	quoteID := ""
	if env.Quote != nil {
		quoteID = env.Quote.StaticID
		if err := uc.mirrorQuote(ctx, env); err != nil {
			return err
		}
	}

	if t == types.ReplyTypeAccepted {
		// Claim the winner slot first so the derived statuses flip for every
		// participant even if the append below is retried later.
		if err := uc.repo.RD().SetAcceptedParticipant(ctx, env.RDID, participantID); err != nil &&
			!errors.Is(err, interfaces.ErrDuplicate) {
			return goerr.Wrap(err, "failed to record acceptance", goerr.V(RDIDKey, env.RDID))
		}
	}

	reply := newReply(t, env.SenderStaticID, env.MessageID, env.Comment, quoteID)
	appended, err := uc.repo.Reply().AppendReply(ctx, env.RDID, participantID, reply)
	if err != nil {
		return goerr.Wrap(err, "failed to append reply",
			goerr.V(RDIDKey, env.RDID),
			goerr.V(ParticipantIDKey, participantID))
	}
	if !appended {
		logger.Debug("reply raced a concurrent delivery, dropping")
		return nil
	}

	logger.Info("inbound reply applied", "participant_static_id", participantID)
	return nil
}

// mirrorQuote stores the quote carried by an envelope under the sender's
// static ID. A duplicate means a redelivery already stored it.
func (uc *IngestUseCase) mirrorQuote(ctx context.Context, env *model.RFPEnvelope) error {
	quote := *env.Quote
	quote.RDID = env.RDID
	if _, err := uc.repo.Quote().Create(ctx, &quote); err != nil && !errors.Is(err, interfaces.ErrDuplicate) {
		return goerr.Wrap(err, "failed to mirror quote",
			goerr.V(QuoteIDKey, quote.StaticID),
			goerr.V(RDIDKey, env.RDID))
	}
	return nil
}

// replyParticipant resolves which participant record an inbound reply
// belongs to. Submissions and rejections come from a bank, so the sender is
// the participant; acceptances and declines come from the trader and land on
// this company's own record.
func replyParticipant(t types.ReplyType, env *model.RFPEnvelope, companyStaticID string) string {
	switch t {
	case types.ReplyTypeAccepted, types.ReplyTypeDeclined:
		return companyStaticID
	default:
		return env.SenderStaticID
	}
}
