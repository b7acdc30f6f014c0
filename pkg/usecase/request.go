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

// RequestUseCase owns the trader-side fan-out of a request for proposal and
// the bank-side rejection of one.
type RequestUseCase struct {
	repo            interfaces.Repository
	outbound        *bus.OutboundPublisher
	companyStaticID string
}

func NewRequestUseCase(repo interfaces.Repository, outbound *bus.OutboundPublisher, companyStaticID string) *RequestUseCase {
	return &RequestUseCase{
		repo:            repo,
		outbound:        outbound,
		companyStaticID: companyStaticID,
	}
}

// CreateRFPResult reports the outcome of a fan-out: the created RFP plus the
// per-recipient delivery statuses. A Failed entry does not fail the call.
type CreateRFPResult struct {
	RFPID          string                        `json:"staticId"`
	ActionStatuses []*model.OutboundActionResult `json:"actionStatuses"`
}

// ReplyResult reports a single-recipient reply publish.
type ReplyResult struct {
	RFPID        string                      `json:"rfpId"`
	ActionStatus *model.OutboundActionResult `json:"actionStatus"`
}

// AcceptResult reports an acceptance: the Accept publish to the winner plus
// the Decline publishes to the other open participants.
type AcceptResult struct {
	RFPID          string                        `json:"rfpId"`
	ActionStatuses []*model.OutboundActionResult `json:"actionStatuses"`
}

// CreateRFP persists the one RFP allowed per RD, seeds an empty reply record
// per participant, then publishes the request to every participant
// concurrently. Persistence comes first so a crash mid fan-out never loses
// the RFP.
func (uc *RequestUseCase) CreateRFP(ctx context.Context, rdID string, participantStaticIDs []string) (*CreateRFPResult, error) {
	participants := dedupe(participantStaticIDs)
	if len(participants) == 0 {
		return nil, goerr.Wrap(ErrFieldValidation, "at least one participant is required",
			goerr.V(RDIDKey, rdID))
	}

	rd, err := uc.repo.RD().Get(ctx, rdID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(ErrFieldValidation, "RD does not exist", goerr.V(RDIDKey, rdID))
		}
		return nil, goerr.Wrap(err, "failed to get RD", goerr.V(RDIDKey, rdID))
	}

	rfp := &model.RFPRequest{
		StaticID:             uuid.NewString(),
		RDID:                 rdID,
		RequesterStaticID:    uc.companyStaticID,
		ParticipantStaticIDs: participants,
		CreatedAt:            time.Now().UTC(),
	}
	if _, err := uc.repo.RFP().Create(ctx, rfp); err != nil {
		if errors.Is(err, interfaces.ErrDuplicate) {
			return nil, goerr.Wrap(ErrDuplicate, "an RFP already exists for this RD",
				goerr.V(RDIDKey, rdID))
		}
		return nil, goerr.Wrap(err, "failed to create RFP", goerr.V(RDIDKey, rdID))
	}

	now := time.Now().UTC()
	for _, participantID := range participants {
		record := &model.ParticipantRFPRecord{
			RDID:                rdID,
			ParticipantStaticID: participantID,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		if _, err := uc.repo.Reply().CreateRecord(ctx, record); err != nil {
			return nil, goerr.Wrap(err, "failed to create participant record",
				goerr.V(RDIDKey, rdID),
				goerr.V(ParticipantIDKey, participantID))
		}
	}

	results, err := uc.fanOut(ctx, rd, rfp, participants)
	if err != nil {
		return nil, err
	}

	logging.From(ctx).Info("RFP fan-out completed",
		"rd_id", rdID,
		"rfp_id", rfp.StaticID,
		"participants", len(participants),
	)

	return &CreateRFPResult{
		RFPID:          rfp.StaticID,
		ActionStatuses: results,
	}, nil
}

// fanOut publishes the request envelope to every participant in parallel.
// Per-recipient failures are reported in the results; only a broker outage
// aborts the whole operation.
func (uc *RequestUseCase) fanOut(ctx context.Context, rd *model.RDApplication, rfp *model.RFPRequest, participants []string) ([]*model.OutboundActionResult, error) {
	results := make([]*model.OutboundActionResult, len(participants))

	eg, ctx := errgroup.WithContext(ctx)
	for i, participantID := range participants {
		eg.Go(func() error {
			env := &model.RFPEnvelope{
				Version:           model.EnvelopeVersion,
				RDID:              rd.StaticID,
				RFPID:             rfp.StaticID,
				SenderStaticID:    uc.companyStaticID,
				RecipientStaticID: participantID,
				MessageID:         uuid.NewString(),
				RD:                rd,
			}
			result, err := uc.outbound.Send(ctx, model.RoutingKeyRequest, env)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		if errors.Is(err, bus.ErrUnavailable) {
			return nil, goerr.Wrap(ErrPublisherUnavailable, "fan-out aborted",
				goerr.V(RDIDKey, rd.StaticID))
		}
		return nil, goerr.Wrap(err, "fan-out failed", goerr.V(RDIDKey, rd.StaticID))
	}

	return results, nil
}

// Reject records the local company's rejection of an RFP and notifies the
// requester. Bank side only.
func (uc *RequestUseCase) Reject(ctx context.Context, rdID, comment string) (*ReplyResult, error) {
	rd, rfp, record, err := loadNegotiation(ctx, uc.repo, rdID, uc.companyStaticID)
	if err != nil {
		return nil, err
	}

	status := participantStatus(record, rd.AcceptedParticipantStaticID, false)
	if !model.CanTransition(status, types.ReplyTypeRejected) {
		return nil, goerr.Wrap(ErrFieldValidation, "rejection is not allowed in the current status",
			goerr.V(RDIDKey, rdID),
			goerr.V("status", status))
	}

	reply := newReply(types.ReplyTypeRejected, uc.companyStaticID, "", comment, "")
	if _, err := uc.repo.Reply().AppendReply(ctx, rdID, uc.companyStaticID, reply); err != nil {
		return nil, goerr.Wrap(err, "failed to append rejection", goerr.V(RDIDKey, rdID))
	}

	env := &model.RFPEnvelope{
		Version:           model.EnvelopeVersion,
		Type:              types.ReplyTypeRejected,
		RDID:              rdID,
		RFPID:             rfp.StaticID,
		SenderStaticID:    uc.companyStaticID,
		RecipientStaticID: rfp.RequesterStaticID,
		MessageID:         reply.MessageID,
		Comment:           comment,
	}
	result, err := uc.outbound.Send(ctx, model.RoutingKeyReject, env)
	if err != nil {
		return nil, goerr.Wrap(ErrPublisherUnavailable, "failed to publish rejection",
			goerr.V(RDIDKey, rdID))
	}
	return &ReplyResult{RFPID: rfp.StaticID, ActionStatus: result}, nil
}

// dedupe preserves first-seen order while dropping repeated IDs and blanks.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
