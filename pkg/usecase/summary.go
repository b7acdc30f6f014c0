package usecase

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tradefin-lab/rfpcore/pkg/domain/interfaces"
	"github.com/tradefin-lab/rfpcore/pkg/domain/model"
	"github.com/tradefin-lab/rfpcore/pkg/domain/types"
	"github.com/tradefin-lab/rfpcore/pkg/utils/logging"
)

// SummaryUseCase serves the derived read models. Statuses are recomputed
// from the reply logs on every call; nothing here writes.
type SummaryUseCase struct {
	repo   interfaces.Repository
	expiry interfaces.ExpiryChecker
}

func NewSummaryUseCase(repo interfaces.Repository, expiry interfaces.ExpiryChecker) *SummaryUseCase {
	return &SummaryUseCase{repo: repo, expiry: expiry}
}

// GetRFPSummary aggregates the RD, its RFP and all participant summaries
// into one RDInfo with the derived RD status.
func (uc *SummaryUseCase) GetRFPSummary(ctx context.Context, rdID string) (*model.RDInfo, error) {
	rd, err := uc.repo.RD().Get(ctx, rdID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(ErrNotFound, "RD not found", goerr.V(RDIDKey, rdID))
		}
		return nil, goerr.Wrap(err, "failed to get RD", goerr.V(RDIDKey, rdID))
	}

	info := &model.RDInfo{
		RD:                          rd,
		AcceptedParticipantStaticID: rd.AcceptedParticipantStaticID,
	}

	rfp, err := uc.repo.RFP().GetByRDID(ctx, rdID)
	if err != nil {
		if !errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(err, "failed to get RFP", goerr.V(RDIDKey, rdID))
		}
		// No RFP yet: the application exists but nothing was requested.
		info.Status = types.RDStatusPendingRequest
		return info, nil
	}
	info.RFP = rfp

	records, err := uc.repo.Reply().ListRecords(ctx, rdID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list participant records", goerr.V(RDIDKey, rdID))
	}

	expired := uc.isExpired(ctx, rd)

	statuses := make([]types.ParticipantRFPStatus, 0, len(records))
	for _, record := range records {
		status := participantStatus(record, rd.AcceptedParticipantStaticID, expired)
		statuses = append(statuses, status)

		summary, err := uc.buildSummary(ctx, record, status)
		if err != nil {
			return nil, err
		}
		info.ParticipantSummaries = append(info.ParticipantSummaries, summary)
	}

	info.Status = rdStatus(true, rd.AcceptedParticipantStaticID, statuses)
	return info, nil
}

// GetParticipantRFPSummary returns the summary for a single participant.
func (uc *SummaryUseCase) GetParticipantRFPSummary(ctx context.Context, rdID, participantStaticID string) (*model.ParticipantRFPSummary, error) {
	_, record, status, err := uc.negotiationState(ctx, rdID, participantStaticID)
	if err != nil {
		return nil, err
	}

	return uc.buildSummary(ctx, record, status)
}

// negotiationState loads the RD and one participant record and derives the
// participant's current status. Shared with the quote workflows that guard
// their transitions on it.
func (uc *SummaryUseCase) negotiationState(ctx context.Context, rdID, participantStaticID string) (*model.RDApplication, *model.ParticipantRFPRecord, types.ParticipantRFPStatus, error) {
	rd, err := uc.repo.RD().Get(ctx, rdID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, nil, "", goerr.Wrap(ErrNotFound, "RD not found", goerr.V(RDIDKey, rdID))
		}
		return nil, nil, "", goerr.Wrap(err, "failed to get RD", goerr.V(RDIDKey, rdID))
	}

	record, err := uc.repo.Reply().GetRecord(ctx, rdID, participantStaticID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, nil, "", goerr.Wrap(ErrNotFound, "participant is not part of the RFP",
				goerr.V(RDIDKey, rdID),
				goerr.V(ParticipantIDKey, participantStaticID))
		}
		return nil, nil, "", goerr.Wrap(err, "failed to get participant record",
			goerr.V(RDIDKey, rdID),
			goerr.V(ParticipantIDKey, participantStaticID))
	}

	status := participantStatus(record, rd.AcceptedParticipantStaticID, uc.isExpired(ctx, rd))
	return rd, record, status, nil
}

func (uc *SummaryUseCase) buildSummary(ctx context.Context, record *model.ParticipantRFPRecord, status types.ParticipantRFPStatus) (*model.ParticipantRFPSummary, error) {
	summary := &model.ParticipantRFPSummary{
		ParticipantStaticID: record.ParticipantStaticID,
		Status:              status,
	}

	for _, reply := range record.Replies {
		view := &model.ParticipantReplyView{
			Type:           reply.Type,
			SenderStaticID: reply.SenderStaticID,
			Comment:        reply.Comment,
			CreatedAt:      reply.CreatedAt,
		}
		if reply.QuoteID != "" {
			quote, err := uc.repo.Quote().Get(ctx, reply.QuoteID)
			if err != nil && !errors.Is(err, interfaces.ErrNotFound) {
				return nil, goerr.Wrap(err, "failed to resolve quote",
					goerr.V(QuoteIDKey, reply.QuoteID),
					goerr.V(RDIDKey, record.RDID))
			}
			view.Quote = quote
		}
		summary.Replies = append(summary.Replies, view)
	}

	return summary, nil
}

// isExpired consults the external timer, if any. Expiry only matters while
// no quote has been accepted; a checker failure degrades to "not expired"
// rather than failing the read.
func (uc *SummaryUseCase) isExpired(ctx context.Context, rd *model.RDApplication) bool {
	if uc.expiry == nil || rd.AcceptedParticipantStaticID != "" {
		return false
	}
	expired, err := uc.expiry.IsExpired(ctx, rd.StaticID)
	if err != nil {
		logging.From(ctx).Warn("expiry check failed, assuming not expired",
			"rd_id", rd.StaticID, "error", err)
		return false
	}
	return expired
}
