package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/tradefin-lab/rfpcore/pkg/domain/interfaces"
	"github.com/tradefin-lab/rfpcore/pkg/domain/model"
)

// RDUseCase covers the minimal RD application lifecycle this engine needs:
// registering an application so an RFP can reference it, and fetching it.
// The full trade/discounting onboarding flow lives elsewhere.
type RDUseCase struct {
	repo interfaces.Repository
}

func NewRDUseCase(repo interfaces.Repository) *RDUseCase {
	return &RDUseCase{repo: repo}
}

func (uc *RDUseCase) Create(ctx context.Context, rd *model.RDApplication) (*model.RDApplication, error) {
	if rd.InvoiceAmount <= 0 {
		return nil, goerr.Wrap(ErrFieldValidation, "invoice amount must be positive")
	}
	if rd.Currency == "" {
		return nil, goerr.Wrap(ErrFieldValidation, "currency is required")
	}

	if rd.StaticID == "" {
		rd.StaticID = uuid.NewString()
	}
	now := time.Now().UTC()
	rd.CreatedAt = now
	rd.UpdatedAt = now

	created, err := uc.repo.RD().Create(ctx, rd)
	if err != nil {
		if errors.Is(err, interfaces.ErrDuplicate) {
			return nil, goerr.Wrap(ErrDuplicate, "RD already exists", goerr.V(RDIDKey, rd.StaticID))
		}
		return nil, goerr.Wrap(err, "failed to create RD")
	}

	return created, nil
}

func (uc *RDUseCase) Get(ctx context.Context, rdID string) (*model.RDApplication, error) {
	rd, err := uc.repo.RD().Get(ctx, rdID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(ErrNotFound, "RD not found", goerr.V(RDIDKey, rdID))
		}
		return nil, goerr.Wrap(err, "failed to get RD", goerr.V(RDIDKey, rdID))
	}
	return rd, nil
}
