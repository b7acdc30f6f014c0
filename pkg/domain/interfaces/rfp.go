package interfaces

import (
	"context"

	"github.com/tradefin-lab/rfpcore/pkg/domain/model"
)

type RFPRepository interface {
	// Create persists a new RFP request. It fails with ErrDuplicate if an
	// RFP already exists for the same RD.
	Create(ctx context.Context, rfp *model.RFPRequest) (*model.RFPRequest, error)

	// GetByRDID retrieves the RFP request for an RD
	GetByRDID(ctx context.Context, rdID string) (*model.RFPRequest, error)
}
