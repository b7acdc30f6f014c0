package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/tradefin-lab/rfpcore/pkg/domain/interfaces"
	"github.com/tradefin-lab/rfpcore/pkg/domain/model"
)

type rfpRepository struct {
	mu sync.RWMutex
	// keyed by RD ID: at most one RFP per RD
	rfps map[string]*model.RFPRequest
}

func newRFPRepository() *rfpRepository {
	return &rfpRepository{
		rfps: make(map[string]*model.RFPRequest),
	}
}

func cloneRFP(rfp *model.RFPRequest) *model.RFPRequest {
	copied := *rfp
	copied.ParticipantStaticIDs = append([]string(nil), rfp.ParticipantStaticIDs...)
	return &copied
}

func (r *rfpRepository) Create(ctx context.Context, rfp *model.RFPRequest) (*model.RFPRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rfps[rfp.RDID]; exists {
		return nil, goerr.Wrap(interfaces.ErrDuplicate, "RFP already exists for RD", goerr.V("rd_id", rfp.RDID))
	}

	created := cloneRFP(rfp)
	if created.StaticID == "" {
		created.StaticID = uuid.NewString()
	}
	created.CreatedAt = time.Now().UTC()

	r.rfps[created.RDID] = created
	return cloneRFP(created), nil
}

func (r *rfpRepository) GetByRDID(ctx context.Context, rdID string) (*model.RFPRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rfp, exists := r.rfps[rdID]
	if !exists {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "RFP not found for RD", goerr.V("rd_id", rdID))
	}

	return cloneRFP(rfp), nil
}
