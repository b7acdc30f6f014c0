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

type rdRepository struct {
	mu  sync.RWMutex
	rds map[string]*model.RDApplication
}

func newRDRepository() *rdRepository {
	return &rdRepository{
		rds: make(map[string]*model.RDApplication),
	}
}

func cloneRD(rd *model.RDApplication) *model.RDApplication {
	copied := *rd
	return &copied
}

func (r *rdRepository) Create(ctx context.Context, rd *model.RDApplication) (*model.RDApplication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	created := cloneRD(rd)
	if created.StaticID == "" {
		created.StaticID = uuid.NewString()
	}
	if _, exists := r.rds[created.StaticID]; exists {
		return nil, goerr.Wrap(interfaces.ErrDuplicate, "RD already exists", goerr.V("rd_id", created.StaticID))
	}
	created.CreatedAt = now
	created.UpdatedAt = now

	r.rds[created.StaticID] = created
	return cloneRD(created), nil
}

func (r *rdRepository) Get(ctx context.Context, staticID string) (*model.RDApplication, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rd, exists := r.rds[staticID]
	if !exists {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "RD not found", goerr.V("rd_id", staticID))
	}

	return cloneRD(rd), nil
}

func (r *rdRepository) List(ctx context.Context) ([]*model.RDApplication, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rds := make([]*model.RDApplication, 0, len(r.rds))
	for _, rd := range r.rds {
		rds = append(rds, cloneRD(rd))
	}

	return rds, nil
}

func (r *rdRepository) SetAcceptedParticipant(ctx context.Context, rdID, participantStaticID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rd, exists := r.rds[rdID]
	if !exists {
		return goerr.Wrap(interfaces.ErrNotFound, "RD not found", goerr.V("rd_id", rdID))
	}
	if rd.AcceptedParticipantStaticID != "" {
		return goerr.Wrap(interfaces.ErrDuplicate, "RD already has an accepted participant",
			goerr.V("rd_id", rdID),
			goerr.V("accepted_participant", rd.AcceptedParticipantStaticID))
	}

	rd.AcceptedParticipantStaticID = participantStaticID
	rd.UpdatedAt = time.Now().UTC()
	return nil
}
