package interfaces

import (
	"context"

	"github.com/tradefin-lab/rfpcore/pkg/domain/model"
)

type RDRepository interface {
	// Create persists a new RD application
	Create(ctx context.Context, rd *model.RDApplication) (*model.RDApplication, error)

	// Get retrieves an RD application by static ID
	Get(ctx context.Context, staticID string) (*model.RDApplication, error)

	// List retrieves all RD applications
	List(ctx context.Context) ([]*model.RDApplication, error)

	// SetAcceptedParticipant atomically claims the accepted participant slot.
	// It fails with ErrDuplicate if the slot was already claimed, by any
	// participant, so at most one claim ever succeeds per RD.
	SetAcceptedParticipant(ctx context.Context, rdID, participantStaticID string) error
}
