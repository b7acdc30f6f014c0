package interfaces

import (
	"context"

	"github.com/tradefin-lab/rfpcore/pkg/domain/model"
)

type QuoteRepository interface {
	// Create persists a new quote with a generated static ID
	Create(ctx context.Context, quote *model.Quote) (*model.Quote, error)

	// Get retrieves a quote by static ID
	Get(ctx context.Context, staticID string) (*model.Quote, error)

	// Update replaces the mutable fields of an existing quote
	Update(ctx context.Context, quote *model.Quote) (*model.Quote, error)
}
