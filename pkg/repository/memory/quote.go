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

type quoteRepository struct {
	mu     sync.RWMutex
	quotes map[string]*model.Quote
}

func newQuoteRepository() *quoteRepository {
	return &quoteRepository{
		quotes: make(map[string]*model.Quote),
	}
}

func cloneQuote(quote *model.Quote) *model.Quote {
	copied := *quote
	return &copied
}

func (r *quoteRepository) Create(ctx context.Context, quote *model.Quote) (*model.Quote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	created := cloneQuote(quote)
	if created.StaticID == "" {
		created.StaticID = uuid.NewString()
	}
	if _, exists := r.quotes[created.StaticID]; exists {
		return nil, goerr.Wrap(interfaces.ErrDuplicate, "quote already exists", goerr.V("quote_id", created.StaticID))
	}
	created.CreatedAt = now
	created.UpdatedAt = now

	r.quotes[created.StaticID] = created
	return cloneQuote(created), nil
}

func (r *quoteRepository) Get(ctx context.Context, staticID string) (*model.Quote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	quote, exists := r.quotes[staticID]
	if !exists {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "quote not found", goerr.V("quote_id", staticID))
	}

	return cloneQuote(quote), nil
}

func (r *quoteRepository) Update(ctx context.Context, quote *model.Quote) (*model.Quote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.quotes[quote.StaticID]
	if !exists {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "quote not found", goerr.V("quote_id", quote.StaticID))
	}

	updated := cloneQuote(quote)
	updated.RDID = existing.RDID
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()

	r.quotes[updated.StaticID] = updated
	return cloneQuote(updated), nil
}
