package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/tradefin-lab/rfpcore/pkg/domain/interfaces"
	"github.com/tradefin-lab/rfpcore/pkg/domain/model"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type quoteDocument struct {
	StaticID        string    `firestore:"static_id"`
	RDID            string    `firestore:"rd_id"`
	Advance         float64   `firestore:"advance"`
	PricingPercent  float64   `firestore:"pricing_percent"`
	DaysDiscounting int       `firestore:"days_discounting"`
	Comment         string    `firestore:"comment"`
	CreatedAt       time.Time `firestore:"created_at"`
	UpdatedAt       time.Time `firestore:"updated_at"`
}

func (d *quoteDocument) toModel() *model.Quote {
	return &model.Quote{
		StaticID:        d.StaticID,
		RDID:            d.RDID,
		Advance:         d.Advance,
		PricingPercent:  d.PricingPercent,
		DaysDiscounting: d.DaysDiscounting,
		Comment:         d.Comment,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

type quoteRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newQuoteRepository(client *firestore.Client) *quoteRepository {
	return &quoteRepository{client: client}
}

func (r *quoteRepository) collection() string {
	if r.collectionPrefix != "" {
		return r.collectionPrefix + "_quotes"
	}
	return "quotes"
}

func (r *quoteRepository) Create(ctx context.Context, quote *model.Quote) (*model.Quote, error) {
	staticID := quote.StaticID
	if staticID == "" {
		staticID = uuid.NewString()
	}

	now := time.Now().UTC()
	doc := &quoteDocument{
		StaticID:        staticID,
		RDID:            quote.RDID,
		Advance:         quote.Advance,
		PricingPercent:  quote.PricingPercent,
		DaysDiscounting: quote.DaysDiscounting,
		Comment:         quote.Comment,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	docRef := r.client.Collection(r.collection()).Doc(staticID)
	if _, err := docRef.Create(ctx, doc); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, goerr.Wrap(interfaces.ErrDuplicate, "quote already exists", goerr.V("quote_id", staticID))
		}
		return nil, goerr.Wrap(err, "failed to create quote", goerr.V("quote_id", staticID))
	}

	return doc.toModel(), nil
}

func (r *quoteRepository) Get(ctx context.Context, staticID string) (*model.Quote, error) {
	doc, err := r.client.Collection(r.collection()).Doc(staticID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "quote not found", goerr.V("quote_id", staticID))
		}
		return nil, goerr.Wrap(err, "failed to get quote", goerr.V("quote_id", staticID))
	}

	var quoteDoc quoteDocument
	if err := doc.DataTo(&quoteDoc); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal quote", goerr.V("quote_id", staticID))
	}

	return quoteDoc.toModel(), nil
}

func (r *quoteRepository) Update(ctx context.Context, quote *model.Quote) (*model.Quote, error) {
	docRef := r.client.Collection(r.collection()).Doc(quote.StaticID)

	var updated *model.Quote
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(interfaces.ErrNotFound, "quote not found", goerr.V("quote_id", quote.StaticID))
			}
			return goerr.Wrap(err, "failed to get quote", goerr.V("quote_id", quote.StaticID))
		}

		var existing quoteDocument
		if err := doc.DataTo(&existing); err != nil {
			return goerr.Wrap(err, "failed to unmarshal quote", goerr.V("quote_id", quote.StaticID))
		}

		next := &quoteDocument{
			StaticID:        existing.StaticID,
			RDID:            existing.RDID,
			Advance:         quote.Advance,
			PricingPercent:  quote.PricingPercent,
			DaysDiscounting: quote.DaysDiscounting,
			Comment:         quote.Comment,
			CreatedAt:       existing.CreatedAt,
			UpdatedAt:       time.Now().UTC(),
		}
		updated = next.toModel()
		return tx.Set(docRef, next)
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}
