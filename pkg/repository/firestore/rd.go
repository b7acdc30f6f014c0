package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/tradefin-lab/rfpcore/pkg/domain/interfaces"
	"github.com/tradefin-lab/rfpcore/pkg/domain/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type rdDocument struct {
	StaticID                    string    `firestore:"static_id"`
	TradeSourceID               string    `firestore:"trade_source_id"`
	InvoiceAmount               float64   `firestore:"invoice_amount"`
	Currency                    string    `firestore:"currency"`
	AdvanceRate                 float64   `firestore:"advance_rate"`
	AcceptedParticipantStaticID string    `firestore:"accepted_participant_static_id"`
	CreatedAt                   time.Time `firestore:"created_at"`
	UpdatedAt                   time.Time `firestore:"updated_at"`
}

func (d *rdDocument) toModel() *model.RDApplication {
	return &model.RDApplication{
		StaticID:                    d.StaticID,
		TradeSourceID:               d.TradeSourceID,
		InvoiceAmount:               d.InvoiceAmount,
		Currency:                    d.Currency,
		AdvanceRate:                 d.AdvanceRate,
		AcceptedParticipantStaticID: d.AcceptedParticipantStaticID,
		CreatedAt:                   d.CreatedAt,
		UpdatedAt:                   d.UpdatedAt,
	}
}

type rdRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newRDRepository(client *firestore.Client) *rdRepository {
	return &rdRepository{client: client}
}

func (r *rdRepository) collection() string {
	if r.collectionPrefix != "" {
		return r.collectionPrefix + "_rd_applications"
	}
	return "rd_applications"
}

func (r *rdRepository) Create(ctx context.Context, rd *model.RDApplication) (*model.RDApplication, error) {
	staticID := rd.StaticID
	if staticID == "" {
		staticID = uuid.NewString()
	}

	now := time.Now().UTC()
	doc := &rdDocument{
		StaticID:      staticID,
		TradeSourceID: rd.TradeSourceID,
		InvoiceAmount: rd.InvoiceAmount,
		Currency:      rd.Currency,
		AdvanceRate:   rd.AdvanceRate,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	docRef := r.client.Collection(r.collection()).Doc(staticID)
	if _, err := docRef.Create(ctx, doc); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, goerr.Wrap(interfaces.ErrDuplicate, "RD already exists", goerr.V("rd_id", staticID))
		}
		return nil, goerr.Wrap(err, "failed to create RD", goerr.V("rd_id", staticID))
	}

	return doc.toModel(), nil
}

func (r *rdRepository) Get(ctx context.Context, staticID string) (*model.RDApplication, error) {
	doc, err := r.client.Collection(r.collection()).Doc(staticID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "RD not found", goerr.V("rd_id", staticID))
		}
		return nil, goerr.Wrap(err, "failed to get RD", goerr.V("rd_id", staticID))
	}

	var rdDoc rdDocument
	if err := doc.DataTo(&rdDoc); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal RD", goerr.V("rd_id", staticID))
	}

	return rdDoc.toModel(), nil
}

func (r *rdRepository) List(ctx context.Context) ([]*model.RDApplication, error) {
	iter := r.client.Collection(r.collection()).Documents(ctx)
	defer iter.Stop()

	var rds []*model.RDApplication
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate RDs")
		}

		var rdDoc rdDocument
		if err := doc.DataTo(&rdDoc); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal RD")
		}
		rds = append(rds, rdDoc.toModel())
	}

	return rds, nil
}

func (r *rdRepository) SetAcceptedParticipant(ctx context.Context, rdID, participantStaticID string) error {
	docRef := r.client.Collection(r.collection()).Doc(rdID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(interfaces.ErrNotFound, "RD not found", goerr.V("rd_id", rdID))
			}
			return goerr.Wrap(err, "failed to get RD", goerr.V("rd_id", rdID))
		}

		var rdDoc rdDocument
		if err := doc.DataTo(&rdDoc); err != nil {
			return goerr.Wrap(err, "failed to unmarshal RD", goerr.V("rd_id", rdID))
		}
		if rdDoc.AcceptedParticipantStaticID != "" {
			return goerr.Wrap(interfaces.ErrDuplicate, "RD already has an accepted participant",
				goerr.V("rd_id", rdID),
				goerr.V("accepted_participant", rdDoc.AcceptedParticipantStaticID))
		}

		return tx.Update(docRef, []firestore.Update{
			{Path: "accepted_participant_static_id", Value: participantStaticID},
			{Path: "updated_at", Value: time.Now().UTC()},
		})
	})
	if err != nil {
		return err
	}

	return nil
}
