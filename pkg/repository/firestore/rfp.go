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

type rfpDocument struct {
	StaticID             string    `firestore:"static_id"`
	RDID                 string    `firestore:"rd_id"`
	RequesterStaticID    string    `firestore:"requester_static_id"`
	ParticipantStaticIDs []string  `firestore:"participant_static_ids"`
	CreatedAt            time.Time `firestore:"created_at"`
}

func (d *rfpDocument) toModel() *model.RFPRequest {
	return &model.RFPRequest{
		StaticID:             d.StaticID,
		RDID:                 d.RDID,
		RequesterStaticID:    d.RequesterStaticID,
		ParticipantStaticIDs: append([]string(nil), d.ParticipantStaticIDs...),
		CreatedAt:            d.CreatedAt,
	}
}

type rfpRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newRFPRepository(client *firestore.Client) *rfpRepository {
	return &rfpRepository{client: client}
}

func (r *rfpRepository) collection() string {
	if r.collectionPrefix != "" {
		return r.collectionPrefix + "_rfp_requests"
	}
	return "rfp_requests"
}

func (r *rfpRepository) Create(ctx context.Context, rfp *model.RFPRequest) (*model.RFPRequest, error) {
	staticID := rfp.StaticID
	if staticID == "" {
		staticID = uuid.NewString()
	}

	doc := &rfpDocument{
		StaticID:             staticID,
		RDID:                 rfp.RDID,
		RequesterStaticID:    rfp.RequesterStaticID,
		ParticipantStaticIDs: rfp.ParticipantStaticIDs,
		CreatedAt:            time.Now().UTC(),
	}

	// The document ID is the RD ID: creating twice for the same RD fails
	// with AlreadyExists, which enforces the one-RFP-per-RD invariant.
	docRef := r.client.Collection(r.collection()).Doc(rfp.RDID)
	if _, err := docRef.Create(ctx, doc); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, goerr.Wrap(interfaces.ErrDuplicate, "RFP already exists for RD", goerr.V("rd_id", rfp.RDID))
		}
		return nil, goerr.Wrap(err, "failed to create RFP", goerr.V("rd_id", rfp.RDID))
	}

	return doc.toModel(), nil
}

func (r *rfpRepository) GetByRDID(ctx context.Context, rdID string) (*model.RFPRequest, error) {
	doc, err := r.client.Collection(r.collection()).Doc(rdID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "RFP not found for RD", goerr.V("rd_id", rdID))
		}
		return nil, goerr.Wrap(err, "failed to get RFP", goerr.V("rd_id", rdID))
	}

	var rfpDoc rfpDocument
	if err := doc.DataTo(&rfpDoc); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal RFP", goerr.V("rd_id", rdID))
	}

	return rfpDoc.toModel(), nil
}
