package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/tradefin-lab/rfpcore/pkg/domain/interfaces"
	"github.com/tradefin-lab/rfpcore/pkg/domain/model"
	"github.com/tradefin-lab/rfpcore/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type replyDocument struct {
	StaticID       string    `firestore:"static_id"`
	Type           string    `firestore:"type"`
	SenderStaticID string    `firestore:"sender_static_id"`
	MessageID      string    `firestore:"message_id"`
	Comment        string    `firestore:"comment"`
	QuoteID        string    `firestore:"quote_id"`
	CreatedAt      time.Time `firestore:"created_at"`
}

type recordDocument struct {
	RDID                string          `firestore:"rd_id"`
	ParticipantStaticID string          `firestore:"participant_static_id"`
	Replies             []replyDocument `firestore:"replies"`
	CreatedAt           time.Time       `firestore:"created_at"`
	UpdatedAt           time.Time       `firestore:"updated_at"`
}

func (d *recordDocument) toModel() *model.ParticipantRFPRecord {
	record := &model.ParticipantRFPRecord{
		RDID:                d.RDID,
		ParticipantStaticID: d.ParticipantStaticID,
		Replies:             make([]*model.ParticipantRFPReply, len(d.Replies)),
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
	}
	for i, reply := range d.Replies {
		record.Replies[i] = &model.ParticipantRFPReply{
			StaticID:       reply.StaticID,
			Type:           types.ReplyType(reply.Type),
			SenderStaticID: reply.SenderStaticID,
			MessageID:      reply.MessageID,
			Comment:        reply.Comment,
			QuoteID:        reply.QuoteID,
			CreatedAt:      reply.CreatedAt,
		}
	}
	return record
}

func toReplyDocument(reply *model.ParticipantRFPReply) replyDocument {
	return replyDocument{
		StaticID:       reply.StaticID,
		Type:           reply.Type.String(),
		SenderStaticID: reply.SenderStaticID,
		MessageID:      reply.MessageID,
		Comment:        reply.Comment,
		QuoteID:        reply.QuoteID,
		CreatedAt:      reply.CreatedAt,
	}
}

type replyRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newReplyRepository(client *firestore.Client) *replyRepository {
	return &replyRepository{client: client}
}

func (r *replyRepository) collection() string {
	if r.collectionPrefix != "" {
		return r.collectionPrefix + "_participant_records"
	}
	return "participant_records"
}

func (r *replyRepository) docID(rdID, participantStaticID string) string {
	return rdID + ":" + participantStaticID
}

func (r *replyRepository) CreateRecord(ctx context.Context, record *model.ParticipantRFPRecord) (*model.ParticipantRFPRecord, error) {
	now := time.Now().UTC()
	doc := &recordDocument{
		RDID:                record.RDID,
		ParticipantStaticID: record.ParticipantStaticID,
		Replies:             []replyDocument{},
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	docRef := r.client.Collection(r.collection()).Doc(r.docID(record.RDID, record.ParticipantStaticID))
	if _, err := docRef.Create(ctx, doc); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, goerr.Wrap(interfaces.ErrDuplicate, "participant record already exists",
				goerr.V("rd_id", record.RDID),
				goerr.V("participant_static_id", record.ParticipantStaticID))
		}
		return nil, goerr.Wrap(err, "failed to create participant record",
			goerr.V("rd_id", record.RDID),
			goerr.V("participant_static_id", record.ParticipantStaticID))
	}

	return doc.toModel(), nil
}

func (r *replyRepository) GetRecord(ctx context.Context, rdID, participantStaticID string) (*model.ParticipantRFPRecord, error) {
	doc, err := r.client.Collection(r.collection()).Doc(r.docID(rdID, participantStaticID)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "participant record not found",
				goerr.V("rd_id", rdID),
				goerr.V("participant_static_id", participantStaticID))
		}
		return nil, goerr.Wrap(err, "failed to get participant record", goerr.V("rd_id", rdID))
	}

	var recordDoc recordDocument
	if err := doc.DataTo(&recordDoc); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal participant record", goerr.V("rd_id", rdID))
	}

	return recordDoc.toModel(), nil
}

func (r *replyRepository) ListRecords(ctx context.Context, rdID string) ([]*model.ParticipantRFPRecord, error) {
	iter := r.client.Collection(r.collection()).Where("rd_id", "==", rdID).Documents(ctx)
	defer iter.Stop()

	var records []*model.ParticipantRFPRecord
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate participant records", goerr.V("rd_id", rdID))
		}

		var recordDoc recordDocument
		if err := doc.DataTo(&recordDoc); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal participant record", goerr.V("rd_id", rdID))
		}
		records = append(records, recordDoc.toModel())
	}

	return records, nil
}

func (r *replyRepository) AppendReply(ctx context.Context, rdID, participantStaticID string, reply *model.ParticipantRFPReply) (bool, error) {
	docRef := r.client.Collection(r.collection()).Doc(r.docID(rdID, participantStaticID))

	appended := false
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		appended = false

		doc, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(interfaces.ErrNotFound, "participant record not found",
					goerr.V("rd_id", rdID),
					goerr.V("participant_static_id", participantStaticID))
			}
			return goerr.Wrap(err, "failed to get participant record", goerr.V("rd_id", rdID))
		}

		var recordDoc recordDocument
		if err := doc.DataTo(&recordDoc); err != nil {
			return goerr.Wrap(err, "failed to unmarshal participant record", goerr.V("rd_id", rdID))
		}

		for _, existing := range recordDoc.Replies {
			if existing.SenderStaticID == reply.SenderStaticID && existing.MessageID == reply.MessageID {
				// Re-delivered message, keep the record as is
				return nil
			}
		}

		recordDoc.Replies = append(recordDoc.Replies, toReplyDocument(reply))
		recordDoc.UpdatedAt = time.Now().UTC()
		appended = true
		return tx.Set(docRef, &recordDoc)
	})
	if err != nil {
		return false, err
	}

	return appended, nil
}
