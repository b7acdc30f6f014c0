package memory

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tradefin-lab/rfpcore/pkg/domain/interfaces"
	"github.com/tradefin-lab/rfpcore/pkg/domain/model"
)

type recordKey struct {
	rdID          string
	participantID string
}

type replyRepository struct {
	mu      sync.RWMutex
	records map[recordKey]*model.ParticipantRFPRecord
}

func newReplyRepository() *replyRepository {
	return &replyRepository{
		records: make(map[recordKey]*model.ParticipantRFPRecord),
	}
}

func cloneRecord(record *model.ParticipantRFPRecord) *model.ParticipantRFPRecord {
	copied := *record
	copied.Replies = make([]*model.ParticipantRFPReply, len(record.Replies))
	for i, reply := range record.Replies {
		replyCopy := *reply
		copied.Replies[i] = &replyCopy
	}
	return &copied
}

func (r *replyRepository) CreateRecord(ctx context.Context, record *model.ParticipantRFPRecord) (*model.ParticipantRFPRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := recordKey{rdID: record.RDID, participantID: record.ParticipantStaticID}
	if _, exists := r.records[key]; exists {
		return nil, goerr.Wrap(interfaces.ErrDuplicate, "participant record already exists",
			goerr.V("rd_id", record.RDID),
			goerr.V("participant_static_id", record.ParticipantStaticID))
	}

	now := time.Now().UTC()
	created := cloneRecord(record)
	created.CreatedAt = now
	created.UpdatedAt = now

	r.records[key] = created
	return cloneRecord(created), nil
}

func (r *replyRepository) GetRecord(ctx context.Context, rdID, participantStaticID string) (*model.ParticipantRFPRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, exists := r.records[recordKey{rdID: rdID, participantID: participantStaticID}]
	if !exists {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "participant record not found",
			goerr.V("rd_id", rdID),
			goerr.V("participant_static_id", participantStaticID))
	}

	return cloneRecord(record), nil
}

func (r *replyRepository) ListRecords(ctx context.Context, rdID string) ([]*model.ParticipantRFPRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var records []*model.ParticipantRFPRecord
	for key, record := range r.records {
		if key.rdID == rdID {
			records = append(records, cloneRecord(record))
		}
	}

	return records, nil
}

func (r *replyRepository) AppendReply(ctx context.Context, rdID, participantStaticID string, reply *model.ParticipantRFPReply) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, exists := r.records[recordKey{rdID: rdID, participantID: participantStaticID}]
	if !exists {
		return false, goerr.Wrap(interfaces.ErrNotFound, "participant record not found",
			goerr.V("rd_id", rdID),
			goerr.V("participant_static_id", participantStaticID))
	}

	if record.HasMessage(reply.SenderStaticID, reply.MessageID) {
		return false, nil
	}

	appended := *reply
	record.Replies = append(record.Replies, &appended)
	record.UpdatedAt = time.Now().UTC()
	return true, nil
}
