package interfaces

import (
	"context"

	"github.com/tradefin-lab/rfpcore/pkg/domain/model"
)

type ReplyRepository interface {
	// CreateRecord persists an empty participant record at fan-out time
	CreateRecord(ctx context.Context, record *model.ParticipantRFPRecord) (*model.ParticipantRFPRecord, error)

	// GetRecord retrieves the record for one (rdId, participantStaticId) pair
	GetRecord(ctx context.Context, rdID, participantStaticID string) (*model.ParticipantRFPRecord, error)

	// ListRecords retrieves all participant records of an RD
	ListRecords(ctx context.Context, rdID string) ([]*model.ParticipantRFPRecord, error)

	// AppendReply appends a reply to a participant's log as an atomic
	// read-modify-write. If a reply with the same (senderStaticId, messageId)
	// is already present the call is a no-op and appended is false.
	AppendReply(ctx context.Context, rdID, participantStaticID string, reply *model.ParticipantRFPReply) (appended bool, err error)
}
