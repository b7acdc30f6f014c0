package repository_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/tradefin-lab/rfpcore/pkg/domain/interfaces"
	"github.com/tradefin-lab/rfpcore/pkg/domain/model"
	"github.com/tradefin-lab/rfpcore/pkg/domain/types"
	"github.com/tradefin-lab/rfpcore/pkg/repository/firestore"
	"github.com/tradefin-lab/rfpcore/pkg/repository/memory"
)

func newRecord(rdID, participantID string) *model.ParticipantRFPRecord {
	now := time.Now().UTC()
	return &model.ParticipantRFPRecord{
		RDID:                rdID,
		ParticipantStaticID: participantID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

func newTestReply(t types.ReplyType, sender, messageID string) *model.ParticipantRFPReply {
	return &model.ParticipantRFPReply{
		StaticID:       "reply-" + messageID,
		Type:           t,
		SenderStaticID: sender,
		MessageID:      messageID,
		CreatedAt:      time.Now().UTC(),
	}
}

func runReplyRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("CreateRecord and GetRecord round-trip", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Reply().CreateRecord(ctx, newRecord("rd-1", "bank-a"))
		gt.NoError(t, err).Required()

		record, err := repo.Reply().GetRecord(ctx, "rd-1", "bank-a")
		gt.NoError(t, err).Required()
		gt.Value(t, record.RDID).Equal("rd-1")
		gt.Value(t, record.ParticipantStaticID).Equal("bank-a")
		gt.Array(t, record.Replies).Length(0)
	})

	t.Run("CreateRecord rejects a duplicate pair", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Reply().CreateRecord(ctx, newRecord("rd-1", "bank-a"))
		gt.NoError(t, err).Required()

		_, err = repo.Reply().CreateRecord(ctx, newRecord("rd-1", "bank-a"))
		gt.Bool(t, errors.Is(err, interfaces.ErrDuplicate)).True()
	})

	t.Run("GetRecord returns ErrNotFound for unknown pair", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Reply().GetRecord(ctx, "rd-1", "no-such-bank")
		gt.Bool(t, errors.Is(err, interfaces.ErrNotFound)).True()
	})

	t.Run("ListRecords returns all records of an RD", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Reply().CreateRecord(ctx, newRecord("rd-list", "bank-a"))
		gt.NoError(t, err).Required()
		_, err = repo.Reply().CreateRecord(ctx, newRecord("rd-list", "bank-b"))
		gt.NoError(t, err).Required()
		_, err = repo.Reply().CreateRecord(ctx, newRecord("rd-other", "bank-a"))
		gt.NoError(t, err).Required()

		records, err := repo.Reply().ListRecords(ctx, "rd-list")
		gt.NoError(t, err).Required()
		gt.Array(t, records).Length(2)
	})

	t.Run("AppendReply appends in order", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Reply().CreateRecord(ctx, newRecord("rd-app", "bank-a"))
		gt.NoError(t, err).Required()

		appended, err := repo.Reply().AppendReply(ctx, "rd-app", "bank-a",
			newTestReply(types.ReplyTypeSubmitted, "bank-a", "m-1"))
		gt.NoError(t, err).Required()
		gt.Bool(t, appended).True()

		appended, err = repo.Reply().AppendReply(ctx, "rd-app", "bank-a",
			newTestReply(types.ReplyTypeSubmitted, "bank-a", "m-2"))
		gt.NoError(t, err).Required()
		gt.Bool(t, appended).True()

		record, err := repo.Reply().GetRecord(ctx, "rd-app", "bank-a")
		gt.NoError(t, err).Required()
		gt.Array(t, record.Replies).Length(2)
		gt.Value(t, record.Replies[0].MessageID).Equal("m-1")
		gt.Value(t, record.Replies[1].MessageID).Equal("m-2")
	})

	t.Run("AppendReply is idempotent on (sender, messageId)", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Reply().CreateRecord(ctx, newRecord("rd-idem", "bank-a"))
		gt.NoError(t, err).Required()

		appended, err := repo.Reply().AppendReply(ctx, "rd-idem", "bank-a",
			newTestReply(types.ReplyTypeSubmitted, "bank-a", "m-1"))
		gt.NoError(t, err).Required()
		gt.Bool(t, appended).True()

		// Redelivery of the same message must not append a second entry
		appended, err = repo.Reply().AppendReply(ctx, "rd-idem", "bank-a",
			newTestReply(types.ReplyTypeSubmitted, "bank-a", "m-1"))
		gt.NoError(t, err).Required()
		gt.Bool(t, appended).False()

		// Same message id from another sender is a different message
		appended, err = repo.Reply().AppendReply(ctx, "rd-idem", "bank-a",
			newTestReply(types.ReplyTypeDeclined, "trader-1", "m-1"))
		gt.NoError(t, err).Required()
		gt.Bool(t, appended).True()

		record, err := repo.Reply().GetRecord(ctx, "rd-idem", "bank-a")
		gt.NoError(t, err).Required()
		gt.Array(t, record.Replies).Length(2)
	})

	t.Run("AppendReply fails for unknown record", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Reply().AppendReply(ctx, "rd-x", "bank-x",
			newTestReply(types.ReplyTypeSubmitted, "bank-x", "m-1"))
		gt.Bool(t, errors.Is(err, interfaces.ErrNotFound)).True()
	})
}

func TestReplyRepository_Memory(t *testing.T) {
	runReplyRepositoryTest(t, func(t *testing.T) interfaces.Repository {
		return memory.New()
	})
}

func TestReplyRepository_Firestore(t *testing.T) {
	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	if projectID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID not set")
	}

	runReplyRepositoryTest(t, func(t *testing.T) interfaces.Repository {
		repo, err := firestore.New(context.Background(), projectID, "")
		gt.NoError(t, err).Required()
		return repo
	})
}
