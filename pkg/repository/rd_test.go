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
	"github.com/tradefin-lab/rfpcore/pkg/repository/firestore"
	"github.com/tradefin-lab/rfpcore/pkg/repository/memory"
)

func newRD(staticID string) *model.RDApplication {
	now := time.Now().UTC()
	return &model.RDApplication{
		StaticID:      staticID,
		TradeSourceID: "trade-1",
		InvoiceAmount: 100000,
		Currency:      "USD",
		AdvanceRate:   80,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func runRDRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Create and Get round-trips an RD", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.RD().Create(ctx, newRD("rd-1"))
		gt.NoError(t, err).Required()
		gt.Value(t, created.StaticID).Equal("rd-1")

		retrieved, err := repo.RD().Get(ctx, "rd-1")
		gt.NoError(t, err).Required()
		gt.Value(t, retrieved.Currency).Equal("USD")
		gt.Value(t, retrieved.InvoiceAmount).Equal(float64(100000))
		gt.Value(t, retrieved.AcceptedParticipantStaticID).Equal("")
	})

	t.Run("Create rejects a duplicate static ID", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.RD().Create(ctx, newRD("rd-dup"))
		gt.NoError(t, err).Required()

		_, err = repo.RD().Create(ctx, newRD("rd-dup"))
		gt.Bool(t, errors.Is(err, interfaces.ErrDuplicate)).True()
	})

	t.Run("Get returns ErrNotFound for unknown RD", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.RD().Get(ctx, "no-such-rd")
		gt.Bool(t, errors.Is(err, interfaces.ErrNotFound)).True()
	})

	t.Run("SetAcceptedParticipant claims the slot exactly once", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.RD().Create(ctx, newRD("rd-accept"))
		gt.NoError(t, err).Required()

		gt.NoError(t, repo.RD().SetAcceptedParticipant(ctx, "rd-accept", "bank-a")).Required()

		// A second claim fails whichever participant it names
		err = repo.RD().SetAcceptedParticipant(ctx, "rd-accept", "bank-b")
		gt.Bool(t, errors.Is(err, interfaces.ErrDuplicate)).True()
		err = repo.RD().SetAcceptedParticipant(ctx, "rd-accept", "bank-a")
		gt.Bool(t, errors.Is(err, interfaces.ErrDuplicate)).True()

		retrieved, err := repo.RD().Get(ctx, "rd-accept")
		gt.NoError(t, err).Required()
		gt.Value(t, retrieved.AcceptedParticipantStaticID).Equal("bank-a")
	})

	t.Run("SetAcceptedParticipant fails for unknown RD", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		err := repo.RD().SetAcceptedParticipant(ctx, "no-such-rd", "bank-a")
		gt.Bool(t, errors.Is(err, interfaces.ErrNotFound)).True()
	})

	t.Run("List returns all RDs", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.RD().Create(ctx, newRD("rd-l1"))
		gt.NoError(t, err).Required()
		_, err = repo.RD().Create(ctx, newRD("rd-l2"))
		gt.NoError(t, err).Required()

		rds, err := repo.RD().List(ctx)
		gt.NoError(t, err).Required()
		gt.Number(t, len(rds)).GreaterOrEqual(2)
	})
}

func TestRDRepository_Memory(t *testing.T) {
	runRDRepositoryTest(t, func(t *testing.T) interfaces.Repository {
		return memory.New()
	})
}

func TestRDRepository_Firestore(t *testing.T) {
	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	if projectID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID not set")
	}

	runRDRepositoryTest(t, func(t *testing.T) interfaces.Repository {
		repo, err := firestore.New(context.Background(), projectID, "")
		gt.NoError(t, err).Required()
		return repo
	})
}
