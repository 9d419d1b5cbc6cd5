package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alexanderramin/foreman/internal/domain"
	"github.com/alexanderramin/foreman/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTransferRepo(t *testing.T) (*SQLiteTransferRepo, *domain.Project, *domain.Project) {
	t.Helper()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	projects := NewSQLiteProjectRepo(db)
	from := testutil.NewTestProject("Site 10")
	to := testutil.NewTestProject("Site 20")
	require.NoError(t, projects.Create(ctx, from))
	require.NoError(t, projects.Create(ctx, to))
	return NewSQLiteTransferRepo(db), from, to
}

func TestTransferRepo_CreateAndGetWithLines(t *testing.T) {
	repo, from, to := setupTransferRepo(t)
	ctx := context.Background()

	req := testutil.NewTestAllocation("RA-001", from.ID, to.ID,
		testutil.WithLine(domain.Material("5"), "40"),
		testutil.WithLine(domain.Team("crew-1"), "1"),
		testutil.WithPriority(domain.PriorityUrgent),
	)
	task := "pi-7"
	req.ToTaskID = &task
	require.NoError(t, repo.Create(ctx, req))

	got, err := repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransferAllocation, got.Kind)
	assert.Equal(t, from.ID, got.FromProjectID)
	assert.Equal(t, domain.PriorityUrgent, got.Priority)
	assert.Equal(t, domain.DefaultRequestType, got.RequestType)
	require.NotNil(t, got.ToTaskID)
	assert.Equal(t, "pi-7", *got.ToTaskID)
	assert.Nil(t, got.FromTaskID)
	require.Len(t, got.Lines, 2)
	assert.Equal(t, domain.Material("5"), got.Lines[0].Resource)
	assert.Equal(t, "40", got.Lines[0].Quantity.String())
	assert.Equal(t, domain.Team("crew-1"), got.Lines[1].Resource)
}

func TestTransferRepo_MobilizationHasNoSource(t *testing.T) {
	repo, _, to := setupTransferRepo(t)
	ctx := context.Background()

	req := testutil.NewTestMobilization("MB-001", to.ID, testutil.WithLine(domain.Vehicle("v1"), "2"))
	require.NoError(t, repo.Create(ctx, req))

	got, err := repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, "", got.FromProjectID)
}

func TestTransferRepo_SoftDeleteFreesCode(t *testing.T) {
	repo, from, to := setupTransferRepo(t)
	ctx := context.Background()

	first := testutil.NewTestAllocation("RA-001", from.ID, to.ID, testutil.WithLine(domain.Material("5"), "1"))
	require.NoError(t, repo.Create(ctx, first))

	dup := testutil.NewTestAllocation("RA-001", from.ID, to.ID, testutil.WithLine(domain.Material("5"), "1"))
	assert.ErrorIs(t, repo.Create(ctx, dup), domain.ErrDuplicateCode)

	inUse, err := repo.CodeInUse(ctx, domain.TransferAllocation, "RA-001")
	require.NoError(t, err)
	assert.True(t, inUse)

	require.NoError(t, first.SoftDelete(time.Now().UTC()))
	require.NoError(t, repo.SoftDelete(ctx, first))

	inUse, err = repo.CodeInUse(ctx, domain.TransferAllocation, "RA-001")
	require.NoError(t, err)
	assert.False(t, inUse)

	reuse := testutil.NewTestAllocation("RA-001", from.ID, to.ID, testutil.WithLine(domain.Material("5"), "1"))
	require.NoError(t, repo.Create(ctx, reuse))

	live, err := repo.List(ctx, TransferFilter{Kind: domain.TransferAllocation})
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, reuse.ID, live[0].ID)

	all, err := repo.List(ctx, TransferFilter{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestTransferRepo_UpdateStatusGuardsPreviousStatus(t *testing.T) {
	repo, from, to := setupTransferRepo(t)
	ctx := context.Background()

	req := testutil.NewTestAllocation("RA-002", from.ID, to.ID, testutil.WithLine(domain.Material("5"), "1"))
	require.NoError(t, repo.Create(ctx, req))

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, req.Approve("boss", now))
	require.NoError(t, repo.UpdateStatus(ctx, req, domain.TransferPending))

	err := repo.UpdateStatus(ctx, req, domain.TransferPending)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "request already left pending")

	got, err := repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransferApproved, got.Status)
	require.NotNil(t, got.ApproverID)
	assert.Equal(t, "boss", *got.ApproverID)
	require.NotNil(t, got.DecidedAt)
	assert.True(t, now.Equal(*got.DecidedAt))

	assert.ErrorIs(t, repo.SoftDelete(ctx, got), domain.ErrInvalidTransition)
}
