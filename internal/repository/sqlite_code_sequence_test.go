package repository

import (
	"context"
	"testing"

	"github.com/alexanderramin/foreman/internal/domain"
	"github.com/alexanderramin/foreman/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeSequenceRepo_NextSeq_StartsAtOnePerKind(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	seqRepo := NewSQLiteCodeSequenceRepo(database)

	seq1, err := seqRepo.NextSeq(ctx, domain.TransferAllocation)
	require.NoError(t, err)
	assert.Equal(t, 1, seq1)

	seq2, err := seqRepo.NextSeq(ctx, domain.TransferAllocation)
	require.NoError(t, err)
	assert.Equal(t, 2, seq2)

	mob, err := seqRepo.NextSeq(ctx, domain.TransferMobilization)
	require.NoError(t, err)
	assert.Equal(t, 1, mob, "kinds count independently")
}

func TestCodeSequenceRepo_NextSeq_BootstrapsFromExistingRequests(t *testing.T) {
	repo, from, to := setupTransferRepo(t)
	ctx := context.Background()

	for _, code := range []string{"legacy-a", "legacy-b", "legacy-c"} {
		require.NoError(t, repo.Create(ctx, testutil.NewTestAllocation(code, from.ID, to.ID,
			testutil.WithLine(domain.Material("5"), "1"))))
	}

	next, err := NewSQLiteCodeSequenceRepo(repo.db).NextSeq(ctx, domain.TransferAllocation)
	require.NoError(t, err)
	assert.Equal(t, 4, next)
}
