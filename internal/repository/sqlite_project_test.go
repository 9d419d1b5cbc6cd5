package repository

import (
	"context"
	"testing"

	"github.com/alexanderramin/foreman/internal/domain"
	"github.com/alexanderramin/foreman/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectRepo_CreateAndGetByID(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteProjectRepo(db)
	ctx := context.Background()

	proj := testutil.NewTestProject("Harbour Wall")
	require.NoError(t, repo.Create(ctx, proj))

	fetched, err := repo.GetByID(ctx, proj.ID)
	require.NoError(t, err)
	assert.Equal(t, proj.ID, fetched.ID)
	assert.Equal(t, "Harbour Wall", fetched.Name)
	assert.True(t, proj.CreatedAt.Equal(fetched.CreatedAt))
}

func TestProjectRepo_GetByID_NotFound(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteProjectRepo(db)

	_, err := repo.GetByID(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "not found")
}

func TestProjectRepo_List(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteProjectRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testutil.NewTestProject("A")))
	require.NoError(t, repo.Create(ctx, testutil.NewTestProject("B")))

	projects, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, projects, 2)
}

func TestResourceRepo_KindScopesIdentity(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteResourceRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testutil.NewTestResource(domain.ResourceMaterial, "5", "Cement")))
	require.NoError(t, repo.Create(ctx, testutil.NewTestResource(domain.ResourceWorker, "5", "Mason")))

	err := repo.Create(ctx, testutil.NewTestResource(domain.ResourceMaterial, "5", "Cement again"))
	assert.ErrorIs(t, err, domain.ErrConflict)

	got, err := repo.Get(ctx, domain.Worker("5"))
	require.NoError(t, err)
	assert.Equal(t, "Mason", got.Name)
	assert.Equal(t, domain.Worker("5"), got.Ref())

	_, err = repo.Get(ctx, domain.Vehicle("5"))
	assert.ErrorIs(t, err, ErrNotFound)

	materials, err := repo.List(ctx, domain.ResourceMaterial)
	require.NoError(t, err)
	require.Len(t, materials, 1)
	assert.Equal(t, "Cement", materials[0].Name)

	all, err := repo.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
