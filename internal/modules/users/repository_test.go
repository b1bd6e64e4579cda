package users

import (
	"context"
	"testing"
	"time"

	"github.com/aristath/portfolio-manager/internal/domain"
	testingpkg "github.com/aristath/portfolio-manager/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) *Repository {
	t.Helper()
	db, cleanup := testingpkg.NewTestDB(t, "portfolio")
	t.Cleanup(cleanup)
	return NewRepository(db.Conn(), zerolog.Nop())
}

func TestRepositoryCreateAndLookup(t *testing.T) {
	repo := newRepo(t)
	repo.now = func() time.Time { return time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC) }
	ctx := context.Background()

	u := &domain.User{Username: "jdoe", Email: "john@example.com", PasswordHash: "x", FirstName: "John", LastName: "Doe"}
	require.NoError(t, repo.Create(ctx, u))
	assert.NotZero(t, u.ID)

	byID, err := repo.ByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "jdoe", byID.Username)
	assert.Equal(t, int64(1772357400), byID.CreatedAt.Unix())

	byName, err := repo.ByUsername(ctx, "jdoe")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, u.ID, byName.ID)

	byEmail, err := repo.ByEmail(ctx, "john@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, u.ID, byEmail.ID)

	missing, err := repo.ByID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepositoryUniqueUsername(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.User{Username: "a", Email: "a@x.io", PasswordHash: "x"}))
	assert.Error(t, repo.Create(ctx, &domain.User{Username: "a", Email: "b@x.io", PasswordHash: "x"}))
}

func TestRepositoryUpdateListDelete(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	a := &domain.User{Username: "a", Email: "a@x.io", PasswordHash: "x"}
	b := &domain.User{Username: "b", Email: "b@x.io", PasswordHash: "x"}
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	a.Phone = "555-0100"
	require.NoError(t, repo.Update(ctx, a))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "555-0100", all[0].Phone)

	require.NoError(t, repo.Delete(ctx, a.ID))
	gone, err := repo.ByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}
