package persistence

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/clusterintranet/authgate/internal/domain/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	return db
}

func TestUserRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo, err := NewUserRepository(setupTestDB(t))
	require.NoError(t, err)

	user := &models.User{
		Email:        "alice@example.com",
		PasswordHash: "hash",
		Role:         "user",
		Permissions:  "reports.read,reports.export",
	}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotZero(t, user.ID)

	found, err := repo.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.Equal(t, []string{"reports.read", "reports.export"}, found.PermissionList())

	byID, err := repo.FindByID(ctx, user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", byID.Email)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo, err := NewUserRepository(setupTestDB(t))
	require.NoError(t, err)

	require.NoError(t, repo.Create(ctx, &models.User{Email: "dup@example.com", PasswordHash: "h", Role: "user"}))

	err = repo.Create(ctx, &models.User{Email: "dup@example.com", PasswordHash: "h2", Role: "user"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestUserRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo, err := NewUserRepository(setupTestDB(t))
	require.NoError(t, err)

	_, err = repo.FindByEmail(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = repo.FindByID(ctx, "00000000-0000-0000-0000-000000000001")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
