package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/studyloop/studyloop-backend/pkg/db/models"
	"github.com/studyloop/studyloop-backend/pkg/enums"
)

func setupUsersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  full_name TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  role TEXT NOT NULL DEFAULT 'student',
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func TestFindByIDReturnsNilWhenAbsent(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)

	user, err := repo.FindByID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestFindByIDLoadsUser(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)

	seeded := &models.User{
		ID:       uuid.New(),
		FullName: "Dana Cruz",
		Email:    "dana@example.com",
		Role:     enums.UserRoleStudent,
	}
	require.NoError(t, db.Create(seeded).Error)

	user, err := repo.FindByID(context.Background(), seeded.ID)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, seeded.Email, user.Email)
}

func TestFindByEmailNormalizesInput(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)

	seeded := &models.User{
		ID:       uuid.New(),
		FullName: "Dana Cruz",
		Email:    "dana@example.com",
		Role:     enums.UserRoleAdmin,
	}
	require.NoError(t, db.Create(seeded).Error)

	user, err := repo.FindByEmail(context.Background(), "  Dana@Example.COM ")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, seeded.ID, user.ID)

	missing, err := repo.FindByEmail(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
