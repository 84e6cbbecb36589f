package wallet

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/studyloop/studyloop-backend/pkg/db/models"
	"github.com/studyloop/studyloop-backend/pkg/enums"
)

func setupWalletTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS wallet_transactions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  type TEXT NOT NULL,
  amount_cents INTEGER NOT NULL DEFAULT 0,
  code TEXT NOT NULL,
  description TEXT,
  status TEXT NOT NULL DEFAULT 'completed',
  occurred_at DATETIME NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func seedTxn(t *testing.T, repo *Repository, userID uuid.UUID, code string, at time.Time) {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), &models.WalletTransaction{
		ID:         uuid.New(),
		UserID:     userID,
		Type:       enums.WalletTransactionTypeAccessCode,
		Code:       code,
		Status:     enums.WalletTransactionStatusCompleted,
		OccurredAt: at,
	}))
}

func TestListByUserNewestFirst(t *testing.T) {
	db := setupWalletTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()
	now := time.Now().UTC()

	seedTxn(t, repo, userID, "ALGCODE111", now.Add(-2*time.Hour))
	seedTxn(t, repo, userID, "ALGCODE222", now.Add(-1*time.Hour))
	seedTxn(t, repo, uuid.New(), "ALGCODE333", now)

	rows, err := repo.ListByUser(context.Background(), userID, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ALGCODE222", rows[0].Code)
	assert.Equal(t, "ALGCODE111", rows[1].Code)
}

func TestListByUserHonorsLimit(t *testing.T) {
	db := setupWalletTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		seedTxn(t, repo, userID, "ALGCODE111", now.Add(time.Duration(-i)*time.Minute))
	}

	rows, err := repo.ListByUser(context.Background(), userID, 3)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}
