package accesscodes

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

func setupCodesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	users := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  full_name TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  role TEXT NOT NULL DEFAULT 'student',
  created_at DATETIME,
  updated_at DATETIME
);`
	courses := `
CREATE TABLE IF NOT EXISTS courses (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  description TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	codes := `
CREATE TABLE IF NOT EXISTS access_codes (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  course_id TEXT NOT NULL,
  access_start_at DATETIME NOT NULL,
  access_end_at DATETIME NOT NULL,
  code_expires_at DATETIME NOT NULL,
  used_by TEXT,
  used_at DATETIME,
  issued_by TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	usages := `
CREATE TABLE IF NOT EXISTS access_code_usages (
  id TEXT PRIMARY KEY,
  code_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  used_at DATETIME NOT NULL,
  lesson_id TEXT,
  video_id TEXT,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(users).Error)
	require.NoError(t, db.Exec(courses).Error)
	require.NoError(t, db.Exec(codes).Error)
	require.NoError(t, db.Exec(usages).Error)
	return db
}

func newCourse(t *testing.T, db *gorm.DB, title string) *models.Course {
	t.Helper()

	course := &models.Course{ID: uuid.New(), Title: title}
	require.NoError(t, db.Create(course).Error)
	return course
}

func newCode(t *testing.T, db *gorm.DB, course *models.Course, code string, windowEnd, codeExpiry time.Time) *models.AccessCode {
	t.Helper()

	row := &models.AccessCode{
		ID:            uuid.New(),
		Code:          code,
		CourseID:      course.ID,
		AccessStartAt: windowEnd.Add(-30 * 24 * time.Hour),
		AccessEndAt:   windowEnd,
		CodeExpiresAt: codeExpiry,
		IssuedBy:      uuid.New(),
	}
	require.NoError(t, db.Create(row).Error)
	return row
}

func TestFindRedeemable(t *testing.T) {
	db := setupCodesTestDB(t)
	repo := NewRepository(db)
	course := newCourse(t, db, "Algebra Basics")
	now := time.Now().UTC()
	ctx := context.Background()

	fresh := newCode(t, db, course, "FRESHCODE1", now.Add(30*24*time.Hour), now.Add(24*time.Hour))
	usedOpen := newCode(t, db, course, "USEDOPEN22", now.Add(10*24*time.Hour), now.Add(24*time.Hour))
	usedClosed := newCode(t, db, course, "USEDDONE33", now.Add(-time.Hour), now.Add(24*time.Hour))
	expired := newCode(t, db, course, "STALECODE4", now.Add(30*24*time.Hour), now.Add(-time.Minute))

	user := uuid.New()
	require.NoError(t, repo.MarkFirstUse(ctx, usedOpen.ID, user, now.Add(-time.Hour)))
	require.NoError(t, repo.MarkFirstUse(ctx, usedClosed.ID, user, now.Add(-2*time.Hour)))

	found, err := repo.FindRedeemable(ctx, fresh.Code, now)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, fresh.ID, found.ID)

	found, err = repo.FindRedeemable(ctx, usedOpen.Code, now)
	require.NoError(t, err)
	require.NotNil(t, found, "used code with an open window stays redeemable")

	found, err = repo.FindRedeemable(ctx, usedClosed.Code, now)
	require.NoError(t, err)
	assert.Nil(t, found, "used code with a closed window is spent")

	found, err = repo.FindRedeemable(ctx, expired.Code, now)
	require.NoError(t, err)
	assert.Nil(t, found, "expired code is never redeemable")

	found, err = repo.FindRedeemable(ctx, "NOSUCHCODE", now)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestMarkFirstUseIsIdempotent(t *testing.T) {
	db := setupCodesTestDB(t)
	repo := NewRepository(db)
	course := newCourse(t, db, "Algebra Basics")
	now := time.Now().UTC()
	ctx := context.Background()

	code := newCode(t, db, course, "FIRSTUSE55", now.Add(30*24*time.Hour), now.Add(24*time.Hour))

	first := uuid.New()
	second := uuid.New()
	require.NoError(t, repo.MarkFirstUse(ctx, code.ID, first, now))
	require.NoError(t, repo.MarkFirstUse(ctx, code.ID, second, now.Add(time.Hour)))

	row, err := repo.FindByID(ctx, code.ID)
	require.NoError(t, err)
	require.NotNil(t, row.UsedBy)
	assert.Equal(t, first, *row.UsedBy, "first redeemer stays on the record")
}

func TestAppendUsageKeepsEveryRedemption(t *testing.T) {
	db := setupCodesTestDB(t)
	repo := NewRepository(db)
	course := newCourse(t, db, "Algebra Basics")
	now := time.Now().UTC()
	ctx := context.Background()

	code := newCode(t, db, course, "LEDGERAA66", now.Add(30*24*time.Hour), now.Add(24*time.Hour))

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.AppendUsage(ctx, &models.AccessCodeUsage{
			ID:     uuid.New(),
			CodeID: code.ID,
			UserID: uuid.New(),
			UsedAt: now.Add(time.Duration(i) * time.Minute),
		}))
	}

	var count int64
	require.NoError(t, db.Model(&models.AccessCodeUsage{}).Where("code_id = ?", code.ID).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

func TestListFiltersAndSearch(t *testing.T) {
	db := setupCodesTestDB(t)
	repo := NewRepository(db)
	algebra := newCourse(t, db, "Algebra Basics")
	biology := newCourse(t, db, "Biology 101")
	now := time.Now().UTC()
	ctx := context.Background()

	a1 := newCode(t, db, algebra, "ALGCODE111", now.Add(30*24*time.Hour), now.Add(24*time.Hour))
	newCode(t, db, algebra, "ALGCODE222", now.Add(30*24*time.Hour), now.Add(24*time.Hour))
	newCode(t, db, biology, "BIOCODE333", now.Add(30*24*time.Hour), now.Add(24*time.Hour))

	redeemer := uuid.New()
	require.NoError(t, db.Create(&models.User{
		ID:       redeemer,
		FullName: "Dana Oduya",
		Email:    "dana@example.com",
		Role:     enums.UserRoleStudent,
	}).Error)
	require.NoError(t, repo.MarkFirstUse(ctx, a1.ID, redeemer, now))

	rows, total, err := repo.List(ctx, listQuery{courseID: &algebra.ID, limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, rows, 2)

	used := true
	rows, total, err = repo.List(ctx, listQuery{used: &used, limit: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, a1.ID, rows[0].ID)

	rows, total, err = repo.List(ctx, listQuery{usedBy: &redeemer, limit: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, a1.ID, rows[0].ID)

	rows, total, err = repo.List(ctx, listQuery{search: "biology", limit: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, "BIOCODE333", rows[0].Code)

	rows, total, err = repo.List(ctx, listQuery{search: "dana@example", limit: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), total, "search reaches the redeemer email")
	assert.Equal(t, a1.ID, rows[0].ID)

	_, total, err = repo.List(ctx, listQuery{search: "algcode", limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	rows, total, err = repo.List(ctx, listQuery{limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, rows, 2)
}

func TestBulkDeleteScopes(t *testing.T) {
	db := setupCodesTestDB(t)
	repo := NewRepository(db)
	algebra := newCourse(t, db, "Algebra Basics")
	biology := newCourse(t, db, "Biology 101")
	now := time.Now().UTC()
	ctx := context.Background()

	a1 := newCode(t, db, algebra, "ALGCODE111", now.Add(30*24*time.Hour), now.Add(24*time.Hour))
	a2 := newCode(t, db, algebra, "ALGCODE222", now.Add(30*24*time.Hour), now.Add(24*time.Hour))
	b1 := newCode(t, db, biology, "BIOCODE333", now.Add(30*24*time.Hour), now.Add(24*time.Hour))

	require.NoError(t, repo.MarkFirstUse(ctx, a1.ID, uuid.New(), now))

	ids := []uuid.UUID{a1.ID, a2.ID, b1.ID}

	deleted, err := repo.BulkDelete(ctx, ids, &algebra.ID, true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted, "only the unused algebra code qualifies")

	deleted, err = repo.BulkDelete(ctx, ids, nil, false)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
}
