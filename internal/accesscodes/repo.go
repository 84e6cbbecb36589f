package accesscodes

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studyloop/studyloop-backend/pkg/db/models"
)

// Repository exposes access-code persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new access code row. Unique violations on the code column
// surface unchanged so the caller can retry with a fresh candidate.
func (r *Repository) Create(ctx context.Context, code *models.AccessCode) (*models.AccessCode, error) {
	if err := r.db.WithContext(ctx).Create(code).Error; err != nil {
		return nil, err
	}
	return code, nil
}

// FindByID loads a code by primary key.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.AccessCode, error) {
	var code models.AccessCode
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&code).Error
	if err != nil {
		return nil, err
	}
	return &code, nil
}

// FindByCode loads a code by its redeemable string regardless of state.
// Returns (nil, nil) when no such code exists.
func (r *Repository) FindByCode(ctx context.Context, code string) (*models.AccessCode, error) {
	var row models.AccessCode
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// FindRedeemable returns the code when it can still be redeemed: the code
// itself has not expired, and either it was never used or its access window
// is still open. Returns (nil, nil) when no row qualifies.
func (r *Repository) FindRedeemable(ctx context.Context, code string, now time.Time) (*models.AccessCode, error) {
	var row models.AccessCode
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		Where("code_expires_at > ?", now).
		Where("(used_at IS NULL OR access_end_at > ?)", now).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// AppendUsage records one redemption on the code's append-only usage ledger.
func (r *Repository) AppendUsage(ctx context.Context, usage *models.AccessCodeUsage) error {
	return r.db.WithContext(ctx).Create(usage).Error
}

// MarkFirstUse stamps used_by/used_at once. The guard on used_at keeps the
// first redemption authoritative under concurrent redeems.
func (r *Repository) MarkFirstUse(ctx context.Context, codeID, userID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.AccessCode{}).
		Where("id = ? AND used_at IS NULL", codeID).
		Updates(map[string]any{"used_by": userID, "used_at": at}).Error
}

// List returns one page of codes plus the total row count for the filters.
// Search matches the code itself, the owning course title, or the redeemer's
// email.
func (r *Repository) List(ctx context.Context, q listQuery) ([]models.AccessCode, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.AccessCode{})
	if q.courseID != nil {
		base = base.Where("access_codes.course_id = ?", *q.courseID)
	}
	if q.used != nil {
		if *q.used {
			base = base.Where("access_codes.used_at IS NOT NULL")
		} else {
			base = base.Where("access_codes.used_at IS NULL")
		}
	}
	if q.usedBy != nil {
		base = base.Where("access_codes.used_by = ?", *q.usedBy)
	}
	if q.search != "" {
		pattern := "%" + strings.ToLower(q.search) + "%"
		base = base.
			Select("access_codes.*").
			Joins("JOIN courses ON courses.id = access_codes.course_id").
			Joins("LEFT JOIN users ON users.id = access_codes.used_by").
			Where("(LOWER(access_codes.code) LIKE ? OR LOWER(courses.title) LIKE ? OR LOWER(users.email) LIKE ?)", pattern, pattern, pattern)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.AccessCode
	err := base.
		Order("access_codes.created_at DESC").
		Offset(q.offset).
		Limit(q.limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Delete removes a code row by id.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.AccessCode{}, "id = ?", id).Error
}

// BulkDelete removes the given codes, optionally scoped to one course and to
// unused codes only. Returns how many rows were actually removed.
func (r *Repository) BulkDelete(ctx context.Context, ids []uuid.UUID, courseID *uuid.UUID, onlyUnused bool) (int64, error) {
	query := r.db.WithContext(ctx).Where("id IN ?", ids)
	if courseID != nil {
		query = query.Where("course_id = ?", *courseID)
	}
	if onlyUnused {
		query = query.Where("used_at IS NULL")
	}
	res := query.Delete(&models.AccessCode{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
