package grants

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studyloop/studyloop-backend/pkg/db"
	"github.com/studyloop/studyloop-backend/pkg/db/models"
	"github.com/studyloop/studyloop-backend/pkg/enums"
)

// Repository persists access grants. One row exists per (user, course,
// source); ExtendOrCreate is the only writer and keeps the window end
// monotonic.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Latest returns the grant with the furthest end date regardless of expiry,
// so callers can report a lapsed window. Returns (nil, nil) when the user
// never held a grant for the course.
func (r *Repository) Latest(ctx context.Context, userID, courseID uuid.UUID) (*models.AccessGrant, error) {
	var grant models.AccessGrant
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Order("access_end_at DESC").
		First(&grant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &grant, nil
}

// BestActive returns the grant with the furthest end date that still covers
// now, optionally restricted to the given sources. Returns (nil, nil) when
// the user holds no live grant.
func (r *Repository) BestActive(ctx context.Context, userID, courseID uuid.UUID, now time.Time, sources ...enums.AccessSource) (*models.AccessGrant, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Where("access_end_at > ?", now)
	if len(sources) > 0 {
		query = query.Where("source IN ?", sources)
	}

	var grant models.AccessGrant
	err := query.Order("access_end_at DESC").First(&grant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &grant, nil
}

// ExtendOrCreate upserts the (user, course, source) grant. An existing row
// only ever moves its end forward, and the start travels with the winning
// window; a shorter window leaves the row untouched. The
// guarded UPDATE makes the no-shrink rule hold under concurrent redeems, and
// the unique constraint arbitrates racing inserts.
func (r *Repository) ExtendOrCreate(ctx context.Context, grant *models.AccessGrant) (*models.AccessGrant, error) {
	if grant == nil {
		return nil, fmt.Errorf("grant required")
	}
	if !grant.Source.IsValid() {
		return nil, fmt.Errorf("source %q cannot be persisted", grant.Source)
	}

	var result *models.AccessGrant
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := r.upsert(tx, grant)
		if err != nil {
			return err
		}
		result = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *Repository) upsert(tx *gorm.DB, grant *models.AccessGrant) (*models.AccessGrant, error) {
	updates := map[string]any{
		"access_start_at": grant.AccessStartAt,
		"access_end_at":   grant.AccessEndAt,
		"updated_at":      time.Now().UTC(),
	}
	if grant.CodeID != nil {
		updates["code_id"] = *grant.CodeID
	}

	extend := tx.Model(&models.AccessGrant{}).
		Where("user_id = ? AND course_id = ? AND source = ?", grant.UserID, grant.CourseID, grant.Source).
		Where("access_end_at < ?", grant.AccessEndAt).
		Updates(updates)
	if extend.Error != nil {
		return nil, extend.Error
	}

	existing, err := r.findForUpdate(tx, grant)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	if err := tx.Create(grant).Error; err != nil {
		if db.IsUniqueViolation(err, "uq_access_grants_user_course_source") {
			// Lost the insert race; the winner's row is authoritative.
			winner, findErr := r.findForUpdate(tx, grant)
			if findErr != nil {
				return nil, findErr
			}
			if winner != nil {
				return winner, nil
			}
		}
		return nil, err
	}
	return grant, nil
}

func (r *Repository) findForUpdate(tx *gorm.DB, grant *models.AccessGrant) (*models.AccessGrant, error) {
	var existing models.AccessGrant
	err := tx.
		Where("user_id = ? AND course_id = ? AND source = ?", grant.UserID, grant.CourseID, grant.Source).
		First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &existing, nil
}
