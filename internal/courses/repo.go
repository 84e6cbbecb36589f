package courses

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studyloop/studyloop-backend/pkg/db/models"
)

// Repository reads course content. Course authoring is out of scope; rows
// arrive through migrations or admin tooling.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByID loads a course with its units and lessons. Returns (nil, nil)
// when no course exists.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	var course models.Course
	err := r.db.WithContext(ctx).
		Preload("Units.Lessons").
		Preload("DirectLessons").
		Where("id = ?", id).
		First(&course).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &course, nil
}

// Exists reports whether a course row exists.
func (r *Repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Course{}).
		Where("id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindLesson locates a lesson inside the course. Direct lessons match when
// unitID is nil; unit lessons additionally require the unit to belong to the
// course. Returns (nil, nil) when no lesson matches.
func (r *Repository) FindLesson(ctx context.Context, courseID, lessonID uuid.UUID, unitID *uuid.UUID) (*models.Lesson, error) {
	query := r.db.WithContext(ctx).
		Where("id = ? AND course_id = ?", lessonID, courseID)
	if unitID != nil {
		query = query.Where("unit_id = ?", *unitID)
	}

	var lesson models.Lesson
	err := query.First(&lesson).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &lesson, nil
}

// FindVideo locates a video inside the lesson. Returns (nil, nil) when the
// lesson has no such video.
func (r *Repository) FindVideo(ctx context.Context, lessonID, videoID uuid.UUID) (*models.Video, error) {
	var video models.Video
	err := r.db.WithContext(ctx).
		Where("id = ? AND lesson_id = ?", videoID, lessonID).
		First(&video).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &video, nil
}
