package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/studyloop/studyloop-backend/pkg/enums"
)

// AccessGrant records that a user holds entitlement to a course for a time
// window. One row exists per (user, course, source); extensions move the
// window end forward, never backward. Expiry is computed at query time.
type AccessGrant struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID          `gorm:"column:user_id;type:uuid;not null;uniqueIndex:uq_access_grants_user_course_source"`
	CourseID      uuid.UUID          `gorm:"column:course_id;type:uuid;not null;uniqueIndex:uq_access_grants_user_course_source"`
	AccessStartAt time.Time          `gorm:"column:access_start_at;not null"`
	AccessEndAt   time.Time          `gorm:"column:access_end_at;not null"`
	Source        enums.AccessSource `gorm:"column:source;type:access_source;not null;uniqueIndex:uq_access_grants_user_course_source"`
	CodeID        *uuid.UUID         `gorm:"column:code_id;type:uuid"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// ActiveAt reports whether the grant window covers the given instant.
func (g AccessGrant) ActiveAt(now time.Time) bool {
	return g.AccessEndAt.After(now)
}
