package models

import (
	"time"

	"github.com/google/uuid"
)

// AccessCode is a redeemable token that unlocks a course for a fixed access
// window. Codes stay redeemable by any user throughout the window; used_by
// and used_at only record the first redemption and never block reuse.
type AccessCode struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code          string     `gorm:"column:code;not null;unique"`
	CourseID      uuid.UUID  `gorm:"column:course_id;type:uuid;not null"`
	AccessStartAt time.Time  `gorm:"column:access_start_at;not null"`
	AccessEndAt   time.Time  `gorm:"column:access_end_at;not null"`
	CodeExpiresAt time.Time  `gorm:"column:code_expires_at;not null"`
	UsedBy        *uuid.UUID `gorm:"column:used_by;type:uuid"`
	UsedAt        *time.Time `gorm:"column:used_at"`
	IssuedBy      uuid.UUID  `gorm:"column:issued_by;type:uuid;not null"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`

	Usages []AccessCodeUsage `gorm:"foreignKey:CodeID"`
}

// IsUsed reports whether the code has been redeemed at least once.
func (c AccessCode) IsUsed() bool {
	return c.UsedAt != nil
}

// AccessCodeUsage is one append-only redemption record owned by its code.
type AccessCodeUsage struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CodeID    uuid.UUID  `gorm:"column:code_id;type:uuid;not null"`
	UserID    uuid.UUID  `gorm:"column:user_id;type:uuid;not null"`
	UsedAt    time.Time  `gorm:"column:used_at;not null"`
	LessonID  *uuid.UUID `gorm:"column:lesson_id;type:uuid"`
	VideoID   *uuid.UUID `gorm:"column:video_id;type:uuid"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}
