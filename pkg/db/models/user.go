package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/studyloop/studyloop-backend/pkg/enums"
)

// User is a platform account. Role checks for entitlement purposes travel in
// JWT claims; this row backs listing joins and wallet bookkeeping.
type User struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	FullName  string         `gorm:"column:full_name;not null"`
	Email     string         `gorm:"column:email;not null;unique"`
	Role      enums.UserRole `gorm:"column:role;type:user_role;not null;default:'student'"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
