package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Course is the sellable content container. Lessons hang either directly off
// the course or inside a unit.
type Course struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title       string    `gorm:"column:title;not null"`
	Description string    `gorm:"column:description"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`

	Units         []CourseUnit `gorm:"foreignKey:CourseID"`
	DirectLessons []Lesson     `gorm:"foreignKey:CourseID"`
}

// CourseUnit groups lessons inside a course.
type CourseUnit struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CourseID  uuid.UUID `gorm:"column:course_id;type:uuid;not null"`
	Title     string    `gorm:"column:title;not null"`
	Position  int       `gorm:"column:position;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`

	Lessons []Lesson `gorm:"foreignKey:UnitID"`
}

// Lesson belongs to a course; UnitID is null for direct lessons. A lesson
// with price zero is free content.
type Lesson struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CourseID  uuid.UUID       `gorm:"column:course_id;type:uuid;not null"`
	UnitID    *uuid.UUID      `gorm:"column:unit_id;type:uuid"`
	Title     string          `gorm:"column:title;not null"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null;default:0"`
	Position  int             `gorm:"column:position;not null;default:0"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`

	Videos []Video `gorm:"foreignKey:LessonID"`
}

// Video is the playable asset inside a lesson.
type Video struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	LessonID        uuid.UUID       `gorm:"column:lesson_id;type:uuid;not null"`
	Title           string          `gorm:"column:title;not null"`
	Price           decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null;default:0"`
	DurationSeconds int             `gorm:"column:duration_seconds;not null;default:0"`
	Position        int             `gorm:"column:position;not null;default:0"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
