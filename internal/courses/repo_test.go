package courses

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/studyloop/studyloop-backend/pkg/db/models"
)

func setupCoursesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	courses := `
CREATE TABLE IF NOT EXISTS courses (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  description TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	units := `
CREATE TABLE IF NOT EXISTS course_units (
  id TEXT PRIMARY KEY,
  course_id TEXT NOT NULL,
  title TEXT NOT NULL,
  position INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	lessons := `
CREATE TABLE IF NOT EXISTS lessons (
  id TEXT PRIMARY KEY,
  course_id TEXT NOT NULL,
  unit_id TEXT,
  title TEXT NOT NULL,
  price NUMERIC NOT NULL DEFAULT 0,
  position INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	videos := `
CREATE TABLE IF NOT EXISTS videos (
  id TEXT PRIMARY KEY,
  lesson_id TEXT NOT NULL,
  title TEXT NOT NULL,
  price NUMERIC NOT NULL DEFAULT 0,
  duration_seconds INTEGER NOT NULL DEFAULT 0,
  position INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(courses).Error)
	require.NoError(t, db.Exec(units).Error)
	require.NoError(t, db.Exec(lessons).Error)
	require.NoError(t, db.Exec(videos).Error)
	return db
}

type fixture struct {
	course       *models.Course
	unit         *models.CourseUnit
	directLesson *models.Lesson
	unitLesson   *models.Lesson
	video        *models.Video
}

func seedCourse(t *testing.T, db *gorm.DB) fixture {
	t.Helper()

	course := &models.Course{ID: uuid.New(), Title: "Algebra Basics"}
	require.NoError(t, db.Create(course).Error)

	unit := &models.CourseUnit{ID: uuid.New(), CourseID: course.ID, Title: "Linear Equations"}
	require.NoError(t, db.Create(unit).Error)

	direct := &models.Lesson{
		ID:       uuid.New(),
		CourseID: course.ID,
		Title:    "Intro",
		Price:    decimal.Zero,
	}
	require.NoError(t, db.Create(direct).Error)

	inUnit := &models.Lesson{
		ID:       uuid.New(),
		CourseID: course.ID,
		UnitID:   &unit.ID,
		Title:    "Slope",
		Price:    decimal.NewFromInt(25),
	}
	require.NoError(t, db.Create(inUnit).Error)

	video := &models.Video{
		ID:       uuid.New(),
		LessonID: inUnit.ID,
		Title:    "Slope walkthrough",
		Price:    decimal.NewFromInt(5),
	}
	require.NoError(t, db.Create(video).Error)

	return fixture{course: course, unit: unit, directLesson: direct, unitLesson: inUnit, video: video}
}

func TestFindByIDPreloadsContent(t *testing.T) {
	db := setupCoursesTestDB(t)
	repo := NewRepository(db)
	fx := seedCourse(t, db)

	course, err := repo.FindByID(context.Background(), fx.course.ID)
	require.NoError(t, err)
	require.Len(t, course.Units, 1)
	require.Len(t, course.Units[0].Lessons, 1)
	assert.Equal(t, fx.unitLesson.ID, course.Units[0].Lessons[0].ID)
	// DirectLessons preloads on course_id, so both lessons appear there.
	assert.Len(t, course.DirectLessons, 2)

	missing, err := repo.FindByID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestExists(t *testing.T) {
	db := setupCoursesTestDB(t)
	repo := NewRepository(db)
	fx := seedCourse(t, db)

	ok, err := repo.Exists(context.Background(), fx.course.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Exists(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFindLesson(t *testing.T) {
	db := setupCoursesTestDB(t)
	repo := NewRepository(db)
	fx := seedCourse(t, db)
	ctx := context.Background()

	lesson, err := repo.FindLesson(ctx, fx.course.ID, fx.directLesson.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, lesson)
	assert.Equal(t, fx.directLesson.ID, lesson.ID)

	lesson, err = repo.FindLesson(ctx, fx.course.ID, fx.unitLesson.ID, &fx.unit.ID)
	require.NoError(t, err)
	require.NotNil(t, lesson)
	assert.Equal(t, fx.unitLesson.ID, lesson.ID)

	wrongUnit := uuid.New()
	lesson, err = repo.FindLesson(ctx, fx.course.ID, fx.unitLesson.ID, &wrongUnit)
	require.NoError(t, err)
	assert.Nil(t, lesson)

	lesson, err = repo.FindLesson(ctx, uuid.New(), fx.directLesson.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, lesson, "lesson must belong to the requested course")
}

func TestFindVideo(t *testing.T) {
	db := setupCoursesTestDB(t)
	repo := NewRepository(db)
	fx := seedCourse(t, db)
	ctx := context.Background()

	video, err := repo.FindVideo(ctx, fx.unitLesson.ID, fx.video.ID)
	require.NoError(t, err)
	require.NotNil(t, video)
	assert.Equal(t, fx.video.ID, video.ID)

	video, err = repo.FindVideo(ctx, fx.directLesson.ID, fx.video.ID)
	require.NoError(t, err)
	assert.Nil(t, video, "video must belong to the requested lesson")
}
