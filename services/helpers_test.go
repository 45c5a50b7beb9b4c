package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sahilchouksey/course-market/model"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createUser(t *testing.T, db *gorm.DB, email string) *model.User {
	t.Helper()
	user := &model.User{
		Email:        email,
		PasswordHash: "x",
		Name:         "Test " + email,
		Role:         model.RoleStudent,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createUserWithPrefs(t *testing.T, db *gorm.DB, email string, prefs model.NotificationPreferences) *model.User {
	t.Helper()
	user := &model.User{
		Email:        email,
		PasswordHash: "x",
		Name:         "Test " + email,
		Role:         model.RoleStudent,
	}
	require.NoError(t, user.SetPreferences(prefs))
	require.NoError(t, db.Create(user).Error)
	return user
}

func createCourse(t *testing.T, db *gorm.DB, title string, price float64) *model.Course {
	t.Helper()
	course := &model.Course{
		Title:  title,
		Level:  model.LevelBeginner,
		Price:  price,
		Status: model.CourseStatusPublished,
	}
	require.NoError(t, db.Create(course).Error)
	return course
}

func createLesson(t *testing.T, db *gorm.DB, courseID uuid.UUID, title string, order int) *model.Lesson {
	t.Helper()
	lesson := &model.Lesson{CourseID: courseID, Title: title, Order: order}
	require.NoError(t, db.Create(lesson).Error)
	return lesson
}

func createEnrollment(t *testing.T, db *gorm.DB, userID, courseID uuid.UUID) *model.Enrollment {
	t.Helper()
	enrollment := &model.Enrollment{
		UserID:     userID,
		CourseID:   courseID,
		Status:     model.EnrollmentStatusActive,
		EnrolledAt: time.Now(),
	}
	require.NoError(t, db.Create(enrollment).Error)
	return enrollment
}

func boolPtr(v bool) *bool { return &v }

func countRows(t *testing.T, db *gorm.DB, m interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	q := db.Model(m)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}
