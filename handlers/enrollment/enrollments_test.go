package enrollment

import (
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-market/database/dbtest"
	"github.com/sahilchouksey/course-market/handlers/handlertest"
	"github.com/sahilchouksey/course-market/model"
	"github.com/sahilchouksey/course-market/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompletingLastLessonIssuesCertificate(t *testing.T) {
	db := dbtest.New(t)
	env := handlertest.NewEnv(db)
	notifier := services.NewNotificationService(db, services.NotificationConfig{})
	h := NewEnrollmentHandler(
		services.NewEnrollmentService(db),
		services.NewCertificateService(db, notifier, nil),
	)

	app := fiber.New()
	app.Post("/lessons/:id/complete", env.Auth.Required(), h.CompleteLesson)
	app.Get("/enrollments", env.Auth.Required(), h.ListMyEnrollments)
	app.Get("/enrollments/courses/:course_id", env.Auth.Required(), h.GetCourseProgress)

	student := env.CreateUser(t, "learner@example.com", model.RoleStudent)
	token := env.Token(t, student)

	course := model.Course{Title: "SQL", Level: model.LevelBeginner, Price: 100000, Status: model.CourseStatusPublished}
	require.NoError(t, db.Create(&course).Error)
	first := model.Lesson{CourseID: course.ID, Title: "SELECT", Order: 1}
	second := model.Lesson{CourseID: course.ID, Title: "JOIN", Order: 2}
	require.NoError(t, db.Create(&first).Error)
	require.NoError(t, db.Create(&second).Error)

	// Not enrolled yet
	status, _ := handlertest.Do(t, app, http.MethodPost, "/lessons/"+first.ID.String()+"/complete", nil, token)
	assert.Equal(t, http.StatusForbidden, status)

	enrollment := model.Enrollment{UserID: student.ID, CourseID: course.ID, Status: model.EnrollmentStatusActive, EnrolledAt: time.Now().UTC()}
	require.NoError(t, db.Create(&enrollment).Error)

	status, resp := handlertest.Do(t, app, http.MethodPost, "/lessons/"+first.ID.String()+"/complete", nil, token)
	require.Equal(t, http.StatusOK, status)
	var out struct {
		CourseFinished bool               `json:"course_finished"`
		Certificate    *model.Certificate `json:"certificate"`
		Enrollment     model.Enrollment   `json:"enrollment"`
	}
	resp.Decode(t, &out)
	assert.False(t, out.CourseFinished)
	assert.Nil(t, out.Certificate)
	assert.Equal(t, 50.0, out.Enrollment.Progress)

	status, resp = handlertest.Do(t, app, http.MethodPost, "/lessons/"+second.ID.String()+"/complete", nil, token)
	require.Equal(t, http.StatusOK, status)
	resp.Decode(t, &out)
	assert.True(t, out.CourseFinished)
	require.NotNil(t, out.Certificate)
	assert.Equal(t, enrollment.ID, out.Certificate.EnrollmentID)

	var stored model.Enrollment
	require.NoError(t, db.Where("id = ?", enrollment.ID).First(&stored).Error)
	assert.Equal(t, model.EnrollmentStatusCompleted, stored.Status)

	// Repeating the last lesson returns the same certificate
	status, resp = handlertest.Do(t, app, http.MethodPost, "/lessons/"+second.ID.String()+"/complete", nil, token)
	require.Equal(t, http.StatusOK, status)
	firstCert := out.Certificate.ID
	resp.Decode(t, &out)
	assert.Equal(t, firstCert, out.Certificate.ID)

	var certs int64
	db.Model(&model.Certificate{}).Where("user_id = ?", student.ID).Count(&certs)
	assert.Equal(t, int64(1), certs)

	status, resp = handlertest.Do(t, app, http.MethodGet, "/enrollments/courses/"+course.ID.String(), nil, token)
	require.Equal(t, http.StatusOK, status)
	var progress struct {
		CompletedLessons []string `json:"completed_lessons"`
	}
	resp.Decode(t, &progress)
	assert.Len(t, progress.CompletedLessons, 2)
}
