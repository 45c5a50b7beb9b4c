package review

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

func TestReviewRequiresEnrollment(t *testing.T) {
	db := dbtest.New(t)
	env := handlertest.NewEnv(db)
	h := NewReviewHandler(services.NewReviewService(db), services.NewEnrollmentService(db))

	app := fiber.New()
	app.Get("/courses/:id/reviews", h.ListCourseReviews)
	app.Put("/courses/:id/reviews", env.Auth.Required(), h.UpsertReview)

	course := model.Course{Title: "Python", Level: model.LevelBeginner, Status: model.CourseStatusPublished}
	require.NoError(t, db.Create(&course).Error)

	enrolled := env.CreateUser(t, "enrolled@example.com", model.RoleStudent)
	visitor := env.CreateUser(t, "visitor@example.com", model.RoleStudent)
	require.NoError(t, db.Create(&model.Enrollment{
		UserID: enrolled.ID, CourseID: course.ID, Status: model.EnrollmentStatusActive, EnrolledAt: time.Now().UTC(),
	}).Error)

	path := "/courses/" + course.ID.String() + "/reviews"

	status, resp := handlertest.Do(t, app, http.MethodPut, path, fiber.Map{"rating": 5}, env.Token(t, visitor))
	assert.Equal(t, http.StatusForbidden, status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "PERMISSION_DENIED", resp.Error.Code)

	status, _ = handlertest.Do(t, app, http.MethodPut, path, fiber.Map{"rating": 6}, env.Token(t, enrolled))
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = handlertest.Do(t, app, http.MethodPut, path, fiber.Map{"rating": 4, "comment": "Mantap"}, env.Token(t, enrolled))
	require.Equal(t, http.StatusOK, status)

	status, resp = handlertest.Do(t, app, http.MethodGet, path, nil, "")
	require.Equal(t, http.StatusOK, status)
	var listing struct {
		Reviews []model.Review       `json:"reviews"`
		Stats   services.RatingStats `json:"stats"`
	}
	resp.Decode(t, &listing)
	require.Len(t, listing.Reviews, 1)
	assert.Equal(t, 4.0, listing.Stats.AverageRating)
	assert.Equal(t, int64(1), listing.Stats.TotalReviews)
}
