package payment

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sahilchouksey/course-market/database/dbtest"
	"github.com/sahilchouksey/course-market/handlers/handlertest"
	"github.com/sahilchouksey/course-market/model"
	"github.com/sahilchouksey/course-market/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPaymentApp(t *testing.T) (*fiber.App, *handlertest.Env) {
	db := dbtest.New(t)
	env := handlertest.NewEnv(db)
	notifier := services.NewNotificationService(db, services.NotificationConfig{})
	h := NewPaymentHandler(
		services.NewPaymentService(db, notifier, nil),
		services.NewCatalogService(db, notifier),
	)

	app := fiber.New()
	payments := app.Group("/payments", env.Auth.Required())
	payments.Post("/", h.CreatePayment)
	payments.Get("/", h.ListMyPayments)
	payments.Get("/:id", h.GetMyPayment)

	admin := app.Group("/admin/payments", env.Auth.RequireAdmin())
	admin.Get("/", h.ListPayments)
	admin.Post("/:id/verify", h.VerifyPayment)
	admin.Post("/:id/reject", h.RejectPayment)
	return app, env
}

func TestCreateAndVerifyPayment(t *testing.T) {
	app, env := setupPaymentApp(t)

	student := env.CreateUser(t, "student@example.com", model.RoleStudent)
	admin := env.CreateUser(t, "admin@example.com", model.RoleAdmin)
	studentToken := env.Token(t, student)
	adminToken := env.Token(t, admin)

	course := model.Course{Title: "Docker", Level: model.LevelIntermediate, Price: 250000, Status: model.CourseStatusPublished}
	require.NoError(t, env.DB.Create(&course).Error)

	status, resp := handlertest.Do(t, app, http.MethodPost, "/payments", fiber.Map{
		"course_id": course.ID.String(), "payment_method": "bank_transfer",
	}, studentToken)
	require.Equal(t, http.StatusCreated, status)
	var payment model.Payment
	resp.Decode(t, &payment)
	assert.Equal(t, 250000.0, payment.Amount)
	assert.Equal(t, model.PaymentStatusPending, payment.Status)

	// Students cannot reach admin routes
	status, _ = handlertest.Do(t, app, http.MethodPost, "/admin/payments/"+payment.ID.String()+"/verify", nil, studentToken)
	assert.Equal(t, http.StatusForbidden, status)

	status, resp = handlertest.Do(t, app, http.MethodPost, "/admin/payments/"+payment.ID.String()+"/verify", nil, adminToken)
	require.Equal(t, http.StatusOK, status)
	var result services.VerifyResult
	resp.Decode(t, &result)
	require.NotNil(t, result.Enrollment)
	assert.Equal(t, model.EnrollmentStatusActive, result.Enrollment.Status)
	assert.True(t, result.EnrollmentCreated)

	// Verification is terminal
	status, _ = handlertest.Do(t, app, http.MethodPost, "/admin/payments/"+payment.ID.String()+"/reject", fiber.Map{"reason": "late"}, adminToken)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = handlertest.Do(t, app, http.MethodPost, "/admin/payments/"+uuid.NewString()+"/verify", nil, adminToken)
	assert.Equal(t, http.StatusNotFound, status)

	// A second purchase of an owned course is refused
	status, _ = handlertest.Do(t, app, http.MethodPost, "/payments", fiber.Map{
		"course_id": course.ID.String(), "payment_method": "bank_transfer",
	}, studentToken)
	assert.Equal(t, http.StatusConflict, status)
}

func TestGetPaymentScopedToOwner(t *testing.T) {
	app, env := setupPaymentApp(t)

	owner := env.CreateUser(t, "owner@example.com", model.RoleStudent)
	other := env.CreateUser(t, "other@example.com", model.RoleStudent)

	course := model.Course{Title: "Kubernetes", Level: model.LevelAdvanced, Price: 300000, Status: model.CourseStatusPublished}
	require.NoError(t, env.DB.Create(&course).Error)

	status, resp := handlertest.Do(t, app, http.MethodPost, "/payments", fiber.Map{
		"course_id": course.ID.String(), "payment_method": "bank_transfer", "amount": 275000,
	}, env.Token(t, owner))
	require.Equal(t, http.StatusCreated, status)
	var payment model.Payment
	resp.Decode(t, &payment)
	assert.Equal(t, 275000.0, payment.Amount)

	status, _ = handlertest.Do(t, app, http.MethodGet, "/payments/"+payment.ID.String(), nil, env.Token(t, other))
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = handlertest.Do(t, app, http.MethodGet, "/payments/"+payment.ID.String(), nil, env.Token(t, owner))
	assert.Equal(t, http.StatusOK, status)
}
