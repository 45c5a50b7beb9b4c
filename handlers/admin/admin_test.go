package admin

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-market/database"
	"github.com/sahilchouksey/course-market/database/dbtest"
	"github.com/sahilchouksey/course-market/handlers/handlertest"
	"github.com/sahilchouksey/course-market/model"
	"github.com/sahilchouksey/course-market/services"
	"github.com/sahilchouksey/course-market/utils/auth"
	"github.com/sahilchouksey/course-market/utils/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAdminApp(t *testing.T) (*fiber.App, *handlertest.Env) {
	t.Helper()
	auth.HashCost = 4
	db := dbtest.New(t)
	env := handlertest.NewEnv(db)
	store := database.NewGORMStore(db)
	settings := services.NewSettingsService(db, nil)
	analytics := services.NewAnalyticsService(db)

	app := fiber.New()
	app.Get("/settings", func(c *fiber.Ctx) error { return GetPublicSettings(c, settings) })

	admin := app.Group("/admin", env.Auth.RequireAdmin())
	admin.Get("/settings", func(c *fiber.Ctx) error { return ListSettings(c, settings) })
	admin.Put("/settings/:key", middleware.AdminAuditLog(db, "settings_update", "settings"),
		func(c *fiber.Ctx) error { return UpdateSetting(c, settings) })
	admin.Delete("/settings/:key", func(c *fiber.Ctx) error { return DeleteSetting(c, settings) })
	admin.Get("/users", func(c *fiber.Ctx) error { return ListUsers(c, store) })
	admin.Get("/users/:id", func(c *fiber.Ctx) error { return GetUser(c, store) })
	admin.Put("/users/:id", func(c *fiber.Ctx) error { return UpdateUser(c, store) })
	admin.Delete("/users/:id", func(c *fiber.Ctx) error { return DeleteUser(c, store) })
	admin.Post("/users/:id/reset-password", func(c *fiber.Ctx) error { return ResetUserPassword(c, store) })
	admin.Get("/audit-logs", func(c *fiber.Ctx) error { return ListAuditLogs(c, store) })
	admin.Get("/analytics/overview", func(c *fiber.Ctx) error { return GetOverviewAnalytics(c, analytics) })
	return app, env
}

func TestSettingsEndpoints(t *testing.T) {
	app, env := setupAdminApp(t)
	adminUser := env.CreateUser(t, "admin@example.com", model.RoleAdmin)
	token := env.Token(t, adminUser)

	status, resp := handlertest.Do(t, app, http.MethodGet, "/settings", nil, "")
	require.Equal(t, http.StatusOK, status)
	var public map[string]string
	resp.Decode(t, &public)
	assert.NotEmpty(t, public["site_name"])

	status, _ = handlertest.Do(t, app, http.MethodPut, "/admin/settings/site_name",
		fiber.Map{"value": "Kelas Kita"}, token)
	require.Equal(t, http.StatusOK, status)

	private := false
	status, _ = handlertest.Do(t, app, http.MethodPut, "/admin/settings/internal_note",
		fiber.Map{"value": "secret", "is_public": private}, token)
	require.Equal(t, http.StatusOK, status)

	status, resp = handlertest.Do(t, app, http.MethodGet, "/settings", nil, "")
	require.Equal(t, http.StatusOK, status)
	resp.Decode(t, &public)
	assert.Equal(t, "Kelas Kita", public["site_name"])
	assert.NotContains(t, public, "internal_note")

	status, _ = handlertest.Do(t, app, http.MethodDelete, "/admin/settings/missing", nil, token)
	assert.Equal(t, http.StatusOK, status)

	status, resp = handlertest.Do(t, app, http.MethodGet, "/admin/audit-logs", nil, token)
	require.Equal(t, http.StatusOK, status)
	var logs []model.AdminAuditLog
	resp.Decode(t, &logs)
	require.Len(t, logs, 2)
	for _, entry := range logs {
		assert.Equal(t, "settings_update", entry.Action)
		assert.Equal(t, adminUser.ID, entry.AdminID)
	}
}

func TestUserManagement(t *testing.T) {
	app, env := setupAdminApp(t)
	adminUser := env.CreateUser(t, "admin@example.com", model.RoleAdmin)
	student := env.CreateUser(t, "student@example.com", model.RoleStudent)
	adminToken := env.Token(t, adminUser)
	studentToken := env.Token(t, student)

	status, _ := handlertest.Do(t, app, http.MethodGet, "/admin/users", nil, studentToken)
	assert.Equal(t, http.StatusForbidden, status)

	status, resp := handlertest.Do(t, app, http.MethodGet, "/admin/users?search=STUDENT", nil, adminToken)
	require.Equal(t, http.StatusOK, status)
	var users []model.User
	resp.Decode(t, &users)
	require.Len(t, users, 1)
	assert.Equal(t, student.ID, users[0].ID)

	status, _ = handlertest.Do(t, app, http.MethodPut, "/admin/users/"+student.ID.String(),
		fiber.Map{"email": "admin@example.com"}, adminToken)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = handlertest.Do(t, app, http.MethodPut, "/admin/users/"+student.ID.String(),
		fiber.Map{"role": "teacher"}, adminToken)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = handlertest.Do(t, app, http.MethodPost, "/admin/users/"+student.ID.String()+"/reset-password",
		fiber.Map{"new_password": "a-new-password"}, adminToken)
	require.Equal(t, http.StatusOK, status)

	// token_version moved on, the old token is dead
	status, _ = handlertest.Do(t, app, http.MethodGet, "/admin/users", nil, studentToken)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = handlertest.Do(t, app, http.MethodDelete, "/admin/users/"+adminUser.ID.String(), nil, adminToken)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = handlertest.Do(t, app, http.MethodDelete, "/admin/users/"+student.ID.String(), nil, adminToken)
	require.Equal(t, http.StatusOK, status)

	status, _ = handlertest.Do(t, app, http.MethodGet, "/admin/users/"+student.ID.String(), nil, adminToken)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = handlertest.Do(t, app, http.MethodGet, "/admin/users/not-a-uuid", nil, adminToken)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestOverviewAnalytics(t *testing.T) {
	app, env := setupAdminApp(t)
	adminUser := env.CreateUser(t, "admin@example.com", model.RoleAdmin)
	env.CreateUser(t, "student@example.com", model.RoleStudent)

	status, resp := handlertest.Do(t, app, http.MethodGet, "/admin/analytics/overview", nil, env.Token(t, adminUser))
	require.Equal(t, http.StatusOK, status)
	var stats services.DashboardStats
	resp.Decode(t, &stats)
	assert.Equal(t, int64(2), stats.TotalUsers)
	assert.Equal(t, int64(1), stats.TotalStudents)
}
