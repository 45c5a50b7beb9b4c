package notification

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-market/database/dbtest"
	"github.com/sahilchouksey/course-market/handlers/handlertest"
	"github.com/sahilchouksey/course-market/model"
	"github.com/sahilchouksey/course-market/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastReachesOptedInUsers(t *testing.T) {
	db := dbtest.New(t)
	env := handlertest.NewEnv(db)
	h := NewNotificationHandler(services.NewNotificationService(db, services.NotificationConfig{BatchSize: 2}))

	app := fiber.New()
	app.Get("/notifications", env.Auth.Required(), h.GetNotifications)
	app.Post("/notifications/read-all", env.Auth.Required(), h.MarkAllAsRead)
	admin := app.Group("/admin/notifications", env.Auth.RequireAdmin())
	admin.Post("/broadcast", h.Broadcast)
	admin.Get("/broadcasts/:id", h.GetBroadcast)

	adminUser := env.CreateUser(t, "admin@example.com", model.RoleAdmin)
	optedIn := env.CreateUser(t, "in@example.com", model.RoleStudent)
	optedOut := env.CreateUser(t, "out@example.com", model.RoleStudent)

	off := false
	require.NoError(t, optedOut.SetPreferences(model.NotificationPreferences{Promotions: &off}))
	require.NoError(t, db.Model(&model.User{}).Where("id = ?", optedOut.ID).
		Update("notification_preferences", optedOut.NotificationPreferences).Error)

	status, _ := handlertest.Do(t, app, http.MethodPost, "/admin/notifications/broadcast", fiber.Map{
		"title": "Diskon 50%", "type": "promotion", "preference_key": "promotions",
	}, env.Token(t, optedIn))
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = handlertest.Do(t, app, http.MethodPost, "/admin/notifications/broadcast", fiber.Map{
		"title": "Diskon", "type": "promotion", "preference_key": "smsAlerts",
	}, env.Token(t, adminUser))
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, resp := handlertest.Do(t, app, http.MethodPost, "/admin/notifications/broadcast", fiber.Map{
		"title": "Diskon 50%", "type": "promotion", "preference_key": "promotions",
	}, env.Token(t, adminUser))
	require.Equal(t, http.StatusAccepted, status)
	var job model.NotificationBroadcast
	resp.Decode(t, &job)
	assert.Equal(t, model.BroadcastStatusCompleted, job.Status)
	// admin and opted-in student
	assert.Equal(t, 2, job.RecipientsNotified)

	status, resp = handlertest.Do(t, app, http.MethodGet, "/notifications", nil, env.Token(t, optedIn))
	require.Equal(t, http.StatusOK, status)
	var inbox struct {
		Total       int64 `json:"total"`
		UnreadCount int64 `json:"unread_count"`
	}
	resp.Decode(t, &inbox)
	assert.Equal(t, int64(1), inbox.Total)
	assert.Equal(t, int64(1), inbox.UnreadCount)

	status, resp = handlertest.Do(t, app, http.MethodGet, "/notifications", nil, env.Token(t, optedOut))
	require.Equal(t, http.StatusOK, status)
	resp.Decode(t, &inbox)
	assert.Equal(t, int64(0), inbox.Total)

	status, _ = handlertest.Do(t, app, http.MethodPost, "/notifications/read-all", nil, env.Token(t, optedIn))
	require.Equal(t, http.StatusOK, status)
	status, resp = handlertest.Do(t, app, http.MethodGet, "/notifications", nil, env.Token(t, optedIn))
	require.Equal(t, http.StatusOK, status)
	resp.Decode(t, &inbox)
	assert.Equal(t, int64(0), inbox.UnreadCount)
}
