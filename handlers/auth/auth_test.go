package auth

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-market/database/dbtest"
	"github.com/sahilchouksey/course-market/handlers/handlertest"
	"github.com/sahilchouksey/course-market/model"
	"github.com/sahilchouksey/course-market/services"
	authutil "github.com/sahilchouksey/course-market/utils/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	authutil.HashCost = 4
}

func setupAuthApp(t *testing.T) (*fiber.App, *handlertest.Env) {
	db := dbtest.New(t)
	env := handlertest.NewEnv(db)
	notifier := services.NewNotificationService(db, services.NotificationConfig{})
	h := NewAuthHandler(db, env.JWT, nil, notifier, nil)

	app := fiber.New()
	app.Post("/register", h.Register)
	app.Post("/login", h.Login)
	app.Post("/refresh", h.RefreshToken)
	app.Post("/logout", env.Auth.Required(), h.Logout)
	app.Post("/change-password", env.Auth.Required(), h.ChangePassword)
	app.Get("/profile", env.Auth.Required(), h.GetProfile)
	app.Put("/profile", env.Auth.Required(), h.UpdateProfile)
	app.Get("/preferences", env.Auth.Required(), h.GetPreferences)
	app.Put("/preferences", env.Auth.Required(), h.UpdatePreferences)
	app.Post("/forgot-password", h.ForgotPassword)
	app.Post("/reset-password", h.ResetPassword)
	return app, env
}

func register(t *testing.T, app *fiber.App, email string) TokenResponse {
	status, env := handlertest.Do(t, app, http.MethodPost, "/register", fiber.Map{
		"email": email, "password": "password123", "name": "Ana Putri",
	}, "")
	require.Equal(t, http.StatusCreated, status)
	var out TokenResponse
	env.Decode(t, &out)
	return out
}

func TestRegisterAndLogin(t *testing.T) {
	app, _ := setupAuthApp(t)

	out := register(t, app, "Ana@Example.com")
	assert.Equal(t, "ana@example.com", out.User.Email)
	assert.Equal(t, model.RoleStudent, out.User.Role)
	assert.NotEmpty(t, out.AccessToken)

	status, _ := handlertest.Do(t, app, http.MethodPost, "/register", fiber.Map{
		"email": "ana@example.com", "password": "password123", "name": "Ana",
	}, "")
	assert.Equal(t, http.StatusConflict, status)

	status, _ = handlertest.Do(t, app, http.MethodPost, "/login", fiber.Map{
		"email": "ana@example.com", "password": "wrong-password",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env := handlertest.Do(t, app, http.MethodPost, "/login", fiber.Map{
		"email": "ana@example.com", "password": "password123",
	}, "")
	require.Equal(t, http.StatusOK, status)
	var login TokenResponse
	env.Decode(t, &login)
	assert.Equal(t, out.User.ID, login.User.ID)
}

func TestRegisterValidation(t *testing.T) {
	app, _ := setupAuthApp(t)

	status, env := handlertest.Do(t, app, http.MethodPost, "/register", fiber.Map{
		"email": "not-an-email", "password": "short", "name": "A",
	}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	app, _ := setupAuthApp(t)
	out := register(t, app, "budi@example.com")

	status, _ := handlertest.Do(t, app, http.MethodGet, "/profile", nil, out.AccessToken)
	require.Equal(t, http.StatusOK, status)

	status, _ = handlertest.Do(t, app, http.MethodPost, "/logout", nil, out.AccessToken)
	require.Equal(t, http.StatusOK, status)

	status, _ = handlertest.Do(t, app, http.MethodGet, "/profile", nil, out.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRefreshRotatesToken(t *testing.T) {
	app, _ := setupAuthApp(t)
	out := register(t, app, "citra@example.com")

	status, env := handlertest.Do(t, app, http.MethodPost, "/refresh", fiber.Map{"refresh_token": out.RefreshToken}, "")
	require.Equal(t, http.StatusOK, status)
	var refreshed RefreshResponse
	env.Decode(t, &refreshed)
	assert.NotEmpty(t, refreshed.AccessToken)

	// The old refresh token is single use
	status, _ = handlertest.Do(t, app, http.MethodPost, "/refresh", fiber.Map{"refresh_token": out.RefreshToken}, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	// Access tokens are not accepted as refresh tokens
	status, _ = handlertest.Do(t, app, http.MethodPost, "/refresh", fiber.Map{"refresh_token": out.AccessToken}, "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestChangePasswordInvalidatesTokens(t *testing.T) {
	app, _ := setupAuthApp(t)
	out := register(t, app, "dewi@example.com")

	status, _ := handlertest.Do(t, app, http.MethodPost, "/change-password", fiber.Map{
		"current_password": "nope-nope", "new_password": "newpassword1",
	}, out.AccessToken)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = handlertest.Do(t, app, http.MethodPost, "/change-password", fiber.Map{
		"current_password": "password123", "new_password": "newpassword1",
	}, out.AccessToken)
	require.Equal(t, http.StatusOK, status)

	status, _ = handlertest.Do(t, app, http.MethodGet, "/profile", nil, out.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = handlertest.Do(t, app, http.MethodPost, "/login", fiber.Map{
		"email": "dewi@example.com", "password": "newpassword1",
	}, "")
	assert.Equal(t, http.StatusOK, status)
}

func TestForgotAndResetPassword(t *testing.T) {
	app, env := setupAuthApp(t)
	out := register(t, app, "eko@example.com")

	status, _ := handlertest.Do(t, app, http.MethodPost, "/forgot-password", fiber.Map{"email": "unknown@example.com"}, "")
	assert.Equal(t, http.StatusOK, status)

	status, _ = handlertest.Do(t, app, http.MethodPost, "/forgot-password", fiber.Map{"email": "eko@example.com"}, "")
	require.Equal(t, http.StatusOK, status)

	var reset model.PasswordResetToken
	require.NoError(t, env.DB.Where("user_id = ?", out.User.ID).First(&reset).Error)

	status, _ = handlertest.Do(t, app, http.MethodPost, "/reset-password", fiber.Map{
		"token": reset.Token, "new_password": "brandnew123",
	}, "")
	require.Equal(t, http.StatusOK, status)

	status, _ = handlertest.Do(t, app, http.MethodPost, "/reset-password", fiber.Map{
		"token": reset.Token, "new_password": "another123",
	}, "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = handlertest.Do(t, app, http.MethodPost, "/login", fiber.Map{
		"email": "eko@example.com", "password": "brandnew123",
	}, "")
	assert.Equal(t, http.StatusOK, status)
}

func TestProfileAndPreferences(t *testing.T) {
	app, _ := setupAuthApp(t)
	out := register(t, app, "fajar@example.com")

	status, env := handlertest.Do(t, app, http.MethodPut, "/profile", fiber.Map{"name": "Fajar N", "bio": "Belajar Go"}, out.AccessToken)
	require.Equal(t, http.StatusOK, status)
	var profile UserResponse
	env.Decode(t, &profile)
	assert.Equal(t, "Fajar N", profile.Name)
	assert.Equal(t, "Belajar Go", profile.Bio)

	status, env = handlertest.Do(t, app, http.MethodGet, "/preferences", nil, out.AccessToken)
	require.Equal(t, http.StatusOK, status)
	var prefs map[string]bool
	env.Decode(t, &prefs)
	assert.True(t, prefs[model.PreferencePromotions])

	status, env = handlertest.Do(t, app, http.MethodPut, "/preferences", fiber.Map{model.PreferencePromotions: false}, out.AccessToken)
	require.Equal(t, http.StatusOK, status)
	env.Decode(t, &prefs)
	assert.False(t, prefs[model.PreferencePromotions])
	assert.True(t, prefs[model.PreferenceNewCourses])

	status, _ = handlertest.Do(t, app, http.MethodPut, "/preferences", fiber.Map{"smsAlerts": true}, out.AccessToken)
	assert.Equal(t, http.StatusBadRequest, status)
}
