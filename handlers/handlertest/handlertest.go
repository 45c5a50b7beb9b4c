// Package handlertest drives Fiber handlers through app.Test in package tests.
package handlertest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-market/model"
	"github.com/sahilchouksey/course-market/utils/auth"
	"github.com/sahilchouksey/course-market/utils/middleware"
	"gorm.io/gorm"
)

// Envelope is the decoded response body
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	} `json:"error"`
}

// Decode unmarshals the data field into dest
func (e Envelope) Decode(t *testing.T, dest interface{}) {
	t.Helper()
	if err := json.Unmarshal(e.Data, dest); err != nil {
		t.Fatalf("decode data: %v (%s)", err, string(e.Data))
	}
}

// Env bundles what handler tests need to authenticate requests
type Env struct {
	DB   *gorm.DB
	JWT  *auth.JWTManager
	Auth *middleware.AuthMiddleware
}

// NewEnv builds a JWT manager and auth middleware over db
func NewEnv(db *gorm.DB) *Env {
	jwtManager := auth.NewJWTManager(auth.DefaultJWTConfig("handler-test-secret", "course-market-test"))
	return &Env{
		DB:   db,
		JWT:  jwtManager,
		Auth: middleware.NewAuthMiddleware(jwtManager, db),
	}
}

// CreateUser inserts a user with the given role
func (e *Env) CreateUser(t *testing.T, email, role string) *model.User {
	t.Helper()
	user := &model.User{Email: email, Name: "Test " + role, PasswordHash: "unused", Role: role}
	if err := e.DB.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// Token returns a bearer access token for user
func (e *Env) Token(t *testing.T, user *model.User) string {
	t.Helper()
	token, _, err := e.JWT.GenerateAccessToken(auth.TokenSubject{
		UserID:       user.ID,
		Email:        user.Email,
		Role:         user.Role,
		TokenVersion: user.TokenVersion,
	})
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return token
}

// Do sends a JSON request to app and decodes the envelope
func Do(t *testing.T, app *fiber.App, method, path string, body interface{}, token string) (int, Envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	var env Envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("decode envelope: %v (%s)", err, string(raw))
		}
	}
	return resp.StatusCode, env
}
