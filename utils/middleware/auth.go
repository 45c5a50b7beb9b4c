package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sahilchouksey/course-market/model"
	"github.com/sahilchouksey/course-market/utils/auth"
	"github.com/sahilchouksey/course-market/utils/response"
	"gorm.io/gorm"
)

// Context locals set by the auth middleware
const (
	LocalUserID    = "user_id"
	LocalUserEmail = "user_email"
	LocalUserRole  = "user_role"
	LocalClaims    = "claims"
	LocalUser      = "user"
	LocalTokenJTI  = "token_jti"
)

// authFailure carries the message returned to the client
type authFailure struct {
	status  int
	message string
}

func (f *authFailure) Error() string { return f.message }

func unauthorized(msg string) *authFailure {
	return &authFailure{status: fiber.StatusUnauthorized, message: msg}
}

// AuthMiddleware handles JWT authentication
type AuthMiddleware struct {
	jwtManager       *auth.JWTManager
	blacklistService *auth.BlacklistService
	db               *gorm.DB
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(jwtManager *auth.JWTManager, db *gorm.DB) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager:       jwtManager,
		blacklistService: auth.NewBlacklistService(db),
		db:               db,
	}
}

// authenticate validates the bearer token and loads its user
func (m *AuthMiddleware) authenticate(c *fiber.Ctx) (*auth.Claims, *model.User, *authFailure) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return nil, nil, unauthorized("Missing authorization token")
	}

	tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || tokenString == "" {
		return nil, nil, unauthorized("Invalid authorization format")
	}

	claims, err := m.jwtManager.ValidateToken(tokenString)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return nil, nil, unauthorized("Token has expired")
		}
		return nil, nil, unauthorized("Invalid token")
	}

	if claims.TokenType != auth.TokenTypeAccess {
		return nil, nil, unauthorized("Invalid token type")
	}

	revoked, err := m.blacklistService.IsTokenRevoked(c.UserContext(), claims.ID)
	if err != nil {
		return nil, nil, &authFailure{status: fiber.StatusInternalServerError, message: "Failed to check token status"}
	}
	if revoked {
		return nil, nil, unauthorized("Token has been revoked")
	}

	var user model.User
	if err := m.db.WithContext(c.UserContext()).Where("id = ?", claims.UserID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, unauthorized("User not found")
		}
		return nil, nil, &authFailure{status: fiber.StatusInternalServerError, message: "Failed to load user"}
	}

	if user.TokenVersion != claims.TokenVersion {
		return nil, nil, unauthorized("Token has been invalidated")
	}

	return claims, &user, nil
}

func storeIdentity(c *fiber.Ctx, claims *auth.Claims, user *model.User) {
	c.Locals(LocalUserID, user.ID)
	c.Locals(LocalUserEmail, user.Email)
	c.Locals(LocalUserRole, user.Role)
	c.Locals(LocalClaims, claims)
	c.Locals(LocalUser, user)
	c.Locals(LocalTokenJTI, claims.ID)
}

func fail(c *fiber.Ctx, f *authFailure) error {
	if f.status == fiber.StatusInternalServerError {
		return response.InternalServerError(c, f.message)
	}
	return response.Unauthorized(c, f.message)
}

// Required is middleware that requires a valid JWT token
func (m *AuthMiddleware) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, user, failure := m.authenticate(c)
		if failure != nil {
			return fail(c, failure)
		}
		storeIdentity(c, claims, user)
		return c.Next()
	}
}

// Optional is middleware that allows requests with or without a token
func (m *AuthMiddleware) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get(fiber.HeaderAuthorization) == "" {
			return c.Next()
		}
		claims, user, failure := m.authenticate(c)
		if failure == nil {
			storeIdentity(c, claims, user)
		}
		return c.Next()
	}
}

// RequireAdmin validates the token and requires the stored user to be an admin.
// The role is read from the database row, not the token.
func (m *AuthMiddleware) RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, user, failure := m.authenticate(c)
		if failure != nil {
			return fail(c, failure)
		}
		if !user.IsAdmin() {
			return response.Forbidden(c, "Admin access required")
		}
		storeIdentity(c, claims, user)
		return c.Next()
	}
}

// GetUserID extracts user ID from context
func GetUserID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, ok := c.Locals(LocalUserID).(uuid.UUID)
	return id, ok
}

// GetUser extracts full user object from context
func GetUser(c *fiber.Ctx) (*model.User, bool) {
	u, ok := c.Locals(LocalUser).(*model.User)
	return u, ok
}

// IsAdmin reports whether the authenticated user is an admin
func IsAdmin(c *fiber.Ctx) bool {
	u, ok := GetUser(c)
	return ok && u.IsAdmin()
}

// GetClaims extracts full claims from context
func GetClaims(c *fiber.Ctx) (*auth.Claims, bool) {
	claims, ok := c.Locals(LocalClaims).(*auth.Claims)
	return claims, ok
}

// GetTokenJTI extracts the token JTI from context
func GetTokenJTI(c *fiber.Ctx) (string, bool) {
	j, ok := c.Locals(LocalTokenJTI).(string)
	return j, ok
}
