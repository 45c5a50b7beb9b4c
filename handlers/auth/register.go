package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sahilchouksey/course-market/model"
	"github.com/sahilchouksey/course-market/services"
	authutil "github.com/sahilchouksey/course-market/utils/auth"
	"github.com/sahilchouksey/course-market/utils/middleware"
	"github.com/sahilchouksey/course-market/utils/response"
	"github.com/sahilchouksey/course-market/utils/validation"
	"gorm.io/gorm"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	db                   *gorm.DB
	jwtManager           *authutil.JWTManager
	blacklistService     *authutil.BlacklistService
	bruteForceProtection *middleware.BruteForceProtection
	notificationService  *services.NotificationService
	emailService         *services.EmailService
	validator            *validation.Validator
}

// NewAuthHandler creates a new auth handler. bruteForceProtection and
// emailService may be nil.
func NewAuthHandler(
	db *gorm.DB,
	jwtManager *authutil.JWTManager,
	bruteForceProtection *middleware.BruteForceProtection,
	notificationService *services.NotificationService,
	emailService *services.EmailService,
) *AuthHandler {
	return &AuthHandler{
		db:                   db,
		jwtManager:           jwtManager,
		blacklistService:     authutil.NewBlacklistService(db),
		bruteForceProtection: bruteForceProtection,
		notificationService:  notificationService,
		emailService:         emailService,
		validator:            validation.NewValidator(),
	}
}

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Phone    string `json:"phone" validate:"omitempty,max=30"`
}

// UserResponse represents user data in responses
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Phone     string    `json:"phone,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TokenResponse is returned by register and login
type TokenResponse struct {
	User         UserResponse `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int          `json:"expires_in"` // in seconds
}

func toUserResponse(user *model.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		Phone:     user.Phone,
		Bio:       user.Bio,
		AvatarURL: user.AvatarURL,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

// issueTokens mints an access/refresh pair for user
func (h *AuthHandler) issueTokens(user *model.User) (string, string, error) {
	sub := authutil.TokenSubject{
		UserID:       user.ID,
		Email:        user.Email,
		Role:         user.Role,
		TokenVersion: user.TokenVersion,
	}

	accessToken, _, err := h.jwtManager.GenerateAccessToken(sub)
	if err != nil {
		return "", "", err
	}
	refreshToken, _, err := h.jwtManager.GenerateRefreshToken(sub)
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

// Register handles user registration. New accounts are always students.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	req.Email = strings.ToLower(validation.SanitizeString(req.Email))
	req.Name = validation.SanitizeString(req.Name)

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	// Check if user already exists
	var count int64
	if err := h.db.WithContext(c.UserContext()).Model(&model.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		return response.InternalServerError(c, "Failed to check email")
	}
	if count > 0 {
		return response.Conflict(c, "User with this email already exists")
	}

	hashedPassword, err := authutil.HashPassword(req.Password)
	if err != nil {
		return response.InternalServerError(c, "Failed to process password")
	}

	user := model.User{
		Email:        req.Email,
		PasswordHash: hashedPassword,
		Name:         req.Name,
		Phone:        req.Phone,
		Role:         model.RoleStudent,
	}

	if err := h.db.WithContext(c.UserContext()).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return response.Conflict(c, "User with this email already exists")
		}
		return response.InternalServerError(c, "Failed to create user")
	}

	h.notificationService.TryNotify(c.UserContext(), user.ID, services.NotificationInput{
		Title:   "Selamat datang!",
		Message: "Akun Anda berhasil dibuat. Jelajahi katalog kursus untuk mulai belajar.",
		Type:    model.NotificationTypeSystem,
	})

	accessToken, refreshToken, err := h.issueTokens(&user)
	if err != nil {
		return response.InternalServerError(c, "Failed to generate tokens")
	}

	return response.Created(c, TokenResponse{
		User:         toUserResponse(&user),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    24 * 60 * 60, // 24 hours in seconds
	})
}
