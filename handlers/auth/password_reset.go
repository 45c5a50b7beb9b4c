package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/course-market/model"
	"github.com/sahilchouksey/course-market/services"
	authutil "github.com/sahilchouksey/course-market/utils/auth"
	"github.com/sahilchouksey/course-market/utils/middleware"
	"github.com/sahilchouksey/course-market/utils/response"
	"gorm.io/gorm"
)

const resetTokenTTL = time.Hour

// ForgotPasswordRequest represents a password reset request
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest represents a password reset with token
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

// ChangePasswordRequest represents a password change request
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

const forgotPasswordMessage = "If the email exists, a password reset link will be sent"

// ForgotPassword creates a reset token and mails it. The response never
// reveals whether the email is registered.
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	ctx := c.UserContext()

	var user model.User
	if err := h.db.WithContext(ctx).Where("email = ?", req.Email).First(&user).Error; err != nil {
		return response.Success(c, fiber.Map{"message": forgotPasswordMessage})
	}

	token, err := authutil.GenerateResetToken()
	if err != nil {
		return response.InternalServerError(c, "Failed to create reset token")
	}

	reset := model.PasswordResetToken{
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: time.Now().Add(resetTokenTTL),
	}
	if err := h.db.WithContext(ctx).Create(&reset).Error; err != nil {
		return response.InternalServerError(c, "Failed to create reset token")
	}

	if h.emailService != nil {
		if err := h.emailService.SendPasswordResetEmail(user.Email, token, user.Name); err != nil {
			if errors.Is(err, services.ErrSMTPNotConfigured) {
				log.Warnw("password reset email skipped, SMTP not configured", "user_id", user.ID)
			} else {
				log.Errorw("failed to send password reset email", "user_id", user.ID, "error", err)
			}
		}
	}

	return response.Success(c, fiber.Map{"message": forgotPasswordMessage})
}

// ResetPassword sets a new password using a reset token and invalidates
// every existing session
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	hashedPassword, err := authutil.HashPassword(req.NewPassword)
	if err != nil {
		return response.InternalServerError(c, "Failed to process password")
	}

	var failure string
	err = h.db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		var reset model.PasswordResetToken
		if err := tx.Where("token = ?", req.Token).First(&reset).Error; err != nil {
			failure = "Invalid or expired reset token"
			return err
		}
		if reset.IsExpired() {
			failure = "Reset token has expired"
			return errors.New(failure)
		}
		if reset.IsUsed() {
			failure = "Reset token has already been used"
			return errors.New(failure)
		}

		if err := tx.Model(&model.User{}).Where("id = ?", reset.UserID).Updates(map[string]interface{}{
			"password_hash": hashedPassword,
			"token_version": gorm.Expr("token_version + 1"),
		}).Error; err != nil {
			return err
		}

		reset.MarkAsUsed()
		return tx.Model(&model.PasswordResetToken{}).Where("id = ?", reset.ID).Update("used_at", reset.UsedAt).Error
	})
	if err != nil {
		if failure != "" {
			return response.BadRequest(c, failure)
		}
		return response.InternalServerError(c, "Failed to reset password")
	}

	return response.Success(c, fiber.Map{
		"message": "Password reset successfully",
	})
}

// ChangePassword changes the password of the authenticated user. All tokens
// issued before the change stop working.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	if err := authutil.VerifyPassword(user.PasswordHash, req.CurrentPassword); err != nil {
		return response.Forbidden(c, "Current password is incorrect")
	}

	hashedPassword, err := authutil.HashPassword(req.NewPassword)
	if err != nil {
		return response.InternalServerError(c, "Failed to process password")
	}

	if err := h.db.WithContext(c.UserContext()).Model(&model.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"password_hash": hashedPassword,
		"token_version": gorm.Expr("token_version + 1"),
	}).Error; err != nil {
		return response.InternalServerError(c, "Failed to update password")
	}

	return response.Success(c, fiber.Map{
		"message": "Password changed successfully. Please login again with your new password",
	})
}
