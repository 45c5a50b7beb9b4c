package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-market/model"
	"github.com/sahilchouksey/course-market/utils/middleware"
	"github.com/sahilchouksey/course-market/utils/response"
	"github.com/sahilchouksey/course-market/utils/validation"
)

// UpdateProfileRequest represents a profile update request
type UpdateProfileRequest struct {
	Name      *string `json:"name" validate:"omitempty,min=2,max=100"`
	Phone     *string `json:"phone" validate:"omitempty,max=30"`
	Bio       *string `json:"bio" validate:"omitempty,max=1000"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url,max=500"`
}

// UpdatePreferencesRequest carries any subset of the preference switches
type UpdatePreferencesRequest map[string]bool

// GetProfile retrieves the current user's profile
func (h *AuthHandler) GetProfile(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}
	return response.Success(c, toUserResponse(user))
}

// UpdateProfile updates the current user's profile
func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = validation.SanitizeString(*req.Name)
	}
	if req.Phone != nil {
		updates["phone"] = validation.SanitizeString(*req.Phone)
	}
	if req.Bio != nil {
		updates["bio"] = *req.Bio
	}
	if req.AvatarURL != nil {
		updates["avatar_url"] = *req.AvatarURL
	}

	ctx := c.UserContext()
	if len(updates) > 0 {
		if err := h.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
			return response.InternalServerError(c, "Failed to update profile")
		}
	}

	var updated model.User
	if err := h.db.WithContext(ctx).Where("id = ?", user.ID).First(&updated).Error; err != nil {
		return response.InternalServerError(c, "Failed to load profile")
	}

	return response.Success(c, toUserResponse(&updated))
}

// GetPreferences returns the effective notification preferences
func (h *AuthHandler) GetPreferences(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	prefs, err := h.notificationService.GetPreferences(c.UserContext(), userID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, prefs)
}

// UpdatePreferences merges the given switches into the stored preferences
func (h *AuthHandler) UpdatePreferences(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	var req UpdatePreferencesRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	prefs, err := h.notificationService.UpdatePreferences(c.UserContext(), userID, req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Preferences updated", prefs)
}
