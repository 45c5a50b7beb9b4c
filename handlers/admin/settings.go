package admin

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-market/services"
	"github.com/sahilchouksey/course-market/utils/response"
)

// SetSettingRequest is the body of PUT /admin/settings/:key
type SetSettingRequest struct {
	Value       string `json:"value"`
	Description string `json:"description"`
	IsPublic    *bool  `json:"is_public"`
}

// GetPublicSettings returns the settings the storefront may read
// GET /settings
func GetPublicSettings(c *fiber.Ctx, settings *services.SettingsService) error {
	values, err := settings.GetPublicSettings(c.UserContext())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, values)
}

// ListSettings retrieves the stored settings and the effective values
// GET /admin/settings
func ListSettings(c *fiber.Ctx, settings *services.SettingsService) error {
	ctx := c.UserContext()

	records, err := settings.ListRecords(ctx)
	if err != nil {
		return response.FromError(c, err)
	}
	effective, err := settings.GetSettings(ctx)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.SuccessWithMessage(c, "Settings retrieved successfully", fiber.Map{
		"records":   records,
		"effective": effective,
	})
}

// GetSetting retrieves the effective value of a setting
// GET /admin/settings/:key
func GetSetting(c *fiber.Ctx, settings *services.SettingsService) error {
	key := c.Params("key")
	value, err := settings.Get(c.UserContext(), key)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Setting retrieved successfully", fiber.Map{
		"key":   key,
		"value": value,
	})
}

// UpdateSetting creates or updates a setting
// PUT /admin/settings/:key
func UpdateSetting(c *fiber.Ctx, settings *services.SettingsService) error {
	var req SetSettingRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	setting, err := settings.Set(c.UserContext(), services.SetSettingInput{
		Key:         c.Params("key"),
		Value:       req.Value,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		return response.FromError(c, err)
	}

	return response.SuccessWithMessage(c, "Setting updated successfully", setting)
}

// DeleteSetting deletes a setting
// DELETE /admin/settings/:key
func DeleteSetting(c *fiber.Ctx, settings *services.SettingsService) error {
	key := c.Params("key")
	if err := settings.Delete(c.UserContext(), key); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Setting deleted successfully", fiber.Map{"key": key})
}
