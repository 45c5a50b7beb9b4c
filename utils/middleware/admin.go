package middleware

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/course-market/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Request body fields never written to the audit log
var redactedFields = []string{"password", "current_password", "new_password", "token"}

// AdminAuditLog records a mutating admin request after the handler ran.
// Must be mounted after RequireAdmin.
func AdminAuditLog(db *gorm.DB, action, resource string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		admin, ok := GetUser(c)
		if !ok {
			return c.Next()
		}

		// Fiber reuses the request buffer, copy what we need before Next
		body := redactBody(c.Body())
		entry := model.AdminAuditLog{
			AdminID:     admin.ID,
			AdminEmail:  admin.Email,
			Action:      action,
			Resource:    resource,
			ResourceID:  c.Params("id", c.Params("key")),
			Method:      c.Method(),
			Path:        c.Path(),
			RequestBody: body,
			IPAddress:   c.IP(),
			UserAgent:   c.Get(fiber.HeaderUserAgent),
		}

		err := c.Next()
		entry.StatusCode = c.Response().StatusCode()

		if createErr := db.Create(&entry).Error; createErr != nil {
			log.Warnw("failed to write admin audit log", "action", action, "error", createErr)
		}

		return err
	}
}

func redactBody(raw []byte) datatypes.JSON {
	if len(raw) == 0 {
		return nil
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}
	for _, f := range redactedFields {
		if _, ok := fields[f]; ok {
			fields[f] = "[redacted]"
		}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return nil
	}
	return datatypes.JSON(data)
}
