package upload

import (
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/course-market/services"
	"github.com/sahilchouksey/course-market/utils/middleware"
	"github.com/sahilchouksey/course-market/utils/response"
)

// UploadHandler accepts payment proofs, avatars and certificate templates
type UploadHandler struct {
	uploadService *services.UploadService
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(uploadService *services.UploadService) *UploadHandler {
	return &UploadHandler{uploadService: uploadService}
}

// Upload handles POST /api/v1/uploads
// Multipart form: file (required), purpose (optional, "certificate_template"
// requires a PDF and is admin only)
func (h *UploadHandler) Upload(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	purpose := c.FormValue("purpose")
	if purpose != services.UploadPurposeGeneral && purpose != services.UploadPurposeCertificateTemplate {
		return response.BadRequest(c, "Unknown upload purpose")
	}
	if purpose == services.UploadPurposeCertificateTemplate && !middleware.IsAdmin(c) {
		return response.Forbidden(c, "Admin access required")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return response.BadRequest(c, "File is required")
	}
	if file.Size > services.MaxUploadSize {
		return response.BadRequest(c, "File exceeds the 5MB limit")
	}

	src, err := file.Open()
	if err != nil {
		return response.InternalServerError(c, "Failed to read file")
	}
	defer src.Close()

	// One extra byte lets the service see an oversize body
	data, err := io.ReadAll(io.LimitReader(src, services.MaxUploadSize+1))
	if err != nil {
		return response.InternalServerError(c, "Failed to read file")
	}

	result, err := h.uploadService.Upload(c.UserContext(), data, purpose)
	if err != nil {
		return response.FromError(c, err)
	}

	log.Infow("upload accepted", "user_id", userID, "filename", file.Filename, "key", result.Key)
	return response.Created(c, result)
}
