package certificate

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sahilchouksey/course-market/model"
	"github.com/sahilchouksey/course-market/services"
	"github.com/sahilchouksey/course-market/utils/middleware"
	"github.com/sahilchouksey/course-market/utils/response"
	"github.com/sahilchouksey/course-market/utils/validation"
)

// CertificateHandler handles certificate issuance and lookup
type CertificateHandler struct {
	certificateService *services.CertificateService
	enrollmentService  *services.EnrollmentService
	validator          *validation.Validator
}

// NewCertificateHandler creates a new certificate handler
func NewCertificateHandler(certificateService *services.CertificateService, enrollmentService *services.EnrollmentService) *CertificateHandler {
	return &CertificateHandler{
		certificateService: certificateService,
		enrollmentService:  enrollmentService,
		validator:          validation.NewValidator(),
	}
}

// ClaimCertificateRequest asks for the certificate of a finished course
type ClaimCertificateRequest struct {
	CourseID string `json:"course_id" validate:"required,uuid"`
}

// VerifyResponse is the public view of a certificate
type VerifyResponse struct {
	CertificateNumber string `json:"certificate_number"`
	IssuedAt          string `json:"issued_at"`
	CourseTitle       string `json:"course_title,omitempty"`
	Valid             bool   `json:"valid"`
}

// ListMyCertificates handles GET /api/v1/certificates
func (h *CertificateHandler) ListMyCertificates(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	certs, err := h.certificateService.ListForUser(c.UserContext(), userID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, certs)
}

// GetCertificate handles GET /api/v1/certificates/:id. Only the owner or an
// admin can read it.
func (h *CertificateHandler) GetCertificate(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	certID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid certificate ID")
	}

	cert, err := h.certificateService.Get(c.UserContext(), certID)
	if err != nil {
		return response.FromError(c, err)
	}
	if cert.UserID != userID && !middleware.IsAdmin(c) {
		return response.NotFound(c, "Certificate not found")
	}
	return response.Success(c, cert)
}

// ClaimCertificate handles POST /api/v1/certificates. The enrollment must
// already be completed; lesson completion normally issues it automatically.
func (h *CertificateHandler) ClaimCertificate(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req ClaimCertificateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	ctx := c.UserContext()
	courseID := uuid.MustParse(req.CourseID)

	enrollment, err := h.enrollmentService.GetForCourse(ctx, userID, courseID)
	if err != nil {
		return response.FromError(c, err)
	}
	if enrollment.Status != model.EnrollmentStatusCompleted && enrollment.Progress < 100 {
		return response.Forbidden(c, "Course is not completed yet")
	}

	result, err := h.certificateService.Generate(ctx, services.GenerateCertificateInput{
		UserID:       userID,
		CourseID:     courseID,
		EnrollmentID: enrollment.ID,
	})
	if err != nil {
		return response.FromError(c, err)
	}

	if result.Created {
		return response.Created(c, result)
	}
	return response.Success(c, result)
}

// VerifyCertificate handles GET /api/v1/certificates/verify/:number
func (h *CertificateHandler) VerifyCertificate(c *fiber.Ctx) error {
	cert, err := h.certificateService.GetByNumber(c.UserContext(), c.Params("number"))
	if err != nil {
		return response.FromError(c, err)
	}

	out := VerifyResponse{
		CertificateNumber: cert.CertificateNumber,
		IssuedAt:          cert.IssuedAt.Format("2006-01-02"),
		Valid:             true,
	}
	if cert.Course != nil {
		out.CourseTitle = cert.Course.Title
	}
	return response.Success(c, out)
}
