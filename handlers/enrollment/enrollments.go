package enrollment

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sahilchouksey/course-market/model"
	"github.com/sahilchouksey/course-market/services"
	"github.com/sahilchouksey/course-market/utils/middleware"
	"github.com/sahilchouksey/course-market/utils/response"
)

// EnrollmentHandler handles enrollments and lesson progress
type EnrollmentHandler struct {
	enrollmentService  *services.EnrollmentService
	certificateService *services.CertificateService
}

// NewEnrollmentHandler creates a new enrollment handler
func NewEnrollmentHandler(enrollmentService *services.EnrollmentService, certificateService *services.CertificateService) *EnrollmentHandler {
	return &EnrollmentHandler{
		enrollmentService:  enrollmentService,
		certificateService: certificateService,
	}
}

// CompleteLessonResponse is the progress after a lesson, plus the
// certificate when the lesson finished the course
type CompleteLessonResponse struct {
	*services.ProgressResult
	Certificate *model.Certificate `json:"certificate,omitempty"`
}

// ListMyEnrollments handles GET /api/v1/enrollments
func (h *EnrollmentHandler) ListMyEnrollments(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	enrollments, err := h.enrollmentService.ListForUser(c.UserContext(), userID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, enrollments)
}

// GetCourseProgress handles GET /api/v1/enrollments/courses/:course_id
func (h *EnrollmentHandler) GetCourseProgress(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	courseID, err := uuid.Parse(c.Params("course_id"))
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	ctx := c.UserContext()
	enrollment, err := h.enrollmentService.GetForCourse(ctx, userID, courseID)
	if err != nil {
		return response.FromError(c, err)
	}

	completed, err := h.enrollmentService.CompletedLessonIDs(ctx, userID, courseID)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, fiber.Map{
		"enrollment":        enrollment,
		"completed_lessons": completed,
	})
}

// CompleteLesson handles POST /api/v1/lessons/:id/complete. Finishing the
// last lesson issues the certificate.
func (h *EnrollmentHandler) CompleteLesson(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	lessonID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid lesson ID")
	}

	ctx := c.UserContext()
	progress, err := h.enrollmentService.CompleteLesson(ctx, userID, lessonID)
	if err != nil {
		return response.FromError(c, err)
	}

	out := CompleteLessonResponse{ProgressResult: progress}
	if progress.CourseFinished {
		result, err := h.certificateService.Generate(ctx, services.GenerateCertificateInput{
			UserID:       userID,
			CourseID:     progress.Enrollment.CourseID,
			EnrollmentID: progress.Enrollment.ID,
		})
		if err != nil {
			return response.FromError(c, err)
		}
		out.Certificate = result.Certificate
		if result.Created {
			progress.Enrollment.Status = model.EnrollmentStatusCompleted
			progress.Enrollment.Progress = 100
		}
	}

	return response.Success(c, out)
}

// ListEnrollments handles GET /api/v1/admin/enrollments
func (h *EnrollmentHandler) ListEnrollments(c *fiber.Ctx) error {
	page, limit, offset := response.ParsePagination(c, 20)

	filter := services.EnrollmentFilter{
		Status: model.EnrollmentStatus(c.Query("status")),
		Limit:  limit,
		Offset: offset,
	}
	if raw := c.Query("course_id"); raw != "" {
		courseID, err := uuid.Parse(raw)
		if err != nil {
			return response.BadRequest(c, "Invalid course ID")
		}
		filter.CourseID = &courseID
	}

	enrollments, total, err := h.enrollmentService.ListAll(c.UserContext(), filter)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Paginated(c, enrollments, response.CalculatePagination(page, limit, total))
}
