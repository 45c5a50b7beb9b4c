package review

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sahilchouksey/course-market/services"
	"github.com/sahilchouksey/course-market/utils/apperror"
	"github.com/sahilchouksey/course-market/utils/middleware"
	"github.com/sahilchouksey/course-market/utils/response"
	"github.com/sahilchouksey/course-market/utils/validation"
)

// ReviewHandler handles course reviews
type ReviewHandler struct {
	reviewService     *services.ReviewService
	enrollmentService *services.EnrollmentService
	validator         *validation.Validator
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(reviewService *services.ReviewService, enrollmentService *services.EnrollmentService) *ReviewHandler {
	return &ReviewHandler{
		reviewService:     reviewService,
		enrollmentService: enrollmentService,
		validator:         validation.NewValidator(),
	}
}

// UpsertReviewRequest represents the request body for rating a course.
// The range check lives in the service so the error kind is consistent.
type UpsertReviewRequest struct {
	Rating  float64 `json:"rating"`
	Comment string  `json:"comment" validate:"omitempty,max=2000"`
}

// ListCourseReviews handles GET /api/v1/courses/:id/reviews
func (h *ReviewHandler) ListCourseReviews(c *fiber.Ctx) error {
	courseID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	page, limit, offset := response.ParsePagination(c, 10)
	ctx := c.UserContext()

	reviews, total, err := h.reviewService.ListForCourse(ctx, courseID, limit, offset)
	if err != nil {
		return response.FromError(c, err)
	}

	stats, err := h.reviewService.RatingStats(ctx, courseID)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, fiber.Map{
		"reviews":    reviews,
		"stats":      stats,
		"pagination": response.CalculatePagination(page, limit, total),
	})
}

// GetMyReview handles GET /api/v1/courses/:id/reviews/me
func (h *ReviewHandler) GetMyReview(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	courseID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	review, err := h.reviewService.GetForUser(c.UserContext(), userID, courseID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, review)
}

// UpsertReview handles PUT /api/v1/courses/:id/reviews. Only enrolled
// students can review a course; a second submission replaces the first.
func (h *ReviewHandler) UpsertReview(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	courseID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	var req UpsertReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	ctx := c.UserContext()
	enrollment, err := h.enrollmentService.GetForCourse(ctx, userID, courseID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return response.FromError(c, apperror.PermissionDenied("only enrolled students can review this course"))
		}
		return response.FromError(c, err)
	}

	review, err := h.reviewService.Upsert(ctx, services.UpsertReviewInput{
		UserID:       userID,
		CourseID:     courseID,
		EnrollmentID: enrollment.ID,
		Rating:       req.Rating,
		Comment:      validation.SanitizeString(req.Comment),
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, review)
}

// DeleteReview handles DELETE /api/v1/reviews/:id
func (h *ReviewHandler) DeleteReview(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	reviewID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid review ID")
	}

	if err := h.reviewService.Delete(c.UserContext(), reviewID, userID, middleware.IsAdmin(c)); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Review deleted", nil)
}
