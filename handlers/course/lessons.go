package course

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sahilchouksey/course-market/services"
	"github.com/sahilchouksey/course-market/utils/middleware"
	"github.com/sahilchouksey/course-market/utils/response"
)

// CreateLessonRequest represents the request body for creating a lesson
type CreateLessonRequest struct {
	Title           string `json:"title" validate:"required,min=2,max=255"`
	Order           int    `json:"order" validate:"gte=0"`
	DurationMinutes int    `json:"duration" validate:"gte=0"`
	Content         string `json:"content"`
	VideoURL        string `json:"video_url" validate:"omitempty,url,max=500"`
}

// UpdateLessonRequest represents the request body for updating a lesson
type UpdateLessonRequest struct {
	Title           *string `json:"title" validate:"omitempty,min=2,max=255"`
	Order           *int    `json:"order" validate:"omitempty,gte=0"`
	DurationMinutes *int    `json:"duration" validate:"omitempty,gte=0"`
	Content         *string `json:"content"`
	VideoURL        *string `json:"video_url" validate:"omitempty,max=500"`
}

// ListLessons handles GET /api/v1/courses/:id/lessons
func (h *CourseHandler) ListLessons(c *fiber.Ctx) error {
	courseID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}
	if _, err := h.requireVisibleCourse(c, courseID); err != nil {
		return response.FromError(c, err)
	}

	lessons, err := h.catalogService.ListLessons(c.UserContext(), courseID)
	if err != nil {
		return response.FromError(c, err)
	}

	for i := range lessons {
		lessons[i].Content = ""
		lessons[i].VideoURL = ""
	}
	return response.Success(c, lessons)
}

// GetLesson handles GET /api/v1/lessons/:id. Content is returned to
// enrolled students and admins only.
func (h *CourseHandler) GetLesson(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	lessonID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid lesson ID")
	}

	ctx := c.UserContext()
	lesson, err := h.catalogService.GetLesson(ctx, lessonID)
	if err != nil {
		return response.FromError(c, err)
	}

	if !middleware.IsAdmin(c) {
		enrolled, err := h.enrollmentService.IsEnrolled(ctx, userID, lesson.CourseID)
		if err != nil {
			return response.FromError(c, err)
		}
		if !enrolled {
			return response.Forbidden(c, "Enroll in this course to open its lessons")
		}
	}

	return response.Success(c, lesson)
}

// CreateLesson handles POST /api/v1/courses/:id/lessons
func (h *CourseHandler) CreateLesson(c *fiber.Ctx) error {
	courseID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	var req CreateLessonRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	lesson, err := h.catalogService.CreateLesson(c.UserContext(), courseID, services.LessonInput{
		Title:           req.Title,
		Order:           req.Order,
		DurationMinutes: req.DurationMinutes,
		Content:         req.Content,
		VideoURL:        req.VideoURL,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, lesson)
}

// UpdateLesson handles PUT /api/v1/lessons/:id
func (h *CourseHandler) UpdateLesson(c *fiber.Ctx) error {
	lessonID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid lesson ID")
	}

	var req UpdateLessonRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	lesson, err := h.catalogService.UpdateLesson(c.UserContext(), lessonID, services.LessonUpdate{
		Title:           req.Title,
		Order:           req.Order,
		DurationMinutes: req.DurationMinutes,
		Content:         req.Content,
		VideoURL:        req.VideoURL,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, lesson)
}

// DeleteLesson handles DELETE /api/v1/lessons/:id
func (h *CourseHandler) DeleteLesson(c *fiber.Ctx) error {
	lessonID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid lesson ID")
	}

	if err := h.catalogService.DeleteLesson(c.UserContext(), lessonID); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Lesson deleted", nil)
}
