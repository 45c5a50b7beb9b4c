package course

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sahilchouksey/course-market/model"
	"github.com/sahilchouksey/course-market/services"
	"github.com/sahilchouksey/course-market/utils/apperror"
	"github.com/sahilchouksey/course-market/utils/middleware"
	"github.com/sahilchouksey/course-market/utils/response"
	"github.com/sahilchouksey/course-market/utils/validation"
)

// CourseHandler handles courses, lessons and quizzes
type CourseHandler struct {
	catalogService    *services.CatalogService
	quizService       *services.QuizService
	enrollmentService *services.EnrollmentService
	validator         *validation.Validator
}

// NewCourseHandler creates a new course handler
func NewCourseHandler(
	catalogService *services.CatalogService,
	quizService *services.QuizService,
	enrollmentService *services.EnrollmentService,
) *CourseHandler {
	return &CourseHandler{
		catalogService:    catalogService,
		quizService:       quizService,
		enrollmentService: enrollmentService,
		validator:         validation.NewValidator(),
	}
}

// CreateCourseRequest represents the request body for creating a course
type CreateCourseRequest struct {
	Title               string  `json:"title" validate:"required,min=3,max=255"`
	Description         string  `json:"description" validate:"omitempty,max=10000"`
	Category            string  `json:"category" validate:"omitempty,max=100"`
	Level               string  `json:"level" validate:"required,course_level"`
	Price               float64 `json:"price" validate:"gte=0"`
	Thumbnail           string  `json:"thumbnail" validate:"omitempty,max=500"`
	Instructor          string  `json:"instructor" validate:"omitempty,max=255"`
	Duration            string  `json:"duration" validate:"omitempty,max=50"`
	Status              string  `json:"status" validate:"omitempty,course_status"`
	CertificateTemplate string  `json:"certificate_template" validate:"omitempty,max=500"`
}

// UpdateCourseRequest represents the request body for updating a course
type UpdateCourseRequest struct {
	Title               *string  `json:"title" validate:"omitempty,min=3,max=255"`
	Description         *string  `json:"description" validate:"omitempty,max=10000"`
	Category            *string  `json:"category" validate:"omitempty,max=100"`
	Level               *string  `json:"level" validate:"omitempty,course_level"`
	Price               *float64 `json:"price" validate:"omitempty,gte=0"`
	Thumbnail           *string  `json:"thumbnail" validate:"omitempty,max=500"`
	Instructor          *string  `json:"instructor" validate:"omitempty,max=255"`
	Duration            *string  `json:"duration" validate:"omitempty,max=50"`
	Status              *string  `json:"status" validate:"omitempty,course_status"`
	CertificateTemplate *string  `json:"certificate_template" validate:"omitempty,max=500"`
}

// SetStatusRequest publishes, archives or drafts a course
type SetStatusRequest struct {
	Status string `json:"status" validate:"required,course_status"`
}

// visibleTo reports whether the caller may see course. Unpublished courses
// are visible to admins only.
func visibleTo(c *fiber.Ctx, course *model.Course) bool {
	return course.Status == model.CourseStatusPublished || middleware.IsAdmin(c)
}

// ListCourses handles GET /api/v1/courses
func (h *CourseHandler) ListCourses(c *fiber.Ctx) error {
	page, limit, offset := response.ParsePagination(c, 12)

	filter := services.CourseFilter{
		Search:        c.Query("search"),
		Category:      c.Query("category"),
		Level:         model.CourseLevel(c.Query("level")),
		PublishedOnly: !middleware.IsAdmin(c),
		Limit:         limit,
		Offset:        offset,
	}
	if !filter.PublishedOnly {
		filter.Status = model.CourseStatus(c.Query("status"))
	}

	courses, total, err := h.catalogService.ListCourses(c.UserContext(), filter)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Paginated(c, courses, response.CalculatePagination(page, limit, total))
}

// ListCategories handles GET /api/v1/courses/categories
func (h *CourseHandler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.catalogService.Categories(c.UserContext())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, categories)
}

// GetCourse handles GET /api/v1/courses/:id. Lessons are listed without
// their content; see GetLesson.
func (h *CourseHandler) GetCourse(c *fiber.Ctx) error {
	courseID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	ctx := c.UserContext()
	course, err := h.catalogService.GetCourse(ctx, courseID, true)
	if err != nil {
		return response.FromError(c, err)
	}
	if !visibleTo(c, course) {
		return response.NotFound(c, "course not found")
	}

	enrolled := false
	if userID, ok := middleware.GetUserID(c); ok {
		if enrolled, err = h.enrollmentService.IsEnrolled(ctx, userID, courseID); err != nil {
			return response.FromError(c, err)
		}
	}
	if !enrolled && !middleware.IsAdmin(c) {
		for i := range course.Lessons {
			course.Lessons[i].Content = ""
			course.Lessons[i].VideoURL = ""
		}
	}

	return response.Success(c, fiber.Map{
		"course":   course,
		"enrolled": enrolled,
	})
}

// CreateCourse handles POST /api/v1/courses
func (h *CourseHandler) CreateCourse(c *fiber.Ctx) error {
	var req CreateCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	course, err := h.catalogService.CreateCourse(c.UserContext(), services.CourseInput{
		Title:               validation.SanitizeString(req.Title),
		Description:         req.Description,
		Category:            validation.SanitizeString(req.Category),
		Level:               model.CourseLevel(req.Level),
		Price:               req.Price,
		Thumbnail:           req.Thumbnail,
		Instructor:          req.Instructor,
		Duration:            req.Duration,
		Status:              model.CourseStatus(req.Status),
		CertificateTemplate: req.CertificateTemplate,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, course)
}

// UpdateCourse handles PUT /api/v1/courses/:id
func (h *CourseHandler) UpdateCourse(c *fiber.Ctx) error {
	courseID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	var req UpdateCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	update := services.CourseUpdate{
		Title:               req.Title,
		Description:         req.Description,
		Category:            req.Category,
		Price:               req.Price,
		Thumbnail:           req.Thumbnail,
		Instructor:          req.Instructor,
		Duration:            req.Duration,
		CertificateTemplate: req.CertificateTemplate,
	}
	if req.Level != nil {
		level := model.CourseLevel(*req.Level)
		update.Level = &level
	}
	if req.Status != nil {
		status := model.CourseStatus(*req.Status)
		update.Status = &status
	}

	course, err := h.catalogService.UpdateCourse(c.UserContext(), courseID, update)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, course)
}

// SetCourseStatus handles PATCH /api/v1/courses/:id/status
func (h *CourseHandler) SetCourseStatus(c *fiber.Ctx) error {
	courseID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	var req SetStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	course, err := h.catalogService.SetStatus(c.UserContext(), courseID, model.CourseStatus(req.Status))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, course)
}

// DeleteCourse handles DELETE /api/v1/courses/:id
func (h *CourseHandler) DeleteCourse(c *fiber.Ctx) error {
	courseID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	if err := h.catalogService.DeleteCourse(c.UserContext(), courseID); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Course deleted", nil)
}

// requireVisibleCourse loads the course and hides unpublished ones from
// non-admins
func (h *CourseHandler) requireVisibleCourse(c *fiber.Ctx, courseID uuid.UUID) (*model.Course, error) {
	course, err := h.catalogService.GetCourse(c.UserContext(), courseID, false)
	if err != nil {
		return nil, err
	}
	if !visibleTo(c, course) {
		return nil, apperror.NotFound("course not found")
	}
	return course, nil
}
