package course

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sahilchouksey/course-market/model"
	"github.com/sahilchouksey/course-market/services"
	"github.com/sahilchouksey/course-market/utils/middleware"
	"github.com/sahilchouksey/course-market/utils/response"
)

const defaultPassingScore = 70

// QuestionRequest is one question of a quiz
type QuestionRequest struct {
	Prompt       string   `json:"prompt" validate:"required"`
	Options      []string `json:"options" validate:"required,min=2,dive,required"`
	CorrectIndex int      `json:"correct_index" validate:"gte=0"`
}

// QuizRequest creates or replaces a quiz. PassingScore defaults to 70.
type QuizRequest struct {
	LessonID     string            `json:"lesson_id" validate:"omitempty,uuid"`
	Title        string            `json:"title" validate:"required,max=255"`
	PassingScore *int              `json:"passing_score" validate:"omitempty,gte=0,lte=100"`
	Questions    []QuestionRequest `json:"questions" validate:"required,min=1,dive"`
}

// SubmitAttemptRequest holds one option index per question, in order
type SubmitAttemptRequest struct {
	Answers []int `json:"answers" validate:"required"`
}

// QuestionView is a question as shown to students
type QuestionView struct {
	ID           uuid.UUID `json:"id"`
	Prompt       string    `json:"prompt"`
	Options      []string  `json:"options"`
	Order        int       `json:"order"`
	CorrectIndex *int      `json:"correct_index,omitempty"`
}

// QuizView is a quiz without the answer key unless the caller is an admin
type QuizView struct {
	ID           uuid.UUID      `json:"id"`
	CourseID     uuid.UUID      `json:"course_id"`
	LessonID     *uuid.UUID     `json:"lesson_id,omitempty"`
	Title        string         `json:"title"`
	PassingScore int            `json:"passing_score"`
	Questions    []QuestionView `json:"questions"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func toQuizView(quiz *model.Quiz, withAnswers bool) QuizView {
	view := QuizView{
		ID:           quiz.ID,
		CourseID:     quiz.CourseID,
		LessonID:     quiz.LessonID,
		Title:        quiz.Title,
		PassingScore: quiz.PassingScore,
		Questions:    make([]QuestionView, 0, len(quiz.Questions)),
		CreatedAt:    quiz.CreatedAt,
		UpdatedAt:    quiz.UpdatedAt,
	}
	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		qv := QuestionView{
			ID:      q.ID,
			Prompt:  q.Prompt,
			Options: q.OptionList(),
			Order:   q.Order,
		}
		if withAnswers {
			idx := q.CorrectIndex
			qv.CorrectIndex = &idx
		}
		view.Questions = append(view.Questions, qv)
	}
	return view
}

func (req QuizRequest) toInput() services.QuizInput {
	in := services.QuizInput{
		Title:        req.Title,
		PassingScore: defaultPassingScore,
		Questions:    make([]services.QuestionInput, 0, len(req.Questions)),
	}
	if req.PassingScore != nil {
		in.PassingScore = *req.PassingScore
	}
	if req.LessonID != "" {
		lessonID := uuid.MustParse(req.LessonID)
		in.LessonID = &lessonID
	}
	for _, q := range req.Questions {
		in.Questions = append(in.Questions, services.QuestionInput{
			Prompt:       q.Prompt,
			Options:      q.Options,
			CorrectIndex: q.CorrectIndex,
		})
	}
	return in
}

// ListQuizzes handles GET /api/v1/courses/:id/quizzes
func (h *CourseHandler) ListQuizzes(c *fiber.Ctx) error {
	courseID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}
	if _, err := h.requireVisibleCourse(c, courseID); err != nil {
		return response.FromError(c, err)
	}

	quizzes, err := h.quizService.ListForCourse(c.UserContext(), courseID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, quizzes)
}

// GetQuiz handles GET /api/v1/quizzes/:id
func (h *CourseHandler) GetQuiz(c *fiber.Ctx) error {
	quizID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid quiz ID")
	}

	quiz, err := h.quizService.Get(c.UserContext(), quizID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, toQuizView(quiz, middleware.IsAdmin(c)))
}

// CreateQuiz handles POST /api/v1/courses/:id/quizzes
func (h *CourseHandler) CreateQuiz(c *fiber.Ctx) error {
	courseID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	var req QuizRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	quiz, err := h.quizService.Create(c.UserContext(), courseID, req.toInput())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, toQuizView(quiz, true))
}

// UpdateQuiz handles PUT /api/v1/quizzes/:id. The question list is replaced.
func (h *CourseHandler) UpdateQuiz(c *fiber.Ctx) error {
	quizID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid quiz ID")
	}

	var req QuizRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	quiz, err := h.quizService.Update(c.UserContext(), quizID, req.toInput())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, toQuizView(quiz, true))
}

// DeleteQuiz handles DELETE /api/v1/quizzes/:id
func (h *CourseHandler) DeleteQuiz(c *fiber.Ctx) error {
	quizID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid quiz ID")
	}

	if err := h.quizService.Delete(c.UserContext(), quizID); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Quiz deleted", nil)
}

// SubmitAttempt handles POST /api/v1/quizzes/:id/attempts
func (h *CourseHandler) SubmitAttempt(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	quizID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid quiz ID")
	}

	var req SubmitAttemptRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	attempt, err := h.quizService.SubmitAttempt(c.UserContext(), userID, quizID, req.Answers)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, attempt)
}

// ListAttempts handles GET /api/v1/quizzes/:id/attempts
func (h *CourseHandler) ListAttempts(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	quizID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid quiz ID")
	}

	attempts, err := h.quizService.ListAttempts(c.UserContext(), userID, quizID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, attempts)
}
