package services

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/sahilchouksey/course-market/model"
	"github.com/sahilchouksey/course-market/utils/apperror"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// QuizService manages course quizzes and scores attempts
type QuizService struct {
	db *gorm.DB
}

// NewQuizService creates a new quiz service
func NewQuizService(db *gorm.DB) *QuizService {
	return &QuizService{db: db}
}

// QuestionInput is one multiple-choice question
type QuestionInput struct {
	Prompt       string
	Options      []string
	CorrectIndex int
}

// QuizInput holds a quiz and its full question list
type QuizInput struct {
	LessonID     *uuid.UUID
	Title        string
	PassingScore int
	Questions    []QuestionInput
}

func (in QuizInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return apperror.InvalidArgument("title is required")
	}
	if in.PassingScore < 0 || in.PassingScore > 100 {
		return apperror.InvalidArgument("passing score must be between 0 and 100")
	}
	if len(in.Questions) == 0 {
		return apperror.InvalidArgument("a quiz needs at least one question")
	}
	for i, q := range in.Questions {
		if strings.TrimSpace(q.Prompt) == "" {
			return apperror.InvalidArgument("question %d has no prompt", i+1)
		}
		if len(q.Options) < 2 {
			return apperror.InvalidArgument("question %d needs at least two options", i+1)
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			return apperror.InvalidArgument("question %d has no valid correct option", i+1)
		}
	}
	return nil
}

func buildQuestions(quizID uuid.UUID, inputs []QuestionInput) ([]model.QuizQuestion, error) {
	questions := make([]model.QuizQuestion, 0, len(inputs))
	for i, q := range inputs {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return nil, err
		}
		questions = append(questions, model.QuizQuestion{
			QuizID:       quizID,
			Prompt:       strings.TrimSpace(q.Prompt),
			Options:      datatypes.JSON(options),
			CorrectIndex: q.CorrectIndex,
			Order:        i,
		})
	}
	return questions, nil
}

// checkLesson verifies that lessonID, when set, belongs to courseID
func checkLesson(tx *gorm.DB, courseID uuid.UUID, lessonID *uuid.UUID) error {
	if lessonID == nil {
		return nil
	}
	var count int64
	if err := tx.Model(&model.Lesson{}).
		Where("id = ? AND course_id = ?", *lessonID, courseID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperror.InvalidArgument("lesson does not belong to this course")
	}
	return nil
}

// Create adds a quiz with its questions
func (s *QuizService) Create(ctx context.Context, courseID uuid.UUID, in QuizInput) (*model.Quiz, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	quiz := &model.Quiz{
		CourseID:     courseID,
		LessonID:     in.LessonID,
		Title:        strings.TrimSpace(in.Title),
		PassingScore: in.PassingScore,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var course model.Course
		if err := tx.Select("id").Where("id = ?", courseID).First(&course).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("course not found")
			}
			return err
		}
		if err := checkLesson(tx, courseID, in.LessonID); err != nil {
			return err
		}
		if err := tx.Create(quiz).Error; err != nil {
			return err
		}
		questions, err := buildQuestions(quiz.ID, in.Questions)
		if err != nil {
			return err
		}
		if err := tx.Create(&questions).Error; err != nil {
			return err
		}
		quiz.Questions = questions
		return nil
	})
	if err != nil {
		return nil, classify(err, "failed to create quiz")
	}
	return quiz, nil
}

// Get loads a quiz with its questions in order
func (s *QuizService) Get(ctx context.Context, quizID uuid.UUID) (*model.Quiz, error) {
	var quiz model.Quiz
	err := s.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Where("id = ?", quizID).
		First(&quiz).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("quiz not found")
		}
		return nil, apperror.Internal("failed to load quiz", err)
	}
	return &quiz, nil
}

// ListForCourse returns the quizzes of a course without their questions
func (s *QuizService) ListForCourse(ctx context.Context, courseID uuid.UUID) ([]model.Quiz, error) {
	var quizzes []model.Quiz
	if err := s.db.WithContext(ctx).Where("course_id = ?", courseID).
		Order("created_at ASC").Find(&quizzes).Error; err != nil {
		return nil, apperror.Internal("failed to list quizzes", err)
	}
	return quizzes, nil
}

// Update replaces the quiz fields and its whole question list
func (s *QuizService) Update(ctx context.Context, quizID uuid.UUID, in QuizInput) (*model.Quiz, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	existing, err := s.Get(ctx, quizID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkLesson(tx, existing.CourseID, in.LessonID); err != nil {
			return err
		}
		if err := tx.Model(&model.Quiz{}).Where("id = ?", quizID).Updates(map[string]interface{}{
			"title":         strings.TrimSpace(in.Title),
			"passing_score": in.PassingScore,
			"lesson_id":     in.LessonID,
		}).Error; err != nil {
			return err
		}
		if err := tx.Where("quiz_id = ?", quizID).Delete(&model.QuizQuestion{}).Error; err != nil {
			return err
		}
		questions, err := buildQuestions(quizID, in.Questions)
		if err != nil {
			return err
		}
		return tx.Create(&questions).Error
	})
	if err != nil {
		return nil, classify(err, "failed to update quiz")
	}
	return s.Get(ctx, quizID)
}

// Delete removes a quiz with its questions and attempts
func (s *QuizService) Delete(ctx context.Context, quizID uuid.UUID) error {
	if _, err := s.Get(ctx, quizID); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("quiz_id = ?", quizID).Delete(&model.QuizAttempt{}).Error; err != nil {
			return err
		}
		if err := tx.Where("quiz_id = ?", quizID).Delete(&model.QuizQuestion{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", quizID).Delete(&model.Quiz{}).Error
	})
	if err != nil {
		return classify(err, "failed to delete quiz")
	}
	return nil
}

// SubmitAttempt scores answers (one option index per question, in order)
// and stores the attempt. Only enrolled users may submit.
func (s *QuizService) SubmitAttempt(ctx context.Context, userID, quizID uuid.UUID, answers []int) (*model.QuizAttempt, error) {
	quiz, err := s.Get(ctx, quizID)
	if err != nil {
		return nil, err
	}

	enrolled, err := isEnrolled(s.db.WithContext(ctx), userID, quiz.CourseID)
	if err != nil {
		return nil, apperror.Internal("failed to check enrollment", err)
	}
	if !enrolled {
		return nil, apperror.PermissionDenied("not enrolled in this course")
	}

	if len(answers) != len(quiz.Questions) {
		return nil, apperror.InvalidArgument("expected %d answers, got %d", len(quiz.Questions), len(answers))
	}

	correct := 0
	for i, q := range quiz.Questions {
		if answers[i] == q.CorrectIndex {
			correct++
		}
	}
	total := len(quiz.Questions)
	score := 0.0
	if total > 0 {
		score = math.Round(float64(correct)/float64(total)*100*100) / 100
	}

	encoded, err := json.Marshal(answers)
	if err != nil {
		return nil, apperror.Internal("failed to encode answers", err)
	}

	attempt := &model.QuizAttempt{
		UserID:  userID,
		QuizID:  quizID,
		Answers: datatypes.JSON(encoded),
		Correct: correct,
		Total:   total,
		Score:   score,
		Passed:  score >= float64(quiz.PassingScore),
	}
	if err := s.db.WithContext(ctx).Create(attempt).Error; err != nil {
		return nil, apperror.Internal("failed to save attempt", err)
	}

	log.Infow("quiz attempt scored", "quiz_id", quizID, "user_id", userID,
		"score", score, "passed", attempt.Passed)
	return attempt, nil
}

// ListAttempts returns the user's attempts at a quiz, newest first
func (s *QuizService) ListAttempts(ctx context.Context, userID, quizID uuid.UUID) ([]model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND quiz_id = ?", userID, quizID).
		Order("created_at DESC").
		Find(&attempts).Error; err != nil {
		return nil, apperror.Internal("failed to list attempts", err)
	}
	return attempts, nil
}
