package services

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sahilchouksey/course-market/model"
	"github.com/sahilchouksey/course-market/utils/apperror"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EnrollmentService reads enrollments and tracks lesson progress
type EnrollmentService struct {
	db *gorm.DB
}

// NewEnrollmentService creates a new enrollment service
func NewEnrollmentService(db *gorm.DB) *EnrollmentService {
	return &EnrollmentService{db: db}
}

// EnrollmentFilter narrows the admin listing
type EnrollmentFilter struct {
	CourseID *uuid.UUID
	Status   model.EnrollmentStatus
	Limit    int
	Offset   int
}

// ProgressResult is returned after a lesson is marked complete
type ProgressResult struct {
	Enrollment       *model.Enrollment `json:"enrollment"`
	CompletedLessons int64             `json:"completed_lessons"`
	TotalLessons     int64             `json:"total_lessons"`
	// CourseFinished is true once every lesson of the course is done
	CourseFinished bool `json:"course_finished"`
}

// ListForUser returns the user's enrollments with their courses
func (s *EnrollmentService) ListForUser(ctx context.Context, userID uuid.UUID) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	if err := s.db.WithContext(ctx).Preload("Course").
		Where("user_id = ?", userID).
		Order("enrolled_at DESC").
		Find(&enrollments).Error; err != nil {
		return nil, apperror.Internal("failed to list enrollments", err)
	}
	return enrollments, nil
}

// ListAll returns enrollments across users
func (s *EnrollmentService) ListAll(ctx context.Context, filter EnrollmentFilter) ([]model.Enrollment, int64, error) {
	var enrollments []model.Enrollment
	var total int64

	query := s.db.WithContext(ctx).Model(&model.Enrollment{})
	if filter.CourseID != nil {
		query = query.Where("course_id = ?", *filter.CourseID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperror.Internal("failed to count enrollments", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if err := query.Preload("Course").Order("enrolled_at DESC").
		Limit(limit).Offset(filter.Offset).Find(&enrollments).Error; err != nil {
		return nil, 0, apperror.Internal("failed to list enrollments", err)
	}
	return enrollments, total, nil
}

// Get loads an enrollment by id
func (s *EnrollmentService) Get(ctx context.Context, enrollmentID uuid.UUID) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	if err := s.db.WithContext(ctx).Preload("Course").
		Where("id = ?", enrollmentID).First(&enrollment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("enrollment not found")
		}
		return nil, apperror.Internal("failed to load enrollment", err)
	}
	return &enrollment, nil
}

// GetForCourse loads the user's enrollment in a course
func (s *EnrollmentService) GetForCourse(ctx context.Context, userID, courseID uuid.UUID) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Order("enrolled_at ASC").
		First(&enrollment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("enrollment not found")
		}
		return nil, apperror.Internal("failed to load enrollment", err)
	}
	return &enrollment, nil
}

// IsEnrolled reports whether the user has any enrollment in the course
func (s *EnrollmentService) IsEnrolled(ctx context.Context, userID, courseID uuid.UUID) (bool, error) {
	enrolled, err := isEnrolled(s.db.WithContext(ctx), userID, courseID)
	if err != nil {
		return false, apperror.Internal("failed to check enrollment", err)
	}
	return enrolled, nil
}

// CompletedLessonIDs lists the lessons of a course the user has finished
func (s *EnrollmentService) CompletedLessonIDs(ctx context.Context, userID, courseID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := s.db.WithContext(ctx).Model(&model.LessonProgress{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Order("completed_at ASC").
		Pluck("lesson_id", &ids).Error; err != nil {
		return nil, apperror.Internal("failed to load progress", err)
	}
	return ids, nil
}

// CompleteLesson records a finished lesson and recomputes the enrollment's
// progress. Completing the same lesson twice is a no-op. A completed
// enrollment keeps its status and progress.
func (s *EnrollmentService) CompleteLesson(ctx context.Context, userID, lessonID uuid.UUID) (*ProgressResult, error) {
	db := s.db.WithContext(ctx)

	var lesson model.Lesson
	if err := db.Where("id = ?", lessonID).First(&lesson).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("lesson not found")
		}
		return nil, apperror.Internal("failed to load lesson", err)
	}

	enrollment, err := s.GetForCourse(ctx, userID, lesson.CourseID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.PermissionDenied("not enrolled in this course")
		}
		return nil, err
	}

	result := &ProgressResult{Enrollment: enrollment}

	err = db.Transaction(func(tx *gorm.DB) error {
		progress := model.LessonProgress{
			UserID:      userID,
			LessonID:    lesson.ID,
			CourseID:    lesson.CourseID,
			CompletedAt: time.Now(),
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}},
			DoNothing: true,
		}).Create(&progress).Error; err != nil {
			return err
		}

		if err := tx.Model(&model.Lesson{}).Where("course_id = ?", lesson.CourseID).
			Count(&result.TotalLessons).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.LessonProgress{}).
			Where("user_id = ? AND course_id = ?", userID, lesson.CourseID).
			Count(&result.CompletedLessons).Error; err != nil {
			return err
		}

		if enrollment.Status == model.EnrollmentStatusCompleted {
			return nil
		}

		pct := lessonProgress(result.CompletedLessons, result.TotalLessons)
		if err := tx.Model(&model.Enrollment{}).Where("id = ?", enrollment.ID).
			Update("progress", pct).Error; err != nil {
			return err
		}
		enrollment.Progress = pct
		return nil
	})
	if err != nil {
		return nil, classify(err, "failed to record progress")
	}

	result.CourseFinished = result.TotalLessons > 0 && result.CompletedLessons >= result.TotalLessons
	return result, nil
}

// lessonProgress is done/total as a percentage rounded to two decimals
func lessonProgress(done, total int64) float64 {
	if total <= 0 {
		return 0
	}
	pct := float64(done) / float64(total) * 100
	if pct > 100 {
		pct = 100
	}
	return math.Round(pct*100) / 100
}
