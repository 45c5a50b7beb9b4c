package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/sahilchouksey/course-market/model"
	"github.com/sahilchouksey/course-market/utils/apperror"
	"github.com/sahilchouksey/course-market/utils/textutil"
	"gorm.io/gorm"
)

const lessonExcerptLength = 140

// CatalogService manages courses and lessons
type CatalogService struct {
	db       *gorm.DB
	notifier *NotificationService
}

// NewCatalogService creates a new catalog service. notifier may be nil.
func NewCatalogService(db *gorm.DB, notifier *NotificationService) *CatalogService {
	return &CatalogService{db: db, notifier: notifier}
}

// CourseFilter narrows a course listing
type CourseFilter struct {
	Search        string
	Category      string
	Level         model.CourseLevel
	Status        model.CourseStatus
	PublishedOnly bool
	Limit         int
	Offset        int
}

// CourseInput holds the writable course fields
type CourseInput struct {
	Title               string
	Description         string
	Category            string
	Level               model.CourseLevel
	Price               float64
	Thumbnail           string
	Instructor          string
	Duration            string
	Status              model.CourseStatus
	CertificateTemplate string
}

// CourseUpdate changes only the non-nil fields
type CourseUpdate struct {
	Title               *string
	Description         *string
	Category            *string
	Level               *model.CourseLevel
	Price               *float64
	Thumbnail           *string
	Instructor          *string
	Duration            *string
	Status              *model.CourseStatus
	CertificateTemplate *string
}

// LessonInput holds the writable lesson fields
type LessonInput struct {
	Title           string
	Order           int
	DurationMinutes int
	Content         string
	VideoURL        string
}

// LessonUpdate changes only the non-nil fields
type LessonUpdate struct {
	Title           *string
	Order           *int
	DurationMinutes *int
	Content         *string
	VideoURL        *string
}

// ListCourses returns courses matching the filter, newest first
func (s *CatalogService) ListCourses(ctx context.Context, filter CourseFilter) ([]model.Course, int64, error) {
	var courses []model.Course
	var total int64

	query := s.db.WithContext(ctx).Model(&model.Course{})

	if filter.PublishedOnly {
		query = query.Where("status = ?", model.CourseStatusPublished)
	} else if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Level != "" {
		query = query.Where("level = ?", filter.Level)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(instructor) LIKE ?",
			pattern, pattern, pattern)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperror.Internal("failed to count courses", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if err := query.Order("created_at DESC").Limit(limit).Offset(filter.Offset).Find(&courses).Error; err != nil {
		return nil, 0, apperror.Internal("failed to list courses", err)
	}
	return courses, total, nil
}

// Categories lists the distinct categories of published courses
func (s *CatalogService) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := s.db.WithContext(ctx).Model(&model.Course{}).
		Where("status = ? AND category <> ''", model.CourseStatusPublished).
		Distinct("category").
		Order("category ASC").
		Pluck("category", &categories).Error; err != nil {
		return nil, apperror.Internal("failed to list categories", err)
	}
	return categories, nil
}

// GetCourse loads a course, optionally with its lessons in display order
func (s *CatalogService) GetCourse(ctx context.Context, courseID uuid.UUID, withLessons bool) (*model.Course, error) {
	query := s.db.WithContext(ctx)
	if withLessons {
		query = query.Preload("Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, created_at ASC")
		})
	}

	var course model.Course
	if err := query.Where("id = ?", courseID).First(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("course not found")
		}
		return nil, apperror.Internal("failed to load course", err)
	}
	return &course, nil
}

// CreateCourse adds a course. Courses start as drafts unless a status is given.
func (s *CatalogService) CreateCourse(ctx context.Context, in CourseInput) (*model.Course, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, apperror.InvalidArgument("title is required")
	}
	if !model.IsValidCourseLevel(in.Level) {
		return nil, apperror.InvalidArgument("invalid course level %q", in.Level)
	}
	if in.Price < 0 {
		return nil, apperror.InvalidArgument("price cannot be negative")
	}
	status := in.Status
	if status == "" {
		status = model.CourseStatusDraft
	}
	if !model.IsValidCourseStatus(status) {
		return nil, apperror.InvalidArgument("invalid course status %q", status)
	}

	course := &model.Course{
		Title:               strings.TrimSpace(in.Title),
		Description:         in.Description,
		Category:            in.Category,
		Level:               in.Level,
		Price:               in.Price,
		Thumbnail:           in.Thumbnail,
		Instructor:          in.Instructor,
		Duration:            in.Duration,
		Status:              status,
		CertificateTemplate: in.CertificateTemplate,
	}
	if err := s.db.WithContext(ctx).Create(course).Error; err != nil {
		return nil, apperror.Internal("failed to create course", err)
	}

	log.Infow("course created", "course_id", course.ID, "title", course.Title, "status", course.Status)

	if course.Status == model.CourseStatusPublished {
		s.announceCourse(ctx, course)
	}
	return course, nil
}

// UpdateCourse applies the non-nil fields. Moving a course to published
// announces it to users who want new-course notifications.
func (s *CatalogService) UpdateCourse(ctx context.Context, courseID uuid.UUID, in CourseUpdate) (*model.Course, error) {
	course, err := s.GetCourse(ctx, courseID, false)
	if err != nil {
		return nil, err
	}
	wasPublished := course.Status == model.CourseStatusPublished

	updates := map[string]interface{}{}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, apperror.InvalidArgument("title is required")
		}
		updates["title"] = title
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.Category != nil {
		updates["category"] = *in.Category
	}
	if in.Level != nil {
		if !model.IsValidCourseLevel(*in.Level) {
			return nil, apperror.InvalidArgument("invalid course level %q", *in.Level)
		}
		updates["level"] = *in.Level
	}
	if in.Price != nil {
		if *in.Price < 0 {
			return nil, apperror.InvalidArgument("price cannot be negative")
		}
		updates["price"] = *in.Price
	}
	if in.Thumbnail != nil {
		updates["thumbnail"] = *in.Thumbnail
	}
	if in.Instructor != nil {
		updates["instructor"] = *in.Instructor
	}
	if in.Duration != nil {
		updates["duration"] = *in.Duration
	}
	if in.Status != nil {
		if !model.IsValidCourseStatus(*in.Status) {
			return nil, apperror.InvalidArgument("invalid course status %q", *in.Status)
		}
		updates["status"] = *in.Status
	}
	if in.CertificateTemplate != nil {
		updates["certificate_template"] = *in.CertificateTemplate
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&model.Course{}).Where("id = ?", courseID).
			Updates(updates).Error; err != nil {
			return nil, apperror.Internal("failed to update course", err)
		}
	}

	course, err = s.GetCourse(ctx, courseID, false)
	if err != nil {
		return nil, err
	}
	if !wasPublished && course.Status == model.CourseStatusPublished {
		s.announceCourse(ctx, course)
	}
	return course, nil
}

// SetStatus publishes, archives or unpublishes a course
func (s *CatalogService) SetStatus(ctx context.Context, courseID uuid.UUID, status model.CourseStatus) (*model.Course, error) {
	return s.UpdateCourse(ctx, courseID, CourseUpdate{Status: &status})
}

// DeleteCourse removes a course and its dependent catalog rows. Courses
// that anyone paid for or enrolled in must be archived instead.
func (s *CatalogService) DeleteCourse(ctx context.Context, courseID uuid.UUID) error {
	if _, err := s.GetCourse(ctx, courseID, false); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var enrollments, payments int64
		if err := tx.Model(&model.Enrollment{}).Where("course_id = ?", courseID).Count(&enrollments).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Payment{}).Where("course_id = ?", courseID).Count(&payments).Error; err != nil {
			return err
		}
		if enrollments > 0 || payments > 0 {
			return apperror.InvalidArgument("course has %d enrollments and %d payments; archive it instead", enrollments, payments)
		}

		quizIDs := tx.Model(&model.Quiz{}).Select("id").Where("course_id = ?", courseID)
		if err := tx.Where("quiz_id IN (?)", quizIDs).Delete(&model.QuizAttempt{}).Error; err != nil {
			return err
		}
		if err := tx.Where("quiz_id IN (?)", quizIDs).Delete(&model.QuizQuestion{}).Error; err != nil {
			return err
		}
		for _, dependent := range []interface{}{
			&model.Quiz{}, &model.LessonProgress{}, &model.Lesson{}, &model.CartItem{}, &model.Review{},
		} {
			if err := tx.Where("course_id = ?", courseID).Delete(dependent).Error; err != nil {
				return err
			}
		}
		return tx.Where("id = ?", courseID).Delete(&model.Course{}).Error
	})
	if err != nil {
		return classify(err, "failed to delete course")
	}

	log.Infow("course deleted", "course_id", courseID)
	return nil
}

// ListLessons returns the lessons of a course in display order
func (s *CatalogService) ListLessons(ctx context.Context, courseID uuid.UUID) ([]model.Lesson, error) {
	var lessons []model.Lesson
	if err := s.db.WithContext(ctx).Where("course_id = ?", courseID).
		Order("sort_order ASC, created_at ASC").
		Find(&lessons).Error; err != nil {
		return nil, apperror.Internal("failed to list lessons", err)
	}
	return lessons, nil
}

// GetLesson loads a lesson by id
func (s *CatalogService) GetLesson(ctx context.Context, lessonID uuid.UUID) (*model.Lesson, error) {
	var lesson model.Lesson
	if err := s.db.WithContext(ctx).Where("id = ?", lessonID).First(&lesson).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("lesson not found")
		}
		return nil, apperror.Internal("failed to load lesson", err)
	}
	return &lesson, nil
}

// CreateLesson adds a lesson. Enrolled students of a published course are
// told about it.
func (s *CatalogService) CreateLesson(ctx context.Context, courseID uuid.UUID, in LessonInput) (*model.Lesson, error) {
	course, err := s.GetCourse(ctx, courseID, false)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, apperror.InvalidArgument("title is required")
	}
	if in.DurationMinutes < 0 {
		return nil, apperror.InvalidArgument("duration cannot be negative")
	}

	lesson := &model.Lesson{
		CourseID:        courseID,
		Title:           strings.TrimSpace(in.Title),
		Order:           in.Order,
		DurationMinutes: in.DurationMinutes,
		Content:         in.Content,
		VideoURL:        in.VideoURL,
	}
	if err := s.db.WithContext(ctx).Create(lesson).Error; err != nil {
		return nil, apperror.Internal("failed to create lesson", err)
	}

	if course.Status == model.CourseStatusPublished {
		message := fmt.Sprintf("New lesson in %s: %s", course.Title, lesson.Title)
		if excerpt := textutil.Excerpt(lesson.Content, lessonExcerptLength); excerpt != "" {
			message += "\n" + excerpt
		}
		s.notifier.TryBroadcast(ctx, NotificationInput{
			Title:     "New lesson available",
			Message:   message,
			Type:      model.NotificationTypeCourseUpdate,
			Icon:      "book-open",
			Color:     "blue",
			RelatedID: course.ID.String(),
			Metadata: map[string]interface{}{
				"lesson_id": lesson.ID.String(),
			},
		}, model.PreferenceCourseUpdates, &course.ID)
	}
	return lesson, nil
}

// UpdateLesson applies the non-nil fields
func (s *CatalogService) UpdateLesson(ctx context.Context, lessonID uuid.UUID, in LessonUpdate) (*model.Lesson, error) {
	if _, err := s.GetLesson(ctx, lessonID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, apperror.InvalidArgument("title is required")
		}
		updates["title"] = title
	}
	if in.Order != nil {
		updates["sort_order"] = *in.Order
	}
	if in.DurationMinutes != nil {
		if *in.DurationMinutes < 0 {
			return nil, apperror.InvalidArgument("duration cannot be negative")
		}
		updates["duration_minutes"] = *in.DurationMinutes
	}
	if in.Content != nil {
		updates["content"] = *in.Content
	}
	if in.VideoURL != nil {
		updates["video_url"] = *in.VideoURL
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&model.Lesson{}).Where("id = ?", lessonID).
			Updates(updates).Error; err != nil {
			return nil, apperror.Internal("failed to update lesson", err)
		}
	}
	return s.GetLesson(ctx, lessonID)
}

// DeleteLesson removes a lesson and its progress rows. Quizzes attached to
// the lesson stay on the course.
func (s *CatalogService) DeleteLesson(ctx context.Context, lessonID uuid.UUID) error {
	if _, err := s.GetLesson(ctx, lessonID); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("lesson_id = ?", lessonID).Delete(&model.LessonProgress{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Quiz{}).Where("lesson_id = ?", lessonID).
			Update("lesson_id", nil).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", lessonID).Delete(&model.Lesson{}).Error
	})
	if err != nil {
		return classify(err, "failed to delete lesson")
	}
	return nil
}

// ReconcileCourseAggregates recomputes total_students and rating for every
// course from the enrollments and reviews tables. Returns how many courses
// changed.
func (s *CatalogService) ReconcileCourseAggregates(ctx context.Context) (int, error) {
	var courses []model.Course
	if err := s.db.WithContext(ctx).Select("id", "total_students", "rating").Find(&courses).Error; err != nil {
		return 0, apperror.Internal("failed to load courses", err)
	}

	changed := 0
	for _, course := range courses {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var students int64
			if err := tx.Model(&model.Enrollment{}).Where("course_id = ?", course.ID).
				Distinct("user_id").Count(&students).Error; err != nil {
				return err
			}
			rating, err := recomputeCourseRating(tx, course.ID)
			if err != nil {
				return err
			}
			if int(students) != course.TotalStudents {
				if err := tx.Model(&model.Course{}).Where("id = ?", course.ID).
					UpdateColumn("total_students", students).Error; err != nil {
					return err
				}
			}
			if int(students) != course.TotalStudents || rating != course.Rating {
				changed++
			}
			return nil
		})
		if err != nil {
			return changed, apperror.Internal("failed to reconcile course", err)
		}
	}
	return changed, nil
}

// announceCourse fans a new-course notification out to every user who has
// not opted out
func (s *CatalogService) announceCourse(ctx context.Context, course *model.Course) {
	s.notifier.TryBroadcast(ctx, NotificationInput{
		Title:     "New course available",
		Message:   fmt.Sprintf("%s is now open for enrollment.", course.Title),
		Type:      model.NotificationTypeNewCourse,
		Icon:      "sparkles",
		Color:     "purple",
		RelatedID: course.ID.String(),
		Metadata: map[string]interface{}{
			"category": course.Category,
			"level":    string(course.Level),
			"price":    course.Price,
		},
	}, model.PreferenceNewCourses, nil)
}
