package services

import (
	"context"
	"errors"
	"math"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/sahilchouksey/course-market/model"
	"github.com/sahilchouksey/course-market/utils/apperror"
	"gorm.io/gorm"
)

// ReviewService stores course reviews and keeps Course.rating in sync
type ReviewService struct {
	db *gorm.DB
}

// NewReviewService creates a new review service
func NewReviewService(db *gorm.DB) *ReviewService {
	return &ReviewService{db: db}
}

// UpsertReviewInput is a user's rating of a course
type UpsertReviewInput struct {
	UserID       uuid.UUID
	CourseID     uuid.UUID
	EnrollmentID uuid.UUID
	Rating       float64
	Comment      string
}

// RatingStats summarises the reviews of a course
type RatingStats struct {
	AverageRating      float64       `json:"average_rating"`
	TotalReviews       int64         `json:"total_reviews"`
	RatingDistribution map[int]int64 `json:"rating_distribution"`
}

// Upsert creates or replaces the user's review of a course and recomputes
// the course rating in the same transaction
func (s *ReviewService) Upsert(ctx context.Context, in UpsertReviewInput) (*model.Review, error) {
	if in.Rating < model.MinReviewRating || in.Rating > model.MaxReviewRating {
		return nil, apperror.InvalidArgument("rating must be between %d and %d", model.MinReviewRating, model.MaxReviewRating)
	}

	var review model.Review
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var course model.Course
		if err := tx.Select("id").Where("id = ?", in.CourseID).First(&course).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("course not found")
			}
			return err
		}

		err := tx.Where("user_id = ? AND course_id = ?", in.UserID, in.CourseID).First(&review).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			review = model.Review{
				UserID:       in.UserID,
				CourseID:     in.CourseID,
				EnrollmentID: in.EnrollmentID,
				Rating:       in.Rating,
				Comment:      in.Comment,
			}
			if err := tx.Create(&review).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return apperror.DuplicateEntry("review already exists")
				}
				return err
			}
		case err != nil:
			return err
		default:
			review.Rating = in.Rating
			review.Comment = in.Comment
			review.EnrollmentID = in.EnrollmentID
			if err := tx.Model(&review).Select("rating", "comment", "enrollment_id", "updated_at").
				Updates(&review).Error; err != nil {
				return err
			}
		}

		_, err = recomputeCourseRating(tx, in.CourseID)
		return err
	})
	if err != nil {
		return nil, classify(err, "failed to save review")
	}

	log.Infow("review saved", "review_id", review.ID, "user_id", in.UserID,
		"course_id", in.CourseID, "rating", in.Rating)
	return &review, nil
}

// Delete removes a review. Only its author or an admin may delete it.
func (s *ReviewService) Delete(ctx context.Context, reviewID, actorID uuid.UUID, isAdmin bool) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var review model.Review
		if err := tx.Where("id = ?", reviewID).First(&review).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("review not found")
			}
			return err
		}
		if review.UserID != actorID && !isAdmin {
			return apperror.PermissionDenied("cannot delete another user's review")
		}
		if err := tx.Delete(&review).Error; err != nil {
			return err
		}
		_, err := recomputeCourseRating(tx, review.CourseID)
		return err
	})
	if err != nil {
		return classify(err, "failed to delete review")
	}
	return nil
}

// Get loads a review by id
func (s *ReviewService) Get(ctx context.Context, reviewID uuid.UUID) (*model.Review, error) {
	var review model.Review
	if err := s.db.WithContext(ctx).Where("id = ?", reviewID).First(&review).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("review not found")
		}
		return nil, apperror.Internal("failed to load review", err)
	}
	return &review, nil
}

// GetForUser returns the user's review of a course
func (s *ReviewService) GetForUser(ctx context.Context, userID, courseID uuid.UUID) (*model.Review, error) {
	var review model.Review
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&review).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("review not found")
		}
		return nil, apperror.Internal("failed to load review", err)
	}
	return &review, nil
}

// ListForCourse returns reviews with a public view of their authors
func (s *ReviewService) ListForCourse(ctx context.Context, courseID uuid.UUID, limit, offset int) ([]model.Review, int64, error) {
	var reviews []model.Review
	var total int64

	query := s.db.WithContext(ctx).Model(&model.Review{}).Where("course_id = ?", courseID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperror.Internal("failed to count reviews", err)
	}
	if limit <= 0 {
		limit = 20
	}
	if err := query.
		Preload("User", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name", "avatar_url")
		}).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&reviews).Error; err != nil {
		return nil, 0, apperror.Internal("failed to list reviews", err)
	}
	return reviews, total, nil
}

// RatingStats computes the average, count and per-star distribution fresh
// from the reviews table
func (s *ReviewService) RatingStats(ctx context.Context, courseID uuid.UUID) (*RatingStats, error) {
	var ratings []float64
	if err := s.db.WithContext(ctx).Model(&model.Review{}).
		Where("course_id = ?", courseID).
		Pluck("rating", &ratings).Error; err != nil {
		return nil, apperror.Internal("failed to load ratings", err)
	}

	stats := &RatingStats{
		TotalReviews:       int64(len(ratings)),
		RatingDistribution: map[int]int64{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
	}
	var sum float64
	for _, r := range ratings {
		sum += r
		bucket := int(math.Round(r))
		if bucket < model.MinReviewRating {
			bucket = model.MinReviewRating
		}
		if bucket > model.MaxReviewRating {
			bucket = model.MaxReviewRating
		}
		stats.RatingDistribution[bucket]++
	}
	if len(ratings) > 0 {
		stats.AverageRating = roundRating(sum / float64(len(ratings)))
	}
	return stats, nil
}

// recomputeCourseRating rewrites Course.rating from every review of the
// course and returns the new value
func recomputeCourseRating(tx *gorm.DB, courseID uuid.UUID) (float64, error) {
	var agg struct {
		Total int64
		Sum   float64
	}
	if err := tx.Model(&model.Review{}).
		Select("COUNT(*) AS total, COALESCE(SUM(rating), 0) AS sum").
		Where("course_id = ?", courseID).
		Scan(&agg).Error; err != nil {
		return 0, err
	}

	var rating float64
	if agg.Total > 0 {
		rating = roundRating(agg.Sum / float64(agg.Total))
	}
	err := tx.Model(&model.Course{}).Where("id = ?", courseID).
		UpdateColumn("rating", rating).Error
	return rating, err
}

// roundRating rounds to one decimal place
func roundRating(v float64) float64 {
	return math.Round(v*10) / 10
}
