package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sahilchouksey/course-market/model"
	"github.com/sahilchouksey/course-market/utils/apperror"
	"gorm.io/gorm"
)

// CartService manages the per-user shopping cart
type CartService struct {
	db *gorm.DB
}

// NewCartService creates a new cart service
func NewCartService(db *gorm.DB) *CartService {
	return &CartService{db: db}
}

// CartEntry is a cart item with its course. CourseMissing is set when the
// course was removed after the item was added.
type CartEntry struct {
	Item          model.CartItem `json:"item"`
	Course        *model.Course  `json:"course,omitempty"`
	CourseMissing bool           `json:"course_missing,omitempty"`
}

// Add puts a course in the user's cart
func (s *CartService) Add(ctx context.Context, userID, courseID uuid.UUID) (*model.CartItem, error) {
	db := s.db.WithContext(ctx)

	var course model.Course
	if err := db.Select("id", "status", "price").Where("id = ?", courseID).First(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("course not found")
		}
		return nil, apperror.Internal("failed to load course", err)
	}
	if err := checkPurchasable(&course); err != nil {
		return nil, err
	}

	var existing int64
	if err := db.Model(&model.CartItem{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Count(&existing).Error; err != nil {
		return nil, apperror.Internal("failed to check cart", err)
	}
	if existing > 0 {
		return nil, apperror.DuplicateEntry("course already in cart")
	}

	item := &model.CartItem{
		UserID:   userID,
		CourseID: courseID,
		AddedAt:  time.Now(),
	}
	if err := db.Create(item).Error; err != nil {
		// Lost a race with a concurrent add
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.DuplicateEntry("course already in cart")
		}
		return nil, apperror.Internal("failed to add to cart", err)
	}
	return item, nil
}

// Remove deletes one of the user's cart items by id. Removing an absent
// item is not an error.
func (s *CartService) Remove(ctx context.Context, userID, itemID uuid.UUID) error {
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", itemID, userID).
		Delete(&model.CartItem{}).Error
	if err != nil {
		return apperror.Internal("failed to remove from cart", err)
	}
	return nil
}

// RemoveCourse deletes the cart entry for a course, if any
func (s *CartService) RemoveCourse(ctx context.Context, userID, courseID uuid.UUID) error {
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Delete(&model.CartItem{}).Error
	if err != nil {
		return apperror.Internal("failed to remove from cart", err)
	}
	return nil
}

// Clear empties the cart and returns how many items were removed
func (s *CartService) Clear(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.CartItem{})
	if result.Error != nil {
		return 0, apperror.Internal("failed to clear cart", result.Error)
	}
	return result.RowsAffected, nil
}

// Count returns the number of items in the cart
func (s *CartService) Count(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.CartItem{}).
		Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, apperror.Internal("failed to count cart", err)
	}
	return count, nil
}

// List returns the cart, oldest first, with courses loaded in one query
func (s *CartService) List(ctx context.Context, userID uuid.UUID) ([]CartEntry, error) {
	db := s.db.WithContext(ctx)

	var items []model.CartItem
	if err := db.Where("user_id = ?", userID).Order("added_at ASC").Find(&items).Error; err != nil {
		return nil, apperror.Internal("failed to load cart", err)
	}
	if len(items) == 0 {
		return []CartEntry{}, nil
	}

	courseIDs := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		courseIDs = append(courseIDs, item.CourseID)
	}

	var courses []model.Course
	if err := db.Where("id IN ?", courseIDs).Find(&courses).Error; err != nil {
		return nil, apperror.Internal("failed to load cart courses", err)
	}
	byID := make(map[uuid.UUID]*model.Course, len(courses))
	for i := range courses {
		byID[courses[i].ID] = &courses[i]
	}

	entries := make([]CartEntry, 0, len(items))
	for _, item := range items {
		course, ok := byID[item.CourseID]
		entries = append(entries, CartEntry{
			Item:          item,
			Course:        course,
			CourseMissing: !ok,
		})
	}
	return entries, nil
}

// Total sums the current price of every course still in the catalog
func Total(entries []CartEntry) float64 {
	var total float64
	for _, e := range entries {
		if e.Course != nil {
			total += e.Course.Price
		}
	}
	return total
}
