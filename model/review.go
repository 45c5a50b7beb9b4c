package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MinReviewRating = 1
	MaxReviewRating = 5
)

// Review is a user's rating of a course. One per (user, course).
type Review struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_review_user_course" json:"user_id"`
	CourseID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_review_user_course;index" json:"course_id"`
	EnrollmentID uuid.UUID `gorm:"type:uuid" json:"enrollment_id"`
	Rating       float64   `gorm:"not null" json:"rating"`
	Comment      string    `gorm:"type:text" json:"comment"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (r *Review) BeforeCreate(tx *gorm.DB) error {
	assignID(&r.ID)
	return nil
}
