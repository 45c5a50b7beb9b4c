package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EnrollmentStatus tracks a user's standing in a course
type EnrollmentStatus string

const (
	EnrollmentStatusActive    EnrollmentStatus = "active"
	EnrollmentStatusCompleted EnrollmentStatus = "completed"
	EnrollmentStatusPending   EnrollmentStatus = "pending"
)

// Enrollment grants a user access to a course
type Enrollment struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID        `gorm:"type:uuid;not null;index:idx_enrollment_user_course" json:"user_id"`
	CourseID    uuid.UUID        `gorm:"type:uuid;not null;index:idx_enrollment_user_course;index" json:"course_id"`
	Status      EnrollmentStatus `gorm:"type:varchar(20);default:'active'" json:"status"`
	Progress    float64          `gorm:"default:0" json:"progress"` // 0-100
	EnrolledAt  time.Time        `gorm:"not null" json:"enrolled_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	UpdatedAt   time.Time        `json:"updated_at"`

	Course *Course `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}

func (e *Enrollment) BeforeCreate(tx *gorm.DB) error {
	assignID(&e.ID)
	return nil
}
