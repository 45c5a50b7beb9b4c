package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Certificate is issued once per (user, course) when a course is completed
type Certificate struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID            uuid.UUID `gorm:"type:uuid;not null;index:idx_certificate_user_course" json:"user_id"`
	CourseID          uuid.UUID `gorm:"type:uuid;not null;index:idx_certificate_user_course" json:"course_id"`
	EnrollmentID      uuid.UUID `gorm:"type:uuid;index" json:"enrollment_id"`
	CertificateNumber string    `gorm:"type:varchar(64);index" json:"certificate_number"`
	IssuedAt          time.Time `gorm:"not null" json:"issued_at"`
	PDFURL            string    `gorm:"type:varchar(500)" json:"pdf_url"`

	Course *Course `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}

func (c *Certificate) BeforeCreate(tx *gorm.DB) error {
	assignID(&c.ID)
	return nil
}
