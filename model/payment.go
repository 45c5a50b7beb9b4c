package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentStatus is the verification state of a payment. Verified and
// rejected are terminal.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusVerified PaymentStatus = "verified"
	PaymentStatusRejected PaymentStatus = "rejected"
)

// Payment is a manual-transfer payment for one course, checked by an admin
type Payment struct {
	ID              uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	UserID          uuid.UUID     `gorm:"type:uuid;not null;index" json:"user_id"`
	CourseID        uuid.UUID     `gorm:"type:uuid;not null;index" json:"course_id"`
	Amount          float64       `gorm:"not null" json:"amount"`
	Status          PaymentStatus `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	PaymentMethod   string        `gorm:"type:varchar(50)" json:"payment_method"`
	InvoiceNumber   string        `gorm:"type:varchar(50);index" json:"invoice_number"`
	ProofURL        string        `gorm:"type:varchar(500)" json:"proof_url,omitempty"`
	EnrollmentID    *uuid.UUID    `gorm:"type:uuid" json:"enrollment_id,omitempty"`
	VerifiedAt      *time.Time    `json:"verified_at,omitempty"`
	RejectedAt      *time.Time    `json:"rejected_at,omitempty"`
	RejectionReason string        `gorm:"type:text" json:"rejection_reason,omitempty"`

	// Loaded on demand; missing when the course was removed
	Course *Course `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// IsPending reports whether the payment still awaits a decision
func (p *Payment) IsPending() bool {
	return p.Status == PaymentStatusPending
}
