package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NotificationType is the closed set of notification kinds
type NotificationType string

const (
	NotificationTypeCourseUpdate NotificationType = "course_update"
	NotificationTypeNewCourse    NotificationType = "new_course"
	NotificationTypePayment      NotificationType = "payment"
	NotificationTypeEnrollment   NotificationType = "enrollment"
	NotificationTypeCertificate  NotificationType = "certificate"
	NotificationTypeReview       NotificationType = "review"
	NotificationTypePromotion    NotificationType = "promotion"
	NotificationTypeSystem       NotificationType = "system"
)

// IsValidNotificationType reports whether t is a known notification type
func IsValidNotificationType(t NotificationType) bool {
	switch t {
	case NotificationTypeCourseUpdate, NotificationTypeNewCourse, NotificationTypePayment,
		NotificationTypeEnrollment, NotificationTypeCertificate, NotificationTypeReview,
		NotificationTypePromotion, NotificationTypeSystem:
		return true
	}
	return false
}

// Notification is shown in a user's inbox. A nil UserID makes it global.
type Notification struct {
	ID        uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time        `gorm:"index" json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	UserID    *uuid.UUID       `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Title     string           `gorm:"type:varchar(255);not null" json:"title"`
	Message   string           `gorm:"type:text" json:"message"`
	Type      NotificationType `gorm:"type:varchar(30);not null" json:"type"`
	Icon      string           `gorm:"type:varchar(50)" json:"icon,omitempty"`
	Color     string           `gorm:"type:varchar(30)" json:"color,omitempty"`
	RelatedID string           `gorm:"type:varchar(64)" json:"related_id,omitempty"`
	Metadata  datatypes.JSON   `gorm:"type:jsonb" json:"metadata,omitempty"`
	IsRead    bool             `gorm:"default:false;index" json:"is_read"`

	// Broadcast that produced this row, if any
	BroadcastID *uuid.UUID `gorm:"type:uuid;index" json:"-"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	assignID(&n.ID)
	return nil
}

// BroadcastStatus is the state of a fan-out job
type BroadcastStatus string

const (
	BroadcastStatusPending   BroadcastStatus = "pending"
	BroadcastStatusRunning   BroadcastStatus = "running"
	BroadcastStatusCompleted BroadcastStatus = "completed"
	BroadcastStatusFailed    BroadcastStatus = "failed"
)

// NotificationBroadcast is a resumable fan-out of one notification to every
// user whose preference allows it. Cursor is the last user id processed. An
// empty PreferenceKey reaches every user.
type NotificationBroadcast struct {
	ID                 uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
	Title              string           `gorm:"type:varchar(255);not null" json:"title"`
	Message            string           `gorm:"type:text" json:"message"`
	Type               NotificationType `gorm:"type:varchar(30);not null" json:"type"`
	Icon               string           `gorm:"type:varchar(50)" json:"icon,omitempty"`
	Color              string           `gorm:"type:varchar(30)" json:"color,omitempty"`
	PreferenceKey      string           `gorm:"type:varchar(50)" json:"preference_key"`
	AudienceCourseID   *uuid.UUID       `gorm:"type:uuid" json:"audience_course_id,omitempty"` // only users enrolled in this course
	RelatedID          string           `gorm:"type:varchar(64)" json:"related_id,omitempty"`
	Metadata           datatypes.JSON   `gorm:"type:jsonb" json:"metadata,omitempty"`
	Status             BroadcastStatus  `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	Cursor             *uuid.UUID       `gorm:"type:uuid" json:"cursor,omitempty"`
	RecipientsNotified int              `gorm:"default:0" json:"recipients_notified"`
	Attempts           int              `gorm:"default:0" json:"attempts"`
	LastError          string           `gorm:"type:text" json:"last_error,omitempty"`
	CompletedAt        *time.Time       `json:"completed_at,omitempty"`
}

func (b *NotificationBroadcast) BeforeCreate(tx *gorm.DB) error {
	assignID(&b.ID)
	return nil
}
