package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// Notification preference keys, matching the JSON field names in NotificationPreferences
const (
	PreferenceCourseUpdates = "courseUpdates"
	PreferenceNewCourses    = "newCourses"
	PreferencePromotions    = "promotions"
)

// User represents a registered user in the system
type User struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"` // Never expose password in JSON
	Name         string         `gorm:"not null" json:"name"`
	Role         string         `gorm:"type:varchar(20);default:'student'" json:"role"` // student, admin
	Phone        string         `gorm:"type:varchar(30)" json:"phone,omitempty"`
	Bio          string         `gorm:"type:text" json:"bio,omitempty"`
	AvatarURL    string         `gorm:"type:varchar(500)" json:"avatar_url,omitempty"`
	TokenVersion int            `gorm:"default:0" json:"-"` // Increment to invalidate all user tokens

	// Null when the user never saved preferences
	NotificationPreferences datatypes.JSON `gorm:"type:jsonb" json:"notification_preferences,omitempty"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	assignID(&u.ID)
	return nil
}

// IsAdmin reports whether the user has the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// NotificationPreferences holds the three opt-out switches. A nil field means
// the user never set it, which counts as enabled.
type NotificationPreferences struct {
	CourseUpdates *bool `json:"courseUpdates,omitempty"`
	NewCourses    *bool `json:"newCourses,omitempty"`
	Promotions    *bool `json:"promotions,omitempty"`
}

// Preferences decodes the stored preferences. Missing or unreadable data
// yields an empty set, which allows everything.
func (u *User) Preferences() NotificationPreferences {
	var prefs NotificationPreferences
	if len(u.NotificationPreferences) == 0 {
		return prefs
	}
	_ = json.Unmarshal(u.NotificationPreferences, &prefs)
	return prefs
}

// SetPreferences encodes prefs into the JSON column
func (u *User) SetPreferences(prefs NotificationPreferences) error {
	data, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	u.NotificationPreferences = datatypes.JSON(data)
	return nil
}

// Allows reports whether the given preference key is enabled. Unknown keys
// and unset values default to true.
func (p NotificationPreferences) Allows(key string) bool {
	var v *bool
	switch key {
	case PreferenceCourseUpdates:
		v = p.CourseUpdates
	case PreferenceNewCourses:
		v = p.NewCourses
	case PreferencePromotions:
		v = p.Promotions
	}
	return v == nil || *v
}

// IsValidPreferenceKey reports whether key names one of the known switches
func IsValidPreferenceKey(key string) bool {
	switch key {
	case PreferenceCourseUpdates, PreferenceNewCourses, PreferencePromotions:
		return true
	}
	return false
}
