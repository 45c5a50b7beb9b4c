package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CourseLevel is the difficulty label shown in the catalog
type CourseLevel string

const (
	LevelBeginner     CourseLevel = "Pemula"
	LevelIntermediate CourseLevel = "Menengah"
	LevelAdvanced     CourseLevel = "Lanjutan"
)

// CourseStatus controls catalog visibility
type CourseStatus string

const (
	CourseStatusDraft     CourseStatus = "draft"
	CourseStatusPublished CourseStatus = "published"
	CourseStatusArchived  CourseStatus = "archived"
)

// Course is a purchasable course in the catalog
type Course struct {
	ID                  uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`
	Title               string         `gorm:"not null" json:"title"`
	Description         string         `gorm:"type:text" json:"description"`
	Category            string         `gorm:"type:varchar(100);index" json:"category"`
	Level               CourseLevel    `gorm:"type:varchar(20);not null" json:"level"`
	Price               float64        `gorm:"not null;default:0" json:"price"`
	Thumbnail           string         `gorm:"type:varchar(500)" json:"thumbnail"`
	Instructor          string         `gorm:"type:varchar(255)" json:"instructor"`
	Duration            string         `gorm:"type:varchar(50)" json:"duration"`
	TotalStudents       int            `gorm:"default:0" json:"total_students"`
	Rating              float64        `gorm:"default:0" json:"rating"`
	Status              CourseStatus   `gorm:"type:varchar(20);default:'draft';index" json:"status"`
	CertificateTemplate string         `gorm:"type:varchar(500)" json:"certificate_template,omitempty"`

	// Relationships
	Lessons []Lesson `gorm:"foreignKey:CourseID" json:"lessons,omitempty"`
}

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	assignID(&c.ID)
	return nil
}

// IsValidCourseLevel reports whether level is one of the known levels
func IsValidCourseLevel(level CourseLevel) bool {
	switch level {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

// IsValidCourseStatus reports whether status is one of the known statuses
func IsValidCourseStatus(status CourseStatus) bool {
	switch status {
	case CourseStatusDraft, CourseStatusPublished, CourseStatusArchived:
		return true
	}
	return false
}

// Lesson is one unit of a course. Order is a sort key only and may repeat.
type Lesson struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	CourseID        uuid.UUID `gorm:"type:uuid;not null;index" json:"course_id"`
	Title           string    `gorm:"not null" json:"title"`
	Order           int       `gorm:"column:sort_order;default:0" json:"order"`
	DurationMinutes int       `gorm:"default:0" json:"duration"`
	Content         string    `gorm:"type:text" json:"content,omitempty"`
	VideoURL        string    `gorm:"type:varchar(500)" json:"video_url,omitempty"`
}

func (l *Lesson) BeforeCreate(tx *gorm.DB) error {
	assignID(&l.ID)
	return nil
}

// LessonProgress records that a user finished a lesson
type LessonProgress struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_lesson_progress_user_lesson" json:"user_id"`
	LessonID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_lesson_progress_user_lesson" json:"lesson_id"`
	CourseID    uuid.UUID `gorm:"type:uuid;not null;index" json:"course_id"`
	CompletedAt time.Time `json:"completed_at"`
}

func (p *LessonProgress) BeforeCreate(tx *gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// TableName specifies the table name for LessonProgress
func (LessonProgress) TableName() string {
	return "lesson_progress"
}
