package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Quiz is a scored set of multiple-choice questions attached to a course and
// optionally to one of its lessons
type Quiz struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	CourseID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"course_id"`
	LessonID     *uuid.UUID     `gorm:"type:uuid;index" json:"lesson_id,omitempty"`
	Title        string         `gorm:"not null" json:"title"`
	PassingScore int            `gorm:"not null" json:"passing_score"`
	Questions    []QuizQuestion `gorm:"foreignKey:QuizID" json:"questions,omitempty"`
}

func (q *Quiz) BeforeCreate(tx *gorm.DB) error {
	assignID(&q.ID)
	return nil
}

// QuizQuestion stores its options as a JSON list of strings
type QuizQuestion struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	QuizID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"quiz_id"`
	Prompt       string         `gorm:"type:text;not null" json:"prompt"`
	Options      datatypes.JSON `gorm:"type:jsonb" json:"options"`
	CorrectIndex int            `json:"correct_index,omitempty"`
	Order        int            `gorm:"column:sort_order;default:0" json:"order"`
}

func (q *QuizQuestion) BeforeCreate(tx *gorm.DB) error {
	assignID(&q.ID)
	return nil
}

// OptionList decodes the options column
func (q *QuizQuestion) OptionList() []string {
	var options []string
	_ = json.Unmarshal(q.Options, &options)
	return options
}

// QuizAttempt is one scored submission
type QuizAttempt struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	QuizID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"quiz_id"`
	Answers   datatypes.JSON `gorm:"type:jsonb" json:"answers"`
	Correct   int            `json:"correct"`
	Total     int            `json:"total"`
	Score     float64        `json:"score"`
	Passed    bool           `json:"passed"`
}

func (a *QuizAttempt) BeforeCreate(tx *gorm.DB) error {
	assignID(&a.ID)
	return nil
}
