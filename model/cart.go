package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CartItem is a course a user intends to buy. At most one per (user, course).
type CartItem struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cart_user_course" json:"user_id"`
	CourseID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cart_user_course" json:"course_id"`
	AddedAt  time.Time `gorm:"not null" json:"added_at"`
}

func (c *CartItem) BeforeCreate(tx *gorm.DB) error {
	assignID(&c.ID)
	return nil
}

// TableName specifies the table name for CartItem
func (CartItem) TableName() string {
	return "cart_items"
}
