package model

import (
	"time"

	"github.com/google/uuid"
)

// JWTTokenBlacklist stores revoked token ids (JTI) until their natural expiry
type JWTTokenBlacklist struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Token     string    `gorm:"uniqueIndex;not null;type:varchar(100)" json:"token"`
	UserID    uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	Reason    string    `gorm:"type:varchar(100)" json:"reason"` // logout, password_change, manual_revoke
	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for JWTTokenBlacklist
func (JWTTokenBlacklist) TableName() string {
	return "jwt_token_blacklist"
}
