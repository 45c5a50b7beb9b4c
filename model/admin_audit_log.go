package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AdminAuditLog records a mutating admin request
type AdminAuditLog struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	AdminID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"admin_id"`
	AdminEmail  string         `gorm:"type:varchar(255)" json:"admin_email"`
	Action      string         `gorm:"type:varchar(100);not null" json:"action"` // e.g. "payment_verify", "settings_update"
	Resource    string         `gorm:"type:varchar(100)" json:"resource"`        // e.g. "payments", "courses"
	ResourceID  string         `gorm:"type:varchar(64)" json:"resource_id"`
	Method      string         `gorm:"type:varchar(10)" json:"method"`
	Path        string         `gorm:"type:varchar(500)" json:"path"`
	StatusCode  int            `json:"status_code"`
	RequestBody datatypes.JSON `gorm:"type:jsonb" json:"request_body,omitempty"`
	IPAddress   string         `gorm:"type:varchar(45)" json:"ip_address"`
	UserAgent   string         `gorm:"type:text" json:"user_agent"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for AdminAuditLog
func (AdminAuditLog) TableName() string {
	return "admin_audit_logs"
}
