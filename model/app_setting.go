package model

import "time"

// AppSetting is one key/value site setting. Values are stored as strings
// without schema validation.
type AppSetting struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Key         string    `gorm:"uniqueIndex;not null;type:varchar(100)" json:"key"`
	Value       string    `gorm:"type:text;not null" json:"value"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	IsPublic    bool      `gorm:"default:true" json:"is_public"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for AppSetting
func (AppSetting) TableName() string {
	return "app_settings"
}

// Setting keys with built-in defaults
const (
	SettingSiteName          = "site_name"
	SettingContactEmail      = "contact_email"
	SettingContactPhone      = "contact_phone"
	SettingBankName          = "bank_name"
	SettingBankAccountNumber = "bank_account_number"
	SettingBankAccountName   = "bank_account_name"
	SettingCurrency          = "currency"
	SettingMaintenanceMode   = "maintenance_mode"
)

// DefaultSettings returns the values used when a key was never stored
func DefaultSettings() map[string]string {
	return map[string]string{
		SettingSiteName:          "Course Market",
		SettingContactEmail:      "support@coursemarket.id",
		SettingContactPhone:      "+62 812 0000 0000",
		SettingBankName:          "Bank Central Asia",
		SettingBankAccountNumber: "1234567890",
		SettingBankAccountName:   "PT Course Market Indonesia",
		SettingCurrency:          "IDR",
		SettingMaintenanceMode:   "false",
	}
}
