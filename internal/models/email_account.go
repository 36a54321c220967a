package models

import "time"

// Email account sync status constants
const (
	SyncStatusIdle    = "idle"
	SyncStatusSyncing = "syncing"
	SyncStatusActive  = "active"
	SyncStatusError   = "error"
)

// EmailAccount represents a connected mailbox. The scheduler only ever touches
// the sync fields; account creation and teardown belong to settings management.
type EmailAccount struct {
	ID             string     `gorm:"column:id;primaryKey"`
	UserID         string     `gorm:"column:user_id;index"`
	Email          string     `gorm:"column:email"`
	Provider       string     `gorm:"column:provider"`
	IMAPHost       *string    `gorm:"column:imap_host"`
	IMAPPort       *int       `gorm:"column:imap_port"`
	SMTPHost       *string    `gorm:"column:smtp_host"`
	SMTPPort       *int       `gorm:"column:smtp_port"`
	AccessToken    *string    `gorm:"column:access_token"`
	RefreshToken   *string    `gorm:"column:refresh_token"`
	TokenExpiresAt *time.Time `gorm:"column:token_expires_at"`
	SyncStatus     string     `gorm:"column:sync_status;index"`
	LastSyncedAt   *time.Time `gorm:"column:last_synced_at"`
	ErrorMessage   *string    `gorm:"column:error_message"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at"`
}

// TableName specifies the table name for GORM
func (EmailAccount) TableName() string {
	return "email_accounts"
}
