package models

import "time"

// PasswordResetToken stores the hash of a one-time reset secret.
type PasswordResetToken struct {
	BaseModel

	AccountType AccountKind `gorm:"size:16;not null;index:idx_reset_account" json:"account_type"`
	AccountID   string      `gorm:"type:uuid;not null;index:idx_reset_account" json:"account_id"`
	TokenHash   string      `gorm:"uniqueIndex;size:64;not null" json:"-"`
	ExpiresAt   time.Time   `gorm:"index" json:"expires_at"`
	UsedAt      *time.Time  `json:"used_at"`
}
