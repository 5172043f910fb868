package models

import (
	"time"

	"github.com/google/uuid"
)

// MFASettings holds a user's TOTP enrollment. The secret never leaves the
// server after enable.
type MFASettings struct {
	UserID    uuid.UUID `json:"user_id"`
	Secret    string    `json:"-"`
	Enabled   bool      `json:"enabled"`
	EnabledAt time.Time `json:"enabled_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BackupCode is one single-use recovery code (stored bcrypt-hashed).
type BackupCode struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	CodeHash  string     `json:"-"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// MFA audit actions.
const (
	MFAActionEnabled          = "enabled"
	MFAActionDisabled         = "disabled"
	MFAActionCodesRegenerated = "codes_regenerated"
	MFAActionVerifySuccess    = "verify_success"
	MFAActionVerifyFailure    = "verify_failure"
)

// MFA verification methods.
const (
	MFAMethodTOTP       = "totp"
	MFAMethodBackupCode = "backup_code"
)

// MFAAuditLog is one audit entry for an MFA management or verification event.
type MFAAuditLog struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	Action        string    `json:"action"`
	Method        *string   `json:"method,omitempty"`
	CorrelationID string    `json:"correlation_id"`
	CreatedAt     time.Time `json:"created_at"`
}
