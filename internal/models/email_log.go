package models

import (
	"time"

	"github.com/google/uuid"
)

// Email log statuses.
const (
	EmailStatusSent   = "sent"
	EmailStatusFailed = "failed"
)

// EmailLog records one transactional email for a webinar (confirmation, reminder).
type EmailLog struct {
	ID           uuid.UUID  `json:"id"`
	WebinarID    uuid.UUID  `json:"webinar_id"`
	AttendanceID *uuid.UUID `json:"attendance_id,omitempty"`
	EmailType    string     `json:"email_type"`
	Recipient    string     `json:"recipient"`
	Subject      string     `json:"subject,omitempty"`
	Status       string     `json:"status"` // sent or failed
	SentAt       *time.Time `json:"sent_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
