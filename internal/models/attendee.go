package models

import (
	"time"

	"github.com/google/uuid"
)

// CallStatus is the follow-up call status of an attendee, independent of
// pipeline stage.
type CallStatus string

const (
	CallPending    CallStatus = "pending"
	CallInProgress CallStatus = "in_progress"
	CallCompleted  CallStatus = "completed"
	CallCancelled  CallStatus = "cancelled"
)

// AttendanceStage is the sales-funnel position of an attendance record.
type AttendanceStage string

const (
	StageRegistered   AttendanceStage = "registered"
	StageAttended     AttendanceStage = "attended"
	StageAddedToCart  AttendanceStage = "added_to_cart"
	StageFollowUp     AttendanceStage = "follow_up"
	StageBreakoutRoom AttendanceStage = "breakout_room"
	StageConverted    AttendanceStage = "converted"
)

// PipelineStages lists all stages in funnel order. Consumers rely on every
// stage being present in aggregation output, so iterate this, never a map.
var PipelineStages = []AttendanceStage{
	StageRegistered,
	StageAttended,
	StageAddedToCart,
	StageFollowUp,
	StageBreakoutRoom,
	StageConverted,
}

// StageRank returns the funnel position of a stage, or -1 when unknown.
func StageRank(s AttendanceStage) int {
	for i, stage := range PipelineStages {
		if stage == s {
			return i
		}
	}
	return -1
}

// Attendee is a person who registered interest in one or more webinars,
// distinct from a platform User. Email is the de-duplication key.
type Attendee struct {
	ID               uuid.UUID  `json:"id"`
	Email            string     `json:"email"`
	FullName         string     `json:"full_name"`
	StripeCustomerID *string    `json:"-"`
	CallStatus       CallStatus `json:"call_status"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Attendance links an Attendee to a Webinar with a pipeline stage.
// Exactly one record exists per (webinar, attendee) pair.
type Attendance struct {
	ID         uuid.UUID       `json:"id"`
	WebinarID  uuid.UUID       `json:"webinar_id"`
	AttendeeID uuid.UUID       `json:"attendee_id"`
	Stage      AttendanceStage `json:"stage"`
	AttendedAt *time.Time      `json:"attended_at,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
