package models

import (
	"time"

	"github.com/google/uuid"
)

// WebinarStatus is the lifecycle status of a webinar.
type WebinarStatus string

const (
	StatusScheduled   WebinarStatus = "scheduled"
	StatusWaitingRoom WebinarStatus = "waiting_room"
	StatusLive        WebinarStatus = "live"
	StatusEnded       WebinarStatus = "ended"
	StatusCancelled   WebinarStatus = "cancelled"
)

// CTAType is the call-to-action kind shown to attendees.
type CTAType string

const (
	CTABuyNow   CTAType = "buy_now"
	CTABookCall CTAType = "book_a_call"
)

// Webinar represents a webinar session owned by a presenter.
type Webinar struct {
	ID              uuid.UUID     `json:"id"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	StartsAt        time.Time     `json:"starts_at"`
	DurationMinutes int           `json:"duration_minutes"`
	EndsAt          time.Time     `json:"ends_at"`
	Status          WebinarStatus `json:"status"`
	PresenterID     uuid.UUID     `json:"presenter_id"`
	CTALabel        string        `json:"cta_label"`
	CTAType         CTAType       `json:"cta_type"`
	CTATarget       *string       `json:"cta_target,omitempty"` // price id for buy_now, URL for book_a_call
	CouponCode      *string       `json:"coupon_code,omitempty"`
	CouponExpiresAt *time.Time    `json:"coupon_expires_at,omitempty"`
	LockChat        bool          `json:"lock_chat"`
	StripeProductID *string       `json:"stripe_product_id,omitempty"`
	StripePriceID   *string       `json:"stripe_price_id,omitempty"`
	RecordingURL    *string       `json:"recording_url,omitempty"`
	RecordingKey    *string       `json:"-"`
	Tags            []string      `json:"tags"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	DeletedAt       *time.Time    `json:"deleted_at,omitempty"`
}

// DetailLink is the presenter-facing detail route for this webinar.
func (w *Webinar) DetailLink() string {
	return "/webinar/" + w.ID.String()
}

// JoinLink is the attendee-facing live join route.
func (w *Webinar) JoinLink() string {
	return "/live-webinar/" + w.ID.String()
}

// PipelineLink is the presenter-facing pipeline view route.
func (w *Webinar) PipelineLink() string {
	return "/webinar/" + w.ID.String() + "/pipeline"
}
