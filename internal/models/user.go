package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents user role in the platform.
type Role string

const (
	RoleAdmin     Role = "admin"
	RolePresenter Role = "presenter"
)

// User represents a platform user (a presenter or admin).
type User struct {
	ID               uuid.UUID `json:"id"`
	Email            string    `json:"email"`
	Password         string    `json:"-"`
	FullName         string    `json:"full_name"`
	AvatarURL        string    `json:"avatar_url,omitempty"`
	Role             Role      `json:"role"`
	StripeCustomerID *string   `json:"stripe_customer_id,omitempty"`
	StripeConnectID  *string   `json:"stripe_connect_id,omitempty"`
	Subscription     bool      `json:"subscription"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	Role         Role      `json:"role"`
	Subscription bool      `json:"subscription"`
	CreatedAt    time.Time `json:"created_at"`
}

// ToPublic converts User to UserPublic. Payment identifiers stay internal.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:           u.ID,
		Email:        u.Email,
		FullName:     u.FullName,
		AvatarURL:    u.AvatarURL,
		Role:         u.Role,
		Subscription: u.Subscription,
		CreatedAt:    u.CreatedAt,
	}
}
