package model

import (
	"time"

	"finance-billing/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "ACTIVE"
	SubscriptionStatusCancelled SubscriptionStatus = "CANCELLED" // access continues until ExpiresAt
	SubscriptionStatusExpired   SubscriptionStatus = "EXPIRED"
)

// Subscription is the single entitlement row a user can hold.
type Subscription struct {
	ID        string
	UserID    string // unique
	Plan      Plan
	Status    SubscriptionStatus
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActiveFor reports whether the subscription currently grants plan.
func (s *Subscription) IsActiveFor(plan Plan, now time.Time) bool {
	return s != nil && s.Status == SubscriptionStatusActive && s.Plan == plan && s.ExpiresAt.After(now)
}

// HasAccess is true for ACTIVE and CANCELLED rows until expiry.
func (s *Subscription) HasAccess(now time.Time) bool {
	if s == nil || s.Status == SubscriptionStatusExpired {
		return false
	}
	return s.ExpiresAt.After(now)
}

// NewActivation builds the row an activation upsert writes.
func NewActivation(id, userID string, plan Plan, duration time.Duration, now time.Time) (*Subscription, error) {
	if userID == "" || !plan.Valid() || duration <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &Subscription{
		ID:        id,
		UserID:    userID,
		Plan:      plan,
		Status:    SubscriptionStatusActive,
		ExpiresAt: now.Add(duration).UTC(),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
