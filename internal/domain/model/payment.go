package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"   // remote order created; awaiting confirmation
	PaymentStatusCompleted PaymentStatus = "COMPLETED" // confirmed by signature or capture webhook
	PaymentStatusFailed    PaymentStatus = "FAILED"    // bad client signature or provider failure event
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"  // recorded by admin action only
)

// Payment records one attempt to pay for a plan.
type Payment struct {
	ID              string // UUID
	UserID          string
	Plan            Plan
	Currency        Currency
	Amount          int64  // minor units
	Provider        string // e.g. "razorpay"
	Receipt         string // our reference sent to the provider
	RemoteOrderID   string // assigned once at creation, never changes
	RemotePaymentID *string
	Status          PaymentStatus
	FailureReason   *string
	PaidAt          *time.Time
	SubscriptionID  *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (p *Payment) IsPending() bool { return p.Status == PaymentStatusPending }
func (p *Payment) IsCompleted() bool { return p.Status == PaymentStatusCompleted }

// OrderIntent is what the client needs to open the provider checkout.
type OrderIntent struct {
	PaymentID     string
	RemoteOrderID string
	Plan          Plan
	Currency      Currency
	Amount        int64
	ClientData    map[string]any
}
