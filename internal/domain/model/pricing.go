package model

import (
	"time"

	"finance-billing/internal/domain"

	"github.com/shopspring/decimal"
)

// Pricing is one row of the (plan, currency) price table.
type Pricing struct {
	Plan         Plan      `json:"plan"`
	Currency     Currency  `json:"currency"`
	Amount       int64     `json:"amount"`        // minor units
	DurationDays int       `json:"duration_days"` // entitlement length
	Active       bool      `json:"active"`        // inactive rows reject new orders only
	UpdatedAt    time.Time `json:"updated_at"`
}

func NewPricing(plan Plan, currency Currency, amount int64, durationDays int) (*Pricing, error) {
	if !plan.Valid() || !currency.Valid() || amount <= 0 || durationDays <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &Pricing{
		Plan:         plan,
		Currency:     currency,
		Amount:       amount,
		DurationDays: durationDays,
		Active:       true,
		UpdatedAt:    time.Now(),
	}, nil
}

func (p *Pricing) Duration() time.Duration {
	return time.Duration(p.DurationDays) * 24 * time.Hour
}

// FormatAmount renders minor units in major units, e.g. 1000 USD -> "10.00 USD".
func FormatAmount(amount int64, currency Currency) string {
	return decimal.New(amount, -2).StringFixed(2) + " " + string(currency)
}
