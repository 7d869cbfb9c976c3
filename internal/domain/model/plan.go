package model

import (
	"strings"
	"time"
)

// Plan identifies a purchasable subscription tier.
type Plan string

const (
	PlanProMonthly Plan = "PRO_MONTHLY"
	PlanProYearly  Plan = "PRO_YEARLY"
)

func (p Plan) Valid() bool {
	switch p {
	case PlanProMonthly, PlanProYearly:
		return true
	}
	return false
}

// DefaultDuration is the entitlement length granted when no pricing row can be
// resolved for an already-paid order.
func (p Plan) DefaultDuration() time.Duration {
	if p == PlanProYearly {
		return 365 * 24 * time.Hour
	}
	return 30 * 24 * time.Hour
}

type Currency string

const (
	CurrencyINR Currency = "INR"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

func (c Currency) Valid() bool {
	switch c {
	case CurrencyINR, CurrencyUSD, CurrencyEUR:
		return true
	}
	return false
}

// ParsePlan and ParseCurrency accept any letter case.
func ParsePlan(s string) Plan { return Plan(strings.ToUpper(strings.TrimSpace(s))) }

func ParseCurrency(s string) Currency { return Currency(strings.ToUpper(strings.TrimSpace(s))) }
