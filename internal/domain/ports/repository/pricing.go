package repository

import (
	"context"

	"finance-billing/internal/domain/model"
)

type PricingRepository interface {
	// FindByPlanAndCurrency returns inactive rows too; callers decide.
	FindByPlanAndCurrency(ctx context.Context, tx Tx, plan model.Plan, currency model.Currency) (*model.Pricing, error)
	Save(ctx context.Context, tx Tx, p *model.Pricing) error
}
