package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"finance-billing/internal/domain/model"
	"finance-billing/internal/domain/ports/repository"
)

var _ repository.PricingRepository = (*pricingRepo)(nil)

type pricingRepo struct{ pool *pgxpool.Pool }

func NewPricingRepo(pool *pgxpool.Pool) *pricingRepo {
	return &pricingRepo{pool: pool}
}

func (r *pricingRepo) FindByPlanAndCurrency(ctx context.Context, tx repository.Tx, plan model.Plan, currency model.Currency) (*model.Pricing, error) {
	const q = `
SELECT plan, currency, amount, duration_days, active, updated_at
  FROM pricing
 WHERE plan = $1 AND currency = $2;`
	row, err := pickRow(ctx, r.pool, tx, q, plan, currency)
	if err != nil {
		return nil, err
	}
	p := &model.Pricing{}
	if err := row.Scan(&p.Plan, &p.Currency, &p.Amount, &p.DurationDays, &p.Active, &p.UpdatedAt); err != nil {
		return nil, mapReadErr(err)
	}
	return p, nil
}

func (r *pricingRepo) Save(ctx context.Context, tx repository.Tx, p *model.Pricing) error {
	const q = `
INSERT INTO pricing (plan, currency, amount, duration_days, active, updated_at)
VALUES ($1, $2, $3, $4, $5, NOW())
ON CONFLICT (plan, currency) DO UPDATE SET
  amount = EXCLUDED.amount,
  duration_days = EXCLUDED.duration_days,
  active = EXCLUDED.active,
  updated_at = NOW();`
	_, err := execSQL(ctx, r.pool, tx, q, p.Plan, p.Currency, p.Amount, p.DurationDays, p.Active)
	return mapWriteErr(err)
}
