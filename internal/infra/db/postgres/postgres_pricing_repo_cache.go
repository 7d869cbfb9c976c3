package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"finance-billing/internal/domain/model"
	"finance-billing/internal/domain/ports/repository"
	"finance-billing/internal/infra/metrics"
	red "finance-billing/internal/infra/redis"
)

var _ repository.PricingRepository = (*pricingRepoCacheDecorator)(nil)

// pricingRepoCacheDecorator is a read-through cache for the price table.
// Only pricing is cached; payment and subscription rows are always read from
// the database.
type pricingRepoCacheDecorator struct {
	inner repository.PricingRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewPricingRepoCacheDecorator(inner repository.PricingRepository, cache red.RedisClient, ttl time.Duration) repository.PricingRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &pricingRepoCacheDecorator{
		inner: inner,
		cache: cache,
		ttl:   ttl,
	}
}

func pricingKey(plan model.Plan, currency model.Currency) string {
	return fmt.Sprintf("pricing:%s:%s", plan, currency)
}

func (d *pricingRepoCacheDecorator) FindByPlanAndCurrency(ctx context.Context, tx repository.Tx, plan model.Plan, currency model.Currency) (*model.Pricing, error) {
	key := pricingKey(plan, currency)
	val, err := d.cache.Get(ctx, key)
	switch {
	case err == nil:
		var p model.Pricing
		if json.Unmarshal([]byte(val), &p) == nil {
			metrics.IncPricingCache("hit")
			return &p, nil
		}
		metrics.IncPricingCache("corrupt")
	case errors.Is(err, red.Nil):
		metrics.IncPricingCache("miss")
	default:
		metrics.IncPricingCache("error")
	}

	p, err := d.inner.FindByPlanAndCurrency(ctx, tx, plan, currency)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(p); err == nil {
		_ = d.cache.Set(ctx, key, b, d.ttl)
	}
	return p, nil
}

func (d *pricingRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, p *model.Pricing) error {
	if err := d.inner.Save(ctx, tx, p); err != nil {
		return err
	}
	_ = d.cache.Del(ctx, pricingKey(p.Plan, p.Currency))
	return nil
}
