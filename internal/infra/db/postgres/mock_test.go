//go:build !integration

package postgres

import (
	"context"
	"time"

	"finance-billing/internal/domain/model"
	"finance-billing/internal/domain/ports/repository"
	red "finance-billing/internal/infra/redis"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerPricingRepo mocks the database repository that the pricing decorator wraps.
type mockInnerPricingRepo struct {
	FindFunc func(ctx context.Context, tx repository.Tx, plan model.Plan, currency model.Currency) (*model.Pricing, error)
	SaveFunc func(ctx context.Context, tx repository.Tx, p *model.Pricing) error
}

func (m *mockInnerPricingRepo) FindByPlanAndCurrency(ctx context.Context, tx repository.Tx, plan model.Plan, currency model.Currency) (*model.Pricing, error) {
	return m.FindFunc(ctx, tx, plan, currency)
}
func (m *mockInnerPricingRepo) Save(ctx context.Context, tx repository.Tx, p *model.Pricing) error {
	return m.SaveFunc(ctx, tx, p)
}

// mockRedisClient mocks our Redis client wrapper.
type mockRedisClient struct {
	GetFunc         func(ctx context.Context, key string) (string, error)
	SetFunc         func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	SetNXFunc       func(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	DelFunc         func(ctx context.Context, keys ...string) error
	DelIfEqualsFunc func(ctx context.Context, key, value string) (bool, error)
	IncrFunc        func(ctx context.Context, key string) (int64, error)
	ExpireFunc      func(ctx context.Context, key string, expiration time.Duration) error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Ping(ctx context.Context) error { return nil }
func (m *mockRedisClient) Close() error { return nil }

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc == nil {
		return "", red.Nil
	}
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc == nil {
		return nil
	}
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	if m.SetNXFunc == nil {
		return true, nil
	}
	return m.SetNXFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	if m.DelFunc == nil {
		return nil
	}
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) DelIfEquals(ctx context.Context, key, value string) (bool, error) {
	if m.DelIfEqualsFunc == nil {
		return true, nil
	}
	return m.DelIfEqualsFunc(ctx, key, value)
}
func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	if m.IncrFunc == nil {
		return 1, nil
	}
	return m.IncrFunc(ctx, key)
}
func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	if m.ExpireFunc == nil {
		return nil
	}
	return m.ExpireFunc(ctx, key, expiration)
}
