//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"finance-billing/internal/domain"
	"finance-billing/internal/domain/model"
	"finance-billing/internal/domain/ports/adapter"
	"finance-billing/internal/domain/ports/repository"
	fakepay "finance-billing/internal/infra/adapters/payment"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

func strPtr(s string) *string { return &s }

// =============================
// Payment ledger
// =============================

type MockPaymentRepo struct {
	mu      sync.Mutex
	byOrder map[string]*model.Payment

	CreateFunc              func(ctx context.Context, tx repository.Tx, p *model.Payment) error
	FindByRemoteOrderIDFunc func(ctx context.Context, tx repository.Tx, orderID string) (*model.Payment, error)
	MarkCompletedFunc       func(ctx context.Context, tx repository.Tx, orderID, paymentID string, paidAt time.Time, from ...model.PaymentStatus) (bool, error)
	LinkSubscriptionFunc    func(ctx context.Context, tx repository.Tx, orderID, subscriptionID string) error
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{byOrder: map[string]*model.Payment{}}
}

func (r *MockPaymentRepo) Create(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if r.CreateFunc != nil {
		return r.CreateFunc(ctx, tx, p)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byOrder[p.RemoteOrderID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *p
	r.byOrder[p.RemoteOrderID] = &cp
	return nil
}

func (r *MockPaymentRepo) FindByRemoteOrderID(ctx context.Context, tx repository.Tx, orderID string) (*model.Payment, error) {
	if r.FindByRemoteOrderIDFunc != nil {
		return r.FindByRemoteOrderIDFunc(ctx, tx, orderID)
	}
	return r.Get(orderID)
}

// Get reads a row without going through any override.
func (r *MockPaymentRepo) Get(orderID string) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byOrder[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MockPaymentRepo) FindByRemotePaymentID(ctx context.Context, tx repository.Tx, paymentID string) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byOrder {
		if p.RemotePaymentID != nil && *p.RemotePaymentID == paymentID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockPaymentRepo) MarkCompleted(ctx context.Context, tx repository.Tx, orderID, paymentID string, paidAt time.Time, from ...model.PaymentStatus) (bool, error) {
	if r.MarkCompletedFunc != nil {
		return r.MarkCompletedFunc(ctx, tx, orderID, paymentID, paidAt, from...)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byOrder[orderID]
	if !ok || !statusIn(p.Status, from) {
		return false, nil
	}
	if r.paymentIDTaken(orderID, paymentID) {
		return false, domain.ErrAlreadyExists
	}
	p.Status = model.PaymentStatusCompleted
	p.RemotePaymentID = strPtr(paymentID)
	p.PaidAt = &paidAt
	p.UpdatedAt = paidAt
	return true, nil
}

func (r *MockPaymentRepo) MarkFailed(ctx context.Context, tx repository.Tx, orderID, paymentID, reason string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byOrder[orderID]
	if !ok || p.Status != model.PaymentStatusPending {
		return false, nil
	}
	if r.paymentIDTaken(orderID, paymentID) {
		return false, domain.ErrAlreadyExists
	}
	p.Status = model.PaymentStatusFailed
	p.FailureReason = strPtr(reason)
	if paymentID != "" {
		p.RemotePaymentID = strPtr(paymentID)
	}
	return true, nil
}

// paymentIDTaken mirrors the UNIQUE remote_payment_id column. Caller holds mu.
func (r *MockPaymentRepo) paymentIDTaken(orderID, paymentID string) bool {
	if paymentID == "" {
		return false
	}
	for id, p := range r.byOrder {
		if id != orderID && p.RemotePaymentID != nil && *p.RemotePaymentID == paymentID {
			return true
		}
	}
	return false
}

func (r *MockPaymentRepo) MarkRefunded(ctx context.Context, tx repository.Tx, orderID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byOrder[orderID]
	if !ok || p.Status != model.PaymentStatusCompleted {
		return false, nil
	}
	p.Status = model.PaymentStatusRefunded
	return true, nil
}

func (r *MockPaymentRepo) LinkSubscription(ctx context.Context, tx repository.Tx, orderID, subscriptionID string) error {
	if r.LinkSubscriptionFunc != nil {
		return r.LinkSubscriptionFunc(ctx, tx, orderID, subscriptionID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byOrder[orderID]
	if !ok {
		return domain.ErrNotFound
	}
	p.SubscriptionID = strPtr(subscriptionID)
	return nil
}

func (r *MockPaymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Payment
	for _, p := range r.byOrder {
		if p.Status == model.PaymentStatusPending && p.CreatedAt.Before(olderThan) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MockPaymentRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byOrder)
}

func statusIn(s model.PaymentStatus, set []model.PaymentStatus) bool {
	for _, x := range set {
		if s == x {
			return true
		}
	}
	return false
}

// =============================
// Subscription store
// =============================

type MockSubscriptionRepo struct {
	mu     sync.Mutex
	byUser map[string]*model.Subscription

	// Activations counts successful Activate calls.
	Activations int

	ActivateFunc   func(ctx context.Context, tx repository.Tx, s *model.Subscription) (*model.Subscription, error)
	FindByUserFunc func(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error)
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func NewMockSubscriptionRepo() *MockSubscriptionRepo {
	return &MockSubscriptionRepo{byUser: map[string]*model.Subscription{}}
}

func (r *MockSubscriptionRepo) Put(s *model.Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.byUser[s.UserID] = &cp
}

func (r *MockSubscriptionRepo) FindByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	if r.FindByUserFunc != nil {
		return r.FindByUserFunc(ctx, tx, userID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byUser[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *MockSubscriptionRepo) Activate(ctx context.Context, tx repository.Tx, s *model.Subscription) (*model.Subscription, error) {
	if r.ActivateFunc != nil {
		return r.ActivateFunc(ctx, tx, s)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Activations++
	if cur, ok := r.byUser[s.UserID]; ok {
		cur.Plan = s.Plan
		cur.Status = s.Status
		cur.ExpiresAt = s.ExpiresAt
		cur.UpdatedAt = s.UpdatedAt
		cp := *cur
		return &cp, nil
	}
	cp := *s
	r.byUser[s.UserID] = &cp
	out := cp
	return &out, nil
}

func (r *MockSubscriptionRepo) Cancel(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byUser[userID]
	if !ok || s.Status != model.SubscriptionStatusActive {
		return nil, domain.ErrNotFound
	}
	s.Status = model.SubscriptionStatusCancelled
	cp := *s
	return &cp, nil
}

func (r *MockSubscriptionRepo) MarkExpired(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.byUser {
		if s.Status != model.SubscriptionStatusExpired && !s.ExpiresAt.After(now) {
			s.Status = model.SubscriptionStatusExpired
			n++
		}
	}
	return n, nil
}

func (r *MockSubscriptionRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[model.SubscriptionStatus]int{}
	for _, s := range r.byUser {
		out[s.Status]++
	}
	return out, nil
}

// =============================
// Pricing
// =============================

type MockPricingRepo struct {
	mu   sync.Mutex
	rows map[string]*model.Pricing

	FindFunc func(ctx context.Context, tx repository.Tx, plan model.Plan, currency model.Currency) (*model.Pricing, error)
}

var _ repository.PricingRepository = (*MockPricingRepo)(nil)

func NewMockPricingRepo() *MockPricingRepo {
	return &MockPricingRepo{rows: map[string]*model.Pricing{}}
}

func pricingKey(plan model.Plan, currency model.Currency) string {
	return string(plan) + "/" + string(currency)
}

func (r *MockPricingRepo) FindByPlanAndCurrency(ctx context.Context, tx repository.Tx, plan model.Plan, currency model.Currency) (*model.Pricing, error) {
	if r.FindFunc != nil {
		return r.FindFunc(ctx, tx, plan, currency)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[pricingKey(plan, currency)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MockPricingRepo) Save(ctx context.Context, tx repository.Tx, p *model.Pricing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.rows[pricingKey(p.Plan, p.Currency)] = &cp
	return nil
}

func (r *MockPricingRepo) Delete(plan model.Plan, currency model.Currency) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, pricingKey(plan, currency))
}

// =============================
// Adapters
// =============================

// MockProvider signs and verifies with real secrets through the fake gateway;
// the Func fields inject failures.
type MockProvider struct {
	*fakepay.FakeProvider

	CreateOrderFunc     func(ctx context.Context, req adapter.CreateOrderRequest) (*adapter.RemoteOrder, error)
	VerifySignatureFunc func(ctx context.Context, orderID, paymentID, signature string) error
}

var _ adapter.PaymentProvider = (*MockProvider)(nil)

func NewMockProvider() *MockProvider {
	f, err := fakepay.NewFakeProvider("test-key-secret", "test-webhook-secret")
	if err != nil {
		panic(err)
	}
	return &MockProvider{FakeProvider: f}
}

func (m *MockProvider) CreateOrder(ctx context.Context, req adapter.CreateOrderRequest) (*adapter.RemoteOrder, error) {
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, req)
	}
	return m.FakeProvider.CreateOrder(ctx, req)
}

func (m *MockProvider) VerifySignature(ctx context.Context, orderID, paymentID, signature string) error {
	if m.VerifySignatureFunc != nil {
		return m.VerifySignatureFunc(ctx, orderID, paymentID, signature)
	}
	return m.FakeProvider.VerifySignature(ctx, orderID, paymentID, signature)
}

type MockAlerter struct {
	mu     sync.Mutex
	Alerts []adapter.OpsAlert
}

func (a *MockAlerter) Alert(ctx context.Context, al adapter.OpsAlert) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Alerts = append(a.Alerts, al)
}

func (a *MockAlerter) Stages() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.Alerts))
	for _, al := range a.Alerts {
		out = append(out, al.Fields["stage"])
	}
	return out
}

// ---- Transaction manager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs fn immediately with NoTX unless WithTxFunc is set.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}
