package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"finance-billing/internal/domain"
	"finance-billing/internal/domain/model"
	"finance-billing/internal/domain/ports/repository"
)

// Ensure subscriptionRepo implements repository.SubscriptionRepository
var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

const subscriptionColumns = `id, user_id, plan, status, expires_at, created_at, updated_at`

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

func (r *subscriptionRepo) FindByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	q := forUpdate(`SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id=$1`, tx)
	return r.queryOne(ctx, tx, q, userID)
}

// Activate upserts on user_id; the unique index makes a second row impossible.
func (r *subscriptionRepo) Activate(ctx context.Context, tx repository.Tx, s *model.Subscription) (*model.Subscription, error) {
	if s == nil || s.UserID == "" {
		return nil, domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO subscriptions (id, user_id, plan, status, expires_at, created_at, updated_at)
VALUES ($1, $2, $3, 'ACTIVE', $4, $5, $5)
ON CONFLICT (user_id) DO UPDATE SET
  plan = EXCLUDED.plan,
  status = 'ACTIVE',
  expires_at = EXCLUDED.expires_at,
  updated_at = EXCLUDED.updated_at
RETURNING ` + subscriptionColumns + `;`

	now := s.UpdatedAt
	if now.IsZero() {
		now = time.Now()
	}
	out, err := r.queryOne(ctx, tx, q, s.ID, s.UserID, s.Plan, s.ExpiresAt, now)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	return out, nil
}

func (r *subscriptionRepo) Cancel(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	const q = `
UPDATE subscriptions
   SET status = 'CANCELLED', updated_at = NOW()
 WHERE user_id = $1 AND status = 'ACTIVE'
RETURNING ` + subscriptionColumns + `;`
	return r.queryOne(ctx, tx, q, userID)
}

func (r *subscriptionRepo) MarkExpired(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	const q = `
UPDATE subscriptions
   SET status = 'EXPIRED', updated_at = NOW()
 WHERE status IN ('ACTIVE', 'CANCELLED')
   AND expires_at <= $1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, now)
	if err != nil {
		return 0, mapWriteErr(err)
	}
	return int(cmd.RowsAffected()), nil
}

func (r *subscriptionRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error) {
	const q = `SELECT status, COUNT(*) FROM subscriptions GROUP BY status;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, mapWriteErr(err)
	}
	defer rows.Close()

	out := make(map[model.SubscriptionStatus]int)
	for rows.Next() {
		var status model.SubscriptionStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[status] = n
	}
	if rows.Err() != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *subscriptionRepo) queryOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.Subscription, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	s, err := scanSub(row)
	if err != nil {
		return nil, mapReadErr(err)
	}
	return s, nil
}

func scanSub(row pgx.Row) (*model.Subscription, error) {
	s := &model.Subscription{}
	if err := row.Scan(&s.ID, &s.UserID, &s.Plan, &s.Status, &s.ExpiresAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return s, nil
}
