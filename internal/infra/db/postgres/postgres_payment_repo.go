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

var _ repository.PaymentRepository = (*paymentRepo)(nil)

const paymentColumns = `id, user_id, plan, currency, amount, provider, receipt, remote_order_id, remote_payment_id, status, failure_reason, paid_at, subscription_id, created_at, updated_at`

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

// Create inserts a new PENDING row. A second row for the same remote order id
// fails with domain.ErrAlreadyExists.
func (r *paymentRepo) Create(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (` + paymentColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15);`

	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.UserID, p.Plan, p.Currency, p.Amount, p.Provider, p.Receipt, p.RemoteOrderID,
		p.RemotePaymentID, p.Status, p.FailureReason, p.PaidAt, p.SubscriptionID, p.CreatedAt, p.UpdatedAt)
	return mapWriteErr(err)
}

func (r *paymentRepo) FindByRemoteOrderID(ctx context.Context, tx repository.Tx, orderID string) (*model.Payment, error) {
	q := forUpdate(`SELECT `+paymentColumns+` FROM payments WHERE remote_order_id=$1`, tx)
	return r.queryOne(ctx, tx, q, orderID)
}

func (r *paymentRepo) FindByRemotePaymentID(ctx context.Context, tx repository.Tx, paymentID string) (*model.Payment, error) {
	q := forUpdate(`SELECT `+paymentColumns+` FROM payments WHERE remote_payment_id=$1`, tx)
	return r.queryOne(ctx, tx, q, paymentID)
}

// MarkCompleted is the race arbiter for completions: of any number of
// concurrent callers only one sees RowsAffected == 1.
func (r *paymentRepo) MarkCompleted(ctx context.Context, tx repository.Tx, orderID, paymentID string, paidAt time.Time, from ...model.PaymentStatus) (bool, error) {
	if len(from) == 0 {
		from = []model.PaymentStatus{model.PaymentStatusPending}
	}
	const q = `
UPDATE payments
   SET status = 'COMPLETED',
       remote_payment_id = $2,
       paid_at = $3,
       failure_reason = NULL,
       updated_at = NOW()
 WHERE remote_order_id = $1
   AND status = ANY($4);`

	cmd, err := execSQL(ctx, r.pool, tx, q, orderID, paymentID, paidAt, statusStrings(from))
	if err != nil {
		return false, mapWriteErr(err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *paymentRepo) MarkFailed(ctx context.Context, tx repository.Tx, orderID, paymentID, reason string) (bool, error) {
	const q = `
UPDATE payments
   SET status = 'FAILED',
       failure_reason = $3,
       remote_payment_id = COALESCE(NULLIF($2::text, ''), remote_payment_id),
       updated_at = NOW()
 WHERE remote_order_id = $1
   AND status = 'PENDING';`

	cmd, err := execSQL(ctx, r.pool, tx, q, orderID, paymentID, reason)
	if err != nil {
		return false, mapWriteErr(err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *paymentRepo) MarkRefunded(ctx context.Context, tx repository.Tx, orderID string) (bool, error) {
	const q = `UPDATE payments SET status='REFUNDED', updated_at=NOW() WHERE remote_order_id=$1 AND status='COMPLETED';`
	cmd, err := execSQL(ctx, r.pool, tx, q, orderID)
	if err != nil {
		return false, mapWriteErr(err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *paymentRepo) LinkSubscription(ctx context.Context, tx repository.Tx, orderID, subscriptionID string) error {
	const q = `UPDATE payments SET subscription_id=$2, updated_at=NOW() WHERE remote_order_id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, orderID, subscriptionID)
	if err != nil {
		return mapWriteErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *paymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE status='PENDING' AND created_at < $1 ORDER BY created_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		return nil, mapWriteErr(err)
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *paymentRepo) queryOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.Payment, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	p, err := scanPayment(row)
	if err != nil {
		return nil, mapReadErr(err)
	}
	return p, nil
}

func scanPayment(row pgx.Row) (*model.Payment, error) {
	p := &model.Payment{}
	err := row.Scan(&p.ID, &p.UserID, &p.Plan, &p.Currency, &p.Amount, &p.Provider, &p.Receipt, &p.RemoteOrderID,
		&p.RemotePaymentID, &p.Status, &p.FailureReason, &p.PaidAt, &p.SubscriptionID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func statusStrings(in []model.PaymentStatus) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}
