package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an infra-defined transaction handle (pgx.Tx for Postgres). Repositories
// accept nil for the non-transactional path and lock rows they read when
// handed a real transaction.
type Tx interface{}

var NoTX Tx

// TransactionManager runs fn inside one database transaction.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
