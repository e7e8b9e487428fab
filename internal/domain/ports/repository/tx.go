package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction handle. Its concrete type is infra-defined
// (pgx.Tx for Postgres). Repositories accept nil for the non-transactional
// path.
type Tx interface{}

var NoTX interface{}

// TransactionManager executes a function within a database transaction,
// passing the underlying handle via `tx`. Keeps use-case interfaces clean of
// storage types while letting repositories run tx-bound Exec/Query.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
