package querier

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock pools.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type txKey struct{}

func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func TxFromContext(ctx context.Context) (pgx.Tx, bool) {
	if ctx == nil {
		return nil, false
	}
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok
}

// FromContext returns the transaction bound to ctx, or fallback when there is none.
func FromContext(ctx context.Context, fallback Querier) Querier {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return fallback
}

// WithSavepoint runs fn inside a savepoint when ctx carries a transaction, so a
// failed statement does not abort the outer transaction. Without one it runs fn
// against fallback directly.
func WithSavepoint(ctx context.Context, fallback Querier, fn func(Querier) error) error {
	tx, ok := TxFromContext(ctx)
	if !ok {
		return fn(fallback)
	}
	sp, err := tx.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(sp); err != nil {
		_ = sp.Rollback(ctx)
		return err
	}
	return sp.Commit(ctx)
}

// NullIfEmpty maps "" to SQL NULL for optional text columns.
func NullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
