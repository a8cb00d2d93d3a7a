package infra

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type txKey struct{}

// WithTx returns a context carrying tx. Postgres-backed components that
// receive this context join the transaction instead of opening their own, so
// a vault operation and the asset movement it triggers commit or roll back
// together.
func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext returns the transaction carried by ctx, if any.
func TxFromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok && tx != nil
}

// Begin opens a savepoint inside the transaction carried by ctx, or a new
// transaction on pool when there is none.
func Begin(ctx context.Context, pool *pgxpool.Pool) (pgx.Tx, error) {
	if outer, ok := TxFromContext(ctx); ok {
		return outer.Begin(ctx)
	}
	return pool.BeginTx(ctx, pgx.TxOptions{})
}
