package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrc/picture-collab/internal/core/ports"
)

// Snapshotter runs admission lookups inside one read-only repeatable-read
// transaction, so a membership change cannot land between the space and the
// role lookup of the same admission.
type Snapshotter struct {
	pool *pgxpool.Pool
}

var _ ports.ReadSnapshot = (*Snapshotter)(nil)

// NewSnapshotter creates a new snapshotter.
func NewSnapshotter(pool *pgxpool.Pool) *Snapshotter {
	return &Snapshotter{pool: pool}
}

// ReadOnly executes fn with a context carrying the snapshot transaction.
// Repositories called with that context read through the transaction.
func (s *Snapshotter) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return fmt.Errorf("begin read snapshot: %w", err)
	}
	// Nothing is written, so ending the snapshot early is always safe.
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ContextWithTx(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("end read snapshot: %w", err)
	}
	return nil
}

type txContextKey struct{}

// ContextWithTx returns a new context carrying the transaction.
func ContextWithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

// TxFromContext retrieves a transaction from the context.
func TxFromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txContextKey{}).(pgx.Tx)
	return tx, ok
}

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// GetDBTX returns the transaction from context if present, otherwise the pool.
func GetDBTX(ctx context.Context, pool *pgxpool.Pool) DBTX {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return pool
}
