package store

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// DBTX is the subset of pgx operations the queries need.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB is the Postgres-backed Store.
type DB struct {
	conn DBTX
	pool *pgxpool.Pool // nil when conn is a transaction
}

var _ Store = (*DB)(nil)

// NewDB wraps a connection pool.
func NewDB(pool *pgxpool.Pool) *DB {
	return &DB{conn: pool, pool: pool}
}

// Migrate applies the embedded schema. All statements are idempotent.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.conn.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// InTx runs fn inside a transaction. When the receiver is already
// transactional, fn joins the enclosing transaction instead of opening a
// nested one.
func (d *DB) InTx(ctx context.Context, fn func(Store) error) error {
	if d.pool == nil {
		return fn(d)
	}
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&DB{conn: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
