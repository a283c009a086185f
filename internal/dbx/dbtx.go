// Package dbx provides small DB abstractions shared by the repositories:
// a minimal interface (DBTX) implemented by both *sql.DB and *sql.Tx, a
// helper that runs a function inside a transaction, and the SQL dialect
// helpers that let one repository serve SQLite and PostgreSQL.
package dbx

import (
	"context"
	"database/sql"
	"fmt"
)

// DBTX is what a repository needs from a handle; *sql.DB and *sql.Tx both
// satisfy it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx runs fn inside a transaction. It commits when fn returns nil and
// rolls back otherwise; a panic in fn rolls back and is rethrown.
//
// Multi-row operations of the store (mark synced, clear all) go through
// WithTx so a crash mid-operation leaves nothing partially applied:
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    _, err := tx.ExecContext(ctx, "UPDATE location_data SET synced = 1 WHERE ...")
//	    return err
//	})
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("commit tx: %w", cerr)
		}
	}()

	return fn(ctx, tx)
}
