// Package migrations embeds the vault schema as goose migrations, one
// directory per SQL dialect, and applies them.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/polaris/internal/dbx"
	"github.com/pressly/goose/v3"
)

//go:embed sqlite/*.sql postgres/*.sql
var Migrations embed.FS

// goose keeps its base FS and dialect in package globals.
var gooseMu sync.Mutex

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

func gooseDialect(d dbx.Dialect) (string, string, error) {
	switch d {
	case dbx.DialectSQLite:
		return "sqlite3", "sqlite", nil
	case dbx.DialectPostgres:
		return "pgx", "postgres", nil
	}
	return "", "", fmt.Errorf("unsupported dialect %q", d)
}

// Up applies all pending migrations for d. Already applied versions are
// skipped, so Up is safe to call on every start.
func Up(ctx context.Context, db *sql.DB, d dbx.Dialect) error {
	dialect, dir, err := gooseDialect(d)
	if err != nil {
		return err
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(Migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := gooseUpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("migrate %s: %w", d, err)
	}
	return nil
}
