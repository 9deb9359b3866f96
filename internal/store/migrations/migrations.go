// Package migrations applies the versioned booking schema with goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

const (
	migrationsDir = "sql"
	// DialectPostgres is the goose dialect for PostgreSQL.
	DialectPostgres = "postgres"
	// DialectSQLite is the goose dialect for SQLite.
	DialectSQLite = "sqlite3"
)

//go:embed sql/*.sql
var migrationFiles embed.FS

// goose keeps its dialect and filesystem in package state.
var gooseMutex sync.Mutex

// Up applies every pending migration.
func Up(ctx context.Context, db *sql.DB, dialect string) error {
	gooseMutex.Lock()
	defer gooseMutex.Unlock()
	if err := configure(dialect); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, migrationsDir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Version returns the current schema version.
func Version(ctx context.Context, db *sql.DB, dialect string) (int64, error) {
	gooseMutex.Lock()
	defer gooseMutex.Unlock()
	if err := configure(dialect); err != nil {
		return 0, err
	}
	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return 0, fmt.Errorf("get version: %w", err)
	}
	return version, nil
}

func configure(dialect string) error {
	goose.SetBaseFS(migrationFiles)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return nil
}
