package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MarkoPoloResearchLab/motocare/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/motocare/internal/store/migrations"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	driverPostgres    = "postgres"
	driverSQLite      = "sqlite"
	defaultSQLiteFile = "motocare.db"
	sqliteMemory      = ":memory:"
	sqliteFilePrefix  = "file:"
)

// openDatabase connects to the database named by databaseURL. SQLite gets a
// single connection so writes never contend for the file lock.
func openDatabase(ctx context.Context, databaseURL string) (*gorm.DB, func() error, string, error) {
	driver, sqlitePath, err := resolveDriver(databaseURL)
	if err != nil {
		return nil, nil, "", err
	}

	dialector := postgres.Open(databaseURL)
	if driver == driverSQLite {
		dialector = sqlite.Open(sqlitePath)
	}
	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, nil, "", fmt.Errorf("open %s database: %w", driver, err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, nil, "", fmt.Errorf("open %s database: %w", driver, err)
	}
	if driver == driverSQLite {
		sqlDB.SetMaxOpenConns(1)
	}
	return gormDB.WithContext(ctx), sqlDB.Close, driver, nil
}

// resolveDriver maps a database URL to its driver. For SQLite it also returns
// the file path, creating the parent directory. A value without a scheme is a
// SQLite path.
func resolveDriver(databaseURL string) (string, string, error) {
	scheme, rest, hasScheme := strings.Cut(databaseURL, "://")
	if !hasScheme {
		sqlitePath, err := prepareSQLitePath(databaseURL)
		return driverSQLite, sqlitePath, err
	}
	switch strings.ToLower(scheme) {
	case "postgres", "postgresql":
		return driverPostgres, "", nil
	case driverSQLite:
		sqlitePath, err := prepareSQLitePath(rest)
		return driverSQLite, sqlitePath, err
	default:
		return "", "", fmt.Errorf("unsupported database scheme %q", scheme)
	}
}

func prepareSQLitePath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || trimmed == "/" {
		trimmed = defaultSQLiteFile
	}
	if trimmed == sqliteMemory || strings.HasPrefix(trimmed, sqliteFilePrefix) {
		return trimmed, nil
	}
	cleaned := filepath.Clean(trimmed)
	if err := os.MkdirAll(filepath.Dir(cleaned), 0o755); err != nil {
		return "", fmt.Errorf("create sqlite directory: %w", err)
	}
	return cleaned, nil
}

// prepareSchema auto-migrates SQLite and applies the versioned migrations on PostgreSQL.
func prepareSchema(ctx context.Context, gormDB *gorm.DB, driver string) error {
	if driver == driverSQLite {
		if err := gormstore.AutoMigrate(gormDB); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	return migrations.Up(ctx, sqlDB, migrations.DialectPostgres)
}
