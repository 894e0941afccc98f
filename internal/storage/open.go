package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"expensetracker/internal/log"
)

// OpenSQLite opens (creating if needed) the database file at path,
// migrates it and returns a repository over it.
func OpenSQLite(ctx context.Context, path string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	if err := RunMigrations(DialectSQLite, path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// sqlite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}

	log.FromContext(ctx).InfoContext(ctx, "SQLite store ready", "path", path)
	return NewRepository(db, DialectSQLite)
}

// OpenPostgres connects through the pgx stdlib driver, migrates the
// schema and returns a repository.
func OpenPostgres(ctx context.Context, dsn string) (*Repository, error) {
	if err := RunMigrations(DialectPostgres, dsn); err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres database: %w", err)
	}

	log.FromContext(ctx).InfoContext(ctx, "Postgres store ready")
	return NewRepository(db, DialectPostgres)
}
