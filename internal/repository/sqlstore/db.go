// Package sqlstore implements the domain repositories over database/sql for
// the embedded SQLite store and MySQL.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"github.com/Rrens/neuralizard/internal/config"
	"github.com/Rrens/neuralizard/internal/domain"
)

// DB wraps a database/sql handle.
type DB struct {
	*sql.DB
	driver string
}

// Open connects to the SQLite file or MySQL server named by cfg.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	var (
		driverName string
		dsn        string
	)

	switch backend := cfg.Backend(); backend {
	case config.DriverSQLite:
		path := cfg.SQLitePath()
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		driverName = "sqlite"
		dsn = sqliteDSN(path)
	case config.DriverMySQL:
		driverName = "mysql"
		dsn = cfg.DSN()
	default:
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", backend)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driverName == "sqlite" {
		// A single writer keeps SQLite from returning SQLITE_BUSY under the title worker.
		db.SetMaxOpenConns(1)
	} else {
		if cfg.MaxConns > 0 {
			db.SetMaxOpenConns(int(cfg.MaxConns))
		}
		if cfg.MinConns > 0 {
			db.SetMaxIdleConns(int(cfg.MinConns))
		}
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db, driver: driverName}, nil
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// NewStore exposes db through the domain repositories.
func NewStore(db *DB) *domain.Store {
	return domain.NewStore(
		NewConversationRepository(db.DB),
		NewMessageRepository(db.DB),
		NewRatingRepository(db.DB),
		db.PingContext,
		db.Close,
	)
}

func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
