// Package database opens the SQL backend shared by the server and the CLI
// tools. Two dialects are supported: PostgreSQL for deployments and SQLite
// for single-host installs and tests.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/assogest/assogest/internal/config"
)

// Dialect identifies the SQL backend. Queries use $1 placeholders, which
// both drivers accept; only DDL and introspection differ per dialect.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// ParseDialect maps a config driver name to a Dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch driver {
	case "postgres", "postgresql":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return "", fmt.Errorf("database: unknown driver %q", driver)
	}
}

// Open connects to the configured backend and verifies the connection.
// An empty SQLite DSN opens a shared in-memory database.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, Dialect, error) {
	dialect, err := ParseDialect(cfg.Driver)
	if err != nil {
		return nil, "", err
	}

	driverName := "postgres"
	dsn := cfg.DSN
	if dialect == SQLite {
		driverName = "sqlite"
		if dsn == "" {
			dsn = "file:assogest?mode=memory&cache=shared"
		}
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", dialect, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	if dialect == SQLite {
		// modernc.org/sqlite serializes writes; a single connection avoids
		// SQLITE_BUSY under concurrent transactions.
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("ping %s: %w", dialect, err)
	}
	return db, dialect, nil
}

// HasTable reports whether the named table exists.
func HasTable(ctx context.Context, db *sql.DB, dialect Dialect, table string) (bool, error) {
	var query string
	switch dialect {
	case SQLite:
		query = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = $1`
	default:
		query = `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = 'public' AND table_name = $1`
	}
	var n int
	if err := db.QueryRowContext(ctx, query, table).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// Columns returns the column names of a table, or an empty set when the
// table does not exist.
func Columns(ctx context.Context, db *sql.DB, dialect Dialect, table string) (map[string]struct{}, error) {
	cols := make(map[string]struct{})
	ok, err := HasTable(ctx, db, dialect, table)
	if err != nil || !ok {
		return cols, err
	}

	var query string
	switch dialect {
	case SQLite:
		query = `SELECT name FROM pragma_table_info($1)`
	default:
		query = `SELECT column_name FROM information_schema.columns WHERE table_schema = 'public' AND table_name = $1`
	}
	rows, err := db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols[name] = struct{}{}
	}
	return cols, rows.Err()
}
