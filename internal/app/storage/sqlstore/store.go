// Package sqlstore implements the storage interfaces on PostgreSQL and
// SQLite with one set of queries. Placeholders are $1-style, which both
// lib/pq and modernc.org/sqlite accept; generated ids are read back with
// INSERT ... RETURNING because lib/pq does not support LastInsertId.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/assogest/assogest/internal/app/storage"
	"github.com/assogest/assogest/internal/platform/database"
)

// Store implements every storage interface against a SQL database.
type Store struct {
	db      *sql.DB
	sx      *sqlx.DB
	dialect database.Dialect
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.RBACStore = (*Store)(nil)
var _ storage.BudgetStore = (*Store)(nil)
var _ storage.ProjetStore = (*Store)(nil)
var _ storage.ActiviteStore = (*Store)(nil)
var _ storage.ParticipantStore = (*Store)(nil)
var _ storage.InventaireStore = (*Store)(nil)
var _ storage.PedagogieStore = (*Store)(nil)
var _ storage.ReportingStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB, dialect database.Dialect) *Store {
	driverName := "postgres"
	if dialect == database.SQLite {
		driverName = "sqlite"
	}
	return &Store{db: db, sx: sqlx.NewDb(db, driverName), dialect: dialect}
}

// isUniqueViolation reports whether err is a unique-constraint failure
// from either driver. modernc.org/sqlite only exposes the message.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// yearExpr returns the SQL fragment extracting the calendar year of a
// date expression. EXTRACT is not valid SQLite; strftime is not Postgres.
func (s *Store) yearExpr(col string) string {
	if s.dialect == database.SQLite {
		return "CAST(strftime('%Y', " + col + ") AS INTEGER)"
	}
	return "EXTRACT(YEAR FROM " + col + ")"
}

// inTx runs fn inside a transaction, rolling back on error.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// execer covers *sql.DB and *sql.Tx for helpers shared by both paths.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// rowExists reports whether the existence query (a SELECT COUNT) matched.
func rowExists(ctx context.Context, q execer, query string, args ...any) (bool, error) {
	var n int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// int64Value unwraps a nullable integer column into a plain int.
func int64Value(v sql.NullInt64) int {
	if !v.Valid {
		return 0
	}
	return int(v.Int64)
}

// int64Ptr unwraps a nullable integer column into a *int64 field.
func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

// timePtr unwraps a nullable timestamp column into a *time.Time field.
func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
