// Package postgres implements port.Store and port.UnitOfWork on PostgreSQL
// through sqlx and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // registers the "postgres" driver

	"github.com/boddenberg/certificacion-calidad-go/internal/domain"
)

// Options configures the connection pool.
type Options struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

// Open connects to Postgres and applies the pool limits.
func Open(ctx context.Context, opts Options) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", opts.URL)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

// Store implements port.Store. Outside a unit of work every call runs on the
// pool; inside one, every call runs on the same transaction.
type Store struct {
	db *sqlx.DB
	tx *sqlx.Tx
}

// NewStore creates a pool-backed store for reads outside a transaction.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// =============================================================================
// Transaction-aware helpers
// =============================================================================

func (s *Store) getContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	if s.tx != nil {
		return s.tx.GetContext(ctx, dest, query, args...)
	}
	return s.db.GetContext(ctx, dest, query, args...)
}

func (s *Store) selectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	if s.tx != nil {
		return s.tx.SelectContext(ctx, dest, query, args...)
	}
	return s.db.SelectContext(ctx, dest, query, args...)
}

func (s *Store) queryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row {
	if s.tx != nil {
		return s.tx.QueryRowxContext(ctx, query, args...)
	}
	return s.db.QueryRowxContext(ctx, query, args...)
}

func (s *Store) execContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	if s.tx != nil {
		return s.tx.ExecContext(ctx, query, args...)
	}
	return s.db.ExecContext(ctx, query, args...)
}

func (s *Store) namedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error) {
	if s.tx != nil {
		return s.tx.NamedExecContext(ctx, query, arg)
	}
	return s.db.NamedExecContext(ctx, query, arg)
}

// lookupErr maps sql.ErrNoRows to a typed not-found error.
func lookupErr(err error, resource string, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFound(resource, id)
	}
	return fmt.Errorf("loading %s %d: %w", resource, id, err)
}

// expectOneRow turns an UPDATE that matched nothing into a not-found error.
func expectOneRow(res sql.Result, resource string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating %s %d: %w", resource, id, err)
	}
	if n == 0 {
		return domain.NotFound(resource, id)
	}
	return nil
}
