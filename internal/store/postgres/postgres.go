// Package postgres implements the Entity Store over PostgreSQL using
// database/sql. A single queries type runs against either the pool or an open
// transaction, so every operation is usable inside WithTransaction.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/ridepool/ridepool/internal/store"
)

// Constraint names the error mapping keys on. They must match schema.sql.
const (
	constraintUserEmail       = "users_email_key"
	constraintUserPhone       = "users_phone_number_key"
	constraintOnePendingOwner = "rides_one_pending_per_owner"
)

// uniqueViolation reports whether err is a postgres unique violation on the
// named constraint or index
func uniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == constraint
}

// DBTX is satisfied by both *sql.DB and *sql.Tx
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Store implements store.Store
type Store struct {
	db *sql.DB
	q  DBTX
}

// New creates a Store over a connection pool
func New(db *sql.DB) *Store {
	return &Store{db: db, q: db}
}

// WithTransaction runs fn against a transactional view of the store. The
// transaction is rolled back on any error from fn, committed otherwise.
// Nested calls reuse the already-open transaction.
func (s *Store) WithTransaction(ctx context.Context, fn func(store.Store) error) error {
	if _, ok := s.q.(*sql.Tx); ok {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txStore := &Store{db: s.db, q: tx}
	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return fmt.Errorf("rollback after %v: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

var _ store.Store = (*Store)(nil)
