package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// TxRunner is the explicit unit of work for multi-table writes. Callers pass
// the *sqlx.Tx through to repository methods ending in Tx; the transaction is
// the atomicity boundary for one promotion or re-admission call.
type TxRunner struct {
	db *sqlx.DB
}

// NewTxRunner constructs a TxRunner bound to the database handle.
func NewTxRunner(db *sqlx.DB) *TxRunner {
	return &TxRunner{db: db}
}

// Within runs fn inside a transaction, committing on nil error and rolling
// back otherwise.
func (r *TxRunner) Within(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (code 23505). Unique indexes are the final arbiter for racing
// enrollment and roll number writes.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
