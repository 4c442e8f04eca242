package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/lib/pq"

	"volunteerhub/internal/domain"
)

type txKey struct{}

// queryer is the subset of *sql.DB and *sql.Tx the repositories use. Repos
// pick the transaction out of the context when one is running, so the same
// repository methods work inside and outside WithinTx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func q(ctx context.Context, db *sql.DB) queryer {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return db
}

// Retry policy for transient serialization conflicts.
const (
	txMaxAttempts  = 3
	txRetryBackoff = 25 * time.Millisecond
)

type txManager struct {
	DB *sql.DB
}

// NewTxManager returns a TxManager backed by database transactions. Row-level
// locks taken inside fn (SELECT ... FOR UPDATE) serialize callers per
// opportunity; serialization failures and deadlocks are retried with jittered
// backoff and reported as domain.ErrConflict once attempts are exhausted.
func NewTxManager(db *sql.DB) domain.TxManager {
	return &txManager{DB: db}
}

func (m *txManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < txMaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := txRetryBackoff*time.Duration(1<<(attempt-1)) + time.Duration(rand.Int63n(int64(txRetryBackoff)))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		err := m.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("%w: %v", domain.ErrConflict, lastErr)
}

func (m *txManager) runOnce(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := m.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Postgres error codes treated as transient contention.
const (
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
)

func isRetryable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := string(pqErr.Code)
		return code == pqSerializationFailure || code == pqDeadlockDetected
	}
	return false
}
