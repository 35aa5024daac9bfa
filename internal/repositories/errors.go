package repositories

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"lancebill-backend/internal/ledger"
	"lancebill-backend/internal/metrics"
)

var ErrEmailTaken = errors.New("email already registered")

// pgLockNotAvailable is raised when lock_timeout expires while waiting on a
// row lock; it maps to the retryable contention error kind.
const pgLockNotAvailable = "55P03"
const pgUniqueViolation = "23505"

// translateErr maps driver-level failures onto the ledger error vocabulary.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgLockNotAvailable:
			metrics.LockContentionTotal.Inc()
			return ledger.ErrContention
		case pgUniqueViolation:
			if strings.Contains(pgErr.ConstraintName, "email") {
				return ErrEmailTaken
			}
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		metrics.LockContentionTotal.Inc()
		return ledger.ErrContention
	}
	return err
}

// beginLocked opens a transaction with a bounded lock wait, so a mutation
// that loses a row-lock race fails fast with Contention instead of queueing
// behind the winner indefinitely.
func beginLocked(ctx context.Context, pool *pgxpool.Pool) (pgx.Tx, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, "SET LOCAL lock_timeout = '2s'"); err != nil {
		tx.Rollback(ctx)
		return nil, err
	}
	return tx, nil
}
