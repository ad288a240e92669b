package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
)

// PostgreSQL SQLSTATE codes that signal a transaction may succeed if rerun.
const (
	CodeSerializationFailure = "40001"
	CodeDeadlockDetected     = "40P01"
	CodeUniqueViolation      = "23505"
)

// ErrTxRetriesExhausted is returned when every attempt of a retryable
// transaction hit a retryable conflict.
var ErrTxRetriesExhausted = errors.New("transaction retries exhausted")

// TxBeginner starts transactions. *pgxpool.Pool and pgxmock pools satisfy it.
type TxBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// TxPolicy controls isolation and retry behavior of RunInTx.
type TxPolicy struct {
	// Name labels retry metrics, e.g. "submit_rating".
	Name        string
	IsoLevel    pgx.TxIsoLevel
	MaxAttempts uint
	// InitialInterval and MaxInterval bound the exponential backoff between attempts.
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// RetryOnUniqueViolation treats 23505 as a conflict to rerun rather than
	// a caller error. Set it when two first-inserts may race.
	RetryOnUniqueViolation bool
}

// DefaultTxPolicy is SERIALIZABLE with up to 5 attempts.
func DefaultTxPolicy(name string) TxPolicy {
	return TxPolicy{
		Name:                   name,
		IsoLevel:               pgx.Serializable,
		MaxAttempts:            5,
		InitialInterval:        10 * time.Millisecond,
		MaxInterval:            200 * time.Millisecond,
		RetryOnUniqueViolation: true,
	}
}

var txRetries = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "db_tx_retries_total",
		Help: "Transaction attempts rerun after a retryable conflict, by transaction name and SQLSTATE.",
	},
	[]string{"tx", "code"},
)

// TxRetriesCollector exposes the retry counter for registration.
func TxRetriesCollector() prometheus.Collector {
	return txRetries
}

// RetryableCode returns the SQLSTATE of err when it is a conflict worth
// rerunning under p, or "" otherwise.
func (p TxPolicy) RetryableCode(err error) string {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return ""
	}
	switch pgErr.Code {
	case CodeSerializationFailure, CodeDeadlockDetected:
		return pgErr.Code
	case CodeUniqueViolation:
		if p.RetryOnUniqueViolation {
			return pgErr.Code
		}
	}
	return ""
}

// RunInTx runs fn inside a transaction and commits it. The whole transaction
// is rerun from the start when it fails with a retryable conflict, so fn must
// not have side effects outside tx. Exhausted retries yield an error wrapping
// both ErrTxRetriesExhausted and the last conflict. Context cancellation stops
// retries between attempts.
func RunInTx(ctx context.Context, db TxBeginner, policy TxPolicy, fn func(tx pgx.Tx) error) error {
	attempts := policy.MaxAttempts
	if attempts == 0 {
		attempts = 1
	}

	b := backoff.NewExponentialBackOff()
	if policy.InitialInterval > 0 {
		b.InitialInterval = policy.InitialInterval
	}
	if policy.MaxInterval > 0 {
		b.MaxInterval = policy.MaxInterval
	}

	op := func() (struct{}, error) {
		err := runOnce(ctx, db, policy.IsoLevel, fn)
		if err == nil {
			return struct{}{}, nil
		}
		if code := policy.RetryableCode(err); code != "" {
			txRetries.WithLabelValues(policy.Name, code).Inc()
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	}

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(attempts),
		backoff.WithMaxElapsedTime(0),
	)
	if err == nil {
		return nil
	}
	if policy.RetryableCode(err) != "" {
		return fmt.Errorf("%w after %d attempts: %w", ErrTxRetriesExhausted, attempts, err)
	}
	return err
}

func runOnce(ctx context.Context, db TxBeginner, iso pgx.TxIsoLevel, fn func(tx pgx.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, pgx.TxOptions{IsoLevel: iso})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
