package db

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	pkgerrors "github.com/vaultline/vaultyield-backend/pkg/errors"
)

const (
	defaultRetryAttempts = 5
	defaultRetryBase     = 25 * time.Millisecond
)

// TxRunner runs a function inside one atomic storage transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RetryRunner is a TxRunner that retries transient storage contention with
// bounded exponential backoff. After the budget is spent the caller gets a
// TEMPORARY_FAILURE; the transaction never commits partially, so retrying
// the whole call is always safe.
type RetryRunner struct {
	conn     *gorm.DB
	attempts uint64
	base     time.Duration
}

// NewRetryRunner wraps a GORM connection with retry semantics.
func NewRetryRunner(conn *gorm.DB, attempts int, base time.Duration) *RetryRunner {
	if attempts <= 0 {
		attempts = defaultRetryAttempts
	}
	if base <= 0 {
		base = defaultRetryBase
	}
	return &RetryRunner{conn: conn, attempts: uint64(attempts), base: base}
}

// WithTx implements TxRunner.
func (r *RetryRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	backoff := retry.WithMaxRetries(r.attempts-1, retry.NewExponential(r.base))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if txErr := runInTx(ctx, r.conn, fn); txErr != nil {
			if IsRetryable(txErr) {
				return retry.RetryableError(txErr)
			}
			return txErr
		}
		return nil
	})
	if err == nil {
		return nil
	}
	if IsRetryable(err) {
		return pkgerrors.Wrap(pkgerrors.CodeTemporaryFailure, err, "storage contention persisted after retries")
	}
	return err
}
