package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/synaptica-ai/genomics/pkg/common/config"
	"github.com/synaptica-ai/genomics/pkg/common/logger"
	"gorm.io/gorm"
)

// RetryPolicy bounds how often a unit of work is replayed after a transient
// store failure.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Backoff: 100 * time.Millisecond}
}

func PolicyFromConfig(cfg *config.Config) RetryPolicy {
	if cfg == nil {
		return DefaultRetryPolicy()
	}
	return RetryPolicy{MaxAttempts: cfg.TxMaxAttempts, Backoff: cfg.TxRetryBackoff}
}

// WithTransaction runs fn in one transaction: commit when fn returns nil,
// rollback otherwise. Lock contention and serialization failures are retried
// according to policy; every other error is returned untouched.
func WithTransaction(ctx context.Context, db *gorm.DB, policy RetryPolicy, fn func(tx *gorm.DB) error) error {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := policy.Backoff

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = db.WithContext(ctx).Transaction(fn)
		if err == nil || !IsTransient(err) || attempt == attempts {
			return err
		}

		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"attempt":      attempt,
			"max_attempts": attempts,
		}).Warn("transient store error, retrying transaction")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}

// ReadSnapshot runs fn in a read-only transaction so every query inside it
// observes the same snapshot.
func ReadSnapshot(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	var opts *sql.TxOptions
	if db.Dialector != nil && db.Dialector.Name() == "postgres" {
		opts = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	return db.WithContext(ctx).Transaction(fn, opts)
}

func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03":
			return true
		}
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "sqlite_busy")
}
