package database

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

const (
	maxRetries = 50
	baseDelay  = 10 * time.Millisecond
	maxDelay   = 25 * time.Millisecond
)

// isRetryableError checks if the error is a retryable SQLite error
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "database is locked") ||
		strings.Contains(errStr, "database table is locked")
}

// isUniqueViolation reports a UNIQUE constraint failure
func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}

// backoff sleeps before the next attempt, or returns early when ctx is done
func backoff(ctx context.Context, attempt int) error {
	delay := time.Duration(attempt+1) * baseDelay
	if delay > maxDelay {
		delay = maxDelay
	}
	// Add random jitter (up to 50% of delay)
	jitter := time.Duration(rand.Int63n(int64(delay) / 2))
	t := time.NewTimer(delay + jitter)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// retryableExec executes a SQL statement with retry logic for lock conflicts
func retryableExec(ctx context.Context, db *sql.DB, query string, args ...any) (sql.Result, error) {
	var result sql.Result
	var err error

	for attempt := 0; attempt < maxRetries; attempt++ {
		result, err = db.ExecContext(ctx, query, args...)
		if !isRetryableError(err) {
			return result, err
		}
		log.Printf("[DB]: SQLite retry attempt %d/%d for query: %s... Error: %v",
			attempt+1, maxRetries, truncateString(query, 50), err)
		if berr := backoff(ctx, attempt); berr != nil {
			return nil, berr
		}
	}
	return result, err
}

// retryableQueryRowScan executes a QueryRow and Scan with retry logic
func retryableQueryRowScan(ctx context.Context, db *sql.DB, query string, args []any, dest ...any) error {
	var err error

	for attempt := 0; attempt < maxRetries; attempt++ {
		err = db.QueryRowContext(ctx, query, args...).Scan(dest...)
		if !isRetryableError(err) {
			return err
		}
		log.Printf("[DB]: SQLite retry attempt %d/%d for QueryRow scan: %s... Error: %v",
			attempt+1, maxRetries, truncateString(query, 50), err)
		if berr := backoff(ctx, attempt); berr != nil {
			return berr
		}
	}
	return err
}

// retryableQuery executes a query that returns multiple rows with retry logic
func retryableQuery(ctx context.Context, db *sql.DB, query string, args ...any) (*sql.Rows, error) {
	var rows *sql.Rows
	var err error

	for attempt := 0; attempt < maxRetries; attempt++ {
		rows, err = db.QueryContext(ctx, query, args...)
		if !isRetryableError(err) {
			return rows, err
		}
		log.Printf("[DB]: SQLite retry attempt %d/%d for query: %s... Error: %v",
			attempt+1, maxRetries, truncateString(query, 50), err)
		if berr := backoff(ctx, attempt); berr != nil {
			return nil, berr
		}
	}
	return rows, err
}

// retryableTransaction runs txFunc in a transaction, retrying the whole
// transaction on lock conflicts
func retryableTransaction(ctx context.Context, db *sql.DB, txFunc func(*sql.Tx) error) error {
	var err error

	for attempt := 0; attempt < maxRetries; attempt++ {
		err = runTransaction(ctx, db, txFunc)
		if !isRetryableError(err) {
			return err
		}
		log.Printf("[DB]: SQLite retry attempt %d/%d for transaction: %v", attempt+1, maxRetries, err)
		if berr := backoff(ctx, attempt); berr != nil {
			return berr
		}
	}
	return err
}

func runTransaction(ctx context.Context, db *sql.DB, txFunc func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := txFunc(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// truncateString truncates a string to the specified length
func truncateString(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length]
}
