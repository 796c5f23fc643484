package reward

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Per-recipient conditions absorbed into BatchResult counts. Only
// validation errors ever surface to the caller of TriggerPayout.
var (
	// ErrInsufficientStock: no AVAILABLE instance is obtainable for a
	// recipient. Stock cannot replenish mid-batch, so the engine stops
	// reserving once it sees this.
	ErrInsufficientStock = errors.New("insufficient reward stock")

	// ErrAlreadyPaid: the ledger's unique constraint rejected the SUCCESS
	// row, meaning another batch (concurrent or prior) already paid this
	// user for the task. Idempotent no-op, neither success nor failure.
	ErrAlreadyPaid = errors.New("user already paid for task")

	// ErrConcurrencyConflict: lock wait exceeded its bound or a reservation
	// race was lost beyond retry. The recipient counts as failed for this
	// attempt and is retryable by re-invoking the batch.
	ErrConcurrencyConflict = errors.New("concurrency conflict during reservation")
)

// isDuplicateKey detects a storage-level unique constraint violation across
// the supported dialects. gorm's TranslateError covers most drivers; the
// message sniffing remains for raw driver errors that bypass translation.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || // sqlite
		strings.Contains(msg, "SQLSTATE 23505") || // postgres
		strings.Contains(msg, "duplicate key value") || // postgres
		strings.Contains(msg, "Error 1062") // mysql
}

// isLockTimeout detects a bounded lock/transaction acquisition timeout.
func isLockTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLSTATE 55P03") || // postgres lock_not_available
		strings.Contains(msg, "Error 1205") || // mysql lock wait timeout
		strings.Contains(msg, "database is locked") // sqlite busy
}
