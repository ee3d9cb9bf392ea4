package store

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Sentinel errors surfaced by the store layer. Reservation-path errors
// are mapped to templated replies by the engine, never shown raw.
var (
	ErrStoreNotFound   = errors.New("store not found")
	ErrMachineNotFound = errors.New("machine not found")
	ErrMachineBusy     = errors.New("machine already has a pending timer")
	ErrTimerNotFound   = errors.New("timer not found")
)

// isUniqueViolation reports whether err is a unique index violation from
// either supported driver. The pending-timer index fires here when two
// reservation attempts race past the in-transaction re-read.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || // SQLite
		strings.Contains(msg, "SQLSTATE 23505") || // PostgreSQL
		strings.Contains(msg, "duplicate key value")
}
