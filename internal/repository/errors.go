// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow callers to distinguish
// between different failure scenarios with errors.Is: an absent row is
// not a fault (ErrNotFound), a rejected write is (ErrUsernameExists,
// ErrEmailExists, ErrConflict, ErrActiveSessionExists), and a refused
// state-machine operation (ErrInvalidTransition) is detected before any
// write happens. ErrStorageUnavailable wraps connectivity and timeout
// failures so callers can retry them, distinct from a not-found result.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrNotFound is returned when a lookup by id, username or email
// matches no row.
var ErrNotFound = errors.New("not found")

// ErrUsernameExists is returned when an insert or update collides
// with the unique constraint on users.username.
var ErrUsernameExists = errors.New("username already exists")

// ErrEmailExists is returned when an insert or update collides with
// the unique constraint on users.email.
var ErrEmailExists = errors.New("email already exists")

// ErrConflict is returned when a delete or update cannot be
// performed because of conflicting state, such as deleting a user or
// recipe that still has cooking sessions referencing it.
var ErrConflict = errors.New("conflict")

// ErrActiveSessionExists is returned when a session is started for a
// user who already has an unfinished session. The unique index on
// (user_id, active_flag) is the source of truth; this error is the
// mapped duplicate-key violation, so there is no check-then-insert
// window.
var ErrActiveSessionExists = errors.New("user already has an active session")

// ErrInvalidTransition is returned when a session or timer operation
// is requested from a terminal or out-of-range state: advancing past
// the last step, completing before the last step, completing twice,
// resuming a timer that is not paused.
var ErrInvalidTransition = errors.New("invalid transition")

// ErrStorageUnavailable wraps errors that indicate the store could
// not be reached or the operation timed out. Callers may retry.
var ErrStorageUnavailable = errors.New("storage unavailable")

// MySQL error numbers as they appear in the driver's error strings.
const (
	mysqlDupEntry      = "1062" // duplicate key
	mysqlRowReferenced = "1451" // cannot delete or update, row is referenced
	mysqlNoReferenced  = "1452" // cannot add or update, referenced row missing
)

func isMySQLErr(err error, code string) bool {
	return err != nil && strings.Contains(err.Error(), code)
}

// wrapStorage classifies low-level database errors. Timeouts and
// connection failures become ErrStorageUnavailable; sql.ErrNoRows
// becomes ErrNotFound; everything else passes through untouched.
func wrapStorage(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if errors.Is(err, sql.ErrConnDone) || strings.Contains(err.Error(), "connection refused") {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return err
}
