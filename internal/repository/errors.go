// Package repository defines error types that are reused across multiple
// repositories.  These values allow higher layers to distinguish between the
// failure scenarios a storage call can produce without inspecting driver
// errors themselves.
package repository

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrNotFound is returned when a row does not exist or is not owned by the
// acting user.  The two cases are deliberately the same value so callers
// cannot learn that someone else's row exists.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert or update violates a uniqueness
// constraint (duplicate username, email or course code).
var ErrConflict = errors.New("conflict")

// ErrForeignCourse is returned when a journal entry names a course that the
// entry's owner does not own.
var ErrForeignCourse = errors.New("course does not belong to owner")

// StorageError wraps any failure of the storage engine that is neither a
// missing row nor a uniqueness violation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return "storage: " + e.Op + ": " + e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }

// classify maps a raw driver error onto the repository error taxonomy.
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows), errors.Is(err, ErrNotFound):
		return ErrNotFound
	case errors.Is(err, ErrConflict), isUniqueViolation(err):
		return ErrConflict
	case errors.Is(err, ErrForeignCourse):
		return ErrForeignCourse
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

func isUniqueViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
