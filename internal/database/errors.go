package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("record not found")

// ErrUniqueViolation is matched by every *UniqueViolationError.
var ErrUniqueViolation = errors.New("unique constraint violation")

// UniqueViolationError reports which constraint a write collided with.
// Constraint holds the Postgres constraint name or the SQLite column list.
type UniqueViolationError struct {
	Constraint string
	Err        error
}

func (e *UniqueViolationError) Error() string {
	return fmt.Sprintf("unique constraint violation on %s", e.Constraint)
}

func (e *UniqueViolationError) Unwrap() []error {
	return []error{ErrUniqueViolation, e.Err}
}

// Involves reports whether the violated constraint covers column.
func (e *UniqueViolationError) Involves(column string) bool {
	return strings.Contains(e.Constraint, column)
}

// translateError converts driver errors into the package's error values.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return &UniqueViolationError{Constraint: pgErr.ConstraintName, Err: err}
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return &UniqueViolationError{
			Constraint: strings.TrimPrefix(sqliteErr.Error(), "UNIQUE constraint failed: "),
			Err:        err,
		}
	}

	return err
}
