package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// ErrDuplicate is returned when an insert hits a unique constraint.
var ErrDuplicate = errors.New("duplicate record")

const uniqueViolation = pq.ErrorCode("23505")

// describe adds the constraint and detail of PostgreSQL errors and maps
// unique violations to ErrDuplicate.
func describe(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	if pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Constraint)
	}
	if pqErr.Detail != "" {
		return fmt.Errorf("%s (%s): %w", pqErr.Code.Name(), pqErr.Detail, err)
	}
	return fmt.Errorf("%s: %w", pqErr.Code.Name(), err)
}

// nullTime stores zero times as NULL.
func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
