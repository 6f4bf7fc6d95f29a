package harvest

import (
	"errors"
	"fmt"
)

var (
	// ErrSkip marks a valid record that is intentionally not harvested.
	ErrSkip = errors.New("skipped")

	// ErrUnsupportedGeometry is returned for spatial extras that are
	// neither a Polygon nor a MultiPolygon.
	ErrUnsupportedGeometry = errors.New("unsupported spatial geometry")
)

// SkipError explains why an item was skipped. It matches ErrSkip.
type SkipError struct {
	RemoteID string
	Reason   string
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("dataset %s: %s", e.RemoteID, e.Reason)
}

func (e *SkipError) Is(target error) bool {
	return target == ErrSkip
}

// ListingError aborts a whole run before any item is produced.
type ListingError struct {
	SourceID string
	Err      error
}

func (e *ListingError) Error() string {
	return fmt.Sprintf("listing source %s: %v", e.SourceID, e.Err)
}

func (e *ListingError) Unwrap() error {
	return e.Err
}
