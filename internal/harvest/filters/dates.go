package filters

import (
	"fmt"
	"strings"
	"time"
)

// dkanDatePrefix is prepended by DKAN to some modification dates.
const dkanDatePrefix = "Date changed  "

// Catalog timestamps usually come without a timezone and are read as UTC.
var dateLayouts = []string{
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"Mon, 01/02/2006 - 15:04",
	"01/02/2006 - 15:04",
	"01/02/2006",
	time.RFC1123Z,
	time.RFC1123,
}

// ToDate parses a catalog timestamp.
func ToDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	var parseErr error
	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			return t.UTC(), nil
		}
		parseErr = err
	}
	return time.Time{}, fmt.Errorf("unable to parse date %q: %w", s, parseErr)
}

// DKANToDate strips the DKAN "Date changed" prefix before parsing.
func DKANToDate(s string) (time.Time, error) {
	return ToDate(strings.Replace(s, dkanDatePrefix, "", 1))
}

// DateRangeStart parses the opening bound of a date range.
// Partial dates expand to their first day: "2019" is 2019-01-01.
func DateRangeStart(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01", s); err == nil {
		return t, nil
	}
	t, err := ToDate(s)
	if err != nil {
		return time.Time{}, err
	}
	return truncateDay(t), nil
}

// DateRangeEnd parses the closing bound of a date range.
// Partial dates expand to their last day: "2019-02" is 2019-02-28.
func DateRangeEnd(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006", s); err == nil {
		return t.AddDate(1, 0, -1), nil
	}
	if t, err := time.Parse("2006-01", s); err == nil {
		return t.AddDate(0, 1, -1), nil
	}
	t, err := ToDate(s)
	if err != nil {
		return time.Time{}, err
	}
	return truncateDay(t), nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
