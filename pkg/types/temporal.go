package types

import (
	"fmt"
	"time"
)

// Date represents a calendar date without time component.
type Date struct {
	Year  int
	Month int // 1-12
	Day   int // 1-31
}

// ParseDate parses an ISO "YYYY-MM-DD" date string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return FromTime(t), nil
}

// MustDate parses an ISO date string and panics on failure. Test helper.
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// FromTime creates a Date from a time.Time.
func FromTime(t time.Time) Date {
	return Date{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}

// Today returns the current date.
func Today() Date {
	return FromTime(time.Now())
}

// ToTime converts a Date to a time.Time at midnight UTC.
func (d Date) ToTime() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

// String formats the date as ISO "YYYY-MM-DD".
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Before returns true if d is before other.
func (d Date) Before(other Date) bool {
	return d.ToTime().Before(other.ToTime())
}

// After returns true if d is after other.
func (d Date) After(other Date) bool {
	return d.ToTime().After(other.ToTime())
}

// Equal returns true if d equals other.
func (d Date) Equal(other Date) bool {
	return d.Year == other.Year && d.Month == other.Month && d.Day == other.Day
}

// ValidityWindow is the half-open interval [ValidFrom, ValidTo) during which
// a specific wording of a provision was in force. A nil ValidFrom means
// "since the beginning of time"; a nil ValidTo means "still current".
type ValidityWindow struct {
	ValidFrom *Date `json:"valid_from,omitempty"`
	ValidTo   *Date `json:"valid_to,omitempty"`
}

// Contains reports whether the window contains the given date.
func (w ValidityWindow) Contains(date Date) bool {
	if w.ValidFrom != nil && date.Before(*w.ValidFrom) {
		return false
	}
	if w.ValidTo != nil && !date.Before(*w.ValidTo) {
		return false
	}
	return true
}

// Open reports whether the window has no end date (current wording).
func (w ValidityWindow) Open() bool {
	return w.ValidTo == nil
}

// Overlaps reports whether two windows share at least one day.
func (w ValidityWindow) Overlaps(other ValidityWindow) bool {
	startsBefore := func(a *Date, b *Date) bool {
		// is a < b, treating nil a as -inf and nil b as +inf
		if a == nil || b == nil {
			return true
		}
		return a.Before(*b)
	}
	// [w.from, w.to) and [other.from, other.to) overlap when each starts
	// before the other ends.
	return startsBefore(w.ValidFrom, other.ValidTo) && startsBefore(other.ValidFrom, w.ValidTo)
}

// ProvisionVersion is an immutable wording of a provision valid over a
// half-open time interval. For a fixed (document, ref) pair the stored
// versions partition time into non-overlapping intervals with at most one
// open interval.
type ProvisionVersion struct {
	Provision
	ValidityWindow

	// IngestRun identifies the ingestion run that produced this row.
	IngestRun string `json:"ingest_run,omitempty"`
}

// VersionStatus classifies the outcome of a point-in-time lookup.
type VersionStatus string

const (
	// VersionCurrent means the resolved version is the current wording.
	VersionCurrent VersionStatus = "current"
	// VersionHistorical means the resolved version has since been replaced.
	VersionHistorical VersionStatus = "historical"
	// VersionFuture means no wording existed at the requested date, but a
	// later one does.
	VersionFuture VersionStatus = "future"
	// VersionNotFound means the provision has no stored version at any date.
	VersionNotFound VersionStatus = "not_found"
)
