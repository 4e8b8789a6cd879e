package recon

import (
	"fmt"
	"time"
)

const isoDate = "2006-01-02"

// =============================================================================
// PERIOD - The reconciliation window
// =============================================================================

// Period bounds the entries a reconciliation considers.
// Membership is exclusive on BOTH ends: an entry dated exactly Start or
// exactly End is outside the period.
//
// Days are represented as midnight UTC.
type Period struct {
	Start time.Time
	End   time.Time
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NewDay builds a day value.
func NewDay(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// NewPeriod validates and builds a period. Equal bounds are allowed (the
// period is then empty).
func NewPeriod(start, end time.Time) (Period, error) {
	p := Period{Start: Day(start), End: Day(end)}
	if p.End.Before(p.Start) {
		return Period{}, fmt.Errorf("%w: %s > %s", ErrInvalidPeriod, p.Start.Format(isoDate), p.End.Format(isoDate))
	}
	return p, nil
}

// ParsePeriod parses YYYY-MM-DD bounds.
func ParsePeriod(start, end string) (Period, error) {
	s, err := time.Parse(isoDate, start)
	if err != nil {
		return Period{}, fmt.Errorf("%w: start %q: %v", ErrInvalidPeriod, start, err)
	}
	e, err := time.Parse(isoDate, end)
	if err != nil {
		return Period{}, fmt.Errorf("%w: end %q: %v", ErrInvalidPeriod, end, err)
	}
	return NewPeriod(s, e)
}

// DefaultPeriod is the first day of the previous month through the first day
// of the current month, relative to now.
func DefaultPeriod(now time.Time) Period {
	end := NewDay(now.Year(), now.Month(), 1)
	return Period{Start: end.AddDate(0, -1, 0), End: end}
}

// Contains reports start < day < end. A zero day is never contained.
func (p Period) Contains(day time.Time) bool {
	if day.IsZero() {
		return false
	}
	d := Day(day)
	return d.After(p.Start) && d.Before(p.End)
}

// IsZero reports whether the period was never set.
func (p Period) IsZero() bool {
	return p.Start.IsZero() && p.End.IsZero()
}

func (p Period) StartISO() string { return p.Start.Format(isoDate) }
func (p Period) EndISO() string   { return p.End.Format(isoDate) }

// String returns a string representation of the period.
func (p Period) String() string {
	return "(" + p.StartISO() + ", " + p.EndISO() + ")"
}

// FormatISODate renders a day as YYYY-MM-DD, or "" for the zero time.
func FormatISODate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(isoDate)
}
