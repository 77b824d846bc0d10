/*
Package timeline implements the day-granular sickness calendar.

PURPOSE:
  This package contains the data model and algorithms for the merged
  sickness timeline: a gap-free, date-indexed classification of every
  calendar day in a claim period's span. Partial timelines arrive from
  independent sources (medical certificate, claim application, employer
  notice) and are folded into one authoritative calendar.

KEY CONCEPTS IN THIS FILE (date.go):
  - Date: a calendar date, day granularity, always UTC
  - DateRange: a closed [From, To] interval of dates

DESIGN PRINCIPLES:
  1. Immutability: Date and DateRange are values; operations return copies
  2. Day granularity: there is no notion of time-of-day anywhere in the
     timeline model
  3. Weekend awareness: several merge and segmentation rules depend on
     whether a date falls on a Saturday or Sunday

SEE ALSO:
  - day.go: per-day classification
  - timeline.go: the contiguous sequence of days
  - segment.go: episode segmentation
*/
package timeline

import "time"

// =============================================================================
// DATE - Calendar date, day granularity
// =============================================================================

type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an arbitrary time to its calendar date in UTC.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return NewDate(u.Year(), u.Month(), u.Day())
}

// ParseDate parses a date in ISO form (2006-01-02).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// Comparison
func (d Date) Before(other Date) bool        { return d.t.Before(other.t) }
func (d Date) After(other Date) bool         { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool         { return d.t.Equal(other.t) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{t: d.t.AddDate(0, n, 0)} }

// Properties
func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) IsZero() bool          { return d.t.IsZero() }
func (d Date) Time() time.Time       { return d.t }

func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (d Date) IsWorkday() bool { return !d.IsWeekend() }

func (d Date) String() string { return d.t.Format("2006-01-02") }

// MarshalText serializes the date in ISO form for snapshots.
func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DaysBetween returns the signed number of calendar days from a to b.
func DaysBetween(a, b Date) int {
	return int(b.t.Sub(a.t).Hours() / 24)
}

func MinDate(a, b Date) Date {
	if a.Before(b) {
		return a
	}
	return b
}

func MaxDate(a, b Date) Date {
	if a.After(b) {
		return a
	}
	return b
}

// =============================================================================
// DATE RANGE - Closed interval of dates
// =============================================================================

type DateRange struct {
	From Date
	To   Date
}

func NewDateRange(from, to Date) DateRange {
	return DateRange{From: from, To: to}
}

// Valid reports whether the range is well-formed (From <= To).
func (r DateRange) Valid() bool {
	return !r.From.IsZero() && !r.To.IsZero() && r.From.BeforeOrEqual(r.To)
}

// Contains returns true if the date is within [From, To].
func (r DateRange) Contains(d Date) bool {
	return d.AfterOrEqual(r.From) && d.BeforeOrEqual(r.To)
}

// Overlaps returns true if the two ranges share at least one date.
func (r DateRange) Overlaps(other DateRange) bool {
	return r.From.BeforeOrEqual(other.To) && other.From.BeforeOrEqual(r.To)
}

// Days returns every date in the range in order.
func (r DateRange) Days() []Date {
	var days []Date
	for d := r.From; d.BeforeOrEqual(r.To); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

// Length returns the number of calendar days in the range.
func (r DateRange) Length() int {
	if !r.Valid() {
		return 0
	}
	return DaysBetween(r.From, r.To) + 1
}

func (r DateRange) String() string {
	return "[" + r.From.String() + ", " + r.To.String() + "]"
}
