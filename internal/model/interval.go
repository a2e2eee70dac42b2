package model

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// DateLayout is the wire and storage format of a reservation date.
const DateLayout = "2006-01-02"

// MinutesPerDay bounds every TimeOfDay. It is also the value of "24:00",
// which is accepted only as the end of an interval.
const MinutesPerDay = 24 * 60

// ErrInvalidInterval is returned for malformed dates, malformed times and
// intervals whose end is not strictly after their start.
var ErrInvalidInterval = errors.New("invalid interval")

// Date is a local calendar day. It carries no time zone: a reservation on
// 2025-12-01 is on that day wherever the server runs.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("date %q: %w", s, ErrInvalidInterval)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) IsZero() bool { return d == Date{} }

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Weekday is used to pick the operating hours that apply to the date.
func (d Date) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Weekday()
}

func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// TimeOfDay is a wall-clock time expressed in minutes since midnight.
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM". "24:00" is accepted and maps to
// MinutesPerDay so a booking can run until the end of the day.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	if len(s) != 5 || s[2] != ':' || !isDigit(s[0]) || !isDigit(s[1]) || !isDigit(s[3]) || !isDigit(s[4]) {
		return 0, fmt.Errorf("time %q: %w", s, ErrInvalidInterval)
	}
	h, errH := strconv.Atoi(s[:2])
	m, errM := strconv.Atoi(s[3:])
	if errH != nil || errM != nil || h < 0 || m < 0 || m > 59 {
		return 0, fmt.Errorf("time %q: %w", s, ErrInvalidInterval)
	}
	t := TimeOfDay(h*60 + m)
	if t > MinutesPerDay {
		return 0, fmt.Errorf("time %q: %w", s, ErrInvalidInterval)
	}
	return t, nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

func (t TimeOfDay) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	parsed, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Interval is the half-open range [Start, End) within a single day.
type Interval struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// NewInterval validates start < end inside one day. Ranges that would wrap
// past midnight are rejected rather than split.
func NewInterval(start, end TimeOfDay) (Interval, error) {
	if start < 0 || end > MinutesPerDay || start >= MinutesPerDay {
		return Interval{}, fmt.Errorf("%s-%s out of day: %w", start, end, ErrInvalidInterval)
	}
	if start >= end {
		return Interval{}, fmt.Errorf("%s-%s: start must be before end: %w", start, end, ErrInvalidInterval)
	}
	return Interval{Start: start, End: end}, nil
}

// Overlaps reports whether a and b share at least one minute. Back-to-back
// intervals (a.End == b.Start) do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

// Contains reports whether o lies entirely inside i.
func (i Interval) Contains(o Interval) bool {
	return i.Start <= o.Start && o.End <= i.End
}

func (i Interval) Duration() time.Duration {
	return time.Duration(i.End-i.Start) * time.Minute
}

func (i Interval) String() string { return i.Start.String() + "-" + i.End.String() }
