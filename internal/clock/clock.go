// Package clock provides the platform's fixed UTC-3 calendar.
//
// The platform's jurisdiction does not observe daylight saving time, so a fixed
// offset is used instead of a tz database location.
package clock

import (
	"fmt"
	"time"
)

// Zone is the platform timezone: UTC-3, no DST.
var Zone = time.FixedZone("UTC-3", -3*60*60)

// Clock is the source of the current instant.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock.
type System struct{}

func (System) Now() time.Time { return time.Now() }

// Fixed always returns the same instant. Used by tests and by one-off runs for a given day.
type Fixed time.Time

func (f Fixed) Now() time.Time { return time.Time(f) }

// Date is a calendar day in the platform zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar day of t in the platform zone.
func DateOf(t time.Time) Date {
	y, m, d := t.In(Zone).Date()
	return Date{Year: y, Month: m, Day: d}
}

// IsDateOnly reports whether t sits exactly on UTC midnight, the form in which
// date-only values (DATE columns, "2025-03-15T00:00:00Z") arrive.
func IsDateOnly(t time.Time) bool {
	u := t.UTC()
	return u.Hour() == 0 && u.Minute() == 0 && u.Second() == 0 && u.Nanosecond() == 0
}

// DayOf classifies an instant on the platform calendar. Date-only values keep
// their own calendar day; every other instant falls on its UTC-3 day.
func DayOf(t time.Time) Date {
	if IsDateOnly(t) {
		y, m, d := t.UTC().Date()
		return Date{Year: y, Month: m, Day: d}
	}
	return DateOf(t)
}

// Today returns the current calendar day in the platform zone.
func Today(c Clock) Date {
	return DateOf(c.Now())
}

// NewDate builds a Date, normalizing out-of-range values the way time.Date does.
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 12, 0, 0, 0, Zone))
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.ParseInLocation("2006-01-02", s, Zone)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// Start returns midnight of the day in the platform zone.
func (d Date) Start() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, Zone)
}

// AddDays returns the day n days later (earlier for negative n).
func (d Date) AddDays(n int) Date {
	return NewDate(d.Year, d.Month, d.Day+n)
}

// Bounds returns the half-open instant range [start, end) covered by the day.
func (d Date) Bounds() (time.Time, time.Time) {
	start := d.Start()
	return start, d.AddDays(1).Start()
}

// UTCMidnight is the representation used for DATE columns.
func (d Date) UTCMidnight() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}
