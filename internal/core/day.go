// Package core holds the domain types shared by every layer: calendar days,
// integer-cents money, expenses and recurring-expense templates.
//
// Days are normalized to midnight UTC. The upstream data model stored
// local-midnight timestamps from devices in arbitrary timezones, so the
// day-range query below keeps a deliberately widened window around UTC
// midnight rather than an exact 24 hours.
package core

import (
	"errors"
	"time"
)

// Day is a calendar day with the time-of-day stripped, pinned to UTC.
// Construct it via NewDay, DayOf or ParseDay so the invariant holds.
type Day struct {
	time.Time
}

const (
	dayLayout = "2006-01-02"

	// Timestamps written by clients in any plausible timezone relative to a
	// UTC-midnight day key fall inside [-11h, +12h] of that midnight.
	rangeBeforeMidnight = 11 * time.Hour
	rangeAfterMidnight  = 12 * time.Hour
)

var ErrBadDayFormat = errors.New("day must be formatted as YYYY-MM-DD")

// NewDay builds a Day from calendar parts. Out-of-range parts are
// normalized the way time.Date normalizes them.
func NewDay(year, month, day int) Day {
	return Day{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DayOf strips the time-of-day from t, reading the calendar parts in UTC.
func DayOf(t time.Time) Day {
	y, m, d := t.UTC().Date()
	return NewDay(y, int(m), d)
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return Day{}, ErrBadDayFormat
	}
	return DayOf(t), nil
}

// DayFromUnixMilli rebuilds a Day from a stored millisecond timestamp.
func DayFromUnixMilli(ms int64) Day {
	return DayOf(time.UnixMilli(ms))
}

func (d Day) String() string {
	return d.Format(dayLayout)
}

// Key returns the canonical map/DB key for the day: the millisecond
// timestamp of its UTC midnight.
func (d Day) Key() int64 {
	return d.UnixMilli()
}

// Range returns the inclusive millisecond window [start, end] covering the
// day for range queries against stored timestamps.
func (d Day) Range() (start, end int64) {
	midnight := d.UnixMilli()
	return midnight - rangeBeforeMidnight.Milliseconds(), midnight + rangeAfterMidnight.Milliseconds()
}

func (d Day) AddDays(n int) Day {
	return NewDay(d.Year(), int(d.Month()), d.Time.Day()+n)
}

// AddMonths steps n calendar months, clamping the day-of-month to the
// target month's length: Jan 31 + 1 month is Feb 29 (or 28), never Mar 2.
func (d Day) AddMonths(n int) Day {
	return clampedDay(d.Year(), int(d.Month())+n, d.Time.Day())
}

// AddYears steps n calendar years; Feb 29 clamps to Feb 28 off leap years.
func (d Day) AddYears(n int) Day {
	return clampedDay(d.Year()+n, int(d.Month()), d.Time.Day())
}

func clampedDay(year, month, dom int) Day {
	first := NewDay(year, month, 1)
	if last := first.DaysInMonth(); dom > last {
		dom = last
	}
	return NewDay(first.Year(), int(first.Month()), dom)
}

// FirstOfMonth returns the first day of d's month.
func (d Day) FirstOfMonth() Day {
	return NewDay(d.Year(), int(d.Month()), 1)
}

// DaysInMonth returns the number of days in d's month.
func (d Day) DaysInMonth() int {
	return NewDay(d.Year(), int(d.Month())+1, 0).Time.Day()
}

// Before and After compare day keys; equal days are neither.
func (d Day) Before(other Day) bool {
	return d.Time.Before(other.Time)
}

func (d Day) After(other Day) bool {
	return d.Time.After(other.Time)
}

func (d Day) Equal(other Day) bool {
	return d.Time.Equal(other.Time)
}
