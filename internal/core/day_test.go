package core

import (
	"testing"
	"time"
)

func TestDayOfStripsTimeOfDay(t *testing.T) {
	cases := []time.Time{
		time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 15, 13, 45, 59, 999000000, time.UTC),
		time.Date(2024, 3, 15, 23, 59, 59, 0, time.UTC),
	}
	for i, tc := range cases {
		d := DayOf(tc)
		if d.Hour() != 0 || d.Minute() != 0 || d.Second() != 0 || d.Nanosecond() != 0 {
			t.Fatalf("case %d: time-of-day not stripped: %v", i, d.Time)
		}
		if d.Year() != 2024 || d.Month() != time.March || d.Time.Day() != 15 {
			t.Fatalf("case %d: wrong calendar day: %v", i, d.Time)
		}
	}
}

func TestDayRange(t *testing.T) {
	d := NewDay(2024, 3, 15)
	start, end := d.Range()
	if end <= start {
		t.Fatalf("end %d not after start %d", end, start)
	}
	midnight := d.UnixMilli()
	if midnight-start != (11 * time.Hour).Milliseconds() {
		t.Fatalf("start offset = %d ms", midnight-start)
	}
	if end-midnight != (12 * time.Hour).Milliseconds() {
		t.Fatalf("end offset = %d ms", end-midnight)
	}
	// Both bounds stay within a day and an hour of midnight.
	if midnight-start > (25*time.Hour).Milliseconds() || end-midnight > (25*time.Hour).Milliseconds() {
		t.Fatalf("range too wide: [%d, %d] around %d", start, end, midnight)
	}
}

func TestDayKeyRoundTrip(t *testing.T) {
	d := NewDay(2024, 12, 31)
	if got := DayFromUnixMilli(d.Key()); !got.Equal(d) {
		t.Fatalf("round trip: got %v want %v", got, d)
	}
}

func TestParseDay(t *testing.T) {
	d, err := ParseDay("2024-01-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Equal(NewDay(2024, 1, 1)) {
		t.Fatalf("got %v", d)
	}
	if _, err := ParseDay("01/02/2024"); err == nil {
		t.Fatal("expected error for bad format")
	}
}

func TestDayArithmetic(t *testing.T) {
	d := NewDay(2024, 1, 31)
	if got := d.AddDays(1); !got.Equal(NewDay(2024, 2, 1)) {
		t.Fatalf("AddDays: got %v", got)
	}
	if got := d.AddYears(1); !got.Equal(NewDay(2025, 1, 31)) {
		t.Fatalf("AddYears: got %v", got)
	}
	if got := NewDay(2024, 1, 1).AddMonths(11); !got.Equal(NewDay(2024, 12, 1)) {
		t.Fatalf("AddMonths: got %v", got)
	}
	if got := NewDay(2024, 2, 10).FirstOfMonth(); !got.Equal(NewDay(2024, 2, 1)) {
		t.Fatalf("FirstOfMonth: got %v", got)
	}
	if got := NewDay(2024, 2, 1).DaysInMonth(); got != 29 {
		t.Fatalf("DaysInMonth: got %d", got)
	}
	if got := NewDay(2025, 2, 1).DaysInMonth(); got != 28 {
		t.Fatalf("DaysInMonth: got %d", got)
	}
}

func TestDayMonthEndClamping(t *testing.T) {
	tests := []struct {
		name string
		got  Day
		want Day
	}{
		{"jan 31 + 1 month leap year", NewDay(2024, 1, 31).AddMonths(1), NewDay(2024, 2, 29)},
		{"jan 31 + 1 month common year", NewDay(2025, 1, 31).AddMonths(1), NewDay(2025, 2, 28)},
		{"jan 31 + 2 months", NewDay(2024, 1, 31).AddMonths(2), NewDay(2024, 3, 31)},
		{"jan 30 + 3 months", NewDay(2024, 1, 30).AddMonths(3), NewDay(2024, 4, 30)},
		{"oct 31 + 13 months across year", NewDay(2024, 10, 31).AddMonths(13), NewDay(2025, 11, 30)},
		{"feb 29 + 1 year", NewDay(2024, 2, 29).AddYears(1), NewDay(2025, 2, 28)},
		{"feb 29 + 4 years", NewDay(2024, 2, 29).AddYears(4), NewDay(2028, 2, 29)},
	}
	for _, tt := range tests {
		if !tt.got.Equal(tt.want) {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}
