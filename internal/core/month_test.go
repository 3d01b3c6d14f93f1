package core

import (
	"errors"
	"testing"
	"time"
)

func TestMonthKeyOf(t *testing.T) {
	cases := []struct {
		in   time.Time
		want string
	}{
		{time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC), "2024-3"},
		{time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), "2024-12"},
		{time.Date(2025, 1, 31, 23, 59, 59, 0, time.UTC), "2025-1"},
	}
	for _, tc := range cases {
		if got := MonthKeyOf(tc.in); got != tc.want {
			t.Fatalf("MonthKeyOf(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseMonthKey(t *testing.T) {
	cases := []struct {
		in          string
		year, month int
		ok          bool
	}{
		{"2024-3", 2024, 3, true},
		{"2024-03", 2024, 3, true},
		{"2024-12", 2024, 12, true},
		{"2024-13", 0, 0, false},
		{"2024-0", 0, 0, false},
		{"24-3", 24, 3, true},
		{"999-3", 999, 3, true},
		{"10000-1", 10000, 1, true},
		{"+2024-3", 0, 0, false},
		{"2024-+3", 0, 0, false},
		{"2024", 0, 0, false},
		{"2024-", 0, 0, false},
		{"abcd-1", 0, 0, false},
		{"2024-003", 0, 0, false},
		{"", 0, 0, false},
	}
	for _, tc := range cases {
		y, m, err := ParseMonthKey(tc.in)
		if tc.ok {
			if err != nil || y != tc.year || m != tc.month {
				t.Fatalf("%q: got (%d, %d, %v)", tc.in, y, m, err)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidMonthKey) {
			t.Fatalf("%q: expected ErrInvalidMonthKey, got %v", tc.in, err)
		}
	}
}

func TestParseMonthKeyRoundTrip(t *testing.T) {
	for _, year := range []int{1, 999, 2024, 9999, 10000} {
		ref := time.Date(year, time.July, 4, 0, 0, 0, 0, time.UTC)
		y, m, err := ParseMonthKey(MonthKeyOf(ref))
		if err != nil || y != year || m != 7 {
			t.Fatalf("year %d: got (%d, %d, %v)", year, y, m, err)
		}
	}
}

func TestCanonicalMonthKey(t *testing.T) {
	got, err := CanonicalMonthKey("2024-03")
	if err != nil || got != "2024-3" {
		t.Fatalf("got %q, %v", got, err)
	}
	if _, err := CanonicalMonthKey("nope"); err == nil {
		t.Fatal("expected error")
	}
}

func TestMonthWindowOf(t *testing.T) {
	ref := time.Date(2024, 2, 10, 15, 4, 5, 0, time.UTC)
	w := MonthWindowOf(ref)

	if !w.Start.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start: %v", w.Start)
	}
	// 2024 is a leap year.
	if w.End.Day() != 29 || w.End.Month() != time.February {
		t.Fatalf("unexpected end: %v", w.End)
	}

	inside := []time.Time{
		w.Start,
		time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC),
		w.End,
	}
	for _, ts := range inside {
		if !w.Contains(ts) {
			t.Fatalf("expected %v inside window", ts)
		}
	}
	outside := []time.Time{
		time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC),
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, ts := range outside {
		if w.Contains(ts) {
			t.Fatalf("expected %v outside window", ts)
		}
	}
}

func TestMonthWindowOfKeepsLocation(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)
	ref := time.Date(2024, 3, 1, 2, 0, 0, 0, loc) // still February in UTC
	w := MonthWindowOf(ref)
	if w.Start.Location() != loc || w.Start.Month() != time.March {
		t.Fatalf("window must be computed in the reference location: %v", w.Start)
	}
	if MonthKeyOf(ref) != "2024-3" {
		t.Fatalf("unexpected key %q", MonthKeyOf(ref))
	}
}
