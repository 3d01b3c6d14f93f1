package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MonthWindow is an inclusive calendar-month range.
type MonthWindow struct {
	Start time.Time
	End   time.Time
}

// MonthKeyOf returns the canonical "{year}-{month}" key for t.
// The month is 1-indexed and never zero-padded: historical rows are keyed
// that way and lookups must match them byte for byte.
func MonthKeyOf(t time.Time) string {
	return strconv.Itoa(t.Year()) + "-" + strconv.Itoa(int(t.Month()))
}

// ParseMonthKey splits a month key into year and month. Zero-padded months
// are accepted on input. The year is any unsigned decimal, so every key
// MonthKeyOf produces for years 0 and later parses back.
func ParseMonthKey(key string) (year, month int, err error) {
	y, m, ok := strings.Cut(strings.TrimSpace(key), "-")
	if !ok || !isDigits(y) || len(y) > 9 || !isDigits(m) || len(m) > 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidMonthKey, key)
	}
	year, err = strconv.Atoi(y)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidMonthKey, key)
	}
	month, err = strconv.Atoi(m)
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidMonthKey, key)
	}
	return year, month, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// CanonicalMonthKey rewrites key into the form MonthKeyOf produces.
func CanonicalMonthKey(key string) (string, error) {
	year, month, err := ParseMonthKey(key)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(year) + "-" + strconv.Itoa(month), nil
}

// MonthWindowOf returns the calendar month containing t, computed in t's own
// location. End is the last representable instant of the last day.
func MonthWindowOf(t time.Time) MonthWindow {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return MonthWindow{
		Start: start,
		End:   start.AddDate(0, 1, 0).Add(-time.Nanosecond),
	}
}

// Contains reports whether t falls inside the window, both ends included.
func (w MonthWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}
