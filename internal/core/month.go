package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const monthLayout = "2006-01"

// MonthKey derives the YYYY-MM bucket of t in the local calendar.
func MonthKey(t time.Time) string {
	return t.In(time.Local).Format(monthLayout)
}

// CurrentMonth is MonthKey(time.Now()).
func CurrentMonth() string {
	return MonthKey(time.Now())
}

// ParseMonth splits a YYYY-MM key.
func ParseMonth(key string) (int, time.Month, error) {
	y, m, ok := strings.Cut(strings.TrimSpace(key), "-")
	if !ok || len(y) != 4 || len(m) != 2 {
		return 0, 0, ErrInvalidMonth
	}
	year, err := strconv.Atoi(y)
	if err != nil {
		return 0, 0, ErrInvalidMonth
	}
	month, err := strconv.Atoi(m)
	if err != nil || month < 1 || month > 12 {
		return 0, 0, ErrInvalidMonth
	}
	return year, time.Month(month), nil
}

// FormatMonth builds a YYYY-MM key.
func FormatMonth(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, int(month))
}

// InMonth reports whether t falls in the calendar month named by key.
// Invalid keys never match.
func InMonth(t time.Time, key string) bool {
	year, month, err := ParseMonth(key)
	if err != nil {
		return false
	}
	lt := t.In(time.Local)
	return lt.Year() == year && lt.Month() == month
}

// SameDay reports whether a and b fall on the same local calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.In(time.Local).Date()
	by, bm, bd := b.In(time.Local).Date()
	return ay == by && am == bm && ad == bd
}

// ParseDay accepts an RFC 3339 timestamp or a bare YYYY-MM-DD date
// (interpreted in the local time zone).
func ParseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return t, nil
	}
	return time.Time{}, ErrInvalidDate
}
