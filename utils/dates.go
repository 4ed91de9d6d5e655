package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	ptime "github.com/yaa110/go-persian-calendar"
)

// ParseJalaliDate parses a Jalali date string like "1403/07/01" (also with
// "-" separators or Persian digits) into the equivalent Gregorian time.Time
// at midnight Tehran time. Empty input returns nil.
func ParseJalaliDate(input string) (*time.Time, error) {
	s := strings.TrimSpace(NormalizeDigits(input))
	if s == "" {
		return nil, nil
	}

	s = strings.ReplaceAll(s, "-", "/")
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid date format %q (expected yyyy/mm/dd)", input)
	}

	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid year in %q", input)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid month in %q", input)
	}
	day, err := strconv.Atoi(parts[2])
	if err != nil {
		return nil, fmt.Errorf("invalid day in %q", input)
	}

	if year < 1200 || year > 1500 {
		return nil, fmt.Errorf("year %d out of range", year)
	}
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("month %d out of range", month)
	}
	if day < 1 || day > 31 {
		return nil, fmt.Errorf("day %d out of range", day)
	}

	pt := ptime.Date(year, ptime.Month(month), day, 0, 0, 0, 0, ptime.Iran())
	// ptime normalizes overflowing days (e.g. 1403/07/31) instead of failing;
	// reject inputs that did not round-trip.
	if pt.Year() != year || int(pt.Month()) != month || pt.Day() != day {
		return nil, fmt.Errorf("invalid date %q", input)
	}

	t := pt.Time()
	return &t, nil
}

// FormatJalaliDate renders a Gregorian time as "yyyy/mm/dd" Jalali for
// event payloads and exports. Nil input renders empty.
func FormatJalaliDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	pt := ptime.New(t.In(ptime.Iran()))
	return fmt.Sprintf("%04d/%02d/%02d", pt.Year(), int(pt.Month()), pt.Day())
}

// JalaliDayRange returns the Gregorian bounds [start, end) of the Jalali
// calendar day containing t. Session dates are stored at Tehran midnight, so
// "today" windows must be computed from these bounds rather than from UTC
// truncation.
func JalaliDayRange(t time.Time) (time.Time, time.Time) {
	pt := ptime.New(t.In(ptime.Iran()))
	start := ptime.Date(pt.Year(), pt.Month(), pt.Day(), 0, 0, 0, 0, ptime.Iran()).Time()
	return start, start.AddDate(0, 0, 1)
}
