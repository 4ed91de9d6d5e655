package utils

import (
	"testing"
	"time"
)

func TestParseJalaliDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		expYear int
		expMon  time.Month
		expDay  int
	}{
		{name: "nowruz 1403", input: "1403/01/01", expYear: 2024, expMon: time.March, expDay: 20},
		{name: "dash separators", input: "1403-01-01", expYear: 2024, expMon: time.March, expDay: 20},
		{name: "persian digits", input: "۱۴۰۳/۰۱/۰۱", expYear: 2024, expMon: time.March, expDay: 20},
		{name: "mid year", input: "1403/07/01", expYear: 2024, expMon: time.September, expDay: 22},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseJalaliDate(tc.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got == nil {
				t.Fatalf("expected a date, got nil")
			}
			local := got.In(time.FixedZone("IRST", int(3.5*3600)))
			if local.Year() != tc.expYear || local.Month() != tc.expMon || local.Day() != tc.expDay {
				t.Fatalf("ParseJalaliDate(%q) = %v, want %d-%02d-%02d",
					tc.input, local, tc.expYear, tc.expMon, tc.expDay)
			}
		})
	}
}

func TestParseJalaliDateEmpty(t *testing.T) {
	got, err := ParseJalaliDate("   ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
}

func TestParseJalaliDateInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "wrong format", input: "1403/01"},
		{name: "garbage", input: "not-a-date"},
		{name: "month out of range", input: "1403/13/01"},
		{name: "day out of range", input: "1403/01/32"},
		{name: "nonexistent day in short month", input: "1403/07/31"},
		{name: "year out of range", input: "99/01/01"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseJalaliDate(tc.input); err == nil {
				t.Fatalf("expected error for %q", tc.input)
			}
		})
	}
}

func TestFormatJalaliDateRoundTrip(t *testing.T) {
	inputs := []string{"1403/01/01", "1403/07/01", "1402/12/29"}
	for _, in := range inputs {
		parsed, err := ParseJalaliDate(in)
		if err != nil {
			t.Fatalf("ParseJalaliDate(%q): %v", in, err)
		}
		if got := FormatJalaliDate(parsed); got != in {
			t.Fatalf("round trip of %q produced %q", in, got)
		}
	}
}

func TestJalaliDayRangeContainsTodaySessions(t *testing.T) {
	// A nightly job firing at 18:00 must see sessions created for the current
	// Jalali date, which are stored at Tehran midnight (20:30 UTC the previous
	// day). Check the window in several server zones.
	zones := []*time.Location{
		time.UTC,
		time.FixedZone("IRST", int(3.5*3600)),
		time.FixedZone("UTC-5", -5*3600),
	}

	for _, zone := range zones {
		now := time.Date(2026, time.August, 31, 18, 0, 0, 0, zone)

		session, err := ParseJalaliDate(FormatJalaliDate(&now))
		if err != nil {
			t.Fatalf("zone %v: %v", zone, err)
		}

		start, end := JalaliDayRange(now)
		if session.Before(start) || !session.Before(end) {
			t.Fatalf("zone %v: session %v outside window [%v, %v)", zone, session, start, end)
		}
		if !end.After(start) {
			t.Fatalf("zone %v: empty window [%v, %v)", zone, start, end)
		}
	}
}

func TestJalaliDayRangeMatchesFormattedDay(t *testing.T) {
	now := time.Date(2026, time.August, 31, 18, 0, 0, 0, time.UTC)
	start, _ := JalaliDayRange(now)
	if got, want := FormatJalaliDate(&start), FormatJalaliDate(&now); got != want {
		t.Fatalf("window start %q is not the same Jalali day as now %q", got, want)
	}
}

func TestFormatJalaliDateNil(t *testing.T) {
	if got := FormatJalaliDate(nil); got != "" {
		t.Fatalf("expected empty string for nil, got %q", got)
	}
}
