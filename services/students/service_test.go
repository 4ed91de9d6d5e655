package students

import (
	"errors"
	"madrese_go/models"
	"testing"
)

func TestTotalPages(t *testing.T) {
	tests := []struct {
		name     string
		total    int64
		pageSize int
		expected int
	}{
		{name: "zero rows still one page", total: 0, pageSize: 10, expected: 1},
		{name: "exact fit", total: 20, pageSize: 10, expected: 2},
		{name: "partial last page", total: 21, pageSize: 10, expected: 3},
		{name: "single row", total: 1, pageSize: 10, expected: 1},
		{name: "page size one", total: 5, pageSize: 1, expected: 5},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := TotalPages(tc.total, tc.pageSize); got != tc.expected {
				t.Fatalf("TotalPages(%d, %d) = %d, want %d", tc.total, tc.pageSize, got, tc.expected)
			}
		})
	}
}

func TestNormalizeListParams(t *testing.T) {
	tests := []struct {
		name    string
		in      ListParams
		expPage int
		expSize int
	}{
		{name: "defaults", in: ListParams{}, expPage: 1, expSize: 10},
		{name: "negative page", in: ListParams{Page: -3, PageSize: 20}, expPage: 1, expSize: 20},
		{name: "oversized page size capped", in: ListParams{Page: 2, PageSize: 500}, expPage: 2, expSize: 100},
		{name: "valid passthrough", in: ListParams{Page: 4, PageSize: 25}, expPage: 4, expSize: 25},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := normalizeListParams(tc.in)
			if got.Page != tc.expPage || got.PageSize != tc.expSize {
				t.Fatalf("normalizeListParams(%+v) = page %d size %d, want page %d size %d",
					tc.in, got.Page, got.PageSize, tc.expPage, tc.expSize)
			}
		})
	}
}

func TestSoftDeleteLifecycle(t *testing.T) {
	actor := uint(42)
	var s models.Student
	s.IsActive = true

	s.SoftDelete.Deactivate("transferred to another school", &actor)
	if s.IsActive {
		t.Fatalf("expected IsActive=false after deactivate")
	}
	if s.DeletedAt == nil {
		t.Fatalf("expected DeletedAt to be set")
	}
	if s.DeletedBy == nil || *s.DeletedBy != actor {
		t.Fatalf("expected DeletedBy=%d, got %v", actor, s.DeletedBy)
	}
	if s.InactiveReason != "transferred to another school" {
		t.Fatalf("unexpected reason %q", s.InactiveReason)
	}

	s.SoftDelete.Restore()
	if !s.IsActive {
		t.Fatalf("expected IsActive=true after restore")
	}
	if s.DeletedAt != nil || s.DeletedBy != nil || s.InactiveReason != "" {
		t.Fatalf("expected restore to clear all lifecycle fields, got %+v", s.SoftDelete)
	}
}

func TestCountsString(t *testing.T) {
	c := &Counts{Active: 12, Inactive: 3, Total: 15}
	if got, want := c.String(), "active=12 inactive=3 total=15"; got != want {
		t.Fatalf("Counts.String() = %q, want %q", got, want)
	}

	var nilCounts *Counts
	if got := nilCounts.String(); got != "counts unavailable" {
		t.Fatalf("nil Counts.String() = %q", got)
	}
}

func TestIsDuplicateErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "mysql duplicate entry", err: errors.New("Error 1062: Duplicate entry '0499370899' for key 'active_national_code'"), want: true},
		{name: "error code only", err: errors.New("driver: 1062"), want: true},
		{name: "unrelated error", err: errors.New("connection refused"), want: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := isDuplicateErr(tc.err); got != tc.want {
				t.Fatalf("isDuplicateErr(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
