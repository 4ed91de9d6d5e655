package models

import "testing"

func TestStudentBeforeSaveSyncsShadowColumn(t *testing.T) {
	s := Student{NationalCode: "0499370899"}
	s.IsActive = true

	if err := s.BeforeSave(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.ActiveNationalCode == nil || *s.ActiveNationalCode != "0499370899" {
		t.Fatalf("expected shadow column to mirror the code, got %v", s.ActiveNationalCode)
	}

	s.IsActive = false
	if err := s.BeforeSave(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.ActiveNationalCode != nil {
		t.Fatalf("expected shadow column to clear on inactive rows, got %q", *s.ActiveNationalCode)
	}
}

func TestStudentBeforeSaveEmptyCode(t *testing.T) {
	s := Student{}
	s.IsActive = true

	if err := s.BeforeSave(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.ActiveNationalCode != nil {
		t.Fatalf("expected no shadow value without a national code")
	}
}

func TestFullName(t *testing.T) {
	s := Student{FirstName: "امیر", LastName: "حسینی"}
	if got := s.FullName(); got != "امیر حسینی" {
		t.Fatalf("unexpected full name %q", got)
	}

	teacher := Teacher{FirstName: "زهرا", LastName: "محمدی"}
	if got := teacher.FullName(); got != "زهرا محمدی" {
		t.Fatalf("unexpected full name %q", got)
	}
}

func TestLegacyAttendanceTableName(t *testing.T) {
	if got := (AttendanceTable{}).TableName(); got != "attendance_table" {
		t.Fatalf("unexpected table name %q", got)
	}
}
