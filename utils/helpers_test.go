package utils

import "testing"

func TestIsValidNationalCode(t *testing.T) {
	tests := []struct {
		name  string
		code  string
		valid bool
	}{
		{name: "valid code remainder below two", code: "1234567891", valid: true},
		{name: "valid code remainder two or more", code: "0499370899", valid: true},
		{name: "wrong check digit", code: "1234567890", valid: false},
		{name: "all same digits", code: "1111111111", valid: false},
		{name: "too short", code: "123456789", valid: false},
		{name: "too long", code: "12345678912", valid: false},
		{name: "non digit characters", code: "12345a7891", valid: false},
		{name: "empty", code: "", valid: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := IsValidNationalCode(tc.code); got != tc.valid {
				t.Fatalf("IsValidNationalCode(%q) = %v, want %v", tc.code, got, tc.valid)
			}
		})
	}
}

func TestNormalizeDigits(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "persian digits", input: "۱۴۰۳/۰۷/۰۱", expected: "1403/07/01"},
		{name: "arabic digits", input: "٠١٢٣٤٥٦٧٨٩", expected: "0123456789"},
		{name: "ascii passthrough", input: "1403/07/01", expected: "1403/07/01"},
		{name: "mixed text", input: "کد ۱۲۳", expected: "کد 123"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeDigits(tc.input); got != tc.expected {
				t.Fatalf("NormalizeDigits(%q) = %q, want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestIsValidFileExtension(t *testing.T) {
	allowed := []string{"jpg", "jpeg", "png", "webp"}

	tests := []struct {
		name     string
		filename string
		valid    bool
	}{
		{name: "jpg", filename: "photo.jpg", valid: true},
		{name: "uppercase extension", filename: "photo.PNG", valid: true},
		{name: "double extension", filename: "photo.tar.webp", valid: true},
		{name: "executable", filename: "photo.exe", valid: false},
		{name: "no extension", filename: "photo", valid: false},
		{name: "empty", filename: "", valid: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := IsValidFileExtension(tc.filename, allowed); got != tc.valid {
				t.Fatalf("IsValidFileExtension(%q) = %v, want %v", tc.filename, got, tc.valid)
			}
		})
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := CheckPassword("s3cret-pass", hash); err != nil {
		t.Fatalf("expected password to match: %v", err)
	}
	if err := CheckPassword("wrong-pass", hash); err == nil {
		t.Fatalf("expected mismatch error for wrong password")
	}
}

func TestIsValidRole(t *testing.T) {
	if !IsValidRole("admin") || !IsValidRole("staff") {
		t.Fatalf("expected admin and staff to be valid roles")
	}
	if IsValidRole("teacher") || IsValidRole("") {
		t.Fatalf("expected unknown roles to be rejected")
	}
}
