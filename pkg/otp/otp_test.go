package otp

import (
	"errors"
	"strconv"
	"testing"
)

func TestGenerateNonProduction(t *testing.T) {
	if got := Generate(false); got != FixedCode {
		t.Errorf("got %q, want fixed code %q", got, FixedCode)
	}
}

func TestGenerateProduction(t *testing.T) {
	for i := 0; i < 100; i++ {
		code := Generate(true)
		if len(code) != 6 {
			t.Fatalf("got %q, want 6 digits", code)
		}
		n, err := strconv.Atoi(code)
		if err != nil {
			t.Fatalf("code %q is not numeric: %v", code, err)
		}
		if n < 100000 || n > 999999 {
			t.Fatalf("code %d out of range [100000, 999999]", n)
		}
	}
}

func TestNormalizeMobileProduction(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"0512345678", "966512345678", false},
		{"0598765432", "966598765432", false},
		{"123", "", true},
		{"0412345678", "", true},
		{"05123456789", "", true},
		{"051234567", "", true},
		{"05123a5678", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := NormalizeMobile(tt.raw, true)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidMobile) {
				t.Errorf("NormalizeMobile(%q): got err %v, want ErrInvalidMobile", tt.raw, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizeMobile(%q): unexpected error %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeMobile(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestNormalizeMobileNonProduction(t *testing.T) {
	for _, raw := range []string{"0512345678", "123", "whatever"} {
		got, err := NormalizeMobile(raw, false)
		if err != nil {
			t.Errorf("NormalizeMobile(%q): unexpected error %v", raw, err)
		}
		if got != raw {
			t.Errorf("NormalizeMobile(%q) = %q, want input unchanged", raw, got)
		}
	}
}
