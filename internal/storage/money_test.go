package storage

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCentsRoundTrip(t *testing.T) {
	tests := []struct {
		in    string
		cents int64
	}{
		{"30.00", 3000},
		{"3.33", 333},
		{"0.01", 1},
		{"-0.01", -1},
		{"12.345", 1235},
		{"1000000", 100000000},
		{"92233720368547758.07", 9223372036854775807},
		{"-92233720368547758.08", -9223372036854775808},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ToCents(decimal.RequireFromString(tt.in))
			if err != nil {
				t.Fatalf("ToCents(%s) failed: %v", tt.in, err)
			}
			if got != tt.cents {
				t.Fatalf("ToCents(%s) = %d, want %d", tt.in, got, tt.cents)
			}
			back := FromCents(got)
			if back.StringFixed(2) != decimal.New(tt.cents, -2).StringFixed(2) {
				t.Errorf("FromCents(%d) = %s", got, back.StringFixed(2))
			}
		})
	}
}

func TestCentsOutOfRange(t *testing.T) {
	for _, in := range []string{
		"92233720368547758.08",
		"-92233720368547758.09",
		"184467440737095517.16",
		"1e30",
	} {
		t.Run(in, func(t *testing.T) {
			got, err := ToCents(decimal.RequireFromString(in))
			if !errors.Is(err, ErrAmountOutOfRange) {
				t.Fatalf("ToCents(%s) = %d, %v; want ErrAmountOutOfRange", in, got, err)
			}
		})
	}
}
