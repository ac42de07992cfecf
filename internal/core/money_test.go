package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"50000", "50000", true},
		{"1.0", "1", true},
		{"12.5", "12.5", true},
		{"12,5", "12.5", true},
		{" 2.50 ", "2.5", true},
		{".5", "0.5", true},
		{"7.", "7", true},
		{"0.001", "0.001", true},
		{"-5", "", false},
		{"+5", "", false},
		{"0", "", false},
		{"0.00", "", false},
		{"abc", "", false},
		{"1e3", "", false},
		{"1.2.3", "", false},
		{"1,2.3", "", false},
		{".", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("%q expected ErrInvalidAmount, got %v", tc.in, err)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount(decimal.NewFromInt(50000), language.English); got != "50,000" {
		t.Fatalf("unexpected english format: %q", got)
	}
	if got := FormatAmount(decimal.RequireFromString("1234.5"), language.English); got != "1,234.5" {
		t.Fatalf("unexpected fractional format: %q", got)
	}
	if got := FormatMoney(decimal.NewFromInt(7), language.English); got != "7 ₫" {
		t.Fatalf("unexpected money format: %q", got)
	}
}
