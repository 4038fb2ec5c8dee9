package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestProviderAmountFormatting(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"500", "500"},
		{"500.00", "500"},
		{"500.5", "500.50"},
		{"499.999", "500"},
		{"0", "0"},
		{"1234.05", "1234.05"},
	}
	for _, tc := range cases {
		got := ProviderAmount(MustParse(tc.in))
		if got != tc.want {
			t.Fatalf("ProviderAmount(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTaxRoundsToCents(t *testing.T) {
	subtotal := MustParse("250")
	got := Tax(subtotal, MustParse("0.13"))
	if !got.Equal(MustParse("32.50")) {
		t.Fatalf("tax = %s, want 32.50", got)
	}

	// 99.99 * 0.13 = 12.9987 -> 13.00
	got = Tax(MustParse("99.99"), MustParse("0.13"))
	if !got.Equal(MustParse("13.00")) {
		t.Fatalf("tax = %s, want 13.00", got)
	}
}

func TestParseAmountRejectsGarbage(t *testing.T) {
	if _, err := ParseAmount("12,5"); err == nil {
		t.Fatal("expected parse error")
	}
	amount, err := ParseAmount("12.50")
	if err != nil {
		t.Fatalf("ParseAmount: %v", err)
	}
	if !amount.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("unexpected amount: %s", amount)
	}
}
