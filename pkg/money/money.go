package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RoundCents rounds to two decimal places, half away from zero.
func RoundCents(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// Tax applies the configured tax rate to a subtotal and rounds to cents.
func Tax(subtotal decimal.Decimal, rate decimal.Decimal) decimal.Decimal {
	return RoundCents(subtotal.Mul(rate))
}

// ProviderAmount renders the amount string handed to the wallet provider.
// Whole numbers drop the decimals ("500"), everything else keeps exactly
// two ("500.50"). The provider signs this exact string, so submission and
// verification must both go through here.
func ProviderAmount(amount decimal.Decimal) string {
	rounded := RoundCents(amount)
	if rounded.IsInteger() {
		return rounded.StringFixed(0)
	}
	return rounded.StringFixed(2)
}

// ParseAmount parses a decimal amount string from an external payload.
func ParseAmount(value string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", value, err)
	}
	return amount, nil
}

// MustParse is a test/config helper for literals known to be valid.
func MustParse(value string) decimal.Decimal {
	amount, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return amount
}
