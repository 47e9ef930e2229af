package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxCents caps a single amount at 999,999.99 major units.
const MaxCents int64 = 99_999_999

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrAmountTooLarge = errors.New("amount too large")
)

var hundred = decimal.NewFromInt(100)

// ParseCents parses a major-unit amount ("25", "25.5", "25.50") into minor units.
// The value must be positive and round to at least one minor unit.
func ParseCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return FromDecimal(d)
}

func FromDecimal(d decimal.Decimal) (int64, error) {
	if !d.IsPositive() {
		return 0, ErrInvalidAmount
	}
	cents := d.Mul(hundred).Round(0)
	if cents.LessThan(decimal.NewFromInt(1)) {
		return 0, ErrInvalidAmount
	}
	if cents.GreaterThan(decimal.NewFromInt(MaxCents)) {
		return 0, ErrAmountTooLarge
	}
	return cents.IntPart(), nil
}

// ToMajor converts minor units into a major-unit decimal (1050 -> 10.5).
func ToMajor(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// Float is the JSON-friendly major-unit value.
func Float(cents int64) float64 {
	return ToMajor(cents).InexactFloat64()
}

// Format renders cents for humans, e.g. 1000 usd -> "$10.00".
func Format(cents int64, currency string) string {
	amount := ToMajor(cents).StringFixed(2)
	switch strings.ToUpper(currency) {
	case "EUR":
		return "€" + amount
	case "USD":
		return "$" + amount
	case "GBP":
		return "£" + amount
	default:
		return fmt.Sprintf("%s %s", amount, strings.ToUpper(currency))
	}
}
