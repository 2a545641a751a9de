package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrInvalidMoney = errors.New("invalid money amount")

var hundred = decimal.NewFromInt(100)

// ParseCents converts user-entered decimal units ("50", "50.00", "12.5") to cents.
// More than two decimal places is rejected rather than rounded.
func ParseCents(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidMoney
	}
	cents := d.Mul(hundred)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, fmt.Errorf("%w: at most two decimal places", ErrInvalidMoney)
	}
	if !cents.Abs().LessThan(decimal.NewFromInt(1 << 62)) {
		return 0, fmt.Errorf("%w: too large", ErrInvalidMoney)
	}
	return cents.IntPart(), nil
}

// FromWhole converts whole currency units to cents.
func FromWhole(units int64) int64 {
	return units * 100
}

// ToDecimal renders cents as a decimal amount in whole units.
func ToDecimal(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// Format renders cents as "1234.50" with an explicit minus sign for debits.
func Format(cents int64) string {
	return ToDecimal(cents).StringFixed(2)
}

// FormatSigned renders cents with a leading sign, e.g. "+50.00" or "-20.00".
func FormatSigned(cents int64) string {
	if cents >= 0 {
		return "+" + Format(cents)
	}
	return Format(cents)
}
