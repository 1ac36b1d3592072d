package storage

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/expensedash/internal/models"
)

// ToCents converts an amount to integer minor units, rounding to two places.
// Amounts whose cents overflow int64 return ErrAmountOutOfRange.
func ToCents(amount decimal.Decimal) (int64, error) {
	cents := amount.Round(2).Shift(2)
	if !cents.BigInt().IsInt64() {
		return 0, fmt.Errorf("%w: %s", ErrAmountOutOfRange, amount.String())
	}
	return cents.IntPart(), nil
}

// ExpenseCents converts an expense amount and its split amounts to cents.
func ExpenseCents(amount decimal.Decimal, splits []models.Split) (int64, []int64, error) {
	total, err := ToCents(amount)
	if err != nil {
		return 0, nil, err
	}
	shares := make([]int64, len(splits))
	for i := range splits {
		if shares[i], err = ToCents(splits[i].Amount); err != nil {
			return 0, nil, err
		}
	}
	return total, shares, nil
}

// FromCents converts integer minor units back to a two-place decimal.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
