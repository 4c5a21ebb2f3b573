package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// DollarsToCents converts a float64 dollar amount to int64 cents.
// It returns an error if the amount carries more than 2 decimal places.
func DollarsToCents(f float64) (int64, error) {
	d := decimal.NewFromFloat(f)
	if !d.Round(2).Equal(d) {
		return 0, fmt.Errorf("monetary values must have at most 2 decimal places")
	}
	return d.Mul(hundred).IntPart(), nil
}

// CentsToDollars converts an int64 cents value to a float64 dollar amount.
func CentsToDollars(c int64) float64 {
	f, _ := decimal.New(c, -2).Float64()
	return f
}

// ApplyChange moves price by the fractional change delta (0.01 = +1%),
// rounds to whole cents and clamps the result to floor.
func ApplyChange(price int64, delta decimal.Decimal, floor int64) int64 {
	next := decimal.NewFromInt(price).Mul(one.Add(delta)).Round(0).IntPart()
	if next < floor {
		return floor
	}
	return next
}
