// Package moneypkg provides parsing and validation of monetary amounts.
package moneypkg

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Precision and Scale describe the NUMERIC column amounts and balances are stored in.
const (
	Precision = 20
	Scale     = 4
)

// MaxAmount is the smallest value the balance columns cannot hold.
var MaxAmount = decimal.New(1, Precision-Scale)

var (
	// ErrNotNumeric indicates that the amount is not a decimal number.
	ErrNotNumeric = errors.New("amount is not numeric")
	// ErrNotPositive indicates that the amount is zero or negative.
	ErrNotPositive = errors.New("amount must be greater than zero")
	// ErrTooPrecise indicates that the amount has more fractional digits than Scale.
	ErrTooPrecise = errors.New("amount has too many decimal places")
	// ErrTooLarge indicates that the amount does not fit the balance columns.
	ErrTooLarge = errors.New("amount is too large")
)

// ParseAmount parses a strictly positive amount below MaxAmount with at most Scale fractional digits.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrNotNumeric
	}

	if !d.IsPositive() {
		return decimal.Zero, ErrNotPositive
	}

	if !d.Equal(d.Truncate(Scale)) {
		return decimal.Zero, ErrTooPrecise
	}

	if d.GreaterThanOrEqual(MaxAmount) {
		return decimal.Zero, ErrTooLarge
	}

	return d, nil
}

// ValidAmount validates whether the field holds a parsable positive amount.
var ValidAmount validator.Func = func(fl validator.FieldLevel) bool {
	if s, ok := fl.Field().Interface().(string); ok {
		_, err := ParseAmount(s)
		return err == nil
	}

	return false
}
