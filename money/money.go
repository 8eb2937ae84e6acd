// Package money converts decimal user input into exact integer subunits.
//
// Prices are held in cents and quantities (area) in hundredths of a unit.
// Amounts are derived by multiplying the two integers first and rounding once,
// so no intermediate float ever feeds a monetary result.
package money

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"checkout-service/apperr"
)

// MaxQuantity rejects typos such as an extra zero in the area field.
const MaxQuantity = 10000

var (
	ErrPrecision     = apperr.Validation("Значення має містити не більше 2 знаків після коми")
	ErrNotANumber    = apperr.Validation("Значення має бути числом")
	ErrQuantityRange = apperr.Validation("Кількість має бути більше 0 і не більше 10000")
	ErrPriceRange    = apperr.Validation("Ціна має бути додатним числом")
)

var (
	hundred = decimal.NewFromInt(100)
	epsilon = decimal.New(1, -6)
)

// Cents is an amount of UAH in kopiyky.
type Cents int64

// Decimal returns the amount in major units.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

// Float64 is used at the JSON and metrics boundary only.
func (c Cents) Float64() float64 {
	return c.Decimal().InexactFloat64()
}

// String formats with exactly two fractional digits.
func (c Cents) String() string {
	return c.Decimal().StringFixed(2)
}

// MarshalJSON writes a plain JSON number without trailing zeros (200, 150.5).
func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(c.Decimal().String()), nil
}

// FromDecimal rounds d to the nearest cent.
func FromDecimal(d decimal.Decimal) Cents {
	return Cents(d.Mul(hundred).Round(0).IntPart())
}

// ParseDecimal parses user input. A decimal comma is accepted.
func ParseDecimal(text string) (decimal.Decimal, error) {
	s := strings.TrimSpace(strings.Replace(text, ",", ".", 1))
	if s == "" {
		return decimal.Zero, ErrNotANumber
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrNotANumber
	}
	return d, nil
}

// ToSubunits scales d by 100 and rounds to the nearest integer. It fails with
// ErrPrecision when more than two fractional digits were supplied.
func ToSubunits(d decimal.Decimal) (int64, error) {
	scaled := d.Mul(hundred)
	rounded := scaled.Round(0)
	if scaled.Sub(rounded).Abs().GreaterThan(epsilon) {
		return 0, ErrPrecision
	}
	if !rounded.IsInteger() || rounded.Abs().GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return 0, ErrNotANumber
	}
	return rounded.IntPart(), nil
}

// ParseQuantity returns the quantity in hundredths of a unit.
func ParseQuantity(text string) (int64, error) {
	d, err := ParseDecimal(text)
	if err != nil {
		return 0, err
	}
	if !d.IsPositive() || d.GreaterThan(decimal.NewFromInt(MaxQuantity)) {
		return 0, ErrQuantityRange
	}
	q, err := ToSubunits(d)
	if err != nil {
		return 0, err
	}
	if q <= 0 {
		return 0, ErrQuantityRange
	}
	return q, nil
}

// ParsePrice returns a positive price in cents. No upper bound is enforced.
func ParsePrice(text string) (Cents, error) {
	d, err := ParseDecimal(text)
	if err != nil {
		return 0, err
	}
	if !d.IsPositive() {
		return 0, ErrPriceRange
	}
	c, err := ToSubunits(d)
	if err != nil {
		return 0, err
	}
	if c <= 0 {
		return 0, ErrPriceRange
	}
	return Cents(c), nil
}

// AmountCents multiplies a unit price by a quantity in hundredths and rounds
// half-up once. Both arguments must be positive.
func AmountCents(price Cents, quantity int64) (Cents, error) {
	if price <= 0 || quantity <= 0 {
		return 0, ErrPriceRange
	}
	if int64(price) > (math.MaxInt64-50)/quantity {
		return 0, ErrPriceRange
	}
	return Cents((int64(price)*quantity + 50) / 100), nil
}

// FormatQuantity renders hundredths without trailing zeros: 2, 2.5, 2.25.
func FormatQuantity(hundredths int64) string {
	return decimal.New(hundredths, -2).String()
}
