package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"checkout-service/money"
)

// FlexNumber keeps the literal text of a JSON number or numeric string so
// that decimals reach the normalizer without a float round trip.
type FlexNumber string

// UnmarshalJSON accepts 12.5, "12.5" and null.
func (f *FlexNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexNumber(s)
		return nil
	}
	if _, err := strconv.ParseFloat(string(b), 64); err != nil {
		return fmt.Errorf("not a number: %s", b)
	}
	*f = FlexNumber(b)
	return nil
}

// Int parses an integer value. Fractional values are rejected.
func (f FlexNumber) Int() (int, error) {
	d, err := money.ParseDecimal(string(f))
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() || d.GreaterThan(decimal.NewFromInt(math.MaxInt32)) || d.LessThan(decimal.NewFromInt(math.MinInt32)) {
		return 0, fmt.Errorf("not an integer: %s", string(f))
	}
	return int(d.IntPart()), nil
}

// AsString renders provider values of unknown type.
func AsString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// AsLower is AsString lowercased.
func AsLower(v any) string {
	return strings.ToLower(AsString(v))
}

// AsPositiveAmount converts a provider amount in major units into cents. The
// second result is false for missing, malformed or non-positive values.
func AsPositiveAmount(v any) (money.Cents, bool) {
	s := AsString(v)
	if s == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return 0, false
	}
	c := money.FromDecimal(d)
	if c <= 0 {
		return 0, false
	}
	return c, true
}
