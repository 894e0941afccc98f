// Package core provides money parsing and handling utilities.
//
// Amounts arrive as whatever the wire format produced: a json.Number from
// JSON bodies, a plain string from untyped XML elements, or a Go number
// from in-process callers. ParseAmount normalises all of them into a
// decimal so no amount is ever rounded through float64.
package core

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount converts a decoded field value into a positive decimal.
//
// Strings accept both dot (12.34) and comma (12,34) decimal separators.
// Zero, negative and non-numeric values are rejected with ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount(json.Number("5.12")) -> 5.12, nil
//	ParseAmount("12,34")             -> 12.34, nil
//	ParseAmount(15)                  -> 15, nil
//	ParseAmount("-1")                -> 0, ErrInvalidAmount
func ParseAmount(v any) (decimal.Decimal, error) {
	var (
		d   decimal.Decimal
		err error
	)
	switch t := v.(type) {
	case json.Number:
		d, err = decimal.NewFromString(t.String())
	case string:
		s := strings.TrimSpace(t)
		if s == "" || strings.Count(s, ",")+strings.Count(s, ".") > 1 {
			return decimal.Zero, ErrInvalidAmount
		}
		d, err = decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	case float64:
		d = decimal.NewFromFloat(t)
	case float32:
		d = decimal.NewFromFloat32(t)
	case int:
		d = decimal.NewFromInt(int64(t))
	case int64:
		d = decimal.NewFromInt(t)
	default:
		return decimal.Zero, ErrInvalidAmount
	}
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// Cents returns the amount in minor units with half-up rounding on the
// third decimal place.
func Cents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}
