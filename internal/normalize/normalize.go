// Package normalize cleans raw price-list cell values before validation:
// decimal comma handling, two-decimal truncation and rounding, and the
// per-chain literal repairs for values the chains publish broken.
package normalize

import (
	"strings"

	"github.com/shopspring/decimal"
)

// nullLiterals are cell values that stand for "no value" in optional
// text columns.
var nullLiterals = map[string]struct{}{
	"":     {},
	"nan":  {},
	"NaN":  {},
	"None": {},
	"NONE": {},
	"none": {},
	"0":    {},
	"#":    {},
}

// IsNullLiteral reports whether a raw optional cell carries no value.
func IsNullLiteral(s string) bool {
	_, ok := nullLiterals[strings.TrimSpace(s)]
	return ok
}

// AddLeadingZero turns values like ",99" into "0,99". Some chains drop
// the zero in front of the decimal comma.
func AddLeadingZero(s string) string {
	if strings.HasPrefix(s, ",") {
		return "0" + s
	}
	return s
}

// TruncateDecimals cuts the fractional part of a dotted decimal string
// down to two digits, padding with zeros when shorter. Values without a
// dot, or with more than one dot, pass through untouched.
func TruncateDecimals(s string) string {
	if strings.Count(s, ".") != 1 {
		return s
	}
	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > 2 {
		frac = frac[:2]
	}
	for len(frac) < 2 {
		frac += "0"
	}
	return whole + "." + frac
}

// ParsePrice parses an optional price field of a validated record.
// Empty and unparseable input maps to nil, a leading minus is dropped.
func ParsePrice(s string) *decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return nil
	}
	s = strings.ReplaceAll(s, ",", ".")
	s = strings.TrimLeft(s, "-")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	d = d.Round(2)
	return &d
}

// StripEuro drops the trailing euro sign some chains append to price
// cells. Signs anywhere else are left for the price parser to reject.
func StripEuro(s string) string {
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "€"))
}
