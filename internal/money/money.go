// Package money implements fixed-point currency amounts in minor units.
// Balances and rewards are int64 cent counts internally; decimal formatting
// happens only at the JSON boundary, so repeated small credits never
// accumulate binary rounding error.
package money

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Cents is a currency amount in minor units (1/100 of the display unit).
type Cents int64

var (
	ErrMalformedAmount = errors.New("malformed amount")
	ErrTooPrecise      = errors.New("amount has more than two decimal places")
)

// FromUnits builds an amount from whole display units.
func FromUnits(units int64) Cents {
	return Cents(units * 100)
}

// Parse converts a decimal string ("10", "10.5", "0.25") to cents exactly.
// More than two fractional digits is rejected rather than rounded.
func Parse(s string) (Cents, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrMalformedAmount
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" && frac == "" {
		return 0, ErrMalformedAmount
	}
	if len(frac) > 2 {
		// Anything beyond cents cannot be represented exactly.
		if strings.Trim(frac[2:], "0") != "" {
			return 0, ErrTooPrecise
		}
		frac = frac[:2]
	}
	for len(frac) < 2 {
		frac += "0"
	}
	if whole == "" {
		whole = "0"
	}
	// ParseInt accepts its own sign prefix; only bare digits may remain
	// once ours is consumed.
	if !isDigits(whole) || !isDigits(frac) {
		return 0, ErrMalformedAmount
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, ErrMalformedAmount
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, ErrMalformedAmount
	}

	total := units*100 + cents
	if neg {
		total = -total
	}
	return Cents(total), nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// String formats the amount with exactly two decimal places.
func (c Cents) String() string {
	v := int64(c)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON emits the amount as a plain JSON number with two decimals.
func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalJSON accepts a JSON number (or quoted decimal) and converts it
// to cents without going through float64.
func (c *Cents) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" {
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
