// Package units converts between human decimal amounts and integer token
// base units. All arithmetic is done on math/big integers; no float ever
// touches an amount.
package units

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// USDCDecimals is the number of fractional digits of USDC.
const USDCDecimals = 6

// ErrInvalidAmount is returned for non-numeric, negative or over-precise input.
var ErrInvalidAmount = errors.New("invalid amount")

// ToBaseUnits parses a decimal string such as "40", "0.5" or "12.345678"
// into base units. Surrounding whitespace is ignored.
func ToBaseUnits(s string, decimals int) (*big.Int, error) {
	if decimals < 0 {
		return nil, fmt.Errorf("%w: negative decimals %d", ErrInvalidAmount, decimals)
	}
	raw := s
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	if s[0] == '-' {
		return nil, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, raw)
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if !allDigits(whole) || !allDigits(frac) {
		return nil, fmt.Errorf("%w: %q is not a decimal number", ErrInvalidAmount, raw)
	}
	if len(frac) > decimals {
		return nil, fmt.Errorf("%w: %q has more than %d fractional digits", ErrInvalidAmount, raw, decimals)
	}

	digits := whole + frac + strings.Repeat("0", decimals-len(frac))
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return new(big.Int), nil
	}
	n, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	return n, nil
}

// ToDecimalString renders base units as a normalized decimal string:
// no exponent, no trailing fractional zeros, "0" for zero. A nil value
// renders as "0".
func ToDecimalString(v *big.Int, decimals int) string {
	if v == nil {
		return "0"
	}
	neg := v.Sign() < 0
	digits := new(big.Int).Abs(v).String()
	if decimals <= 0 {
		return sign(neg) + digits
	}

	if len(digits) <= decimals {
		digits = strings.Repeat("0", decimals-len(digits)+1) + digits
	}
	whole := digits[:len(digits)-decimals]
	frac := strings.TrimRight(digits[len(digits)-decimals:], "0")
	if frac == "" {
		if whole == "0" {
			return "0"
		}
		return sign(neg) + whole
	}
	return sign(neg) + whole + "." + frac
}

// FormatFixed renders base units with exactly places fractional digits,
// rounding half away from zero. FormatFixed(40_000_000, 6, 2) == "40.00".
func FormatFixed(v *big.Int, decimals, places int) string {
	if v == nil {
		v = new(big.Int)
	}
	if places < 0 {
		places = 0
	}
	if places >= decimals {
		scaled := new(big.Int).Mul(new(big.Int).Abs(v), pow10(places-decimals))
		return withSign(v.Sign() < 0, padFixed(scaled.String(), places))
	}

	div := pow10(decimals - places)
	q, r := new(big.Int).QuoRem(new(big.Int).Abs(v), div, new(big.Int))
	if new(big.Int).Mul(r, big.NewInt(2)).Cmp(div) >= 0 {
		q.Add(q, big.NewInt(1))
	}
	return withSign(v.Sign() < 0 && q.Sign() != 0, padFixed(q.String(), places))
}

// Normalize returns the canonical form of a valid decimal string, i.e. the
// result of a ToBaseUnits/ToDecimalString round trip.
func Normalize(s string, decimals int) (string, error) {
	n, err := ToBaseUnits(s, decimals)
	if err != nil {
		return "", err
	}
	return ToDecimalString(n, decimals), nil
}

func padFixed(digits string, places int) string {
	if places == 0 {
		return digits
	}
	if len(digits) <= places {
		digits = strings.Repeat("0", places-len(digits)+1) + digits
	}
	return digits[:len(digits)-places] + "." + digits[len(digits)-places:]
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func sign(neg bool) string {
	if neg {
		return "-"
	}
	return ""
}

func withSign(neg bool, s string) string {
	return sign(neg) + s
}
