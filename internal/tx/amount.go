package tx

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// maxAmountExponent bounds exponent notation in amounts.
const maxAmountExponent = 30

// ErrInvalidAmount is returned for amounts that are not non-negative decimals
// or that overflow the base-unit range.
var ErrInvalidAmount = errors.New("invalid amount")

// ToBaseUnits converts a decimal coin amount into base units, truncating any
// fraction of a base unit. The arithmetic is exact: "1.23456789123" coins at
// 1e8 units per coin is 123456789 units.
func ToBaseUnits(amount string, unitsPerCoin int64) (int64, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" || strings.IndexFunc(amount, notDecimal) >= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	if i := strings.IndexAny(amount, "eE"); i >= 0 {
		exp, err := strconv.Atoi(amount[i+1:])
		if err != nil || exp > maxAmountExponent || exp < -maxAmountExponent {
			return 0, fmt.Errorf("%w: exponent out of range in %q", ErrInvalidAmount, amount)
		}
	}
	r, ok := new(big.Rat).SetString(amount)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	if r.Sign() < 0 {
		return 0, fmt.Errorf("%w: negative amount %s", ErrInvalidAmount, amount)
	}

	r.Mul(r, new(big.Rat).SetInt64(unitsPerCoin))
	units := new(big.Int).Quo(r.Num(), r.Denom())
	if !units.IsInt64() {
		return 0, fmt.Errorf("%w: %s overflows base units", ErrInvalidAmount, amount)
	}
	return units.Int64(), nil
}

// notDecimal rejects runes outside plain decimal notation, so fractions and
// hex literals accepted by big.Rat are refused.
func notDecimal(r rune) bool {
	return !(r >= '0' && r <= '9' || r == '.' || r == 'e' || r == 'E' || r == '+' || r == '-')
}

// FormatBaseUnits renders units as a plain decimal coin amount with as many
// fractional digits as unitsPerCoin needs, e.g. 150000000 -> "1.50000000".
func FormatBaseUnits(units, unitsPerCoin int64) string {
	digits := len(strconv.FormatInt(unitsPerCoin-1, 10))
	if unitsPerCoin <= 1 {
		digits = 0
	}
	return new(big.Rat).SetFrac64(units, unitsPerCoin).FloatString(digits)
}
