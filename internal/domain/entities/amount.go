package entities

import (
	"fmt"
	"math/big"
	"strings"
)

// BasisPointDenominator is 100% expressed in basis points.
const BasisPointDenominator = 10000

// MaxUint256 is the largest amount the router interface can carry.
var MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// ValidateAmount checks that v is a non-nil, non-negative uint256.
func ValidateAmount(v *big.Int) error {
	if v == nil {
		return fmt.Errorf("%w: nil", ErrInvalidAmount)
	}
	if v.Sign() < 0 {
		return fmt.Errorf("%w: negative value %s", ErrInvalidAmount, v.String())
	}
	if v.Cmp(MaxUint256) > 0 {
		return fmt.Errorf("%w: exceeds uint256", ErrInvalidAmount)
	}
	return nil
}

// ParseAmount parses a base-10 integer amount in the asset's smallest unit.
func ParseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not an integer", ErrInvalidAmount, s)
	}
	if err := ValidateAmount(v); err != nil {
		return nil, err
	}
	return v, nil
}

// FormatUnits renders amount as a decimal string with the given number of
// decimals, trimming trailing zeros from the fraction.
func FormatUnits(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}
	neg := amount.Sign() < 0
	s := new(big.Int).Abs(amount).String()
	d := int(decimals)
	if d > 0 {
		if len(s) <= d {
			s = strings.Repeat("0", d-len(s)+1) + s
		}
		whole, frac := s[:len(s)-d], strings.TrimRight(s[len(s)-d:], "0")
		s = whole
		if frac != "" {
			s += "." + frac
		}
	}
	if neg {
		s = "-" + s
	}
	return s
}

func copyBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
