package services

import (
	"fmt"
	"math/big"

	"github.com/bimakw/route-agent/internal/domain/entities"
)

// DefaultSlippageBps is 0.5%.
const DefaultSlippageBps = 50

// MinimumAcceptable returns quotedOutput * (10000 - toleranceBps) / 10000,
// truncated toward zero. The result never exceeds quotedOutput and equals it
// when toleranceBps is 0.
func MinimumAcceptable(quotedOutput *big.Int, toleranceBps int) (*big.Int, error) {
	if err := entities.ValidateAmount(quotedOutput); err != nil {
		return nil, fmt.Errorf("quoted output: %w", err)
	}
	if toleranceBps < 0 || toleranceBps > entities.BasisPointDenominator {
		return nil, fmt.Errorf("%w: got %d", entities.ErrInvalidTolerance, toleranceBps)
	}

	keep := big.NewInt(int64(entities.BasisPointDenominator - toleranceBps))
	minimum := new(big.Int).Mul(quotedOutput, keep)
	return minimum.Quo(minimum, big.NewInt(entities.BasisPointDenominator)), nil
}
