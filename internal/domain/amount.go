package domain

import (
	"math/bits"

	"github.com/pkg/errors"
)

// BpsDenominator converts basis points into a fraction.
const BpsDenominator = 10_000

// CheckedMul multiplies two amounts and fails closed on uint64 overflow.
func CheckedMul(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, errors.Wrapf(ErrArithmetic, "mul %d * %d", a, b)
	}
	return lo, nil
}

// CheckedAdd adds two amounts and fails closed on uint64 overflow.
func CheckedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, errors.Wrapf(ErrArithmetic, "add %d + %d", a, b)
	}
	return sum, nil
}

// CheckedSub subtracts b from a and fails closed on underflow.
func CheckedSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, errors.Wrapf(ErrArithmetic, "sub %d - %d", a, b)
	}
	return a - b, nil
}

// FeeFor computes the platform fee skimmed from amountIn at the given rate.
// The multiplication is checked before dividing, so an amountIn near the
// uint64 ceiling fails instead of wrapping.
func FeeFor(amountIn uint64, rateBps uint32) (uint64, error) {
	product, err := CheckedMul(amountIn, uint64(rateBps))
	if err != nil {
		return 0, err
	}
	return product / BpsDenominator, nil
}
