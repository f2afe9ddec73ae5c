/*
This file contains common utility functions for fixed-point math shared by
the fee controller and the re-hypothecation ledger: fee-unit conversion,
direction-aware pro-rata division and tick/price conversion.
*/

package utils

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/parallax-fi/fcm/internal/types"
)

// Error definitions for zero-tolerance error handling
var (
	ErrAmountNil       = errors.New("amount is nil")
	ErrAmountNegative  = errors.New("amount is negative")
	ErrDivisionByZero  = errors.New("division by zero")
	ErrTickOutOfRange  = errors.New("tick out of range")
	ErrSqrtUndefined   = errors.New("square root undefined")
	ErrFeeAboveCeiling = errors.New("fee above ceiling")
)

// MaxTick bounds the usable tick space. Matches the usual concentrated
// liquidity convention of price = 1.0001^tick.
const MaxTick int32 = 887_272

var tickBase = sdkmath.LegacyMustNewDecFromStr("1.0001")

// FeeToDec converts a ppm fee to its fractional decimal representation.
func FeeToDec(feePpm uint64) (sdkmath.LegacyDec, error) {
	if feePpm > types.FeeCeiling {
		return sdkmath.LegacyDec{}, fmt.Errorf("%w: %d", ErrFeeAboveCeiling, feePpm)
	}
	return sdkmath.LegacyNewDec(int64(feePpm)).QuoInt64(int64(types.FeeCeiling)), nil
}

// PpmOf returns floor(amount * ppm / 1e6).
func PpmOf(amount sdkmath.Int, ppm uint64) (sdkmath.Int, error) {
	if amount.IsNil() {
		return sdkmath.Int{}, ErrAmountNil
	}
	if amount.IsNegative() {
		return sdkmath.Int{}, ErrAmountNegative
	}
	return amount.MulRaw(int64(ppm)).QuoRaw(int64(types.FeeCeiling)), nil
}

// MulDivCeil returns ceil(a * b / d). Used on the deposit path so a new
// depositor can never under-pay relative to existing holders.
func MulDivCeil(a, b, d sdkmath.Int) (sdkmath.Int, error) {
	if a.IsNil() || b.IsNil() || d.IsNil() {
		return sdkmath.Int{}, ErrAmountNil
	}
	if d.IsZero() {
		return sdkmath.Int{}, ErrDivisionByZero
	}
	num := a.Mul(b)
	return num.Add(d.SubRaw(1)).Quo(d), nil
}

// MulDivFloor returns floor(a * b / d). Used on the withdrawal path so a
// leaving depositor can never over-draw.
func MulDivFloor(a, b, d sdkmath.Int) (sdkmath.Int, error) {
	if a.IsNil() || b.IsNil() || d.IsNil() {
		return sdkmath.Int{}, ErrAmountNil
	}
	if d.IsZero() {
		return sdkmath.Int{}, ErrDivisionByZero
	}
	return a.Mul(b).Quo(d), nil
}

// PriceAtTick returns 1.0001^tick.
func PriceAtTick(tick int32) (sdkmath.LegacyDec, error) {
	if tick > MaxTick || tick < -MaxTick {
		return sdkmath.LegacyDec{}, fmt.Errorf("%w: %d", ErrTickOutOfRange, tick)
	}
	if tick >= 0 {
		return tickBase.Power(uint64(tick)), nil
	}
	return sdkmath.LegacyOneDec().Quo(tickBase.Power(uint64(-tick))), nil
}

// SqrtPriceAtTick returns sqrt(1.0001^tick).
func SqrtPriceAtTick(tick int32) (sdkmath.LegacyDec, error) {
	price, err := PriceAtTick(tick)
	if err != nil {
		return sdkmath.LegacyDec{}, err
	}
	return Sqrt(price)
}

// Sqrt returns the positive square root of a non-negative decimal.
func Sqrt(d sdkmath.LegacyDec) (sdkmath.LegacyDec, error) {
	if d.IsNil() {
		return sdkmath.LegacyDec{}, ErrAmountNil
	}
	if d.IsNegative() {
		return sdkmath.LegacyDec{}, ErrSqrtUndefined
	}
	root, err := d.ApproxSqrt()
	if err != nil {
		return sdkmath.LegacyDec{}, fmt.Errorf("%w: %w", ErrSqrtUndefined, err)
	}
	return root, nil
}

// ClampDec bounds d to [lo, hi].
func ClampDec(d, lo, hi sdkmath.LegacyDec) sdkmath.LegacyDec {
	if d.LT(lo) {
		return lo
	}
	if d.GT(hi) {
		return hi
	}
	return d
}
