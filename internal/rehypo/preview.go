/*

Read-only mirrors of the ledger arithmetic. Previews never touch pool
price or adapters and return zero outputs for zero input or zero total
supply instead of dividing by zero.

*/

package rehypo

import (
	sdkmath "cosmossdk.io/math"

	"github.com/parallax-fi/fcm/internal/utils"
)

// PreviewAdd quotes the per-asset amounts a deposit of shares would pull,
// using the deposit path's ceil rounding.
func (l *Ledger) PreviewAdd(shares sdkmath.Int) (sdkmath.Int, sdkmath.Int, error) {
	zero := sdkmath.ZeroInt()
	if shares.IsNil() || !shares.IsPositive() || l.totalSupply.IsZero() {
		return zero, zero, nil
	}
	amount0, err := utils.MulDivCeil(shares, l.sources[l.assets[0]].AmountPlaced, l.totalSupply)
	if err != nil {
		return zero, zero, err
	}
	amount1, err := utils.MulDivCeil(shares, l.sources[l.assets[1]].AmountPlaced, l.totalSupply)
	if err != nil {
		return zero, zero, err
	}
	return amount0, amount1, nil
}

// PreviewRemove quotes the per-asset amounts a withdrawal of shares would
// pay out, using the withdrawal path's floor rounding.
func (l *Ledger) PreviewRemove(shares sdkmath.Int) (sdkmath.Int, sdkmath.Int, error) {
	zero := sdkmath.ZeroInt()
	if shares.IsNil() || !shares.IsPositive() || l.totalSupply.IsZero() {
		return zero, zero, nil
	}
	amount0, err := utils.MulDivFloor(shares, l.sources[l.assets[0]].AmountPlaced, l.totalSupply)
	if err != nil {
		return zero, zero, err
	}
	amount1, err := utils.MulDivFloor(shares, l.sources[l.assets[1]].AmountPlaced, l.totalSupply)
	if err != nil {
		return zero, zero, err
	}
	return amount0, amount1, nil
}

// SharesForAmounts converts per-asset amounts to the share count they
// back, taking the binding (smaller) side. Zero inputs or an empty ledger
// quote zero shares.
func (l *Ledger) SharesForAmounts(amount0, amount1 sdkmath.Int) (sdkmath.Int, error) {
	zero := sdkmath.ZeroInt()
	if l.totalSupply.IsZero() {
		return zero, nil
	}

	shares := sdkmath.Int{}
	for i, amount := range []sdkmath.Int{amount0, amount1} {
		placed := l.sources[l.assets[i]].AmountPlaced
		if amount.IsNil() || !amount.IsPositive() || placed.IsZero() {
			continue
		}
		quote, err := utils.MulDivFloor(amount, l.totalSupply, placed)
		if err != nil {
			return zero, err
		}
		if shares.IsNil() || quote.LT(shares) {
			shares = quote
		}
	}
	if shares.IsNil() {
		return zero, nil
	}
	return shares, nil
}
