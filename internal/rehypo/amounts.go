/*

Concentrated-liquidity amount math for the first depositor. With no
existing holders there is no pro-rata reference, so the required amounts
are derived from the configured tick range at the pool's current price,
treating the requested share count as liquidity notional:

	amount0 = L * (sqrtU - sqrtP) / (sqrtP * sqrtU)
	amount1 = L * (sqrtP - sqrtL)

with sqrtP clamped into [sqrtL, sqrtU]. Both amounts round up.

*/

package rehypo

import (
	sdkmath "cosmossdk.io/math"

	"github.com/parallax-fi/fcm/internal/types"
	"github.com/parallax-fi/fcm/internal/utils"
)

func amountsForLiquidity(cfg types.ReHypoConfig, price sdkmath.LegacyDec, liquidity sdkmath.Int) (sdkmath.Int, sdkmath.Int, error) {
	if cfg.Empty() {
		// An empty range can hold no liquidity; a first deposit against
		// it would pull nothing while minting shares.
		return sdkmath.Int{}, sdkmath.Int{}, types.ErrZeroAmounts
	}
	if price.IsNil() || !price.IsPositive() {
		return sdkmath.Int{}, sdkmath.Int{}, &types.InvalidYieldSourceError{Reason: "pool price is not positive"}
	}

	sqrtLower, err := utils.SqrtPriceAtTick(cfg.TickLower)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	sqrtUpper, err := utils.SqrtPriceAtTick(cfg.TickUpper)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	sqrtPrice, err := utils.Sqrt(price)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	sqrtPrice = utils.ClampDec(sqrtPrice, sqrtLower, sqrtUpper)

	liq := sdkmath.LegacyNewDecFromInt(liquidity)

	amount0 := liq.Mul(sqrtUpper.Sub(sqrtPrice)).Quo(sqrtPrice.Mul(sqrtUpper)).Ceil().TruncateInt()
	amount1 := liq.Mul(sqrtPrice.Sub(sqrtLower)).Ceil().TruncateInt()
	return amount0, amount1, nil
}
