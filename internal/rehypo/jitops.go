/*

Ledger surface used by the JIT liquidity manager. Around a single trade
the full placed position leaves the yield sources and comes back; the
per-asset AmountPlaced stays the holders' principal throughout and is only
adjusted by the net result when the round trip settles.

*/

package rehypo

import (
	sdkmath "cosmossdk.io/math"

	"github.com/parallax-fi/fcm/internal/types"
)

// JITWithdrawAll redeems the entire placed position for one asset to the
// manager account and returns the amount withdrawn. AmountPlaced is left
// untouched: the principal is still owed to holders while it sits in the
// trading pool.
func (l *Ledger) JITWithdrawAll(asset types.Asset) (sdkmath.Int, error) {
	st, ok := l.sources[asset]
	if !ok {
		return sdkmath.Int{}, &types.InvalidYieldSourceError{Reason: string(asset) + " is not a pool asset"}
	}
	if st.Source == nil {
		return sdkmath.Int{}, &types.InvalidYieldSourceError{Reason: "no yield source configured for " + string(asset)}
	}
	if !st.SourceShares.IsPositive() {
		return sdkmath.ZeroInt(), nil
	}

	withdrawn, err := st.Source.Redeem(st.SourceShares)
	if err != nil {
		return sdkmath.Int{}, err
	}
	st.SourceShares = sdkmath.ZeroInt()
	return withdrawn, nil
}

// JITRedeposit returns funds to the yield source after the trade settles.
// amount is what goes back in; withdrawn is what JITWithdrawAll took out.
// The difference is the position's net result and moves AmountPlaced.
func (l *Ledger) JITRedeposit(asset types.Asset, amount, withdrawn sdkmath.Int) error {
	st, ok := l.sources[asset]
	if !ok {
		return &types.InvalidYieldSourceError{Reason: string(asset) + " is not a pool asset"}
	}
	if st.Source == nil {
		return &types.InvalidYieldSourceError{Reason: "no yield source configured for " + string(asset)}
	}

	if amount.IsPositive() {
		srcShares, err := st.Source.Deposit(amount)
		if err != nil {
			return err
		}
		if srcShares.IsZero() {
			return &types.ZeroSharesReceivedError{Deposited: amount}
		}
		st.SourceShares = st.SourceShares.Add(srcShares)
	}

	st.AmountPlaced = st.AmountPlaced.Add(amount).Sub(withdrawn)
	if st.AmountPlaced.IsNegative() {
		st.AmountPlaced = sdkmath.ZeroInt()
	}
	return nil
}
