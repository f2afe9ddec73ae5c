/*

Yield-source registration and migration. Registering an adapter is a
privileged, auditable action: the only admission checks the core can make
are the backing-asset match and the pre-commit share quote, so who may
call this at all is gated by the yield-manager role upstream.

*/

package rehypo

import (
	sdkmath "cosmossdk.io/math"

	"github.com/parallax-fi/fcm/internal/types"
	"github.com/parallax-fi/fcm/internal/yieldsource"
)

// MigrationResult reports what a SetYieldSource call moved, for event
// emission.
type MigrationResult struct {
	OldSource     string
	NewSource     string
	MigratedValue sdkmath.Int
}

// SetYieldSource configures, replaces or clears the yield source for one
// of the pool's assets.
//
// A nil newSource only succeeds while no source is configured; clearing a
// live source is rejected (migrate instead). A live migration redeems the
// full placed amount from the old source and deposits the proceeds into
// the new one in the same call; a destination quoting zero shares for the
// non-zero deposit fails the whole call with no state change.
func (l *Ledger) SetYieldSource(asset types.Asset, newSource yieldsource.Adapter) (MigrationResult, error) {
	st, ok := l.sources[asset]
	if !ok {
		return MigrationResult{}, &types.InvalidYieldSourceError{Reason: string(asset) + " is not a pool asset"}
	}

	if newSource == nil {
		if st.Source != nil {
			return MigrationResult{}, &types.YieldSourceActiveError{Asset: asset}
		}
		return MigrationResult{OldSource: "", NewSource: ""}, nil
	}

	backing := newSource.BackingAsset()
	if backing == "" {
		return MigrationResult{}, &types.InvalidYieldSourceError{Reason: "adapter reports no backing asset"}
	}
	if backing != asset && !(asset == l.nativeAsset && backing == wrappedAsset(asset)) {
		return MigrationResult{}, &types.YieldSourceMismatchError{Want: asset, Got: backing}
	}

	result := MigrationResult{NewSource: newSource.Name(), MigratedValue: sdkmath.ZeroInt()}
	if st.Source != nil {
		result.OldSource = st.Source.Name()
	}

	// Fresh configuration or migration of an empty position: just swap
	// the pointer.
	if st.Source == nil || !st.SourceShares.IsPositive() {
		st.Source = newSource
		st.SourceShares = sdkmath.ZeroInt()
		l.log.Info().
			Uint64("pool", uint64(l.poolID)).
			Str("asset", string(asset)).
			Str("old_source", result.OldSource).
			Str("new_source", result.NewSource).
			Msg("Yield source configured")
		return result, nil
	}

	// Live migration. Quote the destination against the old source's
	// reported value before moving anything: a zero-share quote for a
	// non-zero deposit is the donation-inflation symptom and fails the
	// call before any funds leave the old source.
	value, err := st.Source.ValueOf(st.SourceShares)
	if err != nil {
		return MigrationResult{}, err
	}
	if value.IsPositive() {
		quoted, err := newSource.PreviewDeposit(value)
		if err != nil {
			return MigrationResult{}, &types.InvalidYieldSourceError{Reason: "deposit preview failed: " + err.Error()}
		}
		if quoted.IsZero() {
			return MigrationResult{}, &types.ZeroSharesReceivedError{Deposited: value}
		}
	}

	j := &journal{}
	oldSource, oldShares := st.Source, st.SourceShares

	redeemed, err := oldSource.Redeem(oldShares)
	if err != nil {
		return MigrationResult{}, err
	}
	j.record(func() error {
		// The compensating deposit mints at the old source's post-redeem
		// share price, which is not the price oldShares were minted at
		// once yield has accrued. Reconcile the ledger to the shares it
		// actually holds afterward so no value is stranded in the vault.
		reShares, depErr := oldSource.Deposit(redeemed)
		if depErr != nil {
			return depErr
		}
		st.SourceShares = reShares
		return nil
	})

	newShares := sdkmath.ZeroInt()
	if redeemed.IsPositive() {
		newShares, err = newSource.Deposit(redeemed)
		if err != nil {
			j.rollback(l.log)
			return MigrationResult{}, err
		}
		if newShares.IsZero() {
			j.rollback(l.log)
			return MigrationResult{}, &types.ZeroSharesReceivedError{Deposited: redeemed}
		}
	}

	// Commit.
	j.commit()
	st.Source = newSource
	st.SourceShares = newShares
	st.AmountPlaced = redeemed
	result.MigratedValue = redeemed

	l.log.Info().
		Uint64("pool", uint64(l.poolID)).
		Str("asset", string(asset)).
		Str("old_source", result.OldSource).
		Str("new_source", result.NewSource).
		Str("migrated_value", redeemed.String()).
		Msg("Yield source migrated")
	return result, nil
}

// wrappedAsset names the wrapped form of a native asset ("weth" for
// "eth"). Adapters for a native leg may back either form.
func wrappedAsset(asset types.Asset) types.Asset {
	return "w" + asset
}
