package yieldsource

import (
	sdkmath "cosmossdk.io/math"

	"github.com/parallax-fi/fcm/internal/types"
)

// Adapter defines the interface for a single external yield source.
// This interface abstracts away the specific implementation details of the
// backing protocol, allowing different sources (lending markets, staking
// wrappers, in-process simulations) to be selected by configuration.
//
// Adapters are untrusted code: the ledger treats every call as fallible,
// stages its own state before calling and commits only afterwards.
type Adapter interface {
	// Name identifies the adapter in events and logs.
	Name() string

	// BackingAsset returns the denomination this source accepts.
	BackingAsset() types.Asset

	// Deposit places amount into the source and returns the source
	// shares received. Zero shares for a non-zero amount is a valid
	// return the caller must treat as a failed placement.
	Deposit(amount sdkmath.Int) (sdkmath.Int, error)

	// PreviewDeposit quotes the shares a Deposit of amount would mint
	// right now, without moving funds. The ledger uses it to detect
	// donation-inflated share prices before committing a migration.
	PreviewDeposit(amount sdkmath.Int) (sdkmath.Int, error)

	// Redeem burns source shares and returns the assets paid out.
	Redeem(shares sdkmath.Int) (sdkmath.Int, error)

	// ValueOf reports the current redeemable value of source shares
	// without moving funds.
	ValueOf(shares sdkmath.Int) (sdkmath.Int, error)
}
