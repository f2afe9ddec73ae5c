package pool

import (
	sdkmath "cosmossdk.io/math"

	"github.com/parallax-fi/fcm/internal/types"
)

// RemovedLiquidity is the result of unwinding a temporary position:
// the principal amounts returned plus the swap fees the position earned
// while it was in range.
type RemovedLiquidity struct {
	Amount0 sdkmath.Int
	Amount1 sdkmath.Int
	Fees0   sdkmath.Int
	Fees1   sdkmath.Int
}

// TradingPool defines the interface to the external pool engine. The core
// consumes price reads and temporary liquidity mutation, and pushes
// dynamic fee updates; the pool's own curve math stays on the other side
// of this boundary.
type TradingPool interface {
	// Initialize registers a pool with its starting dynamic fee and price.
	Initialize(id types.PoolID, initialFee uint64, initialPrice sdkmath.LegacyDec) error

	// CurrentPrice returns the pool's current spot price (asset1/asset0).
	CurrentPrice(id types.PoolID) (sdkmath.LegacyDec, error)

	// UpdateFee pushes a new dynamic fee, in ppm.
	UpdateFee(id types.PoolID, feePpm uint64) error

	// AddTemporaryLiquidity injects concentrated liquidity across a tick
	// range, pulling the amounts from owner. Returns an opaque position ID.
	AddTemporaryLiquidity(id types.PoolID, owner types.Address,
		tickLower, tickUpper int32, amount0, amount1 sdkmath.Int) (string, error)

	// RemoveTemporaryLiquidity unwinds a position, paying principal and
	// earned fees back to its owner.
	RemoveTemporaryLiquidity(id types.PoolID, positionID string) (RemovedLiquidity, error)
}
