/*

Core domain types shared across the fee controller, the re-hypothecation
ledger and the orchestrating engine. All fixed-point arithmetic uses the
SDK 18-decimal LegacyDec so ratio math matches the 1e18 wire convention.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

type PoolID uint64

// Address identifies an account known to the bank collaborator.
type Address string

// Asset is the denomination of a pool-paired currency.
type Asset string

// FeeCeiling is the hard upper bound for any pool fee, in parts-per-million.
// 1_000_000 ppm == 100%.
const FeeCeiling uint64 = 1_000_000

// BpsDenominator converts basis points to a fraction.
const BpsDenominator uint32 = 10_000

// PoolParams are the owner-set control parameters for a single pool.
// Every field must stay within the global bounds in config at all times;
// Validate is the single authority for that.
type PoolParams struct {
	// MinFee and MaxFee bound the dynamic fee, in ppm.
	MinFee uint64 `json:"min_fee"`
	MaxFee uint64 `json:"max_fee"`

	// BaseMaxFeeDelta caps the fee step of a single update, in ppm.
	BaseMaxFeeDelta uint64 `json:"base_max_fee_delta"`

	// MinPeriod is the poke cooldown.
	MinPeriod time.Duration `json:"min_period"`

	// LookbackPeriod is the smoothing window of the target-ratio blend;
	// each update moves the target 1/LookbackPeriod of the way toward the
	// submitted ratio.
	LookbackPeriod uint32 `json:"lookback_period"`

	// RatioTolerance is the half-width of the in-band zone around the
	// target ratio, as a fraction (0.05 == ±5%).
	RatioTolerance sdkmath.LegacyDec `json:"ratio_tolerance"`

	// LinearSlope converts relative ratio deviation into a fee delta, in
	// ppm per unit of relative deviation.
	LinearSlope sdkmath.LegacyDec `json:"linear_slope"`

	// MaxCurrentRatio caps admissible signal values and the stored target.
	MaxCurrentRatio sdkmath.LegacyDec `json:"max_current_ratio"`

	// UpperSideFactor and LowerSideFactor asymmetrically scale upward vs.
	// downward fee adjustment speed.
	UpperSideFactor sdkmath.LegacyDec `json:"upper_side_factor"`
	LowerSideFactor sdkmath.LegacyDec `json:"lower_side_factor"`
}

// OOBState tracks consecutive same-direction excursions of the signal
// outside the tolerance band. It resets whenever the signal re-enters the
// band or flips direction.
type OOBState struct {
	LastDirectionWasUpper bool   `json:"last_direction_was_upper"`
	ConsecutiveOOBHits    uint32 `json:"consecutive_oob_hits"`
}

// ControlState is the mutable controller state of one pool. It is created
// at pool activation and mutated only by committed fee updates.
type ControlState struct {
	CurrentFee          uint64            `json:"current_fee"`
	TargetRatio         sdkmath.LegacyDec `json:"target_ratio"`
	LastUpdateTimestamp time.Time         `json:"last_update_timestamp"`
	OOB                 OOBState          `json:"oob"`
}

// ReHypoConfig fixes the concentrated-liquidity range used for JIT
// injection. Immutable after activation; an empty range (equal ticks)
// disables JIT entirely.
type ReHypoConfig struct {
	TickLower int32 `json:"tick_lower"`
	TickUpper int32 `json:"tick_upper"`
}

// Empty reports whether the configured range carries no width.
func (c ReHypoConfig) Empty() bool {
	return c.TickLower == c.TickUpper
}
