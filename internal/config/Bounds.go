/*

Hard global bounds for pool parameters and controller behavior. These are
compile-time constants of the protocol, not tunables: PoolParams.Validate
rejects anything outside them, so every stored parameter set satisfies
these at all times.

*/

package config

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

const (
	// MinPeriodFloor and MinPeriodCeiling bound the poke cooldown.
	MinPeriodFloor   = 1 * time.Second
	MinPeriodCeiling = 24 * time.Hour

	// LookbackPeriodCeiling bounds the smoothing window. A window of 1
	// means the target snaps to every submitted ratio.
	LookbackPeriodCeiling uint32 = 100_000

	// MaxStreakMultiplier caps how far the out-of-bounds streak can
	// amplify a single fee step, regardless of streak length.
	MaxStreakMultiplier int64 = 8
)

var (
	// RatioToleranceCeiling bounds the half-width of the in-band zone.
	// Anything at or above 1.0 would put the band's lower edge at zero.
	RatioToleranceCeiling = sdkmath.LegacyMustNewDecFromStr("0.999999999999999999")

	// LinearSlopeCeiling bounds fee sensitivity, in ppm per unit of
	// relative deviation.
	LinearSlopeCeiling = sdkmath.LegacyNewDec(1_000_000)

	// MaxCurrentRatioCeiling bounds admissible signal values.
	MaxCurrentRatioCeiling = sdkmath.LegacyNewDec(1_000_000_000)

	// SideFactorFloor and SideFactorCeiling bound the asymmetric
	// up/down responsiveness scalers.
	SideFactorFloor   = sdkmath.LegacyMustNewDecFromStr("0.01")
	SideFactorCeiling = sdkmath.LegacyNewDec(100)

	// MaxAdjustmentRate caps a single fee step to a fraction of the
	// current fee, whichever is tighter than BaseMaxFeeDelta.
	MaxAdjustmentRate = sdkmath.LegacyMustNewDecFromStr("0.25")

	// StreakGain is the per-hit amplification of repeated same-direction
	// excursions: multiplier = 1 + StreakGain*(hits-1), capped by
	// MaxStreakMultiplier. Calibrated against the reference vectors in
	// the controller tests.
	StreakGain = sdkmath.LegacyMustNewDecFromStr("0.5")
)
