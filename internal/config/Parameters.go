/*

This file contains the default pool parameters for the FCM.

These defaults are calibrated for a mainstream volatile/stable pair and
favor slow, bounded fee movement over responsiveness. Each value has been
chosen to keep the controller stable under noisy signals.

*/

package config

import (
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/parallax-fi/fcm/internal/types"
)

// DefaultPoolParams provides a baseline parameter set used when a pool is
// activated without an explicit override and no active set exists in the
// database.
var DefaultPoolParams = types.PoolParams{
	MinFee: 100, // 0.01% floor.
	// Rationale: a zero floor lets a long one-sided streak drive the fee
	// to nothing, making the pool free to arbitrage against.

	MaxFee: 100_000, // 10% cap, well under the 100% protocol ceiling.
	// Rationale: beyond 10% a pool is effectively closed; the cap keeps a
	// runaway signal from halting trading outright.

	BaseMaxFeeDelta: 500, // At most 5 bps of movement per update.
	// Rationale: bounds the damage of any single bad signal submission.
	// Sustained mispricing is corrected across several cooldown windows
	// by the streak amplifier instead of one large jump.

	MinPeriod: 5 * time.Minute,
	// Rationale: fee updates more frequent than the signal's own
	// horizon just chase noise. Five minutes also rate-limits a
	// compromised poker.

	LookbackPeriod: 24,
	// Rationale: each update moves the target 1/24 of the way toward the
	// submitted ratio, roughly a two-hour half-life at the default
	// cooldown.

	RatioTolerance: sdkmath.LegacyMustNewDecFromStr("0.05"), // ±5% dead band.
	// Rationale: inside the band the fee holds still. A tighter band
	// makes every poke move the fee; a looser one lags real regime
	// shifts.

	LinearSlope: sdkmath.LegacyNewDec(500),
	// Rationale: 500 ppm of fee per unit of relative deviation. A signal
	// 100% above target moves the fee 5 bps before capping.

	MaxCurrentRatio: sdkmath.LegacyNewDec(1_000),
	// Rationale: admissible-signal ceiling. Anything above this is a feed
	// malfunction, not a market state.

	UpperSideFactor: sdkmath.LegacyMustNewDecFromStr("1.5"),
	LowerSideFactor: sdkmath.LegacyNewDec(1),
	// Rationale: raise fees faster than they decay. Under-charging during
	// volatility costs LPs real money; over-charging briefly only costs
	// volume.
}
