/*

Pure fee-update computation. ComputeFeeUpdate never mutates anything: it
takes the stored parameters and control state plus the submitted ratio and
returns the state a commit would produce. The controller's Poke commits
it; the web API's preview endpoint serves it read-only.

*/

package feecontrol

import (
	sdkmath "cosmossdk.io/math"

	"github.com/parallax-fi/fcm/internal/config"
	"github.com/parallax-fi/fcm/internal/types"
)

// FeeUpdate is the full result of one control step.
type FeeUpdate struct {
	NewFee         uint64            `json:"new_fee"`
	OldTargetRatio sdkmath.LegacyDec `json:"old_target_ratio"`
	NewTargetRatio sdkmath.LegacyDec `json:"new_target_ratio"`
	NewOOB         types.OOBState    `json:"new_oob"`
}

// ComputeFeeUpdate runs one step of the bounded control loop.
//
// The fee moves only when the submitted ratio sits outside the tolerance
// band around the target. The step is proportional to the relative
// deviation, scaled by the side factor for the excursion direction and
// amplified by the length of the same-direction streak, then capped by
// the tighter of BaseMaxFeeDelta and MaxAdjustmentRate of the current
// fee. The target always blends 1/LookbackPeriod of the way toward the
// submitted ratio, re-clamped to MaxCurrentRatio.
func ComputeFeeUpdate(params types.PoolParams, st types.ControlState, currentRatio sdkmath.LegacyDec) (FeeUpdate, error) {
	if currentRatio.IsNil() || !currentRatio.IsPositive() || currentRatio.GT(params.MaxCurrentRatio) {
		return FeeUpdate{}, &types.InvalidRatioError{Value: currentRatio, Max: params.MaxCurrentRatio}
	}

	target := st.TargetRatio
	bandLower := target.Mul(sdkmath.LegacyOneDec().Sub(params.RatioTolerance))
	bandUpper := target.Mul(sdkmath.LegacyOneDec().Add(params.RatioTolerance))

	newFee := st.CurrentFee
	newOOB := types.OOBState{}

	switch {
	case currentRatio.GTE(bandLower) && currentRatio.LTE(bandUpper):
		// In band: streak resets, fee holds still.

	default:
		upper := currentRatio.GT(bandUpper)
		hits := uint32(1)
		if st.OOB.ConsecutiveOOBHits > 0 && st.OOB.LastDirectionWasUpper == upper {
			hits = st.OOB.ConsecutiveOOBHits + 1
		}
		newOOB = types.OOBState{LastDirectionWasUpper: upper, ConsecutiveOOBHits: hits}

		side := params.LowerSideFactor
		if upper {
			side = params.UpperSideFactor
		}

		deviation := currentRatio.Sub(target).Abs().Quo(target)
		rawDelta := params.LinearSlope.Mul(deviation).Mul(side).Mul(streakMultiplier(hits))

		// Cap before leaving LegacyDec space: an admissible deviation can
		// produce a raw delta far beyond the int64 range.
		capDec := sdkmath.LegacyNewDec(int64(params.BaseMaxFeeDelta))
		if rateCap := config.MaxAdjustmentRate.MulInt64(int64(st.CurrentFee)); rateCap.LT(capDec) {
			capDec = rateCap
		}
		if rawDelta.GT(capDec) {
			rawDelta = capDec
		}
		delta := rawDelta.TruncateInt64()

		fee := int64(st.CurrentFee)
		if upper {
			fee += delta
		} else {
			fee -= delta
		}
		if fee < int64(params.MinFee) {
			fee = int64(params.MinFee)
		}
		if fee > int64(params.MaxFee) {
			fee = int64(params.MaxFee)
		}
		newFee = uint64(fee)
	}

	blend := currentRatio.Sub(target).QuoInt64(int64(params.LookbackPeriod))
	newTarget := target.Add(blend)
	if newTarget.GT(params.MaxCurrentRatio) {
		newTarget = params.MaxCurrentRatio
	}

	return FeeUpdate{
		NewFee:         newFee,
		OldTargetRatio: target,
		NewTargetRatio: newTarget,
		NewOOB:         newOOB,
	}, nil
}

// streakMultiplier amplifies repeated same-direction misses:
// 1 + StreakGain*(hits-1), capped by MaxStreakMultiplier. A fresh
// excursion (hits == 1) carries no amplification.
func streakMultiplier(hits uint32) sdkmath.LegacyDec {
	mult := sdkmath.LegacyOneDec().Add(config.StreakGain.MulInt64(int64(hits) - 1))
	capDec := sdkmath.LegacyNewDec(config.MaxStreakMultiplier)
	if mult.GT(capDec) {
		return capDec
	}
	return mult
}
