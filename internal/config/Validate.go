package config

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/parallax-fi/fcm/internal/types"
)

// ValidatePoolParams checks every field of a parameter set against the
// global bounds. It is called on activation and on every SetPoolParams, so
// stored parameters are valid by construction.
func ValidatePoolParams(p types.PoolParams) error {
	if p.MinFee > p.MaxFee {
		return &types.ParamBoundError{
			Field: "min_fee", Value: fmt.Sprintf("%d", p.MinFee),
			Reason: fmt.Sprintf("exceeds max_fee %d", p.MaxFee),
		}
	}
	if p.MaxFee > types.FeeCeiling {
		return &types.ParamBoundError{
			Field: "max_fee", Value: fmt.Sprintf("%d", p.MaxFee),
			Reason: fmt.Sprintf("exceeds fee ceiling %d", types.FeeCeiling),
		}
	}
	if p.BaseMaxFeeDelta == 0 || p.BaseMaxFeeDelta > types.FeeCeiling {
		return &types.ParamBoundError{
			Field: "base_max_fee_delta", Value: fmt.Sprintf("%d", p.BaseMaxFeeDelta),
			Reason: "must be in (0, fee ceiling]",
		}
	}
	if p.MinPeriod < MinPeriodFloor || p.MinPeriod > MinPeriodCeiling {
		return &types.ParamBoundError{
			Field: "min_period", Value: p.MinPeriod.String(),
			Reason: fmt.Sprintf("must be in [%s, %s]", MinPeriodFloor, MinPeriodCeiling),
		}
	}
	if p.LookbackPeriod == 0 || p.LookbackPeriod > LookbackPeriodCeiling {
		return &types.ParamBoundError{
			Field: "lookback_period", Value: fmt.Sprintf("%d", p.LookbackPeriod),
			Reason: fmt.Sprintf("must be in [1, %d]", LookbackPeriodCeiling),
		}
	}
	if p.RatioTolerance.IsNil() || p.RatioTolerance.IsNegative() || p.RatioTolerance.GT(RatioToleranceCeiling) {
		return &types.ParamBoundError{
			Field: "ratio_tolerance", Value: decString(p.RatioTolerance),
			Reason: "must be in [0, 1)",
		}
	}
	if p.LinearSlope.IsNil() || !p.LinearSlope.IsPositive() || p.LinearSlope.GT(LinearSlopeCeiling) {
		return &types.ParamBoundError{
			Field: "linear_slope", Value: decString(p.LinearSlope),
			Reason: fmt.Sprintf("must be in (0, %s]", LinearSlopeCeiling),
		}
	}
	if p.MaxCurrentRatio.IsNil() || !p.MaxCurrentRatio.IsPositive() || p.MaxCurrentRatio.GT(MaxCurrentRatioCeiling) {
		return &types.ParamBoundError{
			Field: "max_current_ratio", Value: decString(p.MaxCurrentRatio),
			Reason: fmt.Sprintf("must be in (0, %s]", MaxCurrentRatioCeiling),
		}
	}
	if p.UpperSideFactor.IsNil() || p.UpperSideFactor.LT(SideFactorFloor) || p.UpperSideFactor.GT(SideFactorCeiling) {
		return &types.ParamBoundError{
			Field: "upper_side_factor", Value: decString(p.UpperSideFactor),
			Reason: fmt.Sprintf("must be in [%s, %s]", SideFactorFloor, SideFactorCeiling),
		}
	}
	if p.LowerSideFactor.IsNil() || p.LowerSideFactor.LT(SideFactorFloor) || p.LowerSideFactor.GT(SideFactorCeiling) {
		return &types.ParamBoundError{
			Field: "lower_side_factor", Value: decString(p.LowerSideFactor),
			Reason: fmt.Sprintf("must be in [%s, %s]", SideFactorFloor, SideFactorCeiling),
		}
	}
	return nil
}

func decString(d sdkmath.LegacyDec) string {
	if d.IsNil() {
		return "<nil>"
	}
	return d.String()
}
