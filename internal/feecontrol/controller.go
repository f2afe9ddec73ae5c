/*

Fee Controller. Owns one pool's control parameters and control state;
Poke is the only mutation path. Authorization and pause gating happen in
the engine before the call reaches here, so the controller's own preconditions are the cooldown and the signal
range.

*/

package feecontrol

import (
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/parallax-fi/fcm/internal/config"
	"github.com/parallax-fi/fcm/internal/logger"
	"github.com/parallax-fi/fcm/internal/pool"
	"github.com/parallax-fi/fcm/internal/types"
)

type Controller struct {
	poolID types.PoolID
	params types.PoolParams
	state  types.ControlState
	pool   pool.TradingPool
	now    func() time.Time
	log    zerolog.Logger
}

// New creates a controller for an activated pool. initialTarget seeds the
// smoothed estimate and must itself be an admissible signal value.
func New(poolID types.PoolID, params types.PoolParams, initialFee uint64,
	initialTarget sdkmath.LegacyDec, tp pool.TradingPool, now func() time.Time) (*Controller, error) {

	if err := config.ValidatePoolParams(params); err != nil {
		return nil, err
	}
	if initialTarget.IsNil() || !initialTarget.IsPositive() || initialTarget.GT(params.MaxCurrentRatio) {
		return nil, &types.InvalidRatioError{Value: initialTarget, Max: params.MaxCurrentRatio}
	}
	if initialFee < params.MinFee || initialFee > params.MaxFee {
		return nil, &types.ParamBoundError{
			Field: "initial_fee", Value: sdkmath.NewIntFromUint64(initialFee).String(),
			Reason: "outside [min_fee, max_fee]",
		}
	}
	if now == nil {
		now = time.Now
	}

	return &Controller{
		poolID: poolID,
		params: params,
		state: types.ControlState{
			CurrentFee:          initialFee,
			TargetRatio:         initialTarget,
			LastUpdateTimestamp: now(),
		},
		pool: tp,
		now:  now,
		log:  logger.GetForComponent("fee_controller"),
	}, nil
}

// Params returns a copy of the current parameters.
func (c *Controller) Params() types.PoolParams { return c.params }

// State returns a copy of the current control state.
func (c *Controller) State() types.ControlState { return c.state }

// Preview runs the control step read-only.
func (c *Controller) Preview(currentRatio sdkmath.LegacyDec) (FeeUpdate, error) {
	return ComputeFeeUpdate(c.params, c.state, currentRatio)
}

// Poke submits a signal reading. On success the returned update has been
// committed and the timestamp advanced; the new fee is pushed to the
// trading pool only when it actually changed. Target ratio and OOB state
// are persisted even when the fee is unchanged.
func (c *Controller) Poke(currentRatio sdkmath.LegacyDec) (FeeUpdate, error) {
	now := c.now()
	nextEligible := c.state.LastUpdateTimestamp.Add(c.params.MinPeriod)
	if now.Before(nextEligible) {
		return FeeUpdate{}, &types.CooldownError{Now: now, NextEligible: nextEligible}
	}

	update, err := ComputeFeeUpdate(c.params, c.state, currentRatio)
	if err != nil {
		return FeeUpdate{}, err
	}

	feeChanged := update.NewFee != c.state.CurrentFee
	if feeChanged {
		if err := c.pool.UpdateFee(c.poolID, update.NewFee); err != nil {
			return FeeUpdate{}, err
		}
	}

	oldFee := c.state.CurrentFee
	c.state.CurrentFee = update.NewFee
	c.state.TargetRatio = update.NewTargetRatio
	c.state.OOB = update.NewOOB
	c.state.LastUpdateTimestamp = now

	c.log.Info().
		Uint64("pool", uint64(c.poolID)).
		Uint64("old_fee", oldFee).
		Uint64("new_fee", update.NewFee).
		Str("current_ratio", currentRatio.String()).
		Str("old_target", update.OldTargetRatio.String()).
		Str("new_target", update.NewTargetRatio.String()).
		Uint32("oob_hits", update.NewOOB.ConsecutiveOOBHits).
		Bool("fee_changed", feeChanged).
		Msg("Fee update committed")

	return update, nil
}

// SetPoolParams replaces the parameter set after full re-validation. When
// the new MaxCurrentRatio sits below the stored target ratio the target is
// clamped immediately so the next poke remains valid.
func (c *Controller) SetPoolParams(params types.PoolParams) error {
	if err := config.ValidatePoolParams(params); err != nil {
		return err
	}
	c.params = params
	if c.state.TargetRatio.GT(params.MaxCurrentRatio) {
		c.log.Warn().
			Uint64("pool", uint64(c.poolID)).
			Str("old_target", c.state.TargetRatio.String()).
			Str("clamped_target", params.MaxCurrentRatio.String()).
			Msg("Stored target ratio clamped to new max current ratio")
		c.state.TargetRatio = params.MaxCurrentRatio
	}
	return nil
}
