// ./internal/state/parameters_store.go
package state

import (
	"database/sql"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/parallax-fi/fcm/internal/types"
)

// SavePoolParams saves a new version of a pool's parameters, optionally
// deactivating the previously active set.
func SavePoolParams(poolID types.PoolID, params types.PoolParams, version int, makeActive bool) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	tx, err := DB.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p) // Re-panic after rollback
		} else if err != nil {
			tx.Rollback() // Rollback if error occurred
		}
	}()

	if makeActive {
		stmtDeactivate := `UPDATE pool_params SET is_active = FALSE WHERE pool_id = $1 AND is_active = TRUE;`
		_, err = tx.Exec(stmtDeactivate, int64(poolID))
		if err != nil {
			return 0, fmt.Errorf("failed to deactivate existing active parameters for pool %d: %w", poolID, err)
		}
	}

	stmt := `
        INSERT INTO pool_params (
            pool_id, version, is_active, activated_at, created_at,
            min_fee, max_fee, base_max_fee_delta,
            min_period_seconds, lookback_period,
            ratio_tolerance, linear_slope, max_current_ratio,
            upper_side_factor, lower_side_factor
        ) VALUES (
            $1, $2, $3, $4, $5,
            $6, $7, $8,
            $9, $10,
            $11, $12, $13,
            $14, $15
        ) RETURNING params_id;`

	var paramsID int64
	currentTime := time.Now()
	err = tx.QueryRow(
		stmt,
		int64(poolID), version, makeActive, currentTime, currentTime,
		int64(params.MinFee), int64(params.MaxFee), int64(params.BaseMaxFeeDelta),
		int64(params.MinPeriod/time.Second), int64(params.LookbackPeriod),
		params.RatioTolerance.String(), params.LinearSlope.String(), params.MaxCurrentRatio.String(),
		params.UpperSideFactor.String(), params.LowerSideFactor.String(),
	).Scan(&paramsID)

	if err != nil {
		return 0, fmt.Errorf("failed to insert pool parameters: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Info().
		Uint64("pool", uint64(poolID)).
		Int("version", version).
		Int64("params_id", paramsID).
		Bool("active", makeActive).
		Msg("Saved pool parameters")
	return paramsID, nil
}

// LoadActivePoolParams loads the currently active parameter set for a
// pool. Returns (nil, nil) when no active set has been persisted yet, so
// a first run can fall back to the compiled defaults.
func LoadActivePoolParams(poolID types.PoolID) (*types.PoolParams, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
        SELECT
            min_fee, max_fee, base_max_fee_delta,
            min_period_seconds, lookback_period,
            ratio_tolerance, linear_slope, max_current_ratio,
            upper_side_factor, lower_side_factor
        FROM pool_params
        WHERE pool_id = $1 AND is_active = TRUE
        ORDER BY activated_at DESC
        LIMIT 1;`

	var (
		minFee, maxFee, baseDelta, periodSeconds int64
		lookback                                 int32
		tolerance, slope, maxRatio, upper, lower string
	)
	row := DB.QueryRow(query, int64(poolID))
	err := row.Scan(
		&minFee, &maxFee, &baseDelta,
		&periodSeconds, &lookback,
		&tolerance, &slope, &maxRatio,
		&upper, &lower,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load active pool parameters: %w", err)
	}

	params := &types.PoolParams{
		MinFee:          uint64(minFee),
		MaxFee:          uint64(maxFee),
		BaseMaxFeeDelta: uint64(baseDelta),
		MinPeriod:       time.Duration(periodSeconds) * time.Second,
		LookbackPeriod:  uint32(lookback),
	}
	if params.RatioTolerance, err = sdkmath.LegacyNewDecFromStr(tolerance); err != nil {
		return nil, fmt.Errorf("corrupt ratio_tolerance %q: %w", tolerance, err)
	}
	if params.LinearSlope, err = sdkmath.LegacyNewDecFromStr(slope); err != nil {
		return nil, fmt.Errorf("corrupt linear_slope %q: %w", slope, err)
	}
	if params.MaxCurrentRatio, err = sdkmath.LegacyNewDecFromStr(maxRatio); err != nil {
		return nil, fmt.Errorf("corrupt max_current_ratio %q: %w", maxRatio, err)
	}
	if params.UpperSideFactor, err = sdkmath.LegacyNewDecFromStr(upper); err != nil {
		return nil, fmt.Errorf("corrupt upper_side_factor %q: %w", upper, err)
	}
	if params.LowerSideFactor, err = sdkmath.LegacyNewDecFromStr(lower); err != nil {
		return nil, fmt.Errorf("corrupt lower_side_factor %q: %w", lower, err)
	}
	return params, nil
}
