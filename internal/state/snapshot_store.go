// ./internal/state/snapshot_store.go
package state

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/parallax-fi/fcm/internal/engine"
	"github.com/parallax-fi/fcm/internal/types"
)

// SaveControlSnapshot persists a pool's full state as captured by the
// engine, for dashboards and post-mortems.
func SaveControlSnapshot(snap engine.PoolSnapshot) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	assetStatesJSON, err := json.Marshal(snap.Assets)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal asset states: %w", err)
	}

	query := `
		INSERT INTO control_snapshots (
			pool_id, current_fee, target_ratio, last_update_timestamp,
			oob_direction_upper, oob_consecutive_hits,
			total_supply, asset_states
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING snapshot_id;
	`

	var snapshotID int64
	err = DB.QueryRow(
		query,
		int64(snap.ID), int64(snap.Control.CurrentFee),
		snap.Control.TargetRatio.String(), snap.Control.LastUpdateTimestamp,
		snap.Control.OOB.LastDirectionWasUpper, int64(snap.Control.OOB.ConsecutiveOOBHits),
		snap.TotalSupply.String(), assetStatesJSON,
	).Scan(&snapshotID)
	if err != nil {
		return 0, fmt.Errorf("failed to save control snapshot: %w", err)
	}

	log.Debug().
		Int64("snapshot_id", snapshotID).
		Uint64("pool", uint64(snap.ID)).
		Uint64("current_fee", snap.Control.CurrentFee).
		Msg("Control snapshot saved to database")

	return snapshotID, nil
}

// ControlSnapshotRow is one persisted snapshot as served by the API.
type ControlSnapshotRow struct {
	SnapshotID         int64           `json:"snapshot_id"`
	PoolID             types.PoolID    `json:"pool_id"`
	CurrentFee         uint64          `json:"current_fee"`
	TargetRatio        string          `json:"target_ratio"`
	OOBDirectionUpper  bool            `json:"oob_direction_upper"`
	OOBConsecutiveHits uint32          `json:"oob_consecutive_hits"`
	TotalSupply        string          `json:"total_supply"`
	AssetStates        json.RawMessage `json:"asset_states"`
}

// RecentControlSnapshots returns the newest limit snapshots for a pool.
func RecentControlSnapshots(poolID types.PoolID, limit int) ([]ControlSnapshotRow, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT snapshot_id, pool_id, current_fee, target_ratio,
		       oob_direction_upper, oob_consecutive_hits, total_supply, asset_states
		FROM control_snapshots
		WHERE pool_id = $1
		ORDER BY snapshot_timestamp DESC
		LIMIT $2;`

	rows, err := DB.Query(query, int64(poolID), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query control snapshots: %w", err)
	}
	defer rows.Close()

	var result []ControlSnapshotRow
	for rows.Next() {
		var r ControlSnapshotRow
		var poolID64, fee, hits int64
		if err := rows.Scan(&r.SnapshotID, &poolID64, &fee, &r.TargetRatio,
			&r.OOBDirectionUpper, &hits, &r.TotalSupply, &r.AssetStates); err != nil {
			return nil, fmt.Errorf("failed to scan control snapshot: %w", err)
		}
		r.PoolID = types.PoolID(poolID64)
		r.CurrentFee = uint64(fee)
		r.OOBConsecutiveHits = uint32(hits)
		result = append(result, r)
	}
	return result, rows.Err()
}
