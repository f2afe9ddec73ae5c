/*

Emitted facts. Events exist for observability only: they are logged,
persisted and served over the API, but never read back into control flow.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

type EventKind string

const (
	EventFeeUpdated         EventKind = "fee_updated"
	EventYieldSourceChanged EventKind = "yield_source_changed"
	EventTaxCollected       EventKind = "tax_collected"
	EventPoolActivated      EventKind = "pool_activated"
	EventPoolDeactivated    EventKind = "pool_deactivated"
)

// Event is one emitted fact about a pool. Payload holds the kind-specific
// detail struct below and is serialized as JSON for persistence.
type Event struct {
	ID        string    `json:"id"`
	PoolID    PoolID    `json:"pool_id"`
	Kind      EventKind `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

type FeeUpdatedPayload struct {
	OldFee         uint64            `json:"old_fee"`
	NewFee         uint64            `json:"new_fee"`
	OldTargetRatio sdkmath.LegacyDec `json:"old_target_ratio"`
	NewTargetRatio sdkmath.LegacyDec `json:"new_target_ratio"`
	OOB            OOBState          `json:"oob"`
}

type YieldSourceChangedPayload struct {
	Asset         Asset       `json:"asset"`
	OldSource     string      `json:"old_source"`
	NewSource     string      `json:"new_source"`
	MigratedValue sdkmath.Int `json:"migrated_value"`
}

type TaxCollectedPayload struct {
	Asset    Asset       `json:"asset"`
	Amount   sdkmath.Int `json:"amount"`
	Treasury Address     `json:"treasury"`
}

type PoolActivatedPayload struct {
	InitialFee  uint64            `json:"initial_fee"`
	TargetRatio sdkmath.LegacyDec `json:"target_ratio"`
	TickLower   int32             `json:"tick_lower"`
	TickUpper   int32             `json:"tick_upper"`
}
