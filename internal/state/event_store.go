// ./internal/state/event_store.go
package state

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/parallax-fi/fcm/internal/types"
)

// EventStore persists engine events to Postgres. It satisfies the
// engine's Sink interface.
type EventStore struct{}

func NewEventStore() *EventStore { return &EventStore{} }

// Record inserts one event row.
func (s *EventStore) Record(ev types.Event) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	payloadJSON, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	query := `
		INSERT INTO fcm_events (event_id, pool_id, kind, event_timestamp, payload)
		VALUES ($1, $2, $3, $4, $5);`
	_, err = DB.Exec(query, ev.ID, int64(ev.PoolID), string(ev.Kind), ev.Timestamp, payloadJSON)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// EventRow is one persisted event as served by the API.
type EventRow struct {
	ID        string          `json:"id"`
	PoolID    types.PoolID    `json:"pool_id"`
	Kind      string          `json:"kind"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// RecentEvents returns the newest limit events for a pool.
func RecentEvents(poolID types.PoolID, limit int) ([]EventRow, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT event_id, pool_id, kind, event_timestamp, payload
		FROM fcm_events
		WHERE pool_id = $1
		ORDER BY event_timestamp DESC
		LIMIT $2;`

	rows, err := DB.Query(query, int64(poolID), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var result []EventRow
	for rows.Next() {
		var r EventRow
		var poolID64 int64
		if err := rows.Scan(&r.ID, &poolID64, &r.Kind, &r.Timestamp, &r.Payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		r.PoolID = types.PoolID(poolID64)
		result = append(result, r)
	}
	return result, rows.Err()
}
