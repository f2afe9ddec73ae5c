// ./internal/state/db.go
package state

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var err error
	DB, err = sql.Open("postgres", psqlInfo)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	err = DB.Ping()
	if err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to the PostgreSQL database!")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
	}
}

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
func EnsureSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	schemaSQL := `
		CREATE TABLE IF NOT EXISTS pool_params (
			params_id SERIAL PRIMARY KEY,
			pool_id BIGINT NOT NULL,
			version INTEGER NOT NULL DEFAULT 1,
			is_active BOOLEAN NOT NULL DEFAULT FALSE,
			activated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			min_fee BIGINT NOT NULL,
			max_fee BIGINT NOT NULL,
			base_max_fee_delta BIGINT NOT NULL,
			min_period_seconds BIGINT NOT NULL,
			lookback_period INTEGER NOT NULL,
			ratio_tolerance DECIMAL(40, 18) NOT NULL,
			linear_slope DECIMAL(40, 18) NOT NULL,
			max_current_ratio DECIMAL(40, 18) NOT NULL,
			upper_side_factor DECIMAL(40, 18) NOT NULL,
			lower_side_factor DECIMAL(40, 18) NOT NULL,
			CONSTRAINT uq_pool_params_pool_version UNIQUE (pool_id, version)
		);
		CREATE INDEX IF NOT EXISTS idx_pool_params_pool_active ON pool_params(pool_id, is_active, activated_at DESC);

		CREATE TABLE IF NOT EXISTS control_snapshots (
			snapshot_id SERIAL PRIMARY KEY,
			pool_id BIGINT NOT NULL,
			snapshot_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			current_fee BIGINT NOT NULL,
			target_ratio DECIMAL(40, 18) NOT NULL,
			last_update_timestamp TIMESTAMPTZ NOT NULL,
			oob_direction_upper BOOLEAN NOT NULL,
			oob_consecutive_hits INTEGER NOT NULL,
			total_supply DECIMAL(60, 0) NOT NULL,
			asset_states JSONB
		);
		CREATE INDEX IF NOT EXISTS idx_control_snapshots_pool_timestamp ON control_snapshots(pool_id, snapshot_timestamp DESC);

		CREATE TABLE IF NOT EXISTS fcm_events (
			event_id VARCHAR(36) PRIMARY KEY,
			pool_id BIGINT NOT NULL,
			kind VARCHAR(50) NOT NULL,
			event_timestamp TIMESTAMPTZ NOT NULL,
			payload JSONB
		);
		CREATE INDEX IF NOT EXISTS idx_fcm_events_pool_timestamp ON fcm_events(pool_id, event_timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_fcm_events_kind ON fcm_events(kind);
	`
	_, err := DB.Exec(schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	log.Info().Msg("Database schema ensured.")
	return nil
}

// TestDBConnection tests if the database connection is healthy
func TestDBConnection() error {
	if DB == nil {
		return fmt.Errorf("database connection is nil")
	}
	return DB.Ping()
}
