package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/parallax-fi/fcm/internal/types"
)

// Application configuration loaded from environment variables. These are
// populated at startup by the LoadConfig function.
var (
	// ManagerAddress is the bank account the FCM operates from. Pulled
	// deposits and yield-source flows pass through this account.
	ManagerAddress types.Address

	// TreasuryAddress receives collected tax.
	TreasuryAddress types.Address

	// TaxPpm is the fraction of yield-source gains diverted to the
	// treasury, in parts-per-million.
	TaxPpm uint64

	// NativeAsset is the denomination treated as the chain-native asset
	// for payment/refund semantics. Empty disables the native variant.
	NativeAsset types.Asset
)

// LoadConfig loads configuration from environment variables and sets the
// global config vars. All listed variables are required except
// FCM_NATIVE_ASSET.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	manager, err := getEnv("FCM_MANAGER_ADDRESS")
	if err != nil {
		return err
	}
	ManagerAddress = types.Address(manager)

	treasury, err := getEnv("FCM_TREASURY_ADDRESS")
	if err != nil {
		return err
	}
	TreasuryAddress = types.Address(treasury)

	TaxPpm, err = getEnvAsUint64("FCM_TAX_PPM")
	if err != nil {
		return err
	}
	if TaxPpm > types.FeeCeiling {
		return errors.New("FCM_TAX_PPM must not exceed 1000000")
	}

	NativeAsset = types.Asset(os.Getenv("FCM_NATIVE_ASSET"))

	log.Debug().
		Str("ManagerAddress", string(ManagerAddress)).
		Str("TreasuryAddress", string(TreasuryAddress)).
		Uint64("TaxPpm", TaxPpm).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvAsUint64 retrieves an environment variable as a uint64. Returns
// error if not set or invalid.
func getEnvAsUint64(key string) (uint64, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid uint64, got: " + valueStr)
	}
	return value, nil
}
