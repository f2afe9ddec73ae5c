package main

import (
	"os"
	"strconv"

	"github.com/parallax-fi/fcm/internal/access"
	"github.com/parallax-fi/fcm/internal/bank"
	"github.com/parallax-fi/fcm/internal/config"
	"github.com/parallax-fi/fcm/internal/engine"
	"github.com/parallax-fi/fcm/internal/logger"
	"github.com/parallax-fi/fcm/internal/pool"
	"github.com/parallax-fi/fcm/internal/state"
	"github.com/parallax-fi/fcm/internal/types"
	"github.com/parallax-fi/fcm/internal/web"

	sdkmath "cosmossdk.io/math"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// main is the entry point for the FCM service.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("FCM Core Logic Starting...")

	// Initialize Database Connection (parameters, snapshots, event feed)
	dbCfg := state.DBConfig{
		Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
		User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
		DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer state.CloseDB()
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	// --- 2. Collaborator Initialization ---
	// The in-memory substrate stands in for the settlement layer. Deployments
	// against a real pool replace these with the live bindings.
	memBank := bank.NewMemory()
	tradingPool := pool.NewSim(memBank)

	acl := access.NewStatic()
	acl.Grant(config.ManagerAddress, access.RoleOwner)
	acl.Grant(config.ManagerAddress, access.RoleYieldManager)

	pokerAddr := config.ManagerAddress
	if pokerEnv := os.Getenv("FCM_POKER_ADDRESS"); pokerEnv != "" {
		pokerAddr = types.Address(pokerEnv)
	}
	acl.Grant(pokerAddr, access.RoleFeePoker)

	// --- 3. Create Engine Instance with Dependency Injection ---
	log.Info().Msg("Creating engine instance with dependency injection...")

	engCfg := engine.Config{
		TradingPool: tradingPool,
		Bank:        memBank,
		Access:      acl,
		Sink:        state.NewEventStore(),
		Manager:     config.ManagerAddress,
		Treasury:    config.TreasuryAddress,
		TaxPpm:      config.TaxPpm,
		NativeAsset: config.NativeAsset,
	}

	eng, err := engine.New(engCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create engine instance")
	}

	log.Info().Msg("Engine instance created successfully")

	// --- 4. Bootstrap the configured pool ---
	if err := bootstrapPool(eng, tradingPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to bootstrap pool")
	}

	// --- 5. Serve the API ---
	webPort := os.Getenv("WEB_PORT")
	if webPort == "" {
		webPort = "8080"
	}

	webServer := web.NewWebServer(webPort, eng, pokerAddr)
	log.Info().Str("port", webPort).Str("url", "http://localhost:"+webPort).Msg("Starting FCM API server")
	if err := webServer.Start(); err != nil {
		log.Fatal().Err(err).Msg("Web server failed")
	}
}

// bootstrapPool activates the pool named by the FCM_POOL_* environment
// variables. Control parameters persisted from a previous run take
// precedence over the compiled defaults; first-time activations persist
// the defaults so later runs and the parameter history stay consistent.
func bootstrapPool(eng *engine.Engine, sim *pool.Sim) error {
	poolID := types.PoolID(mustAtoi(os.Getenv("FCM_POOL_ID"), 1))
	asset0 := types.Asset(envOr("FCM_ASSET0", "uatom"))
	asset1 := types.Asset(envOr("FCM_ASSET1", "uusdc"))

	params := config.DefaultPoolParams
	persisted, err := state.LoadActivePoolParams(poolID)
	if err != nil {
		return err
	}
	if persisted != nil {
		params = *persisted
		log.Info().Uint64("poolId", uint64(poolID)).Msg("Loaded persisted pool parameters")
	}

	sim.Register(poolID, types.Address("pool-"+strconv.Itoa(int(poolID))), asset0, asset1)

	args := engine.ActivatePoolArgs{
		ID:                 poolID,
		Params:             params,
		InitialFee:         uint64(mustAtoi(os.Getenv("FCM_INITIAL_FEE_PPM"), 3000)),
		InitialTargetRatio: sdkmath.LegacyOneDec(),
		InitialPrice:       sdkmath.LegacyOneDec(),
		Asset0:             asset0,
		Asset1:             asset1,
		ReHypo: types.ReHypoConfig{
			TickLower: int32(mustAtoi(os.Getenv("FCM_TICK_LOWER"), -1000)),
			TickUpper: int32(mustAtoi(os.Getenv("FCM_TICK_UPPER"), 1000)),
		},
	}
	if err := eng.ActivatePool(config.ManagerAddress, args); err != nil {
		return err
	}

	if persisted == nil {
		if _, err := state.SavePoolParams(poolID, params, 1, true); err != nil {
			log.Error().Err(err).Msg("Failed to persist initial pool parameters")
		}
	}

	log.Info().
		Uint64("poolId", uint64(poolID)).
		Str("asset0", string(asset0)).
		Str("asset1", string(asset1)).
		Msg("Pool activated")
	return nil
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}

// Helper to read an environment variable with a default value
func envOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
