/*

Engine. One orchestrating entry point per pool: it owns the per-pool
runtime (fee controller, ledger, JIT manager, tax collector), serializes
operations against the same pool, enforces the access/pause preconditions
and emits events. All algorithmic work lives in the component packages;
the engine only gates, delegates and commits.

*/

package engine

import (
	"fmt"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/parallax-fi/fcm/internal/access"
	"github.com/parallax-fi/fcm/internal/bank"
	"github.com/parallax-fi/fcm/internal/feecontrol"
	"github.com/parallax-fi/fcm/internal/jit"
	"github.com/parallax-fi/fcm/internal/logger"
	"github.com/parallax-fi/fcm/internal/pool"
	"github.com/parallax-fi/fcm/internal/rehypo"
	"github.com/parallax-fi/fcm/internal/types"
	"github.com/parallax-fi/fcm/internal/yieldsource"
)

// Sink receives emitted events. Implementations persist or forward them;
// a failing sink is logged, never propagated into the operation.
type Sink interface {
	Record(ev types.Event) error
}

// NopSink discards events. Used when no persistence is wired.
type NopSink struct{}

func (NopSink) Record(types.Event) error { return nil }

// Config holds the collaborators for creating a new Engine instance.
type Config struct {
	TradingPool pool.TradingPool
	Bank        bank.Bank
	Access      access.Controller
	Sink        Sink
	Manager     types.Address
	Treasury    types.Address
	TaxPpm      uint64
	NativeAsset types.Asset
	Now         func() time.Time
}

type poolRuntime struct {
	mu         sync.Mutex
	controller *feecontrol.Controller
	ledger     *rehypo.Ledger
	jit        *jit.Manager
	collector  *rehypo.TaxCollector
}

type Engine struct {
	mu    sync.RWMutex
	pools map[types.PoolID]*poolRuntime

	tp          pool.TradingPool
	bank        bank.Bank
	acl         access.Controller
	sink        Sink
	manager     types.Address
	treasury    types.Address
	taxPpm      uint64
	nativeAsset types.Asset
	now         func() time.Time
	log         zerolog.Logger
}

// New creates an Engine with dependency injection.
func New(cfg Config) (*Engine, error) {
	if err := validateEngineConfig(cfg); err != nil {
		return nil, fmt.Errorf("engine configuration validation failed: %w", err)
	}
	if cfg.Sink == nil {
		cfg.Sink = NopSink{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{
		pools:       make(map[types.PoolID]*poolRuntime),
		tp:          cfg.TradingPool,
		bank:        cfg.Bank,
		acl:         cfg.Access,
		sink:        cfg.Sink,
		manager:     cfg.Manager,
		treasury:    cfg.Treasury,
		taxPpm:      cfg.TaxPpm,
		nativeAsset: cfg.NativeAsset,
		now:         cfg.Now,
		log:         logger.GetForComponent("engine"),
	}, nil
}

func validateEngineConfig(cfg Config) error {
	if cfg.TradingPool == nil {
		return fmt.Errorf("trading pool cannot be nil")
	}
	if cfg.Bank == nil {
		return fmt.Errorf("bank cannot be nil")
	}
	if cfg.Access == nil {
		return fmt.Errorf("access controller cannot be nil")
	}
	if cfg.Manager == "" {
		return fmt.Errorf("manager address cannot be empty")
	}
	if cfg.Treasury == "" {
		return fmt.Errorf("treasury address cannot be empty")
	}
	if cfg.TaxPpm > types.FeeCeiling {
		return fmt.Errorf("tax ppm %d above 1000000", cfg.TaxPpm)
	}
	return nil
}

// ActivatePoolArgs fixes a pool's initial configuration.
type ActivatePoolArgs struct {
	ID                 types.PoolID
	Params             types.PoolParams
	InitialFee         uint64
	InitialTargetRatio sdkmath.LegacyDec
	InitialPrice       sdkmath.LegacyDec
	Asset0             types.Asset
	Asset1             types.Asset
	ReHypo             types.ReHypoConfig
}

// ActivatePool registers a pool, creates its control state and ledger and
// initializes the trading pool collaborator. Owner role required.
func (e *Engine) ActivatePool(caller types.Address, args ActivatePoolArgs) error {
	if !e.acl.HasRole(caller, access.RoleOwner) {
		return &types.UnauthorizedError{Caller: caller, Role: string(access.RoleOwner)}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.pools[args.ID]; exists {
		return &types.PoolConfiguredError{PoolID: args.ID}
	}

	controller, err := feecontrol.New(args.ID, args.Params, args.InitialFee,
		args.InitialTargetRatio, e.tp, e.now)
	if err != nil {
		return err
	}

	if err := e.tp.Initialize(args.ID, args.InitialFee, args.InitialPrice); err != nil {
		return err
	}

	ledger := rehypo.NewLedger(rehypo.Config{
		PoolID:      args.ID,
		ReHypo:      args.ReHypo,
		Asset0:      args.Asset0,
		Asset1:      args.Asset1,
		NativeAsset: e.nativeAsset,
		Manager:     e.manager,
		Bank:        e.bank,
		Pool:        e.tp,
	})
	collector := rehypo.NewTaxCollector(ledger, e.treasury, e.taxPpm)

	e.pools[args.ID] = &poolRuntime{
		controller: controller,
		ledger:     ledger,
		jit:        jit.NewManager(args.ID, args.ReHypo, ledger, e.tp, collector, e.manager),
		collector:  collector,
	}

	e.emit(args.ID, types.EventPoolActivated, types.PoolActivatedPayload{
		InitialFee:  args.InitialFee,
		TargetRatio: args.InitialTargetRatio,
		TickLower:   args.ReHypo.TickLower,
		TickUpper:   args.ReHypo.TickUpper,
	})
	e.log.Info().Uint64("pool", uint64(args.ID)).Msg("Pool activated")
	return nil
}

// DeactivatePool retires a pool once no liquidity remains re-hypothecated.
// Owner role required.
func (e *Engine) DeactivatePool(caller types.Address, id types.PoolID) error {
	if !e.acl.HasRole(caller, access.RoleOwner) {
		return &types.UnauthorizedError{Caller: caller, Role: string(access.RoleOwner)}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	rt, ok := e.pools[id]
	if !ok {
		return &types.PoolNotFoundError{PoolID: id}
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.ledger.TotalSupply().IsPositive() {
		return fmt.Errorf("pool %d still has %s re-hypothecated shares outstanding",
			id, rt.ledger.TotalSupply())
	}

	delete(e.pools, id)
	e.emit(id, types.EventPoolDeactivated, nil)
	e.log.Info().Uint64("pool", uint64(id)).Msg("Pool deactivated")
	return nil
}

// runtime fetches a pool's runtime or fails with PoolNotFoundError.
func (e *Engine) runtime(id types.PoolID) (*poolRuntime, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rt, ok := e.pools[id]
	if !ok {
		return nil, &types.PoolNotFoundError{PoolID: id}
	}
	return rt, nil
}

// checkMutable enforces the pause precondition shared by every
// state-mutating entry point.
func (e *Engine) checkMutable(id types.PoolID) error {
	if e.acl.IsPaused(id) {
		return &types.PausedError{PoolID: id}
	}
	return nil
}

// Poke submits a signal reading to a pool's fee controller. Fee-poker role
// required.
func (e *Engine) Poke(caller types.Address, id types.PoolID, currentRatio sdkmath.LegacyDec) (feecontrol.FeeUpdate, error) {
	if !e.acl.HasRole(caller, access.RoleFeePoker) {
		return feecontrol.FeeUpdate{}, &types.UnauthorizedError{Caller: caller, Role: string(access.RoleFeePoker)}
	}
	rt, err := e.runtime(id)
	if err != nil {
		return feecontrol.FeeUpdate{}, err
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	if err := e.checkMutable(id); err != nil {
		return feecontrol.FeeUpdate{}, err
	}

	oldFee := rt.controller.State().CurrentFee
	update, err := rt.controller.Poke(currentRatio)
	if err != nil {
		return feecontrol.FeeUpdate{}, err
	}

	e.emit(id, types.EventFeeUpdated, types.FeeUpdatedPayload{
		OldFee:         oldFee,
		NewFee:         update.NewFee,
		OldTargetRatio: update.OldTargetRatio,
		NewTargetRatio: update.NewTargetRatio,
		OOB:            update.NewOOB,
	})
	return update, nil
}

// PreviewFee runs the control step read-only.
func (e *Engine) PreviewFee(id types.PoolID, currentRatio sdkmath.LegacyDec) (feecontrol.FeeUpdate, error) {
	rt, err := e.runtime(id)
	if err != nil {
		return feecontrol.FeeUpdate{}, err
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.controller.Preview(currentRatio)
}

// SetPoolParams replaces a pool's control parameters. Owner role required.
func (e *Engine) SetPoolParams(caller types.Address, id types.PoolID, params types.PoolParams) error {
	if !e.acl.HasRole(caller, access.RoleOwner) {
		return &types.UnauthorizedError{Caller: caller, Role: string(access.RoleOwner)}
	}
	rt, err := e.runtime(id)
	if err != nil {
		return err
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.controller.SetPoolParams(params)
}

// AddLiquidity deposits into a pool's re-hypothecation ledger.
func (e *Engine) AddLiquidity(caller types.Address, id types.PoolID, shares sdkmath.Int,
	expectedPrice sdkmath.LegacyDec, slippageToleranceBps uint32) error {
	rt, err := e.runtime(id)
	if err != nil {
		return err
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if err := e.checkMutable(id); err != nil {
		return err
	}
	return rt.ledger.AddLiquidity(caller, shares, expectedPrice, slippageToleranceBps)
}

// AddLiquidityNative is the payable variant with refund semantics.
func (e *Engine) AddLiquidityNative(caller types.Address, id types.PoolID, shares sdkmath.Int,
	expectedPrice sdkmath.LegacyDec, slippageToleranceBps uint32, payment sdkmath.Int) error {
	rt, err := e.runtime(id)
	if err != nil {
		return err
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if err := e.checkMutable(id); err != nil {
		return err
	}
	return rt.ledger.AddLiquidityNative(caller, shares, expectedPrice, slippageToleranceBps, payment)
}

// RemoveLiquidity withdraws from a pool's re-hypothecation ledger.
func (e *Engine) RemoveLiquidity(caller types.Address, id types.PoolID, shares sdkmath.Int,
	expectedPrice sdkmath.LegacyDec, slippageToleranceBps uint32) error {
	rt, err := e.runtime(id)
	if err != nil {
		return err
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if err := e.checkMutable(id); err != nil {
		return err
	}
	return rt.ledger.RemoveLiquidity(caller, shares, expectedPrice, slippageToleranceBps)
}

// SetYieldSource configures or migrates an asset's yield source.
// Yield-manager role required.
func (e *Engine) SetYieldSource(caller types.Address, id types.PoolID,
	asset types.Asset, source yieldsource.Adapter) error {
	if !e.acl.HasRole(caller, access.RoleYieldManager) {
		return &types.UnauthorizedError{Caller: caller, Role: string(access.RoleYieldManager)}
	}
	rt, err := e.runtime(id)
	if err != nil {
		return err
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if err := e.checkMutable(id); err != nil {
		return err
	}

	result, err := rt.ledger.SetYieldSource(asset, source)
	if err != nil {
		return err
	}
	e.emit(id, types.EventYieldSourceChanged, types.YieldSourceChangedPayload{
		Asset:         asset,
		OldSource:     result.OldSource,
		NewSource:     result.NewSource,
		MigratedValue: result.MigratedValue,
	})
	return nil
}

// CollectTax sweeps accumulated yield-source gains to the treasury.
// Yield-manager role required.
func (e *Engine) CollectTax(caller types.Address, id types.PoolID) ([]types.TaxCollectedPayload, error) {
	if !e.acl.HasRole(caller, access.RoleYieldManager) {
		return nil, &types.UnauthorizedError{Caller: caller, Role: string(access.RoleYieldManager)}
	}
	rt, err := e.runtime(id)
	if err != nil {
		return nil, err
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if err := e.checkMutable(id); err != nil {
		return nil, err
	}

	collected, err := rt.collector.CollectAccumulatedTax()
	for _, payload := range collected {
		e.emit(id, types.EventTaxCollected, payload)
	}
	return collected, err
}

// ExecuteSwap runs one trade with JIT depth around it. The trade closure
// is the pool engine's own execution; the JIT position is injected before
// it and unwound after it whether or not the trade succeeds.
func (e *Engine) ExecuteSwap(id types.PoolID, trade func() error) ([]types.TaxCollectedPayload, error) {
	rt, err := e.runtime(id)
	if err != nil {
		return nil, err
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if err := e.checkMutable(id); err != nil {
		return nil, err
	}

	pos, err := rt.jit.BeforeSwap()
	if err != nil {
		return nil, err
	}

	tradeErr := trade()

	collected, settleErr := rt.jit.AfterSwap(pos)
	for _, payload := range collected {
		e.emit(id, types.EventTaxCollected, payload)
	}
	if tradeErr != nil {
		return collected, tradeErr
	}
	return collected, settleErr
}

// emit logs an event and hands it to the sink. Sink failures never fail
// the operation that produced the event.
func (e *Engine) emit(id types.PoolID, kind types.EventKind, payload any) {
	ev := types.Event{
		ID:        uuid.New().String(),
		PoolID:    id,
		Kind:      kind,
		Timestamp: e.now(),
		Payload:   payload,
	}
	if err := e.sink.Record(ev); err != nil {
		e.log.Error().Err(err).Str("kind", string(kind)).Msg("Event sink record failed")
	}
}
