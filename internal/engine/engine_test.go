package engine

import (
	"errors"
	"fmt"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/parallax-fi/fcm/internal/access"
	"github.com/parallax-fi/fcm/internal/bank"
	"github.com/parallax-fi/fcm/internal/config"
	"github.com/parallax-fi/fcm/internal/pool"
	"github.com/parallax-fi/fcm/internal/types"
	"github.com/parallax-fi/fcm/internal/yieldsource"
)

const (
	owner    = types.Address("owner")
	poker    = types.Address("poker")
	yieldMgr = types.Address("yield-manager")
	manager  = types.Address("manager")
	treasury = types.Address("treasury")
	alice    = types.Address("alice")
	mallory  = types.Address("mallory")

	atom = types.Asset("uatom")
	usdc = types.Asset("uusdc")
)

// recordingSink captures emitted events for assertions.
type recordingSink struct {
	events []types.Event
}

func (s *recordingSink) Record(ev types.Event) error {
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingSink) kinds() []types.EventKind {
	out := make([]types.EventKind, len(s.events))
	for i, ev := range s.events {
		out[i] = ev.Kind
	}
	return out
}

type harness struct {
	engine *Engine
	bank   *bank.Memory
	sim    *pool.Sim
	acl    *access.Static
	sink   *recordingSink
	clock  *fakeClock
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newHarness(t *testing.T) *harness {
	t.Helper()

	b := bank.NewMemory()
	sim := pool.NewSim(b)
	sim.Register(1, "pool-acct", atom, usdc)

	acl := access.NewStatic()
	acl.Grant(owner, access.RoleOwner)
	acl.Grant(poker, access.RoleFeePoker)
	acl.Grant(yieldMgr, access.RoleYieldManager)

	sink := &recordingSink{}
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}

	eng, err := New(Config{
		TradingPool: sim,
		Bank:        b,
		Access:      acl,
		Sink:        sink,
		Manager:     manager,
		Treasury:    treasury,
		TaxPpm:      100_000,
		NativeAsset: atom,
		Now:         clock.now,
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	funding := sdkmath.NewInt(1_000_000_000_000)
	b.Mint(alice, atom, funding)
	b.Mint(alice, usdc, funding)

	return &harness{engine: eng, bank: b, sim: sim, acl: acl, sink: sink, clock: clock}
}

func defaultArgs() ActivatePoolArgs {
	return ActivatePoolArgs{
		ID:                 1,
		Params:             config.DefaultPoolParams,
		InitialFee:         3000,
		InitialTargetRatio: sdkmath.LegacyOneDec(),
		InitialPrice:       sdkmath.LegacyOneDec(),
		Asset0:             atom,
		Asset1:             usdc,
		ReHypo:             types.ReHypoConfig{TickLower: -1000, TickUpper: 1000},
	}
}

// activate activates pool 1 and wires fresh vaults for both legs.
func (h *harness) activate(t *testing.T) {
	t.Helper()
	if err := h.engine.ActivatePool(owner, defaultArgs()); err != nil {
		t.Fatalf("activate: %v", err)
	}
	v0 := yieldsource.NewVault("vault-atom", atom, h.bank, "vault0-acct", manager)
	v1 := yieldsource.NewVault("vault-usdc", usdc, h.bank, "vault1-acct", manager)
	if err := h.engine.SetYieldSource(yieldMgr, 1, atom, v0); err != nil {
		t.Fatalf("set atom source: %v", err)
	}
	if err := h.engine.SetYieldSource(yieldMgr, 1, usdc, v1); err != nil {
		t.Fatalf("set usdc source: %v", err)
	}
}

func TestActivatePoolLifecycle(t *testing.T) {
	h := newHarness(t)
	h.activate(t)

	// The trading pool was initialized with the seed fee.
	if fee, err := h.sim.Fee(1); err != nil || fee != 3000 {
		t.Fatalf("pool fee %d, %v", fee, err)
	}
	if pools := h.engine.Pools(); len(pools) != 1 || pools[0] != 1 {
		t.Fatalf("pools %v", pools)
	}

	// Re-activation of a live ID is rejected.
	err := h.engine.ActivatePool(owner, defaultArgs())
	var configured *types.PoolConfiguredError
	if !errors.As(err, &configured) {
		t.Fatalf("got %v, want PoolConfiguredError", err)
	}

	// Activation, then the two source configurations, landed in the sink.
	kinds := h.sink.kinds()
	if len(kinds) != 3 || kinds[0] != types.EventPoolActivated ||
		kinds[1] != types.EventYieldSourceChanged || kinds[2] != types.EventYieldSourceChanged {
		t.Fatalf("event kinds %v", kinds)
	}
}

func TestRoleGates(t *testing.T) {
	h := newHarness(t)
	h.activate(t)

	var unauthorized *types.UnauthorizedError

	if err := h.engine.ActivatePool(mallory, defaultArgs()); !errors.As(err, &unauthorized) {
		t.Fatalf("activate without owner role: %v", err)
	}
	if _, err := h.engine.Poke(mallory, 1, sdkmath.LegacyOneDec()); !errors.As(err, &unauthorized) {
		t.Fatalf("poke without fee-poker role: %v", err)
	}
	if err := h.engine.SetPoolParams(mallory, 1, config.DefaultPoolParams); !errors.As(err, &unauthorized) {
		t.Fatalf("set params without owner role: %v", err)
	}
	if err := h.engine.SetYieldSource(mallory, 1, atom, nil); !errors.As(err, &unauthorized) {
		t.Fatalf("set source without yield-manager role: %v", err)
	}
	if _, err := h.engine.CollectTax(mallory, 1); !errors.As(err, &unauthorized) {
		t.Fatalf("collect tax without yield-manager role: %v", err)
	}
	if err := h.engine.DeactivatePool(mallory, 1); !errors.As(err, &unauthorized) {
		t.Fatalf("deactivate without owner role: %v", err)
	}

	// A revoked grant must stop gating through immediately.
	h.acl.Revoke(poker, access.RoleFeePoker)
	h.clock.advance(config.DefaultPoolParams.MinPeriod)
	if _, err := h.engine.Poke(poker, 1, sdkmath.LegacyOneDec()); !errors.As(err, &unauthorized) {
		t.Fatalf("poke after revocation: %v", err)
	}
}

func TestPauseGatesMutations(t *testing.T) {
	h := newHarness(t)
	h.activate(t)
	h.acl.SetPaused(1, true)

	var paused *types.PausedError
	h.clock.advance(config.DefaultPoolParams.MinPeriod)

	if _, err := h.engine.Poke(poker, 1, sdkmath.LegacyNewDec(2)); !errors.As(err, &paused) {
		t.Fatalf("poke while paused: %v", err)
	}
	if err := h.engine.AddLiquidity(alice, 1, sdkmath.NewInt(1_000_000), sdkmath.LegacyZeroDec(), 0); !errors.As(err, &paused) {
		t.Fatalf("add while paused: %v", err)
	}
	if err := h.engine.RemoveLiquidity(alice, 1, sdkmath.OneInt(), sdkmath.LegacyZeroDec(), 0); !errors.As(err, &paused) {
		t.Fatalf("remove while paused: %v", err)
	}
	if _, err := h.engine.ExecuteSwap(1, func() error { return nil }); !errors.As(err, &paused) {
		t.Fatalf("swap while paused: %v", err)
	}

	// Reads stay available under pause.
	if _, err := h.engine.Snapshot(1); err != nil {
		t.Fatalf("snapshot while paused: %v", err)
	}
	if _, err := h.engine.PreviewFee(1, sdkmath.LegacyNewDec(2)); err != nil {
		t.Fatalf("preview while paused: %v", err)
	}

	// Unpausing restores the mutation surface.
	h.acl.SetPaused(1, false)
	if _, err := h.engine.Poke(poker, 1, sdkmath.LegacyNewDec(2)); err != nil {
		t.Fatalf("poke after unpause: %v", err)
	}
}

func TestPokeEmitsFeeUpdated(t *testing.T) {
	h := newHarness(t)
	h.activate(t)
	h.clock.advance(config.DefaultPoolParams.MinPeriod)

	update, err := h.engine.Poke(poker, 1, sdkmath.LegacyNewDec(2))
	if err != nil {
		t.Fatalf("poke: %v", err)
	}
	if update.NewFee != 3500 {
		t.Fatalf("fee %d, want 3500", update.NewFee)
	}

	last := h.sink.events[len(h.sink.events)-1]
	if last.Kind != types.EventFeeUpdated {
		t.Fatalf("last event %s, want %s", last.Kind, types.EventFeeUpdated)
	}
	payload, ok := last.Payload.(types.FeeUpdatedPayload)
	if !ok {
		t.Fatalf("payload type %T", last.Payload)
	}
	if payload.OldFee != 3000 || payload.NewFee != 3500 {
		t.Fatalf("payload fees %d -> %d", payload.OldFee, payload.NewFee)
	}
}

func TestUnknownPoolRejected(t *testing.T) {
	h := newHarness(t)

	var notFound *types.PoolNotFoundError
	if _, err := h.engine.Poke(poker, 9, sdkmath.LegacyOneDec()); !errors.As(err, &notFound) {
		t.Fatalf("poke unknown pool: %v", err)
	}
	if _, err := h.engine.Snapshot(9); !errors.As(err, &notFound) {
		t.Fatalf("snapshot unknown pool: %v", err)
	}
	if err := h.engine.AddLiquidity(alice, 9, sdkmath.OneInt(), sdkmath.LegacyZeroDec(), 0); !errors.As(err, &notFound) {
		t.Fatalf("add unknown pool: %v", err)
	}
}

func TestLiquidityThroughEngine(t *testing.T) {
	h := newHarness(t)
	h.activate(t)
	shares := sdkmath.NewInt(1_000_000)

	if err := h.engine.AddLiquidity(alice, 1, shares, sdkmath.LegacyZeroDec(), 0); err != nil {
		t.Fatalf("add: %v", err)
	}
	if got, err := h.engine.ShareBalance(1, alice); err != nil || !got.Equal(shares) {
		t.Fatalf("share balance %s, %v", got, err)
	}

	snap, err := h.engine.Snapshot(1)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !snap.TotalSupply.Equal(shares) {
		t.Fatalf("snapshot supply %s", snap.TotalSupply)
	}
	if len(snap.Assets) != 2 || !snap.Assets[0].AmountPlaced.IsPositive() {
		t.Fatalf("snapshot assets %+v", snap.Assets)
	}
	if err := h.engine.CheckSolvency(1); err != nil {
		t.Fatalf("solvency: %v", err)
	}

	// A pool with shares outstanding cannot be deactivated.
	if err := h.engine.DeactivatePool(owner, 1); err == nil {
		t.Fatalf("deactivated pool with live shares")
	}

	if err := h.engine.RemoveLiquidity(alice, 1, shares, sdkmath.LegacyZeroDec(), 0); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := h.engine.DeactivatePool(owner, 1); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if pools := h.engine.Pools(); len(pools) != 0 {
		t.Fatalf("pools %v after deactivation", pools)
	}
}

func TestExecuteSwapSettlesAroundTrade(t *testing.T) {
	h := newHarness(t)
	h.activate(t)
	if err := h.engine.AddLiquidity(alice, 1, sdkmath.NewInt(1_000_000), sdkmath.LegacyZeroDec(), 0); err != nil {
		t.Fatalf("add: %v", err)
	}

	ranTrade := false
	collected, err := h.engine.ExecuteSwap(1, func() error {
		ranTrade = true
		return nil
	})
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if !ranTrade {
		t.Fatalf("trade closure never ran")
	}
	if len(collected) != 0 {
		t.Fatalf("feeless swap collected %+v", collected)
	}

	// Position fully unwound after settlement.
	snap, err := h.engine.Snapshot(1)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !snap.Assets[0].SourceShares.IsPositive() || !snap.Assets[1].SourceShares.IsPositive() {
		t.Fatalf("sources empty after settlement: %+v", snap.Assets)
	}
	if err := h.engine.CheckSolvency(1); err != nil {
		t.Fatalf("solvency after swap: %v", err)
	}
}

func TestExecuteSwapUnwindsOnTradeFailure(t *testing.T) {
	h := newHarness(t)
	h.activate(t)
	if err := h.engine.AddLiquidity(alice, 1, sdkmath.NewInt(1_000_000), sdkmath.LegacyZeroDec(), 0); err != nil {
		t.Fatalf("add: %v", err)
	}
	before, _ := h.engine.Snapshot(1)

	tradeErr := fmt.Errorf("trade reverted")
	_, err := h.engine.ExecuteSwap(1, func() error { return tradeErr })
	if !errors.Is(err, tradeErr) {
		t.Fatalf("got %v, want the trade error", err)
	}

	// The position was still unwound and the principal restored.
	after, _ := h.engine.Snapshot(1)
	if !after.Assets[0].AmountPlaced.Equal(before.Assets[0].AmountPlaced) {
		t.Fatalf("placed %s -> %s across failed trade",
			before.Assets[0].AmountPlaced, after.Assets[0].AmountPlaced)
	}
	if err := h.engine.CheckSolvency(1); err != nil {
		t.Fatalf("solvency after failed trade: %v", err)
	}
}

func TestCollectTaxThroughEngine(t *testing.T) {
	h := newHarness(t)
	h.activate(t)
	if err := h.engine.AddLiquidity(alice, 1, sdkmath.NewInt(1_000_000), sdkmath.LegacyZeroDec(), 0); err != nil {
		t.Fatalf("add: %v", err)
	}

	// No gains yet: nothing to collect.
	collected, err := h.engine.CollectTax(yieldMgr, 1)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(collected) != 0 {
		t.Fatalf("collected %+v without gains", collected)
	}
}

func TestEngineConfigValidation(t *testing.T) {
	b := bank.NewMemory()
	sim := pool.NewSim(b)
	acl := access.NewStatic()

	base := Config{
		TradingPool: sim, Bank: b, Access: acl,
		Manager: manager, Treasury: treasury, TaxPpm: 0, NativeAsset: atom,
	}

	cases := []func(Config) Config{
		func(c Config) Config { c.TradingPool = nil; return c },
		func(c Config) Config { c.Bank = nil; return c },
		func(c Config) Config { c.Access = nil; return c },
		func(c Config) Config { c.Manager = ""; return c },
		func(c Config) Config { c.Treasury = ""; return c },
		func(c Config) Config { c.TaxPpm = types.FeeCeiling + 1; return c },
	}
	for i, mutate := range cases {
		if _, err := New(mutate(base)); err == nil {
			t.Fatalf("case %d: invalid config accepted", i)
		}
	}

	if _, err := New(base); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}
