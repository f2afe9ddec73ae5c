package engine

import (
	"sort"

	sdkmath "cosmossdk.io/math"

	"github.com/parallax-fi/fcm/internal/types"
)

// AssetState is the per-asset view of a pool's re-hypothecation state.
type AssetState struct {
	Asset        types.Asset `json:"asset"`
	Source       string      `json:"source"`
	AmountPlaced sdkmath.Int `json:"amount_placed"`
	SourceShares sdkmath.Int `json:"source_shares"`
}

// PoolSnapshot is a read-only view of one pool's full state, served by the
// web API.
type PoolSnapshot struct {
	ID          types.PoolID       `json:"id"`
	Params      types.PoolParams   `json:"params"`
	Control     types.ControlState `json:"control"`
	Range       types.ReHypoConfig `json:"range"`
	TotalSupply sdkmath.Int        `json:"total_supply"`
	Assets      []AssetState       `json:"assets"`
}

// Pools lists the configured pool IDs in ascending order.
func (e *Engine) Pools() []types.PoolID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]types.PoolID, 0, len(e.pools))
	for id := range e.pools {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Snapshot captures one pool's state.
func (e *Engine) Snapshot(id types.PoolID) (PoolSnapshot, error) {
	rt, err := e.runtime(id)
	if err != nil {
		return PoolSnapshot{}, err
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()

	snap := PoolSnapshot{
		ID:          id,
		Params:      rt.controller.Params(),
		Control:     rt.controller.State(),
		Range:       rt.ledger.RangeConfig(),
		TotalSupply: rt.ledger.TotalSupply(),
	}
	for _, asset := range rt.ledger.Assets() {
		st, _ := rt.ledger.SourceStateOf(asset)
		as := AssetState{
			Asset:        asset,
			AmountPlaced: st.AmountPlaced,
			SourceShares: st.SourceShares,
		}
		if st.Source != nil {
			as.Source = st.Source.Name()
		}
		snap.Assets = append(snap.Assets, as)
	}
	return snap, nil
}

// ShareBalance reports a holder's re-hypothecation shares in a pool.
func (e *Engine) ShareBalance(id types.PoolID, addr types.Address) (sdkmath.Int, error) {
	rt, err := e.runtime(id)
	if err != nil {
		return sdkmath.Int{}, err
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.ledger.BalanceOf(addr), nil
}

// PreviewAddLiquidity quotes the amounts a deposit would pull.
func (e *Engine) PreviewAddLiquidity(id types.PoolID, shares sdkmath.Int) (sdkmath.Int, sdkmath.Int, error) {
	rt, err := e.runtime(id)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.ledger.PreviewAdd(shares)
}

// PreviewRemoveLiquidity quotes the amounts a withdrawal would pay out.
func (e *Engine) PreviewRemoveLiquidity(id types.PoolID, shares sdkmath.Int) (sdkmath.Int, sdkmath.Int, error) {
	rt, err := e.runtime(id)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.ledger.PreviewRemove(shares)
}

// CheckSolvency verifies ledger/adapter consistency for one pool.
func (e *Engine) CheckSolvency(id types.PoolID) error {
	rt, err := e.runtime(id)
	if err != nil {
		return err
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.ledger.CheckSolvency()
}
