/*

The bank collaborator moves pool-paired assets between accounts. The core
only ever expresses "pull from caller", "push to caller" and "refund", so
the surface is a single Transfer plus a balance read.

*/

package bank

import (
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"

	"github.com/parallax-fi/fcm/internal/types"
)

// Bank is the asset-transfer surface the core consumes.
type Bank interface {
	// Transfer moves amount of asset from one account to another. A
	// failed transfer leaves both balances untouched.
	Transfer(from, to types.Address, asset types.Asset, amount sdkmath.Int) error

	// BalanceOf reports the current balance of an account.
	BalanceOf(addr types.Address, asset types.Asset) sdkmath.Int
}

type balanceKey struct {
	addr  types.Address
	asset types.Asset
}

// Memory is an in-process Bank used by the simulation mode and the test
// suites. Recipients can be blocked to exercise failed-refund paths.
type Memory struct {
	mu       sync.Mutex
	balances map[balanceKey]sdkmath.Int
	blocked  map[types.Address]bool
}

func NewMemory() *Memory {
	return &Memory{
		balances: make(map[balanceKey]sdkmath.Int),
		blocked:  make(map[types.Address]bool),
	}
}

// Mint credits an account out of thin air. Test and simulation funding only.
func (m *Memory) Mint(addr types.Address, asset types.Asset, amount sdkmath.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := balanceKey{addr, asset}
	m.balances[key] = m.getLocked(key).Add(amount)
}

// SetBlocked marks an address as unable to receive transfers.
func (m *Memory) SetBlocked(addr types.Address, blocked bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocked[addr] = blocked
}

func (m *Memory) Transfer(from, to types.Address, asset types.Asset, amount sdkmath.Int) error {
	if amount.IsNil() || amount.IsNegative() {
		return fmt.Errorf("invalid transfer amount %s", amount)
	}
	if amount.IsZero() {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.blocked[to] {
		return fmt.Errorf("recipient %s cannot receive transfers", to)
	}

	fromKey := balanceKey{from, asset}
	have := m.getLocked(fromKey)
	if have.LT(amount) {
		return fmt.Errorf("insufficient funds: %s has %s %s, needs %s", from, have, asset, amount)
	}

	toKey := balanceKey{to, asset}
	m.balances[fromKey] = have.Sub(amount)
	m.balances[toKey] = m.getLocked(toKey).Add(amount)
	return nil
}

func (m *Memory) BalanceOf(addr types.Address, asset types.Asset) sdkmath.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(balanceKey{addr, asset})
}

func (m *Memory) getLocked(key balanceKey) sdkmath.Int {
	if bal, ok := m.balances[key]; ok {
		return bal
	}
	return sdkmath.ZeroInt()
}
