/*

In-memory trading pool used by the simulation mode and the test suites. It
holds no curve math: price moves only when a test moves it, and fee
accrual on temporary positions is injected explicitly. That is exactly the
surface the core consumes, nothing more.

*/

package pool

import (
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"

	"github.com/parallax-fi/fcm/internal/bank"
	"github.com/parallax-fi/fcm/internal/types"
)

type simPool struct {
	fee      uint64
	price    sdkmath.LegacyDec
	account  types.Address
	asset0   types.Asset
	asset1   types.Asset
	position map[string]*simPosition
}

type simPosition struct {
	owner   types.Address
	amount0 sdkmath.Int
	amount1 sdkmath.Int
	fees0   sdkmath.Int
	fees1   sdkmath.Int
}

// Sim implements TradingPool in memory on top of a Memory bank.
type Sim struct {
	mu    sync.Mutex
	bank  *bank.Memory
	pools map[types.PoolID]*simPool
}

var _ TradingPool = (*Sim)(nil)

func NewSim(b *bank.Memory) *Sim {
	return &Sim{bank: b, pools: make(map[types.PoolID]*simPool)}
}

// Register declares the pair and settlement account for a pool before
// Initialize is called.
func (s *Sim) Register(id types.PoolID, account types.Address, asset0, asset1 types.Asset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pools[id] = &simPool{
		account:  account,
		asset0:   asset0,
		asset1:   asset1,
		price:    sdkmath.LegacyOneDec(),
		position: make(map[string]*simPosition),
	}
}

func (s *Sim) Initialize(id types.PoolID, initialFee uint64, initialPrice sdkmath.LegacyDec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pools[id]
	if !ok {
		return &types.PoolNotFoundError{PoolID: id}
	}
	p.fee = initialFee
	p.price = initialPrice
	return nil
}

func (s *Sim) CurrentPrice(id types.PoolID) (sdkmath.LegacyDec, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pools[id]
	if !ok {
		return sdkmath.LegacyDec{}, &types.PoolNotFoundError{PoolID: id}
	}
	return p.price, nil
}

// SetPrice moves the spot price. Simulation control surface.
func (s *Sim) SetPrice(id types.PoolID, price sdkmath.LegacyDec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pools[id]
	if !ok {
		return &types.PoolNotFoundError{PoolID: id}
	}
	p.price = price
	return nil
}

func (s *Sim) UpdateFee(id types.PoolID, feePpm uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pools[id]
	if !ok {
		return &types.PoolNotFoundError{PoolID: id}
	}
	if feePpm > types.FeeCeiling {
		return fmt.Errorf("fee %d above ceiling %d", feePpm, types.FeeCeiling)
	}
	p.fee = feePpm
	return nil
}

// Fee reports the current dynamic fee. Simulation control surface.
func (s *Sim) Fee(id types.PoolID) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pools[id]
	if !ok {
		return 0, &types.PoolNotFoundError{PoolID: id}
	}
	return p.fee, nil
}

func (s *Sim) AddTemporaryLiquidity(id types.PoolID, owner types.Address,
	tickLower, tickUpper int32, amount0, amount1 sdkmath.Int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pools[id]
	if !ok {
		return "", &types.PoolNotFoundError{PoolID: id}
	}
	if tickLower >= tickUpper {
		return "", fmt.Errorf("invalid tick range [%d, %d)", tickLower, tickUpper)
	}

	if err := s.bank.Transfer(owner, p.account, p.asset0, amount0); err != nil {
		return "", err
	}
	if err := s.bank.Transfer(owner, p.account, p.asset1, amount1); err != nil {
		// Undo the first leg so a half-funded position never exists.
		if undoErr := s.bank.Transfer(p.account, owner, p.asset0, amount0); undoErr != nil {
			return "", fmt.Errorf("transfer failed and undo failed: %v: %w", undoErr, err)
		}
		return "", err
	}

	posID := uuid.New().String()
	p.position[posID] = &simPosition{
		owner:   owner,
		amount0: amount0,
		amount1: amount1,
		fees0:   sdkmath.ZeroInt(),
		fees1:   sdkmath.ZeroInt(),
	}
	return posID, nil
}

// CreditFees accrues swap fees to an open position. Simulation control
// surface standing in for real trades crossing the range.
func (s *Sim) CreditFees(id types.PoolID, positionID string, fees0, fees1 sdkmath.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pools[id]
	if !ok {
		return &types.PoolNotFoundError{PoolID: id}
	}
	pos, ok := p.position[positionID]
	if !ok {
		return fmt.Errorf("position %s not found in pool %d", positionID, id)
	}
	s.bank.Mint(p.account, p.asset0, fees0)
	s.bank.Mint(p.account, p.asset1, fees1)
	pos.fees0 = pos.fees0.Add(fees0)
	pos.fees1 = pos.fees1.Add(fees1)
	return nil
}

func (s *Sim) RemoveTemporaryLiquidity(id types.PoolID, positionID string) (RemovedLiquidity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pools[id]
	if !ok {
		return RemovedLiquidity{}, &types.PoolNotFoundError{PoolID: id}
	}
	pos, ok := p.position[positionID]
	if !ok {
		return RemovedLiquidity{}, fmt.Errorf("position %s not found in pool %d", positionID, id)
	}

	out0 := pos.amount0.Add(pos.fees0)
	out1 := pos.amount1.Add(pos.fees1)
	if err := s.bank.Transfer(p.account, pos.owner, p.asset0, out0); err != nil {
		return RemovedLiquidity{}, err
	}
	if err := s.bank.Transfer(p.account, pos.owner, p.asset1, out1); err != nil {
		return RemovedLiquidity{}, err
	}

	delete(p.position, positionID)
	return RemovedLiquidity{
		Amount0: pos.amount0,
		Amount1: pos.amount1,
		Fees0:   pos.fees0,
		Fees1:   pos.fees1,
	}, nil
}
