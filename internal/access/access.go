/*

Access and pause collaborator. The core treats role membership and pause
flags as boolean preconditions on every state-mutating entry point; policy
about who holds which role lives outside the core.

*/

package access

import (
	"sync"

	"github.com/parallax-fi/fcm/internal/types"
)

type Role string

const (
	RoleOwner        Role = "owner"
	RoleFeePoker     Role = "fee_poker"
	RoleYieldManager Role = "yield_manager"
)

// Controller is the role/pause surface the core consumes.
type Controller interface {
	HasRole(addr types.Address, role Role) bool
	IsPaused(id types.PoolID) bool
}

type roleKey struct {
	addr types.Address
	role Role
}

// Static is an in-process Controller with explicit grants, used by the
// simulation mode and tests.
type Static struct {
	mu     sync.RWMutex
	grants map[roleKey]bool
	paused map[types.PoolID]bool
}

func NewStatic() *Static {
	return &Static{
		grants: make(map[roleKey]bool),
		paused: make(map[types.PoolID]bool),
	}
}

func (s *Static) Grant(addr types.Address, role Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[roleKey{addr, role}] = true
}

func (s *Static) Revoke(addr types.Address, role Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.grants, roleKey{addr, role})
}

func (s *Static) SetPaused(id types.PoolID, paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused[id] = paused
}

func (s *Static) HasRole(addr types.Address, role Role) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grants[roleKey{addr, role}]
}

func (s *Static) IsPaused(id types.PoolID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paused[id]
}
