package pool

import (
	"errors"
	"testing"

	sdkmath "cosmossdk.io/math"

	"github.com/parallax-fi/fcm/internal/bank"
	"github.com/parallax-fi/fcm/internal/types"
)

const (
	lp   = types.Address("lp")
	atom = types.Asset("uatom")
	usdc = types.Asset("uusdc")
)

func newSim(t *testing.T) (*Sim, *bank.Memory) {
	t.Helper()
	b := bank.NewMemory()
	s := NewSim(b)
	s.Register(1, "pool-acct", atom, usdc)
	if err := s.Initialize(1, 3000, sdkmath.LegacyOneDec()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	b.Mint(lp, atom, sdkmath.NewInt(1_000_000))
	b.Mint(lp, usdc, sdkmath.NewInt(1_000_000))
	return s, b
}

func TestUnknownPoolOperationsFail(t *testing.T) {
	s := NewSim(bank.NewMemory())

	var notFound *types.PoolNotFoundError
	if err := s.Initialize(9, 3000, sdkmath.LegacyOneDec()); !errors.As(err, &notFound) {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := s.CurrentPrice(9); !errors.As(err, &notFound) {
		t.Fatalf("price: %v", err)
	}
	if err := s.UpdateFee(9, 100); !errors.As(err, &notFound) {
		t.Fatalf("fee: %v", err)
	}
}

func TestFeeUpdateBoundedByCeiling(t *testing.T) {
	s, _ := newSim(t)

	if err := s.UpdateFee(1, 500_000); err != nil {
		t.Fatalf("update fee: %v", err)
	}
	if fee, _ := s.Fee(1); fee != 500_000 {
		t.Fatalf("fee %d", fee)
	}
	if err := s.UpdateFee(1, types.FeeCeiling+1); err == nil {
		t.Fatalf("fee above ceiling accepted")
	}
}

func TestTemporaryLiquidityRoundTrip(t *testing.T) {
	s, b := newSim(t)
	amount0 := sdkmath.NewInt(10_000)
	amount1 := sdkmath.NewInt(20_000)

	posID, err := s.AddTemporaryLiquidity(1, lp, -1000, 1000, amount0, amount1)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := b.BalanceOf("pool-acct", atom); !got.Equal(amount0) {
		t.Fatalf("pool holds %s %s", got, atom)
	}

	fees0 := sdkmath.NewInt(30)
	fees1 := sdkmath.NewInt(60)
	if err := s.CreditFees(1, posID, fees0, fees1); err != nil {
		t.Fatalf("credit: %v", err)
	}

	removed, err := s.RemoveTemporaryLiquidity(1, posID)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !removed.Amount0.Equal(amount0) || !removed.Fees0.Equal(fees0) {
		t.Fatalf("removed %+v", removed)
	}
	if got := b.BalanceOf(lp, atom); !got.Equal(sdkmath.NewInt(1_000_000).Add(fees0)) {
		t.Fatalf("lp %s %s after round trip", got, atom)
	}

	// The position is gone.
	if _, err := s.RemoveTemporaryLiquidity(1, posID); err == nil {
		t.Fatalf("double remove succeeded")
	}
}

func TestHalfFundedPositionNeverExists(t *testing.T) {
	s, b := newSim(t)
	atomBefore := b.BalanceOf(lp, atom)

	// More usdc than the owner holds: the second leg fails and the first
	// is returned.
	_, err := s.AddTemporaryLiquidity(1, lp, -1000, 1000,
		sdkmath.NewInt(10_000), sdkmath.NewInt(2_000_000))
	if err == nil {
		t.Fatalf("underfunded position accepted")
	}
	if got := b.BalanceOf(lp, atom); !got.Equal(atomBefore) {
		t.Fatalf("first leg not returned: %s", got)
	}
}

func TestInvalidTickRangeRejected(t *testing.T) {
	s, _ := newSim(t)
	if _, err := s.AddTemporaryLiquidity(1, lp, 100, 100, sdkmath.OneInt(), sdkmath.OneInt()); err == nil {
		t.Fatalf("empty range accepted")
	}
	if _, err := s.AddTemporaryLiquidity(1, lp, 200, 100, sdkmath.OneInt(), sdkmath.OneInt()); err == nil {
		t.Fatalf("inverted range accepted")
	}
}
