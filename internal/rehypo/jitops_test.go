package rehypo

import (
	"testing"

	sdkmath "cosmossdk.io/math"
)

func TestJITWithdrawAllLeavesPrincipalOwed(t *testing.T) {
	f := newFixture(t)
	if err := f.ledger.AddLiquidity(alice, sdkmath.NewInt(1_000_000), optOut(), 0); err != nil {
		t.Fatalf("add: %v", err)
	}
	before, _ := f.ledger.SourceStateOf(atom)
	managerBefore := f.bank.BalanceOf(manager, atom)

	withdrawn, err := f.ledger.JITWithdrawAll(atom)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if !withdrawn.Equal(before.AmountPlaced) {
		t.Fatalf("withdrew %s, want %s", withdrawn, before.AmountPlaced)
	}
	if got := f.bank.BalanceOf(manager, atom).Sub(managerBefore); !got.Equal(withdrawn) {
		t.Fatalf("manager received %s, want %s", got, withdrawn)
	}

	after, _ := f.ledger.SourceStateOf(atom)
	if !after.SourceShares.IsZero() {
		t.Fatalf("source shares %s not zeroed", after.SourceShares)
	}
	// Principal is still owed to holders while the funds are in flight.
	if !after.AmountPlaced.Equal(before.AmountPlaced) {
		t.Fatalf("placed %s changed by withdrawal", after.AmountPlaced)
	}

	// An already-empty position withdraws nothing without error.
	again, err := f.ledger.JITWithdrawAll(atom)
	if err != nil {
		t.Fatalf("second withdraw: %v", err)
	}
	if !again.IsZero() {
		t.Fatalf("second withdraw returned %s", again)
	}
}

func TestJITRedepositSettlesNetResult(t *testing.T) {
	f := newFixture(t)
	if err := f.ledger.AddLiquidity(alice, sdkmath.NewInt(1_000_000), optOut(), 0); err != nil {
		t.Fatalf("add: %v", err)
	}
	before, _ := f.ledger.SourceStateOf(atom)

	withdrawn, err := f.ledger.JITWithdrawAll(atom)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	// The position came back with a 500-unit profit.
	profit := sdkmath.NewInt(500)
	f.bank.Mint(manager, atom, profit)
	if err := f.ledger.JITRedeposit(atom, withdrawn.Add(profit), withdrawn); err != nil {
		t.Fatalf("redeposit: %v", err)
	}

	after, _ := f.ledger.SourceStateOf(atom)
	if !after.AmountPlaced.Equal(before.AmountPlaced.Add(profit)) {
		t.Fatalf("placed %s, want %s", after.AmountPlaced, before.AmountPlaced.Add(profit))
	}
	if !after.SourceShares.IsPositive() {
		t.Fatalf("no source shares after redeposit")
	}
	if err := f.ledger.CheckSolvency(); err != nil {
		t.Fatalf("solvency after settlement: %v", err)
	}
}

func TestJITRedepositClampsLossAtZero(t *testing.T) {
	f := newFixture(t)
	if err := f.ledger.AddLiquidity(alice, sdkmath.NewInt(1_000_000), optOut(), 0); err != nil {
		t.Fatalf("add: %v", err)
	}

	withdrawn, err := f.ledger.JITWithdrawAll(atom)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	// A catastrophic round trip returns nothing. Placed floors at zero
	// rather than going negative.
	if err := f.ledger.JITRedeposit(atom, sdkmath.ZeroInt(), withdrawn); err != nil {
		t.Fatalf("redeposit: %v", err)
	}
	after, _ := f.ledger.SourceStateOf(atom)
	if !after.AmountPlaced.IsZero() {
		t.Fatalf("placed %s, want 0", after.AmountPlaced)
	}
}

func TestJITOpsRequireConfiguredSource(t *testing.T) {
	f := newFixture(t)
	if _, err := f.ledger.JITWithdrawAll("ubtc"); err == nil {
		t.Fatalf("withdraw for non-pool asset accepted")
	}
	if err := f.ledger.JITRedeposit("ubtc", sdkmath.OneInt(), sdkmath.OneInt()); err == nil {
		t.Fatalf("redeposit for non-pool asset accepted")
	}
}
