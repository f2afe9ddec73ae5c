package yieldsource

import (
	"testing"

	sdkmath "cosmossdk.io/math"

	"github.com/parallax-fi/fcm/internal/bank"
	"github.com/parallax-fi/fcm/internal/types"
)

const (
	funder = types.Address("funder")
	whale  = types.Address("whale")
	asset  = types.Asset("uusdc")
)

func newVault(t *testing.T) (*Vault, *bank.Memory) {
	t.Helper()
	b := bank.NewMemory()
	b.Mint(funder, asset, sdkmath.NewInt(1_000_000_000))
	b.Mint(whale, asset, sdkmath.NewInt(1_000_000_000))
	return NewVault("vault-usdc", asset, b, "vault-acct", funder), b
}

func TestFirstDepositMintsOneToOne(t *testing.T) {
	v, b := newVault(t)

	amount := sdkmath.NewInt(5_000)
	shares, err := v.Deposit(amount)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if !shares.Equal(amount) {
		t.Fatalf("got %s shares, want %s", shares, amount)
	}
	if got := b.BalanceOf("vault-acct", asset); !got.Equal(amount) {
		t.Fatalf("vault holds %s, want %s", got, amount)
	}
	if value, _ := v.ValueOf(shares); !value.Equal(amount) {
		t.Fatalf("value %s, want %s", value, amount)
	}
}

func TestProportionalPricingAfterGrowth(t *testing.T) {
	v, b := newVault(t)

	first, err := v.Deposit(sdkmath.NewInt(1_000))
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	// Assets double in place; the next depositor gets half the shares
	// per unit.
	if err := v.Accrue(b, sdkmath.NewInt(1_000)); err != nil {
		t.Fatalf("accrue: %v", err)
	}

	second, err := v.Deposit(sdkmath.NewInt(1_000))
	if err != nil {
		t.Fatalf("second deposit: %v", err)
	}
	if !second.Equal(first.QuoRaw(2)) {
		t.Fatalf("second deposit minted %s, want %s", second, first.QuoRaw(2))
	}

	// The first depositor's claim grew with the vault.
	value, err := v.ValueOf(first)
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	if !value.Equal(sdkmath.NewInt(2_000)) {
		t.Fatalf("first holder's value %s, want 2000", value)
	}
}

func TestRedeemRoundTrip(t *testing.T) {
	v, b := newVault(t)
	before := b.BalanceOf(funder, asset)

	shares, err := v.Deposit(sdkmath.NewInt(7_777))
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	amount, err := v.Redeem(shares)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if !amount.Equal(sdkmath.NewInt(7_777)) {
		t.Fatalf("redeemed %s, want 7777", amount)
	}
	if got := b.BalanceOf(funder, asset); !got.Equal(before) {
		t.Fatalf("funder balance %s, want %s", got, before)
	}

	if _, err := v.Redeem(sdkmath.OneInt()); err == nil {
		t.Fatalf("redeeming from empty vault succeeded")
	}
}

func TestDonationMintsNoShares(t *testing.T) {
	v, _ := newVault(t)

	if err := v.Donate(whale, sdkmath.NewInt(10_000)); err != nil {
		t.Fatalf("donate: %v", err)
	}

	// With assets but no shares the proportional rule quotes zero.
	quote, err := v.PreviewDeposit(sdkmath.NewInt(1_000))
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if !quote.IsZero() {
		t.Fatalf("inflated vault quoted %s shares", quote)
	}

	// And an actual deposit mints the same zero.
	shares, err := v.Deposit(sdkmath.NewInt(1_000))
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if !shares.IsZero() {
		t.Fatalf("inflated vault minted %s shares", shares)
	}
}

func TestPreviewMatchesDeposit(t *testing.T) {
	v, b := newVault(t)
	if _, err := v.Deposit(sdkmath.NewInt(3_333)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := v.Accrue(b, sdkmath.NewInt(777)); err != nil {
		t.Fatalf("accrue: %v", err)
	}

	amount := sdkmath.NewInt(1_234)
	quote, err := v.PreviewDeposit(amount)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	shares, err := v.Deposit(amount)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if !shares.Equal(quote) {
		t.Fatalf("minted %s, quoted %s", shares, quote)
	}
}

func TestInvalidInputsRejected(t *testing.T) {
	v, _ := newVault(t)

	if _, err := v.Deposit(sdkmath.ZeroInt()); err == nil {
		t.Fatalf("zero deposit accepted")
	}
	if _, err := v.Redeem(sdkmath.NewInt(-1)); err == nil {
		t.Fatalf("negative redeem accepted")
	}
	if _, err := v.ValueOf(sdkmath.NewInt(-1)); err == nil {
		t.Fatalf("negative value query accepted")
	}
	if _, err := v.PreviewDeposit(sdkmath.Int{}); err == nil {
		t.Fatalf("nil preview accepted")
	}
}
