/*

In-process vault adapter with proportional share pricing. Used by the
simulation mode and the test suites; a production deployment plugs in
adapters for real lending markets behind the same interface.

Share pricing is the standard proportional rule: the first deposit mints
shares 1:1, later deposits mint amount * totalShares / totalAssets rounded
down. A direct donation raises totalAssets without minting, which is
exactly the inflation vector the ledger's zero-shares-received check
defends against.

*/

package yieldsource

import (
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"

	"github.com/parallax-fi/fcm/internal/bank"
	"github.com/parallax-fi/fcm/internal/types"
)

type Vault struct {
	mu          sync.Mutex
	name        string
	asset       types.Asset
	bank        bank.Bank
	account     types.Address
	funder      types.Address
	totalShares sdkmath.Int
	totalAssets sdkmath.Int
}

var _ Adapter = (*Vault)(nil)

// NewVault creates a vault holding asset in its own bank account. Deposits
// are pulled from and redemptions paid to the funder account.
func NewVault(name string, asset types.Asset, b bank.Bank, account, funder types.Address) *Vault {
	return &Vault{
		name:        name,
		asset:       asset,
		bank:        b,
		account:     account,
		funder:      funder,
		totalShares: sdkmath.ZeroInt(),
		totalAssets: sdkmath.ZeroInt(),
	}
}

func (v *Vault) Name() string { return v.name }

func (v *Vault) BackingAsset() types.Asset { return v.asset }

func (v *Vault) PreviewDeposit(amount sdkmath.Int) (sdkmath.Int, error) {
	if amount.IsNil() || amount.IsNegative() {
		return sdkmath.Int{}, fmt.Errorf("vault %s: preview amount must be non-negative, got %s", v.name, amount)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	return v.quoteLocked(amount), nil
}

func (v *Vault) quoteLocked(amount sdkmath.Int) sdkmath.Int {
	if v.totalAssets.IsPositive() && v.totalShares.IsPositive() {
		return amount.Mul(v.totalShares).Quo(v.totalAssets)
	}
	if v.totalAssets.IsPositive() {
		// Donated balance with no shares outstanding: the proportional
		// rule collapses and mints nothing.
		return sdkmath.ZeroInt()
	}
	return amount
}

func (v *Vault) Deposit(amount sdkmath.Int) (sdkmath.Int, error) {
	if amount.IsNil() || !amount.IsPositive() {
		return sdkmath.Int{}, fmt.Errorf("vault %s: deposit amount must be positive, got %s", v.name, amount)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	shares := v.quoteLocked(amount)

	if err := v.bank.Transfer(v.funder, v.account, v.asset, amount); err != nil {
		return sdkmath.Int{}, fmt.Errorf("vault %s: deposit transfer failed: %w", v.name, err)
	}

	v.totalAssets = v.totalAssets.Add(amount)
	v.totalShares = v.totalShares.Add(shares)
	return shares, nil
}

func (v *Vault) Redeem(shares sdkmath.Int) (sdkmath.Int, error) {
	if shares.IsNil() || !shares.IsPositive() {
		return sdkmath.Int{}, fmt.Errorf("vault %s: redeem shares must be positive, got %s", v.name, shares)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if shares.GT(v.totalShares) {
		return sdkmath.Int{}, fmt.Errorf("vault %s: redeem %s exceeds outstanding shares %s", v.name, shares, v.totalShares)
	}

	amount := shares.Mul(v.totalAssets).Quo(v.totalShares)
	if err := v.bank.Transfer(v.account, v.funder, v.asset, amount); err != nil {
		return sdkmath.Int{}, fmt.Errorf("vault %s: redemption transfer failed: %w", v.name, err)
	}

	v.totalAssets = v.totalAssets.Sub(amount)
	v.totalShares = v.totalShares.Sub(shares)
	return amount, nil
}

func (v *Vault) ValueOf(shares sdkmath.Int) (sdkmath.Int, error) {
	if shares.IsNil() || shares.IsNegative() {
		return sdkmath.Int{}, fmt.Errorf("vault %s: shares must be non-negative, got %s", v.name, shares)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if shares.IsZero() || v.totalShares.IsZero() {
		return sdkmath.ZeroInt(), nil
	}
	return shares.Mul(v.totalAssets).Quo(v.totalShares), nil
}

// Donate moves assets into the vault without minting shares, inflating the
// share price for all existing holders. Exists to reproduce the
// donation-inflation attack in tests.
func (v *Vault) Donate(from types.Address, amount sdkmath.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return fmt.Errorf("vault %s: donation must be positive, got %s", v.name, amount)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.bank.Transfer(from, v.account, v.asset, amount); err != nil {
		return fmt.Errorf("vault %s: donation transfer failed: %w", v.name, err)
	}
	v.totalAssets = v.totalAssets.Add(amount)
	return nil
}

// Accrue simulates yield by growing the vault's assets in place.
func (v *Vault) Accrue(minter *bank.Memory, amount sdkmath.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return fmt.Errorf("vault %s: accrual must be positive, got %s", v.name, amount)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	minter.Mint(v.account, v.asset, amount)
	v.totalAssets = v.totalAssets.Add(amount)
	return nil
}
