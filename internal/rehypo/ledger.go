/*

Re-hypothecation ledger. One ledger per pool owns the share accounting
(who holds how many shares of the re-hypothecated position, total supply)
and, per paired asset, the configured yield source and the amount placed
there. Deposits round required amounts up and withdrawals round claims
down, so rounding always favors the holders who stay.

*/

package rehypo

import (
	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/parallax-fi/fcm/internal/bank"
	"github.com/parallax-fi/fcm/internal/logger"
	"github.com/parallax-fi/fcm/internal/pool"
	"github.com/parallax-fi/fcm/internal/types"
	"github.com/parallax-fi/fcm/internal/utils"
	"github.com/parallax-fi/fcm/internal/yieldsource"
)

// solvencyDustTolerance absorbs the per-placement floor rounding of
// adapter share math when checking ledger/adapter consistency.
const solvencyDustTolerance = 10

// SourceState is the per-asset yield-source bookkeeping.
type SourceState struct {
	Source       yieldsource.Adapter
	SourceShares sdkmath.Int
	AmountPlaced sdkmath.Int
}

type Ledger struct {
	poolID      types.PoolID
	cfg         types.ReHypoConfig
	assets      [2]types.Asset
	nativeAsset types.Asset
	manager     types.Address
	bank        bank.Bank
	pool        pool.TradingPool
	sources     map[types.Asset]*SourceState
	balances    map[types.Address]sdkmath.Int
	totalSupply sdkmath.Int
	log         zerolog.Logger
}

// Config carries the immutable ledger wiring fixed at pool activation.
type Config struct {
	PoolID      types.PoolID
	ReHypo      types.ReHypoConfig
	Asset0      types.Asset
	Asset1      types.Asset
	NativeAsset types.Asset
	Manager     types.Address
	Bank        bank.Bank
	Pool        pool.TradingPool
}

func NewLedger(cfg Config) *Ledger {
	l := &Ledger{
		poolID:      cfg.PoolID,
		cfg:         cfg.ReHypo,
		assets:      [2]types.Asset{cfg.Asset0, cfg.Asset1},
		nativeAsset: cfg.NativeAsset,
		manager:     cfg.Manager,
		bank:        cfg.Bank,
		pool:        cfg.Pool,
		sources:     make(map[types.Asset]*SourceState),
		balances:    make(map[types.Address]sdkmath.Int),
		totalSupply: sdkmath.ZeroInt(),
		log:         logger.GetForComponent("rehypo_ledger"),
	}
	for _, asset := range l.assets {
		l.sources[asset] = &SourceState{
			SourceShares: sdkmath.ZeroInt(),
			AmountPlaced: sdkmath.ZeroInt(),
		}
	}
	return l
}

// Assets returns the pool pair in canonical order.
func (l *Ledger) Assets() [2]types.Asset { return l.assets }

// RangeConfig returns the immutable JIT tick range.
func (l *Ledger) RangeConfig() types.ReHypoConfig { return l.cfg }

// TotalSupply returns the outstanding re-hypothecation shares.
func (l *Ledger) TotalSupply() sdkmath.Int { return l.totalSupply }

// BalanceOf returns a holder's share balance.
func (l *Ledger) BalanceOf(addr types.Address) sdkmath.Int {
	if bal, ok := l.balances[addr]; ok {
		return bal
	}
	return sdkmath.ZeroInt()
}

// SourceStateOf returns a copy of the per-asset source bookkeeping.
func (l *Ledger) SourceStateOf(asset types.Asset) (SourceState, bool) {
	st, ok := l.sources[asset]
	if !ok {
		return SourceState{}, false
	}
	return *st, true
}

// SourcesConfigured reports whether both assets have a live yield source.
func (l *Ledger) SourcesConfigured() bool {
	for _, asset := range l.assets {
		if l.sources[asset].Source == nil {
			return false
		}
	}
	return true
}

// AddLiquidity deposits both pool-paired assets pro rata for the requested
// share count, places them into the configured yield sources and mints the
// shares to sender. See AddLiquidityNative for the payment variant.
func (l *Ledger) AddLiquidity(sender types.Address, shares sdkmath.Int,
	expectedPrice sdkmath.LegacyDec, slippageToleranceBps uint32) error {
	return l.addLiquidity(sender, shares, expectedPrice, slippageToleranceBps, sdkmath.Int{})
}

// AddLiquidityNative is the native-asset variant: payment covers the
// native leg and may exceed the required amount, with the difference
// refunded. Underpayment and a failed refund are distinct failures.
func (l *Ledger) AddLiquidityNative(sender types.Address, shares sdkmath.Int,
	expectedPrice sdkmath.LegacyDec, slippageToleranceBps uint32, payment sdkmath.Int) error {
	if l.nativeAsset == "" || (l.nativeAsset != l.assets[0] && l.nativeAsset != l.assets[1]) {
		return &types.InvalidYieldSourceError{Reason: "pool has no native asset leg"}
	}
	if payment.IsNil() || payment.IsNegative() {
		return &types.InsufficientPaymentError{Required: sdkmath.ZeroInt(), Provided: payment}
	}
	return l.addLiquidity(sender, shares, expectedPrice, slippageToleranceBps, payment)
}

// addLiquidity implements both variants. A nil payment means the plain
// pull-both-legs path.
func (l *Ledger) addLiquidity(sender types.Address, shares sdkmath.Int,
	expectedPrice sdkmath.LegacyDec, slippageToleranceBps uint32, payment sdkmath.Int) error {

	if shares.IsNil() || !shares.IsPositive() {
		return types.ErrZeroShares
	}
	if err := l.checkSlippage(expectedPrice, slippageToleranceBps); err != nil {
		return err
	}
	for _, asset := range l.assets {
		if l.sources[asset].Source == nil {
			return &types.InvalidYieldSourceError{Reason: "no yield source configured for " + string(asset)}
		}
	}

	required, err := l.requiredAmounts(shares)
	if err != nil {
		return err
	}

	j := &journal{}

	for i, asset := range l.assets {
		amount := required[i]
		pull := amount
		if !payment.IsNil() && asset == l.nativeAsset {
			if payment.LT(amount) {
				j.rollback(l.log)
				return &types.InsufficientPaymentError{Required: amount, Provided: payment}
			}
			pull = payment
		}
		if pull.IsZero() {
			continue
		}
		if err := l.bank.Transfer(sender, l.manager, asset, pull); err != nil {
			j.rollback(l.log)
			return err
		}
		j.record(func() error { return l.bank.Transfer(l.manager, sender, asset, pull) })

		// Refund any native overpayment before funds go further.
		if !payment.IsNil() && asset == l.nativeAsset && payment.GT(amount) {
			refund := payment.Sub(amount)
			if err := l.bank.Transfer(l.manager, sender, asset, refund); err != nil {
				j.rollback(l.log)
				return &types.NativeTransferError{To: sender, Amount: refund, Cause: err}
			}
			j.record(func() error { return l.bank.Transfer(sender, l.manager, asset, refund) })
		}
	}

	minted := make([]sdkmath.Int, 2)
	for i, asset := range l.assets {
		amount := required[i]
		if amount.IsZero() {
			minted[i] = sdkmath.ZeroInt()
			continue
		}
		src := l.sources[asset].Source
		srcShares, err := src.Deposit(amount)
		if err != nil {
			j.rollback(l.log)
			return err
		}
		if srcShares.IsZero() {
			j.rollback(l.log)
			return &types.ZeroSharesReceivedError{Deposited: amount}
		}
		j.record(func() error {
			_, redeemErr := src.Redeem(srcShares)
			return redeemErr
		})
		minted[i] = srcShares
	}

	// Commit.
	j.commit()
	for i, asset := range l.assets {
		st := l.sources[asset]
		st.AmountPlaced = st.AmountPlaced.Add(required[i])
		st.SourceShares = st.SourceShares.Add(minted[i])
	}
	l.balances[sender] = l.BalanceOf(sender).Add(shares)
	l.totalSupply = l.totalSupply.Add(shares)

	l.log.Info().
		Uint64("pool", uint64(l.poolID)).
		Str("sender", string(sender)).
		Str("shares", shares.String()).
		Str("amount0", required[0].String()).
		Str("amount1", required[1].String()).
		Str("total_supply", l.totalSupply.String()).
		Msg("Re-hypothecated liquidity added")
	return nil
}

// RemoveLiquidity burns shares and withdraws the proportional claim on
// both assets from the yield sources to sender. Claims round down; if
// both round to zero the call fails and no shares are burned.
func (l *Ledger) RemoveLiquidity(sender types.Address, shares sdkmath.Int,
	expectedPrice sdkmath.LegacyDec, slippageToleranceBps uint32) error {

	if shares.IsNil() || !shares.IsPositive() {
		return types.ErrZeroShares
	}
	available := l.BalanceOf(sender)
	if shares.GT(available) {
		return &types.InsufficientSharesError{Requested: shares, Available: available}
	}
	if err := l.checkSlippage(expectedPrice, slippageToleranceBps); err != nil {
		return err
	}

	amounts := make([]sdkmath.Int, 2)
	for i, asset := range l.assets {
		amount, err := utils.MulDivFloor(shares, l.sources[asset].AmountPlaced, l.totalSupply)
		if err != nil {
			return err
		}
		amounts[i] = amount
	}
	if amounts[0].IsZero() && amounts[1].IsZero() {
		return types.ErrZeroAmounts
	}

	j := &journal{}
	redeemed := make([]sdkmath.Int, 2)

	for i, asset := range l.assets {
		amount := amounts[i]
		redeemed[i] = sdkmath.ZeroInt()
		if amount.IsZero() {
			continue
		}
		st := l.sources[asset]
		payout, srcShares, err := l.redeemAmount(st, amount, j)
		if err != nil {
			j.rollback(l.log)
			return err
		}
		redeemed[i] = srcShares

		// The adapter's floor rounding may pay out a unit under the
		// computed claim; never pay out over it.
		send := payout
		if send.GT(amount) {
			send = amount
		}
		if err := l.bank.Transfer(l.manager, sender, asset, send); err != nil {
			j.rollback(l.log)
			return err
		}
		j.record(func() error { return l.bank.Transfer(sender, l.manager, asset, send) })
	}

	// Commit.
	j.commit()
	for i, asset := range l.assets {
		st := l.sources[asset]
		st.AmountPlaced = st.AmountPlaced.Sub(amounts[i])
		st.SourceShares = st.SourceShares.Sub(redeemed[i])
	}
	l.balances[sender] = available.Sub(shares)
	if l.balances[sender].IsZero() {
		delete(l.balances, sender)
	}
	l.totalSupply = l.totalSupply.Sub(shares)

	l.log.Info().
		Uint64("pool", uint64(l.poolID)).
		Str("sender", string(sender)).
		Str("shares", shares.String()).
		Str("amount0", amounts[0].String()).
		Str("amount1", amounts[1].String()).
		Str("total_supply", l.totalSupply.String()).
		Msg("Re-hypothecated liquidity removed")
	return nil
}

// redeemAmount redeems just enough adapter shares to pay out amount and
// records the compensating redeposit. Returns the payout and the adapter
// shares burned.
func (l *Ledger) redeemAmount(st *SourceState, amount sdkmath.Int, j *journal) (sdkmath.Int, sdkmath.Int, error) {
	value, err := st.Source.ValueOf(st.SourceShares)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	if value.IsZero() {
		return sdkmath.Int{}, sdkmath.Int{}, &types.InvalidYieldSourceError{
			Reason: "source " + st.Source.Name() + " reports zero redeemable value",
		}
	}

	srcShares, err := utils.MulDivCeil(st.SourceShares, amount, value)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	if srcShares.GT(st.SourceShares) {
		srcShares = st.SourceShares
	}

	payout, err := st.Source.Redeem(srcShares)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	src, pay, burned := st.Source, payout, srcShares
	j.record(func() error {
		// The redeposit mints at the post-redeem share price, which can
		// differ from the price the burned shares carried. Reconcile the
		// stored count to the shares actually held after compensation.
		reShares, depErr := src.Deposit(pay)
		if depErr != nil {
			return depErr
		}
		st.SourceShares = st.SourceShares.Sub(burned).Add(reShares)
		return nil
	})
	return payout, srcShares, nil
}

// checkSlippage compares the pool's current price against the caller's
// expectation. An expectedPrice of zero explicitly opts out.
func (l *Ledger) checkSlippage(expectedPrice sdkmath.LegacyDec, toleranceBps uint32) error {
	if expectedPrice.IsNil() || expectedPrice.IsZero() {
		return nil
	}
	actual, err := l.pool.CurrentPrice(l.poolID)
	if err != nil {
		return err
	}
	tolerance := sdkmath.LegacyNewDec(int64(toleranceBps)).QuoInt64(int64(types.BpsDenominator))
	deviation := actual.Sub(expectedPrice).Abs().Quo(expectedPrice)
	if deviation.GT(tolerance) {
		return &types.SlippageError{Expected: expectedPrice, Actual: actual, ToleranceBps: toleranceBps}
	}
	return nil
}

// requiredAmounts computes the per-asset deposit for a share count: the
// tick-range amounts at the current price for the first depositor,
// ceil pro-rata afterwards.
func (l *Ledger) requiredAmounts(shares sdkmath.Int) ([]sdkmath.Int, error) {
	if l.totalSupply.IsZero() {
		price, err := l.pool.CurrentPrice(l.poolID)
		if err != nil {
			return nil, err
		}
		amount0, amount1, err := amountsForLiquidity(l.cfg, price, shares)
		if err != nil {
			return nil, err
		}
		return []sdkmath.Int{amount0, amount1}, nil
	}

	amounts := make([]sdkmath.Int, 2)
	for i, asset := range l.assets {
		amount, err := utils.MulDivCeil(shares, l.sources[asset].AmountPlaced, l.totalSupply)
		if err != nil {
			return nil, err
		}
		amounts[i] = amount
	}
	return amounts, nil
}

// CheckSolvency verifies that per-asset placed amounts are jointly
// consistent with what the adapters report as redeemable, within the floor
// rounding dust a placement can legitimately lose.
func (l *Ledger) CheckSolvency() error {
	for _, asset := range l.assets {
		st := l.sources[asset]
		if st.Source == nil {
			if st.AmountPlaced.IsPositive() {
				return &types.InvalidYieldSourceError{
					Reason: "amount placed for " + string(asset) + " with no source configured",
				}
			}
			continue
		}
		value, err := st.Source.ValueOf(st.SourceShares)
		if err != nil {
			return err
		}
		if value.Add(sdkmath.NewInt(solvencyDustTolerance)).LT(st.AmountPlaced) {
			return &types.InvalidYieldSourceError{
				Reason: "source " + st.Source.Name() + " value " + value.String() +
					" below placed amount " + st.AmountPlaced.String(),
			}
		}
	}
	return nil
}
