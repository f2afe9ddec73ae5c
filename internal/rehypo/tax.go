/*

Tax Collector. A configurable parts-per-million fraction of yield-source
gains is diverted to the treasury instead of compounding into
AmountPlaced. Gains show up two ways: value growth observed inside the
sources (collected by CollectAccumulatedTax) and swap fees earned by JIT
positions (skimmed inline by the JIT manager on settlement).

*/

package rehypo

import (
	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/parallax-fi/fcm/internal/logger"
	"github.com/parallax-fi/fcm/internal/types"
	"github.com/parallax-fi/fcm/internal/utils"
)

type TaxCollector struct {
	ledger   *Ledger
	treasury types.Address
	taxPpm   uint64
	log      zerolog.Logger
}

func NewTaxCollector(l *Ledger, treasury types.Address, taxPpm uint64) *TaxCollector {
	return &TaxCollector{
		ledger:   l,
		treasury: treasury,
		taxPpm:   taxPpm,
		log:      logger.GetForComponent("tax_collector"),
	}
}

// TaxPpm returns the configured tax fraction.
func (t *TaxCollector) TaxPpm() uint64 { return t.taxPpm }

// Treasury returns the payout address.
func (t *TaxCollector) Treasury() types.Address { return t.treasury }

// TaxOn returns the treasury's cut of a gain. Zero or negative gains owe
// nothing.
func (t *TaxCollector) TaxOn(gain sdkmath.Int) (sdkmath.Int, error) {
	if gain.IsNil() || !gain.IsPositive() {
		return sdkmath.ZeroInt(), nil
	}
	return utils.PpmOf(gain, t.taxPpm)
}

// PayToTreasury moves an already-liquid tax amount from the manager
// account to the treasury. A treasury that cannot receive is an error the
// caller must surface, never a silent skip.
func (t *TaxCollector) PayToTreasury(asset types.Asset, amount sdkmath.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return nil
	}
	if err := t.ledger.bank.Transfer(t.ledger.manager, t.treasury, asset, amount); err != nil {
		return &types.NativeTransferError{To: t.treasury, Amount: amount, Cause: err}
	}
	return nil
}

// CollectAccumulatedTax computes the treasury's share of value growth
// observed in each yield source since principal was placed, redeems it and
// transfers it out. The untaxed remainder compounds into AmountPlaced.
func (t *TaxCollector) CollectAccumulatedTax() ([]types.TaxCollectedPayload, error) {
	l := t.ledger
	var collected []types.TaxCollectedPayload

	for _, asset := range l.assets {
		st := l.sources[asset]
		if st.Source == nil || !st.SourceShares.IsPositive() {
			continue
		}

		value, err := st.Source.ValueOf(st.SourceShares)
		if err != nil {
			return collected, err
		}
		if !value.GT(st.AmountPlaced) {
			continue
		}

		gain := value.Sub(st.AmountPlaced)
		tax, err := t.TaxOn(gain)
		if err != nil {
			return collected, err
		}
		if !tax.IsPositive() {
			// Nothing owed; the whole gain compounds.
			st.AmountPlaced = value
			continue
		}

		j := &journal{}
		payout, redeemed, err := l.redeemAmount(st, tax, j)
		if err != nil {
			j.rollback(l.log)
			return collected, err
		}
		if payout.GT(tax) {
			payout = tax
		}
		if err := l.bank.Transfer(l.manager, t.treasury, asset, payout); err != nil {
			j.rollback(l.log)
			return collected, &types.NativeTransferError{To: t.treasury, Amount: payout, Cause: err}
		}

		// Commit.
		j.commit()
		st.SourceShares = st.SourceShares.Sub(redeemed)
		st.AmountPlaced = value.Sub(tax)

		collected = append(collected, types.TaxCollectedPayload{
			Asset:    asset,
			Amount:   payout,
			Treasury: t.treasury,
		})

		t.log.Info().
			Uint64("pool", uint64(l.poolID)).
			Str("asset", string(asset)).
			Str("gain", gain.String()).
			Str("tax", payout.String()).
			Str("treasury", string(t.treasury)).
			Msg("Accumulated tax collected")
	}

	return collected, nil
}
