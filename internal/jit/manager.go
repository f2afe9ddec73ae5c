/*

JIT liquidity manager. Around each trade the pool's otherwise-idle
re-hypothecated capital is recalled from the yield sources and injected as
concentrated liquidity across the configured range, then unwound as soon
as the trade settles. The position exists only between BeforeSwap and
AfterSwap; nothing of it persists past a single trade.

*/

package jit

import (
	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/parallax-fi/fcm/internal/logger"
	"github.com/parallax-fi/fcm/internal/pool"
	"github.com/parallax-fi/fcm/internal/rehypo"
	"github.com/parallax-fi/fcm/internal/types"
)

type Manager struct {
	poolID    types.PoolID
	cfg       types.ReHypoConfig
	ledger    *rehypo.Ledger
	pool      pool.TradingPool
	collector *rehypo.TaxCollector
	account   types.Address
	log       zerolog.Logger
}

// Position is the temporary liquidity open between BeforeSwap and
// AfterSwap. A nil Position means the swap ran without JIT depth.
type Position struct {
	ID         string
	Withdrawn0 sdkmath.Int
	Withdrawn1 sdkmath.Int
}

func NewManager(poolID types.PoolID, cfg types.ReHypoConfig, l *rehypo.Ledger,
	tp pool.TradingPool, collector *rehypo.TaxCollector, account types.Address) *Manager {
	return &Manager{
		poolID:    poolID,
		cfg:       cfg,
		ledger:    l,
		pool:      tp,
		collector: collector,
		account:   account,
		log:       logger.GetForComponent("jit_manager"),
	}
}

// BeforeSwap recalls the placed capital and injects it into the trading
// pool. Returns a nil position without acting when the configured range
// is empty, either asset has no yield source, or nothing is placed.
func (m *Manager) BeforeSwap() (*Position, error) {
	if m.cfg.Empty() || !m.ledger.SourcesConfigured() {
		return nil, nil
	}

	assets := m.ledger.Assets()
	withdrawn0, err := m.ledger.JITWithdrawAll(assets[0])
	if err != nil {
		return nil, err
	}
	withdrawn1, err := m.ledger.JITWithdrawAll(assets[1])
	if err != nil {
		// Put the first leg back so a failed injection leaves nothing
		// stranded outside the sources.
		if redepErr := m.ledger.JITRedeposit(assets[0], withdrawn0, withdrawn0); redepErr != nil {
			m.log.Error().Err(redepErr).Msg("Failed to restore first leg after withdrawal failure")
		}
		return nil, err
	}

	if withdrawn0.IsZero() && withdrawn1.IsZero() {
		return nil, nil
	}

	posID, err := m.pool.AddTemporaryLiquidity(m.poolID, m.account,
		m.cfg.TickLower, m.cfg.TickUpper, withdrawn0, withdrawn1)
	if err != nil {
		for i, w := range []sdkmath.Int{withdrawn0, withdrawn1} {
			if redepErr := m.ledger.JITRedeposit(assets[i], w, w); redepErr != nil {
				m.log.Error().Err(redepErr).Str("asset", string(assets[i])).
					Msg("Failed to restore leg after injection failure")
			}
		}
		return nil, err
	}

	m.log.Debug().
		Uint64("pool", uint64(m.poolID)).
		Str("position", posID).
		Str("amount0", withdrawn0.String()).
		Str("amount1", withdrawn1.String()).
		Msg("JIT liquidity injected")

	return &Position{ID: posID, Withdrawn0: withdrawn0, Withdrawn1: withdrawn1}, nil
}

// AfterSwap unwinds the position, skims the treasury's cut of any gain and
// places the remainder back into the yield sources.
func (m *Manager) AfterSwap(pos *Position) ([]types.TaxCollectedPayload, error) {
	if pos == nil {
		return nil, nil
	}

	removed, err := m.pool.RemoveTemporaryLiquidity(m.poolID, pos.ID)
	if err != nil {
		return nil, err
	}

	assets := m.ledger.Assets()
	returned := [2]sdkmath.Int{
		removed.Amount0.Add(removed.Fees0),
		removed.Amount1.Add(removed.Fees1),
	}
	withdrawn := [2]sdkmath.Int{pos.Withdrawn0, pos.Withdrawn1}

	var collected []types.TaxCollectedPayload
	for i, asset := range assets {
		gain := returned[i].Sub(withdrawn[i])
		tax, err := m.collector.TaxOn(gain)
		if err != nil {
			return collected, err
		}
		if tax.IsPositive() {
			if err := m.collector.PayToTreasury(asset, tax); err != nil {
				return collected, err
			}
			collected = append(collected, types.TaxCollectedPayload{
				Asset:    asset,
				Amount:   tax,
				Treasury: m.collector.Treasury(),
			})
		}
		if err := m.ledger.JITRedeposit(asset, returned[i].Sub(tax), withdrawn[i]); err != nil {
			return collected, err
		}
	}

	m.log.Debug().
		Uint64("pool", uint64(m.poolID)).
		Str("position", pos.ID).
		Str("returned0", returned[0].String()).
		Str("returned1", returned[1].String()).
		Msg("JIT liquidity settled")

	return collected, nil
}
