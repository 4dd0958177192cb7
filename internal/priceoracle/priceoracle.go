// Package priceoracle resolves USD prices with override table, then
// optional CoinGecko fallback (outbound.PriceProvider), then a safe
// floor at 1.0 when no price is available anywhere.
package priceoracle

import (
	"context"
	"sync"

	"github.com/nodies-labs/liqsentinel/internal/domain"
	"github.com/nodies-labs/liqsentinel/internal/ports/outbound"
)

// safeFloor is the price substituted when no rung resolves a value.
const safeFloor = 1.0

// Oracle is a two-rung price resolver: explicit overrides first (from
// PRICE_USD_OVERRIDES), falling back to an optional outbound.PriceProvider
// (e.g. CoinGecko) keyed by a configured address-to-asset-id map.
type Oracle struct {
	mu        sync.RWMutex
	overrides map[domain.Address]float64

	provider  outbound.PriceProvider
	assetIDs  map[domain.Address]string
}

var _ outbound.PriceOracle = (*Oracle)(nil)

// New constructs an Oracle. provider and assetIDs may both be nil/empty to
// run override-only (the common case for a fork/test deployment).
func New(overrides map[domain.Address]float64, provider outbound.PriceProvider, assetIDs map[domain.Address]string) *Oracle {
	if overrides == nil {
		overrides = make(map[domain.Address]float64)
	}
	return &Oracle{overrides: overrides, provider: provider, assetIDs: assetIDs}
}

// SetOverride installs or updates an explicit USD price for a token,
// taking priority over the CoinGecko fallback on every subsequent lookup.
func (o *Oracle) SetOverride(token domain.Address, usd float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.overrides[token] = usd
}

// PriceUSD implements outbound.PriceOracle.
func (o *Oracle) PriceUSD(ctx context.Context, token domain.Address) (float64, error) {
	o.mu.RLock()
	if v, ok := o.overrides[token]; ok {
		o.mu.RUnlock()
		return v, nil
	}
	assetID, hasID := o.assetIDs[token]
	o.mu.RUnlock()

	if o.provider == nil || !hasID {
		return safeFloor, nil
	}

	prices, err := o.provider.GetCurrentPrices(ctx, []string{assetID})
	if err != nil || len(prices) == 0 {
		return safeFloor, nil
	}
	if prices[0].PriceUSD <= 0 {
		return safeFloor, nil
	}
	return prices[0].PriceUSD, nil
}
