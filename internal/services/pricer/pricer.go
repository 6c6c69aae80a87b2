// Package pricer values amounts in USD for fiat display and the
// affiliate-fee threshold.
package pricer

import (
	"context"
	"fmt"
	"sync"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/runevault/swapcore/internal/domain"
)

// TickerSource is the reference spot-price fallback used when the pools
// cannot price an asset.
type TickerSource interface {
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// BinanceTicker implements TickerSource over the Binance spot API.
type BinanceTicker struct {
	client *binance.Client
}

// NewBinanceTicker wraps a Binance client.
func NewBinanceTicker(client *binance.Client) *BinanceTicker {
	return &BinanceTicker{client: client}
}

// GetPrice returns the last spot price for symbol, e.g. "BTCUSDT".
func (t *BinanceTicker) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	prices, err := t.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if len(prices) == 0 {
		return decimal.Decimal{}, fmt.Errorf("binance API returned empty prices for %s", symbol)
	}
	return decimal.NewFromString(prices[0].Price)
}

// USDPricer prices assets in USD off the latest pool snapshot: a direct
// pool price when the source reports one, a derivation through the first
// matching USD pool otherwise, and the spot ticker as a last resort.
type USDPricer struct {
	// usdPools is the preference order of pools treated as 1 USD per
	// asset unit, e.g. the USDC pool before the USDT pool.
	usdPools []string
	fallback TickerSource
	logger   *zap.Logger

	mu     sync.RWMutex
	pools  domain.PoolsData
	prices map[string]decimal.Decimal
}

// NewUSDPricer builds a pricer. fallback may be nil.
func NewUSDPricer(usdPools []string, fallback TickerSource, logger *zap.Logger) *USDPricer {
	return &USDPricer{
		usdPools: usdPools,
		fallback: fallback,
		logger:   logger,
		pools:    domain.PoolsData{},
		prices:   map[string]decimal.Decimal{},
	}
}

// Update replaces the pool snapshot the pricer works from. prices maps
// asset strings to the USD price of one full unit and may be nil.
func (p *USDPricer) Update(pools domain.PoolsData, prices map[string]decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pools != nil {
		p.pools = pools
	}
	if prices != nil {
		p.prices = prices
	}
}

// ValueUSD implements quote.USDValuer. ok is false when no price route
// exists for the asset.
func (p *USDPricer) ValueUSD(asset domain.Asset, amount domain.Amount) (decimal.Decimal, bool) {
	price, ok := p.unitPrice(asset)
	if !ok {
		return decimal.Zero, false
	}
	return price.Mul(amount.AssetValue()), true
}

func (p *USDPricer) unitPrice(asset domain.Asset) (decimal.Decimal, bool) {
	// synth and trade variants price as their underlying
	native := domain.Asset{Chain: asset.Chain, Symbol: asset.Symbol, Ticker: asset.Ticker, Kind: domain.KindNative}
	if native.Equal(domain.AssetRune) {
		return p.dexUnitPriceUSD()
	}

	p.mu.RLock()
	direct, ok := p.prices[native.String()]
	p.mu.RUnlock()
	if ok && direct.IsPositive() {
		return direct, true
	}

	if price, ok := p.deriveThroughUSDPool(native); ok {
		return price, true
	}

	if p.fallback != nil {
		price, err := p.fallback.GetPrice(context.Background(), asset.Ticker+"USDT")
		if err == nil && price.IsPositive() {
			return price, true
		}
		p.logger.Debug("spot fallback could not price asset",
			zap.String("asset", asset.String()), zap.Error(err))
	}
	return decimal.Zero, false
}

// deriveThroughUSDPool prices the asset via pool depths: protocol units
// per asset divided by protocol units per USD from the preferred USD pool.
func (p *USDPricer) deriveThroughUSDPool(native domain.Asset) (decimal.Decimal, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	pool, ok := p.pools[native.String()]
	if !ok {
		return decimal.Zero, false
	}
	dexPerAsset := pool.DexPerAsset()
	if dexPerAsset.IsZero() {
		return decimal.Zero, false
	}

	dexPerUSD, ok := p.dexPerUSDLocked()
	if !ok {
		return decimal.Zero, false
	}
	return dexPerAsset.Div(dexPerUSD), true
}

func (p *USDPricer) dexUnitPriceUSD() (decimal.Decimal, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	dexPerUSD, ok := p.dexPerUSDLocked()
	if !ok {
		return decimal.Zero, false
	}
	return decimal.NewFromInt(1).Div(dexPerUSD), true
}

// dexPerUSDLocked walks the USD pool preference order. Callers hold mu.
func (p *USDPricer) dexPerUSDLocked() (decimal.Decimal, bool) {
	for _, name := range p.usdPools {
		pool, ok := p.pools[name]
		if !ok {
			continue
		}
		if ratio := pool.DexPerAsset(); !ratio.IsZero() {
			return ratio, true
		}
	}
	return decimal.Zero, false
}
