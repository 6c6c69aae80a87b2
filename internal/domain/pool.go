package domain

import "github.com/shopspring/decimal"

// PoolData is an immutable snapshot of a liquidity pool's two-sided depth,
// both sides at protocol precision. Refreshed periodically by the pool
// provider; consumers only ever read the latest snapshot.
type PoolData struct {
	Asset Asset
	// DexBalance protocol native-asset side depth.
	DexBalance Amount
	// AssetBalance paired asset side depth.
	AssetBalance Amount
}

// DexPerAsset returns the instantaneous price of one asset unit in dex
// units (dexDepth / assetDepth).
func (p PoolData) DexPerAsset() decimal.Decimal {
	if p.AssetBalance.IsZero() {
		return decimal.Zero
	}
	return p.DexBalance.BaseUnits().Div(p.AssetBalance.BaseUnits())
}

// AssetPerDex returns the instantaneous price of one dex unit in asset
// units (assetDepth / dexDepth).
func (p PoolData) AssetPerDex() decimal.Decimal {
	if p.DexBalance.IsZero() {
		return decimal.Zero
	}
	return p.AssetBalance.BaseUnits().Div(p.DexBalance.BaseUnits())
}

// PoolsData maps canonical asset notation (CHAIN.SYMBOL) to pool snapshots.
type PoolsData map[string]PoolData
