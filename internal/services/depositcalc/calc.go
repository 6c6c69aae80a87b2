// Package depositcalc computes sizing bounds for symmetric and asymmetric
// liquidity deposits. All functions are pure; every input amount is expected
// at protocol precision unless stated otherwise, and every negative
// intermediate clamps to zero so callers can render "cannot deposit" instead
// of a negative suggestion.
package depositcalc

import (
	"github.com/shopspring/decimal"

	"github.com/runevault/swapcore/internal/domain"
)

// utxoDustGuard is the flat per-deposit overestimate for UTXO chains,
// 10,000 base units at protocol precision. Protects against dust-limit and
// fee-estimation variance specific to that chain family.
var utxoDustGuard = domain.NewAmount(10_000, domain.ProtocolDecimals)

// safetyMargin is the 50% headroom applied over the worse of the
// success/failure fee paths.
var safetyMargin = decimal.RequireFromString("1.5")

// MaxDepositParams bundles a pool snapshot with the user's balances and the
// current deposit fees. Balances and pool depths at protocol precision.
type MaxDepositParams struct {
	Pool domain.PoolData
	// DexBalance user's balance on the protocol side.
	DexBalance domain.Amount
	// AssetBalance user's balance of the paired asset.
	AssetBalance domain.Amount
	// Asset the paired asset being deposited.
	Asset domain.Asset
	Fees  domain.SymDepositFees
}

// maxBalances returns both sides' spendable balances after inbound fees.
// The asset side only pays its inbound fee when the asset is the chain's gas
// asset; tokens pay gas in a different asset.
func maxBalances(p MaxDepositParams) (maxDex, maxAsset domain.Amount) {
	maxDex = p.DexBalance.SubClamped(p.Fees.Dex.In.ToProtocol())
	maxAsset = p.AssetBalance
	if p.Asset.IsGasAsset() {
		maxAsset = p.AssetBalance.SubClamped(p.Fees.Asset.In.ToProtocol())
	}
	return maxDex, maxAsset
}

// MaxDexAmountToDeposit returns the largest protocol-side amount a
// symmetric deposit can take: the pool-ratio image of the spendable asset
// balance, capped by the spendable dex balance.
func MaxDexAmountToDeposit(p MaxDepositParams) domain.Amount {
	maxDex, maxAsset := maxBalances(p)
	candidate := maxAsset.MulRatio(p.Pool.DexPerAsset())
	return candidate.Min(maxDex)
}

// MaxAssetAmountToDeposit is the symmetric mirror of MaxDexAmountToDeposit:
// the pool-ratio image of the spendable dex balance, capped by the
// spendable asset balance.
func MaxAssetAmountToDeposit(p MaxDepositParams) domain.Amount {
	maxDex, maxAsset := maxBalances(p)
	candidate := maxDex.MulRatio(p.Pool.AssetPerDex())
	return candidate.Min(maxAsset)
}

// DexAmountToDeposit returns the protocol-side amount proportional to a
// known asset-side deposit.
func DexAmountToDeposit(assetAmount domain.Amount, pool domain.PoolData) domain.Amount {
	return assetAmount.ToProtocol().MulRatio(pool.DexPerAsset())
}

// AssetAmountToDeposit returns the asset-side amount proportional to a
// known protocol-side deposit, at the asset's declared precision clamped to
// protocol precision.
func AssetAmountToDeposit(dexAmount domain.Amount, pool domain.PoolData, assetDecimals int32) domain.Amount {
	if assetDecimals > domain.ProtocolDecimals {
		assetDecimals = domain.ProtocolDecimals
	}
	return dexAmount.ToProtocol().MulRatio(pool.AssetPerDex()).ToDecimals(assetDecimals)
}

// MinBalanceToDeposit returns the floor balance needed so the operation
// stays refundable even on failure: inbound fee plus refund fee.
func MinBalanceToDeposit(fees domain.Fees) domain.Amount {
	return fees.In.Add(fees.Refund)
}

// MinDexAmountToDeposit returns the smallest sensible protocol-side deposit:
// 1.5x the worse of the success (in+out) and failure (in+refund) fee paths.
func MinDexAmountToDeposit(fees domain.Fees) domain.Amount {
	success := fees.In.ToProtocol().Add(fees.Out.ToProtocol())
	failure := fees.In.ToProtocol().Add(fees.Refund.ToProtocol())
	worst := success
	if failure.GreaterThan(success) {
		worst = failure
	}
	return worst.MulRatio(safetyMargin)
}

// MinAmountParams describes a minimum-deposit calculation for an asset
// whose fees may be denominated in a different (gas) asset.
type MinAmountParams struct {
	// Fees current deposit fees, denominated in Fees.Asset.
	Fees domain.Fees
	// Asset the asset being deposited.
	Asset domain.Asset
	// AssetDecimals the deposit asset's native precision.
	AssetDecimals int32
	// Pools snapshots used to price the fee asset into the deposit asset.
	Pools domain.PoolsData
}

// MinAmountToDeposit returns the smallest safe deposit of an asset,
// covering 1.5x the worse of the success and failure fee paths, with the
// flat UTXO dust guard on top for UTXO-family assets. Result precision is
// the asset's declared precision clamped to protocol precision.
func MinAmountToDeposit(p MinAmountParams) domain.Amount {
	inFee := priceInAsset(p.Fees.In, p.Fees.Asset, p.Asset, p.Pools)
	outFee := priceInAsset(p.Fees.Out, p.Fees.Asset, p.Asset, p.Pools)
	refundFee := priceInAsset(p.Fees.Refund, p.Fees.Asset, p.Asset, p.Pools)

	success := inFee.Add(outFee)
	failure := inFee.Add(refundFee)
	worst := success
	if failure.GreaterThan(success) {
		worst = failure
	}

	min := worst.MulRatio(safetyMargin)
	if domain.IsUTXOChain(p.Asset.Chain) {
		min = min.Add(utxoDustGuard)
	}

	decimals := p.AssetDecimals
	if decimals > domain.ProtocolDecimals {
		decimals = domain.ProtocolDecimals
	}
	return min.ToDecimals(decimals)
}

// priceInAsset converts a fee amount denominated in feeAsset into its value
// in target units, routing through the two assets' pools against the
// protocol asset. Same underlying asset needs no conversion. A missing pool
// prices the fee at zero; callers treat that as "pool not available"
// upstream.
func priceInAsset(fee domain.Amount, feeAsset, target domain.Asset, pools domain.PoolsData) domain.Amount {
	fee1e8 := fee.ToProtocol()
	if feeAsset.SameUnderlying(target) {
		return fee1e8
	}

	feePool, ok := pools[feeAsset.String()]
	if !ok {
		return domain.ZeroAmount(domain.ProtocolDecimals)
	}
	targetPool, ok := pools[target.String()]
	if !ok {
		return domain.ZeroAmount(domain.ProtocolDecimals)
	}

	// fee asset -> protocol units -> target asset
	return fee1e8.MulRatio(feePool.DexPerAsset()).MulRatio(targetPool.AssetPerDex())
}
