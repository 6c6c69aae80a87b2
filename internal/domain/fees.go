package domain

// Fees is the inbound/outbound/refund fee triple for one operation. Amounts
// are denominated in Asset, which is usually the chain's gas asset rather
// than the asset being moved.
type Fees struct {
	Asset  Asset
	In     Amount
	Out    Amount
	Refund Amount
}

// ZeroFees returns an all-zero fee triple at the asset's precision.
func ZeroFees(asset Asset, decimals int32) Fees {
	return Fees{
		Asset:  asset,
		In:     ZeroAmount(decimals),
		Out:    ZeroAmount(decimals),
		Refund: ZeroAmount(decimals),
	}
}

// SymDepositFees carries both sides' fees for a symmetric deposit: the
// protocol side (dex) and the paired-chain side.
type SymDepositFees struct {
	Dex   Fees
	Asset Fees
}
