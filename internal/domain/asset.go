// Package domain defines core value types used throughout the swap core.
package domain

import (
	"fmt"
	"strings"
)

// Chain identifies a supported blockchain.
type Chain string

const (
	ChainBitcoin     Chain = "BTC"
	ChainBitcoinCash Chain = "BCH"
	ChainLitecoin    Chain = "LTC"
	ChainDoge        Chain = "DOGE"
	ChainEthereum    Chain = "ETH"
	ChainAvax        Chain = "AVAX"
	ChainBsc         Chain = "BSC"
	ChainArbitrum    Chain = "ARB"
	ChainBase        Chain = "BASE"
	ChainCosmos      Chain = "GAIA"
	ChainSolana      Chain = "SOL"
	ChainTHORChain   Chain = "THOR"
	ChainMaya        Chain = "MAYA"
)

// utxoChains is the chain family that pays fees per-byte and has dust limits.
var utxoChains = map[Chain]bool{
	ChainBitcoin:     true,
	ChainBitcoinCash: true,
	ChainLitecoin:    true,
	ChainDoge:        true,
}

// evmChains is the chain family priced by gasPrice * gasLimit.
var evmChains = map[Chain]bool{
	ChainEthereum: true,
	ChainAvax:     true,
	ChainBsc:      true,
	ChainArbitrum: true,
	ChainBase:     true,
}

// IsUTXOChain reports whether the chain belongs to the UTXO family.
func IsUTXOChain(c Chain) bool { return utxoChains[c] }

// IsEVMChain reports whether the chain belongs to the EVM family.
func IsEVMChain(c Chain) bool { return evmChains[c] }

// AssetKind classifies how an asset settles.
type AssetKind int

const (
	// KindNative chain-native asset (BTC.BTC, ETH.ETH).
	KindNative AssetKind = iota
	// KindToken issued token on a chain (ETH.USDT-0x...).
	KindToken
	// KindSynth protocol-synthetic asset minted by the liquidity protocol.
	KindSynth
	// KindTrade protocol trade-account asset.
	KindTrade
)

// String returns the string representation of the kind.
func (k AssetKind) String() string {
	switch k {
	case KindNative:
		return "native"
	case KindToken:
		return "token"
	case KindSynth:
		return "synth"
	case KindTrade:
		return "trade"
	default:
		return "unknown"
	}
}

// Asset identifies an asset by chain, symbol, ticker and kind.
// Equality is by value, never by pointer identity. A trade or synth variant
// of an underlying asset is related to it but not equal to it.
type Asset struct {
	Chain  Chain
	Symbol string
	Ticker string
	Kind   AssetKind
}

// Equal reports identity by (chain, symbol, kind). Ticker does not
// participate.
func (a Asset) Equal(b Asset) bool {
	return a.Chain == b.Chain && a.Symbol == b.Symbol && a.Kind == b.Kind
}

// SameUnderlying reports whether two assets reference the same underlying
// (chain, symbol) regardless of kind.
func (a Asset) SameUnderlying(b Asset) bool {
	return a.Chain == b.Chain && a.Symbol == b.Symbol
}

// String returns the canonical CHAIN.SYMBOL notation, with the protocol
// separators for synth (/) and trade (~) variants.
func (a Asset) String() string {
	switch a.Kind {
	case KindSynth:
		return fmt.Sprintf("%s/%s", a.Chain, a.Symbol)
	case KindTrade:
		return fmt.Sprintf("%s~%s", a.Chain, a.Symbol)
	default:
		return fmt.Sprintf("%s.%s", a.Chain, a.Symbol)
	}
}

// ParseAsset parses the canonical CHAIN.SYMBOL notation, including the
// synth (/) and trade (~) separators. The ticker is the symbol up to the
// first dash, so token symbols like USDT-0X... keep their contract suffix
// in Symbol only.
func ParseAsset(s string) (Asset, error) {
	kind := KindNative
	sep := strings.IndexAny(s, "./~")
	if sep <= 0 || sep == len(s)-1 {
		return Asset{}, fmt.Errorf("malformed asset %q", s)
	}
	switch s[sep] {
	case '/':
		kind = KindSynth
	case '~':
		kind = KindTrade
	}

	symbol := s[sep+1:]
	ticker := symbol
	if dash := strings.IndexByte(symbol, '-'); dash > 0 {
		ticker = symbol[:dash]
	}
	if kind == KindNative && ticker != symbol {
		kind = KindToken
	}
	return Asset{
		Chain:  Chain(s[:sep]),
		Symbol: symbol,
		Ticker: ticker,
		Kind:   kind,
	}, nil
}

// GasAsset returns the asset that pays transaction fees on the given chain.
func GasAsset(c Chain) Asset {
	switch c {
	case ChainTHORChain:
		return AssetRune
	case ChainMaya:
		return Asset{Chain: ChainMaya, Symbol: "CACAO", Ticker: "CACAO", Kind: KindNative}
	case ChainBsc:
		return Asset{Chain: ChainBsc, Symbol: "BNB", Ticker: "BNB", Kind: KindNative}
	case ChainCosmos:
		return Asset{Chain: ChainCosmos, Symbol: "ATOM", Ticker: "ATOM", Kind: KindNative}
	default:
		return Asset{Chain: c, Symbol: string(c), Ticker: string(c), Kind: KindNative}
	}
}

// NativeDecimals returns the on-chain precision of a chain's gas asset.
func NativeDecimals(c Chain) int32 {
	switch {
	case IsEVMChain(c):
		return 18
	case c == ChainCosmos:
		return 6
	case c == ChainSolana:
		return 9
	case c == ChainMaya:
		return 10
	default:
		return ProtocolDecimals
	}
}

// IsGasAsset reports whether the asset is the fee-paying asset of its chain.
func (a Asset) IsGasAsset() bool {
	return a.Kind == KindNative && a.Equal(GasAsset(a.Chain))
}

// AssetRune is the protocol's native accounting asset.
var AssetRune = Asset{Chain: ChainTHORChain, Symbol: "RUNE", Ticker: "RUNE", Kind: KindNative}
