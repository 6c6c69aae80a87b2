package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/runevault/swapcore/internal/domain"
)

func TestFromTmpDefaults(t *testing.T) {
	cfg, err := FromTmp(ConfigTmp{
		SourceAsset: "BTC.BTC",
		TargetAsset: "ETH.ETH",
	})
	require.NoError(t, err)

	require.Equal(t, domain.ChainBitcoin, cfg.SourceAsset.Chain)
	require.Equal(t, domain.ChainEthereum, cfg.TargetAsset.Chain)
	require.True(t, cfg.Amount.IsZero())
	require.Equal(t, int64(defaultToleranceBps), cfg.ToleranceBps)
	require.Equal(t, int64(defaultAffiliateBps), cfg.AffiliateBps)
	require.True(t, cfg.AffiliateMinUSD.Equal(decimal.NewFromInt(defaultAffiliateMinUSD)))
	require.Equal(t, 500*time.Millisecond, cfg.Debounce)
	require.Equal(t, DefaultThornodeURL, cfg.ThornodeURL)
	require.Equal(t, []string{"BTC", "ETH"}, cfg.Chains,
		"both swap legs must be covered by the fee registry")
	require.NotEmpty(t, cfg.USDPools)
}

func TestFromTmpParsesTypedFields(t *testing.T) {
	cfg, err := FromTmp(ConfigTmp{
		SourceAsset:     "ETH.USDC-0XA0B86991C6218B36C1D19D4A2E9EB0CE3606EB48",
		TargetAsset:     "THOR.RUNE",
		Amount:          "120.5",
		AffiliateBpsStr: "50",
		AffiliateMinUSD: "250",
		StreamingSlider: 75,
		Chains:          []string{"ETH", "THOR", "BTC"},
	})
	require.NoError(t, err)

	require.Equal(t, domain.KindToken, cfg.SourceAsset.Kind)
	require.Equal(t, "USDC", cfg.SourceAsset.Ticker)
	require.True(t, cfg.Amount.Equal(decimal.RequireFromString("120.5")))
	require.Equal(t, int64(50), cfg.AffiliateBps)
	require.True(t, cfg.AffiliateMinUSD.Equal(decimal.NewFromInt(250)))
	require.Equal(t, int64(75), cfg.StreamingSlider)
	require.Len(t, cfg.Chains, 3)
}

func TestFromTmpRejectsBadInput(t *testing.T) {
	_, err := FromTmp(ConfigTmp{SourceAsset: "nonsense", TargetAsset: "ETH.ETH"})
	require.Error(t, err)

	_, err = FromTmp(ConfigTmp{SourceAsset: "BTC.BTC", TargetAsset: "ETH.ETH", Amount: "abc"})
	require.Error(t, err)

	_, err = FromTmp(ConfigTmp{SourceAsset: "BTC.BTC", TargetAsset: "ETH.ETH", StreamingSlider: 150})
	require.Error(t, err)
}
