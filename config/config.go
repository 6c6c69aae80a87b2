package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/runevault/swapcore/internal/domain"
)

const (
	DefaultThornodeURL = "https://thornode.ninerealms.com"
	DefaultMidgardURL  = "https://midgard.ninerealms.com"

	defaultToleranceBps    = 100
	defaultAffiliateBps    = 30
	defaultAffiliateMinUSD = 100
	defaultDebounce        = 500 * time.Millisecond
	defaultPoolRefresh     = time.Minute
)

// defaultEVMRPC holds public JSON-RPC endpoints used when the config
// names an EVM chain without providing its own endpoint.
var defaultEVMRPC = map[string]string{
	"ETH":  "https://ethereum-rpc.publicnode.com",
	"AVAX": "https://avalanche-c-chain-rpc.publicnode.com",
	"BSC":  "https://bsc-rpc.publicnode.com",
	"ARB":  "https://arbitrum-one-rpc.publicnode.com",
	"BASE": "https://base-rpc.publicnode.com",
}

// Config is the fully-parsed runtime configuration.
type Config struct {
	SourceAsset domain.Asset
	TargetAsset domain.Asset
	// Amount is the initial swap amount in asset units. Zero means the
	// user sets it interactively.
	Amount       decimal.Decimal
	Recipient    string
	ToleranceBps int64
	// StreamingSlider is the 0-100 aggressiveness control mapped onto
	// streaming parameters.
	StreamingSlider int64

	ThornodeURL string
	MidgardURL  string
	// EVMRPC maps an EVM chain to its JSON-RPC endpoint. Chains without
	// an endpoint get no fee estimator.
	EVMRPC map[string]string
	// Chains lists every chain the fee registry must cover.
	Chains []string

	AffiliateName   string
	AffiliateBps    int64
	AffiliateMinUSD decimal.Decimal
	OperatorAddress string
	Stagenet        bool

	// USDPools is the price-pool preference order for USD valuation.
	USDPools []string

	Debounce            time.Duration
	PoolRefreshInterval time.Duration
	JournalDir          string

	DashboardAddr   string
	DashboardDomain string

	// PreviewMode runs without a wallet: balances are capped by pool
	// depth and submission stays disabled.
	PreviewMode bool
}

// ConfigTmp is the yaml shadow of Config; string fields are parsed into
// their typed counterparts.
type ConfigTmp struct {
	SourceAsset     string            `yaml:"source_asset"`
	TargetAsset     string            `yaml:"target_asset"`
	Amount          string            `yaml:"amount,omitempty"`
	Recipient       string            `yaml:"recipient,omitempty"`
	ToleranceBps    int64             `yaml:"tolerance_bps,omitempty"`
	StreamingSlider int64             `yaml:"streaming_slider,omitempty"`
	ThornodeURL     string            `yaml:"thornode_url,omitempty"`
	MidgardURL      string            `yaml:"midgard_url,omitempty"`
	EVMRPC          map[string]string `yaml:"evm_rpc,omitempty"`
	Chains          []string          `yaml:"chains,omitempty"`
	AffiliateName   string            `yaml:"affiliate_name,omitempty"`
	AffiliateBpsStr string            `yaml:"affiliate_bps,omitempty"`
	AffiliateMinUSD string            `yaml:"affiliate_min_usd,omitempty"`
	OperatorAddress string            `yaml:"operator_address,omitempty"`
	Stagenet        bool              `yaml:"stagenet,omitempty"`
	USDPools        []string          `yaml:"usd_pools,omitempty"`
	Debounce        time.Duration     `yaml:"debounce,omitempty"`
	PoolRefresh     time.Duration     `yaml:"pool_refresh_interval,omitempty"`
	JournalDir      string            `yaml:"journal_dir,omitempty"`
	DashboardAddr   string            `yaml:"dashboard_addr,omitempty"`
	DashboardDomain string            `yaml:"dashboard_domain,omitempty"`
	PreviewMode     bool              `yaml:"preview_mode,omitempty"`
}

// Get loads configuration from --config yaml when given, CLI flags
// otherwise.
func Get() (Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	source := flag.String("source", "BTC.BTC", "source asset, example: BTC.BTC")
	target := flag.String("target", "ETH.ETH", "target asset, example: ETH.ETH")
	amount := flag.String("amount", "0", "swap amount in asset units")
	recipient := flag.String("recipient", "", "destination address on the target chain")
	tolerance := flag.Int64("tolerancebps", defaultToleranceBps, "slippage tolerance in basis points")
	slider := flag.Int64("slider", 0, "streaming aggressiveness, 0-100")
	thornode := flag.String("thornode", DefaultThornodeURL, "THORNode API base URL")
	midgard := flag.String("midgard", DefaultMidgardURL, "Midgard API base URL")
	preview := flag.Bool("preview", false, "run without a wallet (estimates only)")
	flag.Parse()

	if *configPath != "" {
		return getYaml(*configPath)
	}

	amt, err := decimal.NewFromString(*amount)
	if err != nil {
		return Config{}, fmt.Errorf("invalid --amount provided, --amount=%s", *amount)
	}
	sourceAsset, err := domain.ParseAsset(*source)
	if err != nil {
		return Config{}, fmt.Errorf("invalid --source provided, --source=%s", *source)
	}
	targetAsset, err := domain.ParseAsset(*target)
	if err != nil {
		return Config{}, fmt.Errorf("invalid --target provided, --target=%s", *target)
	}
	if *slider < 0 || *slider > 100 {
		return Config{}, fmt.Errorf("invalid --slider provided, --slider=%d", *slider)
	}

	cfg := Config{
		SourceAsset:     sourceAsset,
		TargetAsset:     targetAsset,
		Amount:          amt,
		Recipient:       *recipient,
		ToleranceBps:    *tolerance,
		StreamingSlider: *slider,
		ThornodeURL:     *thornode,
		MidgardURL:      *midgard,
		PreviewMode:     *preview,
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func getYaml(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var tmp ConfigTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return Config{}, err
	}
	return FromTmp(tmp)
}

// FromTmp parses the yaml shadow into a typed Config.
func FromTmp(tmp ConfigTmp) (Config, error) {
	sourceAsset, err := domain.ParseAsset(tmp.SourceAsset)
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'source_asset' param in yaml config: %s, error: %w", tmp.SourceAsset, err)
	}
	targetAsset, err := domain.ParseAsset(tmp.TargetAsset)
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'target_asset' param in yaml config: %s, error: %w", tmp.TargetAsset, err)
	}

	cfg := Config{
		SourceAsset:         sourceAsset,
		TargetAsset:         targetAsset,
		Recipient:           tmp.Recipient,
		ToleranceBps:        tmp.ToleranceBps,
		StreamingSlider:     tmp.StreamingSlider,
		ThornodeURL:         tmp.ThornodeURL,
		MidgardURL:          tmp.MidgardURL,
		EVMRPC:              tmp.EVMRPC,
		Chains:              tmp.Chains,
		AffiliateName:       tmp.AffiliateName,
		OperatorAddress:     tmp.OperatorAddress,
		Stagenet:            tmp.Stagenet,
		USDPools:            tmp.USDPools,
		Debounce:            tmp.Debounce,
		PoolRefreshInterval: tmp.PoolRefresh,
		JournalDir:          tmp.JournalDir,
		DashboardAddr:       tmp.DashboardAddr,
		DashboardDomain:     tmp.DashboardDomain,
		PreviewMode:         tmp.PreviewMode,
	}

	if tmp.Amount == "" {
		cfg.Amount = decimal.Zero
	} else if cfg.Amount, err = decimal.NewFromString(tmp.Amount); err != nil {
		return Config{}, fmt.Errorf("incorrect 'amount' param in yaml config (correct format is 0.5), error: %w", err)
	}

	if tmp.AffiliateBpsStr == "" {
		cfg.AffiliateBps = defaultAffiliateBps
	} else if _, err := fmt.Sscanf(tmp.AffiliateBpsStr, "%d", &cfg.AffiliateBps); err != nil {
		return Config{}, fmt.Errorf("incorrect 'affiliate_bps' param in yaml config (must be an integer), error: %w", err)
	}

	if tmp.AffiliateMinUSD == "" {
		cfg.AffiliateMinUSD = decimal.NewFromInt(defaultAffiliateMinUSD)
	} else if cfg.AffiliateMinUSD, err = decimal.NewFromString(tmp.AffiliateMinUSD); err != nil {
		return Config{}, fmt.Errorf("incorrect 'affiliate_min_usd' param in yaml config (must be a decimal), error: %w", err)
	}

	if tmp.StreamingSlider < 0 || tmp.StreamingSlider > 100 {
		return Config{}, fmt.Errorf("incorrect 'streaming_slider' param in yaml config: %d, must be 0-100", tmp.StreamingSlider)
	}

	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.ThornodeURL == "" {
		cfg.ThornodeURL = DefaultThornodeURL
	}
	if cfg.MidgardURL == "" {
		cfg.MidgardURL = DefaultMidgardURL
	}
	if cfg.ToleranceBps <= 0 {
		cfg.ToleranceBps = defaultToleranceBps
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}
	if cfg.PoolRefreshInterval <= 0 {
		cfg.PoolRefreshInterval = defaultPoolRefresh
	}
	if len(cfg.Chains) == 0 {
		cfg.Chains = []string{
			string(cfg.SourceAsset.Chain),
			string(cfg.TargetAsset.Chain),
		}
	}
	if cfg.EVMRPC == nil {
		cfg.EVMRPC = map[string]string{}
	}
	for _, chain := range cfg.Chains {
		if rpc, ok := defaultEVMRPC[chain]; ok && cfg.EVMRPC[chain] == "" {
			cfg.EVMRPC[chain] = rpc
		}
	}
	if len(cfg.USDPools) == 0 {
		cfg.USDPools = []string{
			"ETH.USDC-0XA0B86991C6218B36C1D19D4A2E9EB0CE3606EB48",
			"ETH.USDT-0XDAC17F958D2EE523A2206206994597C13D831EC7",
		}
	}
}
