package clients

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/runevault/swapcore/internal/domain"
	"github.com/runevault/swapcore/pkg/retrier"
)

// Midgard is a client for the Midgard pool API. Pool fetches are retried
// with backoff: the refresh is periodic and idempotent, and Midgard nodes
// throttle bursts.
type Midgard struct {
	baseURL string
	client  *http.Client
	retrier *retrier.Retrier
}

// NewMidgard creates a Midgard client. A zero timeout uses the default.
func NewMidgard(baseURL string, timeout time.Duration) *Midgard {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &Midgard{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		retrier: retrier.New(retrier.WithMaxRetries(2)),
	}
}

type poolResponse struct {
	Asset         string `json:"asset"`
	AssetDepth    string `json:"assetDepth"`
	RuneDepth     string `json:"runeDepth"`
	AssetPriceUSD string `json:"assetPriceUSD"`
	Status        string `json:"status"`
}

// PoolSnapshot is one refresh of Midgard's pool list: depths for the
// sizing math plus USD prices for fiat display and the affiliate
// threshold.
type PoolSnapshot struct {
	Pools domain.PoolsData
	// USDPrice maps asset string to the USD price of one full asset unit.
	USDPrice map[string]decimal.Decimal
}

// Pools fetches all available pools. Suspended pools are skipped.
func (m *Midgard) Pools(ctx context.Context) (PoolSnapshot, error) {
	pools, err := retrier.DoWithData(m.retrier, ctx, m.fetchPools)
	if err != nil {
		return PoolSnapshot{}, err
	}

	snapshot := PoolSnapshot{
		Pools:    make(domain.PoolsData, len(pools)),
		USDPrice: make(map[string]decimal.Decimal, len(pools)),
	}
	for _, pool := range pools {
		if pool.Status == "suspended" {
			continue
		}
		asset, err := domain.ParseAsset(pool.Asset)
		if err != nil {
			return PoolSnapshot{}, errors.Wrapf(err, "parse pool asset %q", pool.Asset)
		}
		assetDepth, err := protocolAmount(pool.AssetDepth)
		if err != nil {
			return PoolSnapshot{}, errors.Wrapf(err, "parse assetDepth for %s", pool.Asset)
		}
		runeDepth, err := protocolAmount(pool.RuneDepth)
		if err != nil {
			return PoolSnapshot{}, errors.Wrapf(err, "parse runeDepth for %s", pool.Asset)
		}

		snapshot.Pools[asset.String()] = domain.PoolData{
			Asset:        asset,
			DexBalance:   runeDepth,
			AssetBalance: assetDepth,
		}
		if pool.AssetPriceUSD != "" {
			if price, perr := decimal.NewFromString(pool.AssetPriceUSD); perr == nil {
				snapshot.USDPrice[asset.String()] = price
			}
		}
	}
	return snapshot, nil
}

func (m *Midgard) fetchPools(ctx context.Context) ([]poolResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/v2/pools", nil)
	if err != nil {
		return nil, errors.Wrap(err, "build midgard request")
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "midgard request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, errors.Errorf("midgard status %d: %s", resp.StatusCode, string(body))
	}

	var pools []poolResponse
	if err := json.NewDecoder(resp.Body).Decode(&pools); err != nil {
		return nil, errors.Wrap(err, "decode midgard pools")
	}
	return pools, nil
}
