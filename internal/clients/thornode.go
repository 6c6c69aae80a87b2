// Package clients holds thin wrappers over the external services the swap
// core consumes: THORNode, Midgard, EVM RPC, and the Binance spot API.
package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/runevault/swapcore/internal/domain"
	"github.com/runevault/swapcore/internal/services/quote"
)

const defaultHTTPTimeout = 15 * time.Second

// THORNode is a client for the THORNode REST API. It implements
// quote.Quoter and feeoracle.ScheduleSource.
type THORNode struct {
	baseURL string
	client  *http.Client
}

// NewTHORNode creates a THORNode client. A zero timeout uses the default.
func NewTHORNode(baseURL string, timeout time.Duration) *THORNode {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &THORNode{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type swapQuoteResponse struct {
	ExpectedAmountOut      string `json:"expected_amount_out"`
	Memo                   string `json:"memo"`
	Expiry                 int64  `json:"expiry"`
	SlippageBps            int64  `json:"slippage_bps"`
	StreamingSlippageBps   int64  `json:"streaming_slippage_bps"`
	RecommendedMinAmountIn string `json:"recommended_min_amount_in"`
	MaxStreamingQuantity   int64  `json:"max_streaming_quantity"`
	InboundAddress         string `json:"inbound_address"`
	Router                 string `json:"router"`
	Error                  string `json:"error,omitempty"`
}

// QuoteSwap implements quote.Quoter against /thorchain/quote/swap.
// A quote-level validation error comes back inside a 200 response and is
// carried on the Quote, not returned as a Go error.
func (t *THORNode) QuoteSwap(ctx context.Context, params quote.Params) (domain.Quote, error) {
	values := url.Values{}
	values.Set("from_asset", params.FromAsset.String())
	values.Set("to_asset", params.TargetAsset.String())
	values.Set("amount", params.Amount.BaseUnits().String())
	values.Set("destination", params.Destination)
	if params.StreamingInterval > 0 {
		values.Set("streaming_interval", fmt.Sprintf("%d", params.StreamingInterval))
		values.Set("streaming_quantity", fmt.Sprintf("%d", params.StreamingQuantity))
	}
	values.Set("tolerance_bps", fmt.Sprintf("%d", params.ToleranceBps))
	if params.AffiliateName != "" && params.AffiliateBps > 0 {
		values.Set("affiliate", params.AffiliateName)
		values.Set("affiliate_bps", fmt.Sprintf("%d", params.AffiliateBps))
	}

	var resp swapQuoteResponse
	if err := t.getJSON(ctx, "/thorchain/quote/swap?"+values.Encode(), &resp); err != nil {
		return domain.Quote{}, err
	}

	q := domain.Quote{
		Memo:                 resp.Memo,
		SlipBps:              resp.SlippageBps,
		StreamingSlipBps:     resp.StreamingSlippageBps,
		MaxStreamingQuantity: resp.MaxStreamingQuantity,
		InboundAddress:       resp.InboundAddress,
		Router:               resp.Router,
	}
	if resp.Expiry > 0 {
		q.Expiry = time.Unix(resp.Expiry, 0)
	} else {
		q.Expiry = time.Now().Add(domain.QuoteValidity)
	}
	if resp.Error != "" {
		q.Errors = append(q.Errors, resp.Error)
	}

	if resp.ExpectedAmountOut != "" {
		out, err := decimal.NewFromString(resp.ExpectedAmountOut)
		if err != nil {
			return domain.Quote{}, errors.Wrap(err, "parse expected_amount_out")
		}
		q.NetOutput = domain.NewAmountFromBaseUnits(out, domain.ProtocolDecimals)
	}
	if resp.RecommendedMinAmountIn != "" {
		min, err := decimal.NewFromString(resp.RecommendedMinAmountIn)
		if err != nil {
			return domain.Quote{}, errors.Wrap(err, "parse recommended_min_amount_in")
		}
		q.RecommendedMinAmountIn = domain.NewAmountFromBaseUnits(min, domain.ProtocolDecimals)
	}
	return q, nil
}

type inboundAddressResponse struct {
	Chain         string `json:"chain"`
	Address       string `json:"address"`
	Router        string `json:"router"`
	GasRate       string `json:"gas_rate"`
	OutboundFee   string `json:"outbound_fee"`
	DustThreshold string `json:"dust_threshold"`
	Halted        bool   `json:"halted"`
}

// InboundAddresses fetches the full inbound-address schedule.
func (t *THORNode) InboundAddresses(ctx context.Context) ([]domain.InboundAddress, error) {
	var resp []inboundAddressResponse
	if err := t.getJSON(ctx, "/thorchain/inbound_addresses", &resp); err != nil {
		return nil, err
	}

	schedule := make([]domain.InboundAddress, 0, len(resp))
	for _, entry := range resp {
		inbound := domain.InboundAddress{
			Chain:   domain.Chain(entry.Chain),
			Address: entry.Address,
			Router:  entry.Router,
			Halted:  entry.Halted,
		}
		var err error
		if inbound.GasRate, err = protocolAmount(entry.GasRate); err != nil {
			return nil, errors.Wrapf(err, "parse gas_rate for %s", entry.Chain)
		}
		if inbound.OutboundFee, err = protocolAmount(entry.OutboundFee); err != nil {
			return nil, errors.Wrapf(err, "parse outbound_fee for %s", entry.Chain)
		}
		if inbound.DustThreshold, err = protocolAmount(entry.DustThreshold); err != nil {
			return nil, errors.Wrapf(err, "parse dust_threshold for %s", entry.Chain)
		}
		schedule = append(schedule, inbound)
	}
	return schedule, nil
}

// InboundAddress implements feeoracle.ScheduleSource for one chain.
func (t *THORNode) InboundAddress(ctx context.Context, chain domain.Chain) (domain.InboundAddress, error) {
	schedule, err := t.InboundAddresses(ctx)
	if err != nil {
		return domain.InboundAddress{}, err
	}
	for _, entry := range schedule {
		if entry.Chain == chain {
			return entry, nil
		}
	}
	return domain.InboundAddress{}, errors.Errorf("chain %s missing from inbound schedule", chain)
}

type networkResponse struct {
	NativeTxFeeRune string `json:"native_tx_fee_rune"`
}

// NetworkFee implements feeoracle.ScheduleSource: the protocol chain's
// flat native transaction fee.
func (t *THORNode) NetworkFee(ctx context.Context) (domain.Amount, error) {
	var resp networkResponse
	if err := t.getJSON(ctx, "/thorchain/network", &resp); err != nil {
		return domain.Amount{}, err
	}
	return protocolAmount(resp.NativeTxFeeRune)
}

// getJSON fetches path and decodes the response, surfacing the response
// body on non-2xx statuses since THORNode puts the reason there.
func (t *THORNode) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+path, nil)
	if err != nil {
		return errors.Wrap(err, "build thornode request")
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "thornode request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return errors.Errorf("thornode status %d: %s", resp.StatusCode, apiErr.Message)
		}
		return errors.Errorf("thornode status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode thornode response")
	}
	return nil
}

func protocolAmount(raw string) (domain.Amount, error) {
	if raw == "" {
		return domain.ZeroAmount(domain.ProtocolDecimals), nil
	}
	units, err := decimal.NewFromString(raw)
	if err != nil {
		return domain.Amount{}, err
	}
	return domain.NewAmountFromBaseUnits(units, domain.ProtocolDecimals), nil
}
