package quote

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/runevault/swapcore/internal/domain"
)

type fakeQuoter struct {
	mu    sync.Mutex
	calls []Params
	quote domain.Quote
	err   error
}

func (f *fakeQuoter) QuoteSwap(_ context.Context, params Params) (domain.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, params)
	return f.quote, f.err
}

func (f *fakeQuoter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeQuoter) lastCall() Params {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

type fakeUSD struct {
	value decimal.Decimal
	ok    bool
}

func (f *fakeUSD) ValueUSD(domain.Asset, domain.Amount) (decimal.Decimal, bool) {
	return f.value, f.ok
}

var (
	assetBTC = domain.Asset{Chain: domain.ChainBitcoin, Symbol: "BTC", Ticker: "BTC", Kind: domain.KindNative}
	assetETH = domain.Asset{Chain: domain.ChainEthereum, Symbol: "ETH", Ticker: "ETH", Kind: domain.KindNative}
)

func freshQuote() domain.Quote {
	return domain.Quote{
		NetOutput: domain.NewAmount(95_000_000, 8),
		SlipBps:   120,
		Memo:      "=:ETH.ETH:0xdest:93000000/0/0",
		Expiry:    time.Now().Add(domain.QuoteValidity),
	}
}

func newTestEngine(t *testing.T, quoter Quoter, usd USDValuer, cfg Config) *Engine {
	t.Helper()
	if cfg.Debounce == 0 {
		cfg.Debounce = 20 * time.Millisecond
	}
	e := New(quoter, usd, cfg, nil, zap.NewNop())
	e.SetSourceAsset(assetBTC, 8)
	e.SetTargetAsset(assetETH)
	e.SetRecipient("0xdest")
	return e
}

func TestDebounceCoalescesRapidEdits(t *testing.T) {
	quoter := &fakeQuoter{quote: freshQuote()}
	e := newTestEngine(t, quoter, nil, Config{})

	// wait out the request armed by SetRecipient (zero amount, no call)
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, 0, quoter.callCount(), "zero amount must not produce a request")

	for i := int64(1); i <= 5; i++ {
		e.SetAmount(domain.NewAmount(i*1_000_000, 8))
	}

	require.Eventually(t, func() bool {
		return quoter.callCount() == 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)

	require.Equal(t, 1, quoter.callCount(), "five edits inside the window must coalesce into one request")
	require.True(t, quoter.lastCall().Amount.Equal(domain.NewAmount(5_000_000, 8)),
		"the request must carry the last-set amount")
}

func TestEstimateOnlyWithoutRecipient(t *testing.T) {
	quoter := &fakeQuoter{quote: freshQuote()}
	e := New(quoter, nil, Config{Debounce: 10 * time.Millisecond}, nil, zap.NewNop())
	e.SetSourceAsset(assetBTC, 8)
	e.SetTargetAsset(assetETH)
	e.SetAmount(domain.NewAmount(1_000_000, 8))

	require.Eventually(t, func() bool {
		_, ok := e.Quote().Value()
		return ok
	}, time.Second, 5*time.Millisecond)

	call := quoter.lastCall()
	require.NotEmpty(t, call.Destination, "estimate-only requests use a placeholder destination")
	require.Equal(t, placeholderDestination(domain.ChainEthereum), call.Destination)

	q, ok := e.Quote().Value()
	require.True(t, ok)
	require.True(t, q.EstimateOnly)

	_, ok = e.AuthoritativeQuote()
	require.False(t, ok, "an estimate-only quote must never enable submission")
}

func TestStreamingOverridesTolerance(t *testing.T) {
	quoter := &fakeQuoter{quote: freshQuote()}
	e := newTestEngine(t, quoter, nil, Config{})
	e.SetTolerance(100)
	e.SetStreaming(domain.StreamingFromSlider(80))
	e.SetAmount(domain.NewAmount(1_000_000, 8))

	require.Eventually(t, func() bool {
		return quoter.callCount() >= 1
	}, time.Second, 5*time.Millisecond)

	call := quoter.lastCall()
	require.Equal(t, int64(10_000), call.ToleranceBps,
		"streaming swaps bypass the static tolerance")
	require.Equal(t, int64(3), call.StreamingInterval)
}

func TestQuoteExpiry(t *testing.T) {
	e := newTestEngine(t, &fakeQuoter{}, nil, Config{})
	now := time.Now()

	q := freshQuote()
	q.Expiry = now.Add(-time.Minute)
	e.quote = domain.RemoteSuccessOf(q)
	e.checkExpiry(now)
	require.True(t, e.Expired(), "a quote one minute past expiry is stale")

	q.Expiry = now.Add(10 * time.Minute)
	e.quote = domain.RemoteSuccessOf(q)
	e.expired = false
	e.checkExpiry(now)
	require.False(t, e.Expired(), "ten minutes of validity left is fresh")

	q.Expiry = now.Add(30 * time.Second)
	e.quote = domain.RemoteSuccessOf(q)
	e.checkExpiry(now)
	require.True(t, e.Expired(), "inside the final minute counts as expired")
}

func TestExpiredQuoteIsNotAuthoritative(t *testing.T) {
	e := newTestEngine(t, &fakeQuoter{}, nil, Config{})

	e.quote = domain.RemoteSuccessOf(freshQuote())
	_, ok := e.AuthoritativeQuote()
	require.True(t, ok)

	e.checkExpiry(time.Now().Add(domain.QuoteValidity))
	_, ok = e.AuthoritativeQuote()
	require.False(t, ok, "an expired quote must not back a submission")
}

func TestFailureKeepsPreviousQuote(t *testing.T) {
	quoter := &fakeQuoter{quote: freshQuote()}
	e := newTestEngine(t, quoter, nil, Config{})

	e.SetAmount(domain.NewAmount(1_000_000, 8))
	require.Eventually(t, func() bool {
		_, ok := e.Quote().Value()
		return ok
	}, time.Second, 5*time.Millisecond)

	quoter.mu.Lock()
	quoter.err = errors.New("midgard timeout")
	quoter.mu.Unlock()

	e.SetAmount(domain.NewAmount(2_000_000, 8))
	require.Eventually(t, func() bool {
		return quoter.callCount() == 2
	}, time.Second, 5*time.Millisecond)

	q, ok := e.Quote().Value()
	require.True(t, ok, "a fetch failure keeps the previous quote on display")
	require.Equal(t, int64(120), q.SlipBps)

	_, blocked := e.PrimaryError()
	require.False(t, blocked, "a failure after a success is not a blocking error")
}

func TestFirstFailureSurfacesFetchError(t *testing.T) {
	quoter := &fakeQuoter{err: errors.New("connection refused")}
	e := newTestEngine(t, quoter, nil, Config{})

	e.SetAmount(domain.NewAmount(1_000_000, 8))
	require.Eventually(t, func() bool {
		return e.Quote().State() == domain.RemoteFailure
	}, time.Second, 5*time.Millisecond)

	blocking, ok := e.PrimaryError()
	require.True(t, ok)
	require.Contains(t, blocking.Message, "connection refused")
}

func TestAssetChangeResetsState(t *testing.T) {
	quoter := &fakeQuoter{quote: freshQuote()}
	e := newTestEngine(t, quoter, nil, Config{Debounce: 50 * time.Millisecond})

	e.SetAmount(domain.NewAmount(1_000_000, 8))
	require.Eventually(t, func() bool {
		_, ok := e.Quote().Value()
		return ok
	}, time.Second, 5*time.Millisecond)
	calls := quoter.callCount()

	e.SetAmount(domain.NewAmount(2_000_000, 8))
	e.SetTargetAsset(domain.Asset{Chain: domain.ChainCosmos, Symbol: "ATOM", Ticker: "ATOM"})

	require.True(t, e.Amount().IsZero(), "asset change zeroes the amount")
	require.Equal(t, domain.RemoteInitial, e.Quote().State(), "asset change discards the held quote")

	time.Sleep(150 * time.Millisecond)
	require.Equal(t, calls, quoter.callCount(), "asset change cancels the armed debounce timer")
}

func TestPrimaryErrorPriority(t *testing.T) {
	e := newTestEngine(t, &fakeQuoter{}, nil, Config{})
	e.SetFeeShortfall(true)

	blocking, ok := e.PrimaryError()
	require.True(t, ok)
	require.Contains(t, blocking.Message, "network fee")

	q := freshQuote()
	q.Errors = []string{"swap too small, min: 150000"}
	e.quote = domain.RemoteSuccessOf(q)

	blocking, ok = e.PrimaryError()
	require.True(t, ok)
	require.True(t, blocking.HasMin, "quote validation errors outrank the fee shortfall")
	require.True(t, blocking.MinAmount.Equal(domain.NewAmount(150_000, 8)))
	require.Contains(t, blocking.Message, "below recommended minimum")
}

func TestQuoteErrorWithoutNumberFallsBackToRaw(t *testing.T) {
	e := newTestEngine(t, &fakeQuoter{}, nil, Config{})

	q := freshQuote()
	q.Errors = []string{"trading is halted on destination chain"}
	e.quote = domain.RemoteSuccessOf(q)

	blocking, ok := e.PrimaryError()
	require.True(t, ok)
	require.False(t, blocking.HasMin)
	require.Equal(t, "trading is halted on destination chain", blocking.Message)
}

func TestAffiliateWaivers(t *testing.T) {
	cfg := Config{
		AffiliateBps:    30,
		AffiliateMinUSD: decimal.NewFromInt(100),
		OperatorAddress: "thor1operator",
	}

	t.Run("charged above threshold", func(t *testing.T) {
		e := newTestEngine(t, &fakeQuoter{}, &fakeUSD{value: decimal.NewFromInt(500), ok: true}, cfg)
		require.Equal(t, int64(30), e.AffiliateBps())
	})

	t.Run("waived below threshold", func(t *testing.T) {
		e := newTestEngine(t, &fakeQuoter{}, &fakeUSD{value: decimal.NewFromInt(40), ok: true}, cfg)
		require.Equal(t, int64(0), e.AffiliateBps())
	})

	t.Run("waived when unpriceable", func(t *testing.T) {
		e := newTestEngine(t, &fakeQuoter{}, &fakeUSD{ok: false}, cfg)
		require.Equal(t, int64(0), e.AffiliateBps())
	})

	t.Run("waived on stagenet", func(t *testing.T) {
		stagenet := cfg
		stagenet.Stagenet = true
		e := newTestEngine(t, &fakeQuoter{}, &fakeUSD{value: decimal.NewFromInt(500), ok: true}, stagenet)
		require.Equal(t, int64(0), e.AffiliateBps())
	})

	t.Run("waived for operator self-swap", func(t *testing.T) {
		e := newTestEngine(t, &fakeQuoter{}, &fakeUSD{value: decimal.NewFromInt(500), ok: true}, cfg)
		e.SetSender("thor1operator")
		require.Equal(t, int64(0), e.AffiliateBps())
	})
}

func TestMinimumOutput(t *testing.T) {
	e := newTestEngine(t, &fakeQuoter{}, nil, Config{})
	e.quote = domain.RemoteSuccessOf(freshQuote())

	min, ok := e.MinimumOutput(18)
	require.True(t, ok)
	require.True(t, min.Equal(domain.NewAmount(93_000_000, 8).ToDecimals(18)))

	e.SetSlippageProtectionDisabled(true)
	_, ok = e.MinimumOutput(18)
	require.False(t, ok, "no figure when slippage protection is disabled")
}

func TestTotalFeeEstimate(t *testing.T) {
	usd := &fakeUSD{value: decimal.NewFromInt(5_000), ok: true}
	cfg := Config{AffiliateBps: 30, AffiliateMinUSD: decimal.NewFromInt(100)}
	e := newTestEngine(t, &fakeQuoter{}, usd, cfg)

	e.in.amount = domain.NewAmount(100_000_000, 8) // 1 BTC
	e.quote = domain.RemoteSuccessOf(freshQuote()) // 120 bps slip

	inFee := domain.NewAmount(10_000, 8)
	total := e.TotalFeeEstimate(inFee)
	// 10_000 + 100_000_000*0.0030 + 100_000_000*0.0120 = 10_000 + 300_000 + 1_200_000
	require.True(t, total.Equal(domain.NewAmount(1_510_000, 8)), "got %s", total)
}

func TestMaxSpendable(t *testing.T) {
	balance := domain.NewAmount(1_000_000, 8)
	inFee := domain.NewAmount(10_000, 8)

	max := MaxSpendable(balance, inFee, false, domain.Amount{})
	require.True(t, max.Equal(domain.NewAmount(990_000, 8)))

	// fee above balance clamps at zero
	max = MaxSpendable(domain.NewAmount(5_000, 8), inFee, false, domain.Amount{})
	require.True(t, max.IsZero())

	// preview mode caps at the pool depth
	depth := domain.NewAmount(500_000, 8)
	max = MaxSpendable(balance, inFee, true, depth)
	require.True(t, max.Equal(depth))
}

func TestMarkStaleBlocksSubmission(t *testing.T) {
	e := newTestEngine(t, &fakeQuoter{}, nil, Config{})
	e.quote = domain.RemoteSuccessOf(freshQuote())
	e.in.amount = domain.NewAmount(1_000_000, 8)

	_, ok := e.AuthoritativeQuote()
	require.True(t, ok)

	e.MarkStale()
	_, ok = e.AuthoritativeQuote()
	require.False(t, ok)
	require.True(t, e.Amount().IsZero())
}

func TestRateFromPoolDepths(t *testing.T) {
	btc := domain.PoolData{
		DexBalance:   domain.NewAmount(2_000_000, 8),
		AssetBalance: domain.NewAmount(10_000, 8),
	}
	eth := domain.PoolData{
		DexBalance:   domain.NewAmount(1_000_000, 8),
		AssetBalance: domain.NewAmount(100_000, 8),
	}

	forward, inverse, ok := Rate(btc, eth)
	require.True(t, ok)
	require.True(t, forward.Equal(decimal.NewFromInt(20)), "1 BTC buys 20 ETH, got %s", forward)
	require.True(t, inverse.Equal(decimal.RequireFromString("0.05")), "got %s", inverse)

	_, _, ok = Rate(domain.PoolData{}, eth)
	require.False(t, ok, "an empty pool has no rate")
}
