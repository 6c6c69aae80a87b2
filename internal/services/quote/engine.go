// Package quote drives the debounced swap quoting loop: it owns the user
// input snapshot, coalesces rapid edits into single requests, tracks quote
// freshness, and derives the display economics from the held quote.
package quote

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/runevault/swapcore/internal/domain"
)

// streamingToleranceBps is sent instead of the user tolerance while
// streaming: the network enforces its own per-sub-swap tolerance, so the
// static limit must not constrain the trade.
const streamingToleranceBps int64 = 10_000

// Params is the request snapshot handed to the quoting service.
type Params struct {
	FromAsset         domain.Asset
	TargetAsset       domain.Asset
	Amount            domain.Amount
	Destination       string
	StreamingInterval int64
	StreamingQuantity int64
	ToleranceBps      int64
	AffiliateName     string
	AffiliateBps      int64
}

// Quoter is the external quoting collaborator.
type Quoter interface {
	QuoteSwap(ctx context.Context, params Params) (domain.Quote, error)
}

// USDValuer prices an amount in USD off the latest pool snapshot. ok is
// false when no price route exists.
type USDValuer interface {
	ValueUSD(asset domain.Asset, amount domain.Amount) (decimal.Decimal, bool)
}

// Config tunes the engine. Zero values are replaced by defaults in New.
type Config struct {
	Debounce        time.Duration
	AffiliateName   string
	AffiliateBps    int64
	AffiliateMinUSD decimal.Decimal
	OperatorAddress string
	// Stagenet waives the affiliate fee entirely.
	Stagenet bool
}

const defaultDebounce = 500 * time.Millisecond

// inputs is the mutable parameter snapshot. Guarded by Engine.mu.
type inputs struct {
	sourceAsset    domain.Asset
	sourceDecimals int32
	targetAsset    domain.Asset
	amount         domain.Amount
	recipient      string
	sender         string
	streaming      domain.StreamingParams
	toleranceBps   int64
	// disableSlipProtection is set for hardware-wallet UTXO swaps, where
	// the limit memo does not fit the device's message budget.
	disableSlipProtection bool
}

// Engine is the quote state machine. All state is guarded by mu; the
// debounce timer and the expiry ticker are the only background writers.
type Engine struct {
	quoter Quoter
	usd    USDValuer
	cfg    Config
	logger *zap.Logger

	// refresh is invoked before the next request after the held quote
	// expired, so pool and fee data are current again.
	refresh func(ctx context.Context)

	mu       sync.Mutex
	in       inputs
	revision uint64
	gen      uint64
	timer    *time.Timer

	quote         domain.RemoteData[domain.Quote]
	expired       bool
	needsRefresh  bool
	everSucceeded bool
	fetchErr      error
	feeShortfall  bool

	ctx context.Context
}

// New builds an engine. refresh may be nil.
func New(quoter Quoter, usd USDValuer, cfg Config, refresh func(ctx context.Context), logger *zap.Logger) *Engine {
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}
	return &Engine{
		quoter:  quoter,
		usd:     usd,
		cfg:     cfg,
		refresh: refresh,
		logger:  logger,
		quote:   domain.RemoteInitialOf[domain.Quote](),
		ctx:     context.Background(),
	}
}

// Run watches quote expiry until ctx is done. Expiry is a wall-clock
// judgement, not a network timeout: crossing into the final minute of the
// validity window marks the quote expired, which blocks submission and
// forces a pool/fee refresh before the next request.
func (e *Engine) Run(ctx context.Context) {
	e.mu.Lock()
	e.ctx = ctx
	e.mu.Unlock()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.mu.Lock()
			if e.timer != nil {
				e.timer.Stop()
			}
			e.mu.Unlock()
			return
		case <-ticker.C:
			e.checkExpiry(time.Now())
		}
	}
}

func (e *Engine) checkExpiry(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	q, ok := e.quote.Value()
	if !ok || e.expired {
		return
	}
	if q.Expired(now) {
		e.expired = true
		e.needsRefresh = true
		e.logger.Info("quote expired",
			zap.Time("expiry", q.Expiry),
			zap.String("memo", q.Memo))
	}
}

// SetSourceAsset switches the source side. The armed debounce timer and
// the held quote are discarded and the amount resets to zero.
func (e *Engine) SetSourceAsset(asset domain.Asset, decimals int32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.in.sourceAsset = asset
	e.in.sourceDecimals = decimals
	e.resetOnAssetChange()
}

// SetTargetAsset switches the target side, with the same reset semantics
// as SetSourceAsset.
func (e *Engine) SetTargetAsset(asset domain.Asset) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.in.targetAsset = asset
	e.resetOnAssetChange()
}

func (e *Engine) resetOnAssetChange() {
	e.revision++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.gen++ // orphan any in-flight response
	e.in.amount = domain.ZeroAmount(e.in.sourceDecimals)
	e.quote = domain.RemoteInitialOf[domain.Quote]()
	e.expired = false
	e.fetchErr = nil
	e.everSucceeded = false
}

// SetAmount updates the swap amount and re-arms the debounce.
func (e *Engine) SetAmount(amount domain.Amount) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.in.amount = amount
	e.bump()
}

// SetRecipient updates the destination address and re-arms the debounce.
// An empty recipient keeps the engine in estimate-only mode.
func (e *Engine) SetRecipient(addr string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.in.recipient = addr
	e.bump()
}

// SetSender records the resolved sender address, used for the
// self-referential affiliate waiver.
func (e *Engine) SetSender(addr string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.in.sender = addr
	e.bump()
}

// SetStreaming updates the streaming parameters and re-arms the debounce.
func (e *Engine) SetStreaming(params domain.StreamingParams) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.in.streaming = params
	e.bump()
}

// SetTolerance updates the slippage tolerance and re-arms the debounce.
func (e *Engine) SetTolerance(bps int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.in.toleranceBps = bps
	e.bump()
}

// SetSlippageProtectionDisabled toggles the hardware-wallet UTXO mode in
// which no limit memo is sent and no minimum output can be shown.
func (e *Engine) SetSlippageProtectionDisabled(disabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.in.disableSlipProtection = disabled
}

// SetFeeShortfall records whether the gas-asset balance covers the inbound
// fee. Display-only; does not trigger a request.
func (e *Engine) SetFeeShortfall(shortfall bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.feeShortfall = shortfall
}

// bump registers an input edit: advance the revision and (re)arm the
// trailing-edge debounce timer. Callers hold mu.
func (e *Engine) bump() {
	e.revision++
	rev := e.revision
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(e.cfg.Debounce, func() {
		e.fire(rev)
	})
}

// fire runs on the debounce timer's goroutine. It issues exactly one
// request with the snapshot at fire time; rev guards against the narrow
// race where Stop loses to an already-fired timer.
func (e *Engine) fire(rev uint64) {
	e.mu.Lock()
	if rev != e.revision {
		e.mu.Unlock()
		return
	}
	if e.in.amount.IsZero() {
		e.mu.Unlock()
		return
	}

	e.gen++
	gen := e.gen
	ctx := e.ctx
	params, estimateOnly := e.requestParams()
	refresh := e.refresh
	doRefresh := e.needsRefresh
	e.needsRefresh = false

	if e.quote.State() == domain.RemoteInitial {
		e.quote = domain.RemotePendingOf[domain.Quote]()
	}
	e.mu.Unlock()

	if doRefresh && refresh != nil {
		refresh(ctx)
	}

	q, err := e.quoter.QuoteSwap(ctx, params)

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.gen {
		e.logger.Debug("dropping superseded quote response",
			zap.String("from", params.FromAsset.String()),
			zap.String("to", params.TargetAsset.String()))
		return
	}

	if err != nil {
		e.fetchErr = errors.Wrap(err, "quote swap")
		e.logger.Warn("quote fetch failed", zap.Error(err))
		if !e.everSucceeded {
			e.quote = domain.RemoteFailureOf[domain.Quote](e.fetchErr)
		}
		// otherwise keep the previous quote for display
		return
	}

	q.EstimateOnly = estimateOnly
	q.FetchedAt = time.Now()
	e.quote = domain.RemoteSuccessOf(q)
	e.expired = false
	e.fetchErr = nil
	e.everSucceeded = true
	e.logger.Debug("quote replaced",
		zap.String("memo", q.Memo),
		zap.Int64("slip_bps", q.SlipBps))
}

// requestParams snapshots the inputs into wire parameters. Callers hold mu.
func (e *Engine) requestParams() (Params, bool) {
	dest := e.in.recipient
	estimateOnly := dest == ""
	if estimateOnly {
		dest = placeholderDestination(e.in.targetAsset.Chain)
	}

	tolerance := e.in.toleranceBps
	if e.in.streaming.IsStreaming() {
		tolerance = streamingToleranceBps
	}

	return Params{
		FromAsset:         e.in.sourceAsset,
		TargetAsset:       e.in.targetAsset,
		Amount:            e.in.amount.ToProtocol(),
		Destination:       dest,
		StreamingInterval: e.in.streaming.Interval,
		StreamingQuantity: e.in.streaming.Quantity,
		ToleranceBps:      tolerance,
		AffiliateName:     e.cfg.AffiliateName,
		AffiliateBps:      e.affiliateBpsLocked(),
	}, estimateOnly
}

// ProvisionalMemo builds a memo from the current inputs without a quote,
// used only to size fee estimates before the first quote arrives.
func (e *Engine) ProvisionalMemo() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	dest := e.in.recipient
	if dest == "" {
		dest = placeholderDestination(e.in.targetAsset.Chain)
	}
	return fmt.Sprintf("=:%s:%s:0/%d/%d",
		e.in.targetAsset, dest, e.in.streaming.Interval, e.in.streaming.Quantity)
}

// Quote returns the held quote.
func (e *Engine) Quote() domain.RemoteData[domain.Quote] {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.quote
}

// Expired reports whether the held quote has aged into its final minute.
func (e *Engine) Expired() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.expired
}

// AuthoritativeQuote returns the held quote only when it may back a
// submission: a success, addressed to a real recipient, fresh, and free of
// validation errors.
func (e *Engine) AuthoritativeQuote() (domain.Quote, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	q, ok := e.quote.Value()
	if !ok || q.EstimateOnly || e.expired || len(q.Errors) > 0 {
		return domain.Quote{}, false
	}
	return q, true
}

// Amount returns the current input amount.
func (e *Engine) Amount() domain.Amount {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.in.amount
}

// Streaming returns the current streaming parameters.
func (e *Engine) Streaming() domain.StreamingParams {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.in.streaming
}

// MarkStale forcibly expires the held quote, e.g. after a submission
// attempt, so a fresh one is fetched before the next submit.
func (e *Engine) MarkStale() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.quote.Value(); ok {
		e.expired = true
		e.needsRefresh = true
	}
	e.in.amount = domain.ZeroAmount(e.in.sourceDecimals)
}

// placeholderDestination supplies a syntactically valid address per chain
// for estimate-only quotes. The quoting service validates the destination
// format even when no funds will move.
func placeholderDestination(chain domain.Chain) string {
	switch chain {
	case domain.ChainBitcoin:
		return "bc1qd8jhw2m9nmvc964t5dqkwfwpcj2mdmgdv2fmzy"
	case domain.ChainBitcoinCash:
		return "qzs02v05l7qs5s24srqju498qdqoelmnsc2vky8cua"
	case domain.ChainLitecoin:
		return "ltc1q3vfhggvy3xpy8f8nxvuwh6y3wvm2zdy4edv9gx"
	case domain.ChainDoge:
		return "DQDhx2QMcFYQr5GjcBmqyHVHpPvUjUYJr4"
	case domain.ChainEthereum, domain.ChainAvax, domain.ChainBsc,
		domain.ChainArbitrum, domain.ChainBase:
		return "0x90c9e26efd47d4f0f0f102f29c29c1d0a28f0cc0"
	case domain.ChainCosmos:
		return "cosmos1zmlhlpv32um405vm3s5r0h6u0nzvlfpj4sywm6"
	case domain.ChainTHORChain:
		return "thor1g98cy3n9mmjrpn0sxmn63lztelera37n8yyjwl"
	case domain.ChainMaya:
		return "maya1g98cy3n9mmjrpn0sxmn63lztelera37nts0yaa"
	default:
		return ""
	}
}
