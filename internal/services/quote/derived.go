package quote

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/runevault/swapcore/internal/domain"
)

var bpsDivisor = decimal.NewFromInt(10_000)

// SlippagePercent returns the instant and streaming slippage of the held
// quote as percentages. ok is false while no quote is held.
func (e *Engine) SlippagePercent() (instant, streaming decimal.Decimal, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	q, held := e.quote.Value()
	if !held {
		return decimal.Zero, decimal.Zero, false
	}
	hundred := decimal.NewFromInt(100)
	return decimal.NewFromInt(q.SlipBps).Div(hundred),
		decimal.NewFromInt(q.StreamingSlipBps).Div(hundred), true
}

// MinimumOutput returns the slippage-protection floor parsed from the
// quote's memo, at the target asset's precision. ok is false while no
// quote is held, while the memo carries no limit, or while slippage
// protection is disabled for this swap (hardware-wallet UTXO sends), in
// which case the caller must render "not available" rather than a figure.
func (e *Engine) MinimumOutput(targetDecimals int32) (domain.Amount, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.in.disableSlipProtection {
		return domain.Amount{}, false
	}
	q, held := e.quote.Value()
	if !held {
		return domain.Amount{}, false
	}
	limit, ok := domain.SwapLimitFromMemo(q.Memo)
	if !ok {
		return domain.Amount{}, false
	}
	return limit.ToDecimals(targetDecimals), true
}

// TotalFeeEstimate sums the explicit and implicit costs of the swap at
// protocol precision: inbound fee, affiliate fee, and the slippage cost
// implied by the held quote. Streaming swaps use the streaming slippage.
func (e *Engine) TotalFeeEstimate(inFee domain.Amount) domain.Amount {
	e.mu.Lock()
	defer e.mu.Unlock()

	total := inFee.ToProtocol()
	amount := e.in.amount.ToProtocol()

	affiliate := amount.MulRatio(decimal.NewFromInt(e.affiliateBpsLocked()).Div(bpsDivisor))
	total = total.Add(affiliate)

	if q, held := e.quote.Value(); held {
		slipBps := q.SlipBps
		if e.in.streaming.IsStreaming() {
			slipBps = q.StreamingSlipBps
		}
		slipCost := amount.MulRatio(decimal.NewFromInt(slipBps).Div(bpsDivisor))
		total = total.Add(slipCost)
	}
	return total
}

// AffiliateBps returns the affiliate fee actually charged on the current
// swap, after waivers.
func (e *Engine) AffiliateBps() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.affiliateBpsLocked()
}

// affiliateBpsLocked applies the waiver ladder: stagenet swaps, the
// operator's own swaps, and swaps below the configured USD threshold pay
// no affiliate fee. An amount that cannot be USD-priced counts as below
// threshold. Callers hold mu.
func (e *Engine) affiliateBpsLocked() int64 {
	if e.cfg.Stagenet {
		return 0
	}
	if e.in.sender != "" && e.in.sender == e.cfg.OperatorAddress {
		return 0
	}
	if e.usd == nil {
		return 0
	}
	usd, ok := e.usd.ValueUSD(e.in.sourceAsset, e.in.amount)
	if !ok || usd.LessThan(e.cfg.AffiliateMinUSD) {
		return 0
	}
	return e.cfg.AffiliateBps
}

// MaxSpendable bounds the input amount: balance minus the inbound fee,
// clamped at zero. In preview mode (no wallet connected) the pool's own
// depth on the source side caps the figure, giving a realistic upper
// bound for display. All arguments at the source asset's precision.
func MaxSpendable(balance, inFee domain.Amount, preview bool, poolDepth domain.Amount) domain.Amount {
	max := balance.SubClamped(inFee.ToDecimals(balance.Decimals()))
	if preview {
		max = max.Min(poolDepth.ToDecimals(balance.Decimals()))
	}
	return max
}

// Rate returns how much of the target one unit of the source buys, and
// the inverse, derived from pool depths. ok is false when either pool
// side is empty.
func Rate(source, target domain.PoolData) (forward, inverse decimal.Decimal, ok bool) {
	srcDex := source.DexPerAsset()
	tgtDex := target.DexPerAsset()
	if srcDex.IsZero() || tgtDex.IsZero() {
		return decimal.Zero, decimal.Zero, false
	}
	forward = srcDex.Div(tgtDex)
	inverse = tgtDex.Div(srcDex)
	return forward, inverse, true
}

// minAmountPattern matches the first integer figure embedded in a quote
// validation error, e.g. "swap too small, min: 1234567". Figures are in
// protocol base units.
var minAmountPattern = regexp.MustCompile(`\d+`)

// BlockingError is the single primary error shown to the user.
type BlockingError struct {
	Message string
	// MinAmount is set when the quote error carried a parseable minimum,
	// converted to the source asset's precision.
	MinAmount domain.Amount
	HasMin    bool
}

// PrimaryError selects at most one blocking error by priority: a quote
// validation error outranks a chain-fee shortfall, which outranks a
// fetch failure. Fetch failures only surface before the first successful
// quote; afterwards the previous quote keeps the display alive.
func (e *Engine) PrimaryError() (BlockingError, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if q, held := e.quote.Value(); held && len(q.Errors) > 0 {
		return e.parseQuoteError(q.Errors[0]), true
	}
	if e.feeShortfall {
		return BlockingError{
			Message: fmt.Sprintf("balance does not cover the %s network fee", e.in.sourceAsset.Chain),
		}, true
	}
	if e.fetchErr != nil && !e.everSucceeded {
		return BlockingError{Message: e.fetchErr.Error()}, true
	}
	return BlockingError{}, false
}

// parseQuoteError extracts an embedded numeric minimum from a validation
// error. Callers hold mu.
func (e *Engine) parseQuoteError(msg string) BlockingError {
	raw := minAmountPattern.FindString(msg)
	if raw == "" {
		return BlockingError{Message: msg}
	}
	units, err := decimal.NewFromString(raw)
	if err != nil {
		return BlockingError{Message: msg}
	}
	min := domain.NewAmountFromBaseUnits(units, domain.ProtocolDecimals).
		ToDecimals(e.in.sourceDecimals)
	return BlockingError{
		Message:   fmt.Sprintf("amount below recommended minimum of %s %s", min.AssetValue(), e.in.sourceAsset.Ticker),
		MinAmount: min,
		HasMin:    true,
	}
}
