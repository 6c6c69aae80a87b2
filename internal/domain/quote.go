package domain

import (
	"strconv"
	"strings"
	"time"
)

// QuoteValidity is how long a fetched quote stays usable.
const QuoteValidity = 15 * time.Minute

// quoteExpiryGrace: a quote inside its final minute is already treated as
// expired so a submission never races the hard deadline.
const quoteExpiryGrace = time.Minute

// Quote is a perishable pricing result from the quoting service. Each quote
// wholly supersedes the previous one; derived values must never mix fields
// from two quotes.
type Quote struct {
	// NetOutput expected output after all fees, target asset at protocol
	// precision.
	NetOutput Amount
	// SlipBps slippage of a single (limit) execution, basis points.
	SlipBps int64
	// StreamingSlipBps slippage of a streaming execution, basis points.
	StreamingSlipBps int64
	// Memo canonical transaction memo produced by the quoting service.
	Memo string
	// RecommendedMinAmountIn minimum input the service recommends, source
	// asset at protocol precision.
	RecommendedMinAmountIn Amount
	// MaxStreamingQuantity upper bound on streaming sub-swaps.
	MaxStreamingQuantity int64
	// Expiry hard wall-clock deadline reported by the service.
	Expiry time.Time
	// Errors validation errors carried inside an otherwise successful
	// response. Non-empty errors block submission.
	Errors []string
	// InboundAddress vault or router the deposit must be sent to.
	InboundAddress string
	// Router EVM router contract, when the inbound chain uses one.
	Router string
	// EstimateOnly marks a quote requested with a placeholder destination;
	// it informs fee/time display but must never enable submission.
	EstimateOnly bool
	// FetchedAt local receipt time.
	FetchedAt time.Time
}

// Expired reports whether the quote has entered its final minute of
// validity relative to now.
func (q Quote) Expired(now time.Time) bool {
	return q.Expiry.Sub(now) < quoteExpiryGrace
}

// RemainingValidity returns the time left before the hard expiry, negative
// once past it.
func (q Quote) RemainingValidity(now time.Time) time.Duration {
	return q.Expiry.Sub(now)
}

// SwapLimitFromMemo extracts the minimum-output limit embedded in a swap
// memo (the LIM part of "=:ASSET:DEST:LIM/INTERVAL/QUANTITY:..."), at
// protocol precision. Returns false when the memo carries no limit.
func SwapLimitFromMemo(memo string) (Amount, bool) {
	parts := strings.Split(memo, ":")
	if len(parts) < 4 {
		return Amount{}, false
	}
	limitPart := strings.Split(parts[3], "/")[0]
	if limitPart == "" {
		return Amount{}, false
	}
	limit, err := strconv.ParseInt(limitPart, 10, 64)
	if err != nil || limit <= 0 {
		return Amount{}, false
	}
	return NewAmount(limit, ProtocolDecimals), true
}
