package domain

// StreamingParams is the (interval, quantity) pair the protocol understands
// for streaming swaps. Interval 0 is the single authoritative signal for
// limit (non-streaming) mode; every consumer branches on it, never on a
// separate boolean. Quantity 0 lets the protocol pick the sub-swap count.
type StreamingParams struct {
	// Interval blocks between sub-swaps.
	Interval int64
	// Quantity number of sub-swaps, 0 for protocol auto-select.
	Quantity int64
}

// IsStreaming reports whether the params describe a streaming execution.
func (s StreamingParams) IsStreaming() bool { return s.Interval != 0 }

// ResolveStreamingInterval maps the 0-100 aggressiveness slider to a block
// interval. Below 25 the swap degrades to a plain limit order.
func ResolveStreamingInterval(slider int) int64 {
	switch {
	case slider >= 75:
		return 3
	case slider >= 50:
		return 2
	case slider >= 25:
		return 1
	default:
		return 0
	}
}

// StreamingFromSlider resolves the slider into full params. Quantity is
// always reset to 0 so the protocol re-selects it for the new interval.
func StreamingFromSlider(slider int) StreamingParams {
	return StreamingParams{Interval: ResolveStreamingInterval(slider), Quantity: 0}
}
