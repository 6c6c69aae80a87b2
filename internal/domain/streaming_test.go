package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveStreamingInterval(t *testing.T) {
	tests := []struct {
		slider   int
		interval int64
	}{
		{0, 0},
		{24, 0},
		{25, 1},
		{49, 1},
		{50, 2},
		{74, 2},
		{75, 3},
		{100, 3},
	}
	for _, tt := range tests {
		require.Equal(t, tt.interval, ResolveStreamingInterval(tt.slider), "slider=%d", tt.slider)
	}
}

func TestStreamingFromSliderResetsQuantity(t *testing.T) {
	p := StreamingFromSlider(80)
	require.EqualValues(t, 3, p.Interval)
	require.EqualValues(t, 0, p.Quantity, "quantity must reset so the protocol re-selects it")
	require.True(t, p.IsStreaming())

	require.False(t, StreamingFromSlider(10).IsStreaming(), "below 25 is limit mode")
}
