package clients

import (
	"github.com/adshao/go-binance/v2"
)

// NewBinanceClient creates a Binance spot client. Keys may be empty; the
// public ticker endpoints used for reference pricing need no auth.
func NewBinanceClient(apiKey, apiSecret string) *binance.Client {
	return binance.NewClient(apiKey, apiSecret)
}
