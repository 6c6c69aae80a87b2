package clients

import (
	"context"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
)

// NewEVMClient dials an EVM JSON-RPC endpoint. The returned client
// satisfies feeoracle.GasClient.
func NewEVMClient(ctx context.Context, rpcURL string) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, errors.Wrapf(err, "dial evm rpc %s", rpcURL)
	}
	return client, nil
}
