package feeoracle

import (
	"context"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/runevault/swapcore/internal/domain"
)

// evmGasDecimals native precision of EVM gas assets.
const evmGasDecimals int32 = 18

// Gas limit fallbacks when the node cannot simulate the transaction (e.g.
// the sender is unknown while quoting).
const (
	nativeTransferGasLimit = 21_000
	tokenTransferGasLimit  = 80_000
)

// GasClient is the subset of ethclient the estimator needs.
type GasClient interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
}

// EVMEstimator prices EVM-family operations as gasPrice x gasLimit at the
// chain's gas-asset precision. Outbound and refund legs come from the
// network schedule since they are executed by the protocol, not the user.
type EVMEstimator struct {
	chain    domain.Chain
	client   GasClient
	schedule ScheduleSource
}

// NewEVMEstimator builds an estimator for one EVM chain.
func NewEVMEstimator(chain domain.Chain, client GasClient, schedule ScheduleSource) *EVMEstimator {
	return &EVMEstimator{chain: chain, client: client, schedule: schedule}
}

// EstimateFees implements Estimator.
func (e *EVMEstimator) EstimateFees(ctx context.Context, params FeeParams) (domain.Fees, error) {
	gasPrice, err := e.client.SuggestGasPrice(ctx)
	if err != nil {
		return domain.Fees{}, errors.Wrap(err, "suggest gas price")
	}

	limit := e.gasLimit(ctx, params)

	feeWei := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(limit))
	inFee := domain.NewAmountFromBaseUnits(decimal.NewFromBigInt(feeWei, 0), evmGasDecimals)

	inbound, err := e.schedule.InboundAddress(ctx, e.chain)
	if err != nil {
		return domain.Fees{}, errors.Wrap(err, "inbound schedule")
	}

	return domain.Fees{
		Asset:  domain.GasAsset(e.chain),
		In:     inFee.ToProtocol(),
		Out:    inbound.OutboundFee.ToProtocol(),
		Refund: inbound.OutboundFee.ToProtocol(),
	}, nil
}

// gasLimit asks the node to simulate the transfer and falls back to the
// conservative static limits when simulation is not possible.
func (e *EVMEstimator) gasLimit(ctx context.Context, params FeeParams) uint64 {
	fallback := uint64(nativeTransferGasLimit)
	if params.Asset.Kind == domain.KindToken {
		fallback = tokenTransferGasLimit
	}

	if !common.IsHexAddress(params.Recipient) {
		return fallback
	}
	to := common.HexToAddress(params.Recipient)
	msg := ethereum.CallMsg{To: &to, Data: []byte(params.Memo)}

	limit, err := e.client.EstimateGas(ctx, msg)
	if err != nil || limit == 0 {
		return fallback
	}
	return limit
}

func decimalFromInt(v int64) decimal.Decimal { return decimal.NewFromInt(v) }
