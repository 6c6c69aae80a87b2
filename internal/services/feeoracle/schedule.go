package feeoracle

import (
	"context"

	"github.com/pkg/errors"

	"github.com/runevault/swapcore/internal/domain"
)

// ScheduleSource supplies the protocol's inbound-address schedule. The
// THORNode client implements it.
type ScheduleSource interface {
	InboundAddress(ctx context.Context, chain domain.Chain) (domain.InboundAddress, error)
	// NetworkFee returns the protocol chain's flat native transaction fee
	// at protocol precision.
	NetworkFee(ctx context.Context) (domain.Amount, error)
}

// utxoTxVBytes is the assumed virtual size of an inbound UTXO deposit with
// a memo output. Matches the sizing the wallet uses when it cannot inspect
// the eventual input set.
const utxoTxVBytes = 250

// UTXOEstimator prices UTXO-family operations off the network-reported
// gas rate (sat/vB) and a fixed assumed transaction size.
type UTXOEstimator struct {
	schedule ScheduleSource
}

// NewUTXOEstimator builds a UTXO estimator over the inbound schedule.
func NewUTXOEstimator(schedule ScheduleSource) *UTXOEstimator {
	return &UTXOEstimator{schedule: schedule}
}

// EstimateFees implements Estimator.
func (e *UTXOEstimator) EstimateFees(ctx context.Context, params FeeParams) (domain.Fees, error) {
	inbound, err := e.schedule.InboundAddress(ctx, params.Asset.Chain)
	if err != nil {
		return domain.Fees{}, errors.Wrap(err, "inbound schedule")
	}

	gasAsset := domain.GasAsset(params.Asset.Chain)
	inFee := inbound.GasRate.MulRatio(decimalFromInt(utxoTxVBytes))

	return domain.Fees{
		Asset:  gasAsset,
		In:     inFee.ToProtocol(),
		Out:    inbound.OutboundFee.ToProtocol(),
		Refund: inbound.OutboundFee.ToProtocol(),
	}, nil
}

// ProtocolEstimator prices operations on the protocol chain itself, where
// the network charges a flat native fee for every transaction.
type ProtocolEstimator struct {
	schedule ScheduleSource
}

// NewProtocolEstimator builds an estimator for the protocol chain.
func NewProtocolEstimator(schedule ScheduleSource) *ProtocolEstimator {
	return &ProtocolEstimator{schedule: schedule}
}

// EstimateFees implements Estimator.
func (e *ProtocolEstimator) EstimateFees(ctx context.Context, _ FeeParams) (domain.Fees, error) {
	fee, err := e.schedule.NetworkFee(ctx)
	if err != nil {
		return domain.Fees{}, errors.Wrap(err, "network fee")
	}
	return domain.Fees{
		Asset:  domain.AssetRune,
		In:     fee,
		Out:    fee,
		Refund: fee,
	}, nil
}

// FlatRateEstimator prices chains whose inbound gas the schedule reports
// as a flat per-transaction figure rather than a rate (Cosmos-SDK chains,
// Solana). The schedule's figure already includes headroom.
type FlatRateEstimator struct {
	schedule ScheduleSource
}

// NewFlatRateEstimator builds an estimator for flat-fee chains.
func NewFlatRateEstimator(schedule ScheduleSource) *FlatRateEstimator {
	return &FlatRateEstimator{schedule: schedule}
}

// EstimateFees implements Estimator.
func (e *FlatRateEstimator) EstimateFees(ctx context.Context, params FeeParams) (domain.Fees, error) {
	inbound, err := e.schedule.InboundAddress(ctx, params.Asset.Chain)
	if err != nil {
		return domain.Fees{}, errors.Wrap(err, "inbound schedule")
	}
	return domain.Fees{
		Asset:  domain.GasAsset(params.Asset.Chain),
		In:     inbound.GasRate.ToProtocol(),
		Out:    inbound.OutboundFee.ToProtocol(),
		Refund: inbound.OutboundFee.ToProtocol(),
	}, nil
}
