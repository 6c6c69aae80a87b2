package internal

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/runevault/swapcore/config"
	"github.com/runevault/swapcore/internal/clients"
	"github.com/runevault/swapcore/internal/domain"
	"github.com/runevault/swapcore/internal/services/feeoracle"
	"github.com/runevault/swapcore/internal/services/pricer"
	"github.com/runevault/swapcore/internal/services/quote"
	"github.com/runevault/swapcore/internal/services/submit"
)

// BuildSwapper is the single point of truth for wiring a swap session from
// configuration. broadcaster and balances may be nil, which yields a
// preview session that quotes but never submits.
func BuildSwapper(
	ctx context.Context,
	cfg config.Config,
	broadcaster submit.Broadcaster,
	balances BalanceProvider,
	logger *zap.Logger,
) (*Swapper, func(), error) {
	thornode := clients.NewTHORNode(cfg.ThornodeURL, 0)
	midgard := clients.NewMidgard(cfg.MidgardURL, 0)

	registry := feeoracle.NewRegistry()
	var closers []func()
	for _, name := range cfg.Chains {
		chain := domain.Chain(name)
		estimator, closer, err := buildEstimator(ctx, cfg, chain, thornode)
		if err != nil {
			return nil, nil, err
		}
		if closer != nil {
			closers = append(closers, closer)
		}
		if err := registry.Register(chain, estimator); err != nil {
			return nil, nil, err
		}
	}
	feeSvc := feeoracle.NewService(registry, logger.With(zap.String("service", "feeoracle")))

	var fallback pricer.TickerSource
	if !cfg.Stagenet {
		fallback = pricer.NewBinanceTicker(clients.NewBinanceClient("", ""))
	}
	usd := pricer.NewUSDPricer(cfg.USDPools, fallback, logger.With(zap.String("service", "pricer")))

	// the engine's refresh hook points back at the swapper, which does
	// not exist yet; late-bind it through the closure
	var swapper *Swapper
	refresh := func(ctx context.Context) {
		if swapper != nil {
			swapper.Refresh(ctx)
			swapper.ReloadFees(ctx)
		}
	}

	engine := quote.New(thornode, usd, quote.Config{
		Debounce:        cfg.Debounce,
		AffiliateName:   cfg.AffiliateName,
		AffiliateBps:    cfg.AffiliateBps,
		AffiliateMinUSD: cfg.AffiliateMinUSD,
		OperatorAddress: cfg.OperatorAddress,
		Stagenet:        cfg.Stagenet,
	}, refresh, logger.With(zap.String("service", "quote")))

	sourceDecimals := assetDecimals(cfg.SourceAsset)
	engine.SetSourceAsset(cfg.SourceAsset, sourceDecimals)
	engine.SetTargetAsset(cfg.TargetAsset)
	engine.SetTolerance(cfg.ToleranceBps)
	engine.SetStreaming(domain.StreamingFromSlider(int(cfg.StreamingSlider)))
	engine.SetRecipient(cfg.Recipient)
	engine.SetSlippageProtectionDisabled(
		domain.IsUTXOChain(cfg.SourceAsset.Chain) && cfg.PreviewMode)
	if cfg.Amount.IsPositive() {
		engine.SetAmount(domain.NewAmountFromAsset(cfg.Amount, sourceDecimals))
	}

	journal, err := submit.NewJournal(cfg.JournalDir)
	if err != nil {
		return nil, nil, err
	}
	closers = append(closers, func() {
		if cerr := journal.Close(); cerr != nil {
			logger.Error("failed to close swap journal", zap.Error(cerr))
		}
	})

	if broadcaster == nil {
		broadcaster = previewBroadcaster{}
	}
	machine := submit.NewMachine(broadcaster, journal, engine.MarkStale,
		logger.With(zap.String("service", "submit")))

	swapper = NewSwapper(cfg, engine, feeSvc, machine, usd, midgard, thornode, balances,
		logger.With(zap.String("service", "swapper")))

	closeAll := func() {
		for _, closer := range closers {
			closer()
		}
	}
	return swapper, closeAll, nil
}

// buildEstimator dispatches a chain to its family's fee estimator.
func buildEstimator(ctx context.Context, cfg config.Config, chain domain.Chain, thornode *clients.THORNode) (feeoracle.Estimator, func(), error) {
	switch {
	case domain.IsUTXOChain(chain):
		return feeoracle.NewUTXOEstimator(thornode), nil, nil
	case domain.IsEVMChain(chain):
		rpcURL, ok := cfg.EVMRPC[string(chain)]
		if !ok || rpcURL == "" {
			return nil, nil, errors.Errorf("no evm_rpc endpoint configured for chain %s", chain)
		}
		client, err := clients.NewEVMClient(ctx, rpcURL)
		if err != nil {
			return nil, nil, err
		}
		return feeoracle.NewEVMEstimator(chain, client, thornode), client.Close, nil
	case chain == domain.ChainTHORChain || chain == domain.ChainMaya:
		return feeoracle.NewProtocolEstimator(thornode), nil, nil
	case chain == domain.ChainCosmos || chain == domain.ChainSolana:
		return feeoracle.NewFlatRateEstimator(thornode), nil, nil
	default:
		return nil, nil, errors.Wrapf(feeoracle.ErrUnsupportedChain, "chain %s", chain)
	}
}

func assetDecimals(asset domain.Asset) int32 {
	if asset.Kind == domain.KindNative {
		return domain.NativeDecimals(asset.Chain)
	}
	return domain.ProtocolDecimals
}

// previewBroadcaster refuses every broadcast; wired when no signer is
// configured so the machine fails loudly instead of hanging.
type previewBroadcaster struct{}

func (previewBroadcaster) Broadcast(context.Context, submit.TxDescriptor) (string, error) {
	return "", errors.New("no signer configured: running in preview mode")
}
