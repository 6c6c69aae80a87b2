package internal

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/runevault/swapcore/config"
	"github.com/runevault/swapcore/internal/clients"
	"github.com/runevault/swapcore/internal/domain"
	"github.com/runevault/swapcore/internal/services/depositcalc"
	"github.com/runevault/swapcore/internal/services/feeoracle"
	"github.com/runevault/swapcore/internal/services/pricer"
	"github.com/runevault/swapcore/internal/services/quote"
	"github.com/runevault/swapcore/internal/services/submit"
)

// BalanceProvider supplies current wallet balances per asset. The swapper
// treats it as a read-only snapshot refreshed on demand.
type BalanceProvider interface {
	Balance(ctx context.Context, asset domain.Asset) (domain.Amount, error)
}

// PoolSource supplies the latest pool snapshot.
type PoolSource interface {
	Pools(ctx context.Context) (clients.PoolSnapshot, error)
}

// InboundSource supplies the protocol's inbound-address schedule.
type InboundSource interface {
	InboundAddresses(ctx context.Context) ([]domain.InboundAddress, error)
}

// Swapper is the controller that owns the current quote, fees, pools, and
// submission state for one swap session. All writes to those are
// serialized through its mutex; collaborating services deliver results via
// callbacks that take the same lock.
type Swapper struct {
	cfg    config.Config
	logger *zap.Logger

	engine   *quote.Engine
	fees     *feeoracle.Service
	machine  *submit.Machine
	usd      *pricer.USDPricer
	pools    PoolSource
	inbounds InboundSource
	balances BalanceProvider

	mu           sync.Mutex
	currentFees  domain.RemoteData[domain.Fees]
	lastGoodFees domain.Fees
	hasGoodFees  bool
	poolData     domain.PoolsData
	inbound      map[domain.Chain]domain.InboundAddress
	balance      domain.Amount
	gasBalance   domain.Amount
}

// NewSwapper wires a controller from its collaborators. balances may be
// nil, which puts the session in preview mode.
func NewSwapper(
	cfg config.Config,
	engine *quote.Engine,
	fees *feeoracle.Service,
	machine *submit.Machine,
	usd *pricer.USDPricer,
	pools PoolSource,
	inbounds InboundSource,
	balances BalanceProvider,
	logger *zap.Logger,
) *Swapper {
	return &Swapper{
		cfg:         cfg,
		logger:      logger,
		engine:      engine,
		fees:        fees,
		machine:     machine,
		usd:         usd,
		pools:       pools,
		inbounds:    inbounds,
		balances:    balances,
		currentFees: domain.RemoteInitialOf[domain.Fees](),
		poolData:    domain.PoolsData{},
		inbound:     map[domain.Chain]domain.InboundAddress{},
		balance:     domain.ZeroAmount(domain.ProtocolDecimals),
		gasBalance:  domain.ZeroAmount(domain.ProtocolDecimals),
	}
}

// Engine exposes the quote engine for input edits.
func (s *Swapper) Engine() *quote.Engine { return s.engine }

// Machine exposes the submission state machine.
func (s *Swapper) Machine() *submit.Machine { return s.machine }

// PreviewMode reports whether the session runs without a wallet.
func (s *Swapper) PreviewMode() bool {
	return s.cfg.PreviewMode || s.balances == nil
}

// Run drives the background loops: the quote expiry watch and the
// periodic pool/schedule refresh. Blocks until ctx is done.
func (s *Swapper) Run(ctx context.Context) error {
	go s.engine.Run(ctx)

	s.Refresh(ctx)
	s.ReloadFees(ctx)

	ticker := time.NewTicker(s.cfg.PoolRefreshInterval)
	defer ticker.Stop()

	s.logger.Info("starting swap session",
		zap.String("source", s.cfg.SourceAsset.String()),
		zap.String("target", s.cfg.TargetAsset.String()),
		zap.Bool("preview", s.PreviewMode()))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("context done, stopping swap session")
			return ctx.Err()
		case <-ticker.C:
			s.logger.Debug("pool refresh tick")
			s.Refresh(ctx)
		}
	}
}

// Refresh pulls fresh pools, the inbound schedule, and balances. Partial
// failures keep the previous snapshot for the failing piece.
func (s *Swapper) Refresh(ctx context.Context) {
	if snapshot, err := s.pools.Pools(ctx); err != nil {
		s.logger.Error("pool refresh failed", zap.Error(err))
	} else {
		s.usd.Update(snapshot.Pools, snapshot.USDPrice)
		s.mu.Lock()
		s.poolData = snapshot.Pools
		s.mu.Unlock()
	}

	if schedule, err := s.inbounds.InboundAddresses(ctx); err != nil {
		s.logger.Error("inbound schedule refresh failed", zap.Error(err))
	} else {
		byChain := make(map[domain.Chain]domain.InboundAddress, len(schedule))
		for _, entry := range schedule {
			byChain[entry.Chain] = entry
		}
		s.mu.Lock()
		s.inbound = byChain
		s.mu.Unlock()
	}

	s.refreshBalances(ctx)
	s.updateFeeShortfall()
}

func (s *Swapper) refreshBalances(ctx context.Context) {
	if s.balances == nil {
		return
	}

	balance, err := s.balances.Balance(ctx, s.cfg.SourceAsset)
	if err != nil {
		s.logger.Error("balance refresh failed", zap.Error(err))
		return
	}

	gasBalance := balance
	gasAsset := domain.GasAsset(s.cfg.SourceAsset.Chain)
	if !s.cfg.SourceAsset.Equal(gasAsset) {
		if gasBalance, err = s.balances.Balance(ctx, gasAsset); err != nil {
			s.logger.Error("gas balance refresh failed", zap.Error(err))
			return
		}
	}

	s.mu.Lock()
	s.balance = balance
	s.gasBalance = gasBalance
	s.mu.Unlock()
}

// ReloadFees re-estimates fees for the current inputs. The previous
// successful estimate stays on display while the reload is pending or
// failed; only the most recent reload's result is applied.
func (s *Swapper) ReloadFees(ctx context.Context) {
	params := feeoracle.FeeParams{
		Asset:  s.cfg.SourceAsset,
		Memo:   s.engine.ProvisionalMemo(),
		Amount: s.engine.Amount(),
	}
	s.fees.Reload(ctx, params, func(rd domain.RemoteData[domain.Fees]) {
		s.mu.Lock()
		s.currentFees = rd
		if fees, ok := rd.Value(); ok {
			s.lastGoodFees = fees
			s.hasGoodFees = true
		}
		s.mu.Unlock()
		s.updateFeeShortfall()
	})
}

// Fees returns the estimate to display: the last known good value while a
// refetch is pending or failed, tagged with the live state.
func (s *Swapper) Fees() (domain.Fees, domain.RemoteState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fees, ok := s.currentFees.Value(); ok {
		return fees, domain.RemoteSuccess
	}
	if s.hasGoodFees {
		return s.lastGoodFees, s.currentFees.State()
	}
	return domain.ZeroFees(domain.GasAsset(s.cfg.SourceAsset.Chain), domain.ProtocolDecimals), s.currentFees.State()
}

// updateFeeShortfall recomputes whether the gas balance covers the
// inbound fee and pushes the flag into the engine's error ladder.
func (s *Swapper) updateFeeShortfall() {
	if s.PreviewMode() {
		s.engine.SetFeeShortfall(false)
		return
	}

	s.mu.Lock()
	fees, ok := s.lastGoodFees, s.hasGoodFees
	gasBalance := s.gasBalance
	s.mu.Unlock()

	if !ok {
		return
	}
	inFee := fees.In.ToDecimals(gasBalance.Decimals())
	s.engine.SetFeeShortfall(gasBalance.LessThan(inFee))
}

// MaxSpendable bounds the input amount by balance minus the inbound fee,
// with the source pool's depth as the ceiling in preview mode.
func (s *Swapper) MaxSpendable() domain.Amount {
	fees, _ := s.Fees()

	s.mu.Lock()
	balance := s.balance
	pool, hasPool := s.poolData[s.cfg.SourceAsset.String()]
	s.mu.Unlock()

	preview := s.PreviewMode()
	depth := domain.ZeroAmount(balance.Decimals())
	if hasPool {
		depth = pool.AssetBalance
	}
	if preview && hasPool {
		// without a wallet the pool depth is the realistic upper bound
		balance = pool.AssetBalance
	}
	return quote.MaxSpendable(balance, fees.In, preview, depth)
}

// MinAmountIn returns the smallest input worth sending: 1.5x the worse of
// the success and failure fee paths, priced into the source asset through
// the pools.
func (s *Swapper) MinAmountIn() domain.Amount {
	fees, _ := s.Fees()

	s.mu.Lock()
	pools := s.poolData
	s.mu.Unlock()

	return depositcalc.MinAmountToDeposit(depositcalc.MinAmountParams{
		Fees:          fees,
		Asset:         s.cfg.SourceAsset,
		AssetDecimals: s.engine.Amount().Decimals(),
		Pools:         pools,
	})
}

// Submit assembles the submission request from the current state and
// hands it to the state machine. Preconditions are enforced there.
func (s *Swapper) Submit(ctx context.Context) (domain.SwapTxState, error) {
	if s.PreviewMode() {
		return s.machine.State(), errors.New("preview mode: no wallet connected")
	}

	q, quoteOK := s.engine.AuthoritativeQuote()
	fees, _ := s.Fees()

	s.mu.Lock()
	balance := s.balance
	inbound := s.inbound[s.cfg.SourceAsset.Chain]
	s.mu.Unlock()

	req := submit.Request{
		SourceAsset:  s.cfg.SourceAsset,
		TargetAsset:  s.cfg.TargetAsset,
		Amount:       s.engine.Amount(),
		Recipient:    s.cfg.Recipient,
		Quote:        q,
		QuoteOK:      quoteOK,
		Balance:      balance,
		InFee:        fees.In,
		ToleranceBps: s.cfg.ToleranceBps,
		Streaming:    s.engine.Streaming(),
		Inbound:      inbound,
	}
	return s.machine.Submit(ctx, req)
}

// Status is a read-only snapshot of the session for the dashboard.
type Status struct {
	SourceAsset string `json:"source_asset"`
	TargetAsset string `json:"target_asset"`
	Amount      string `json:"amount"`
	PreviewMode bool   `json:"preview_mode"`

	// Rate is the pool-derived price of one source unit in target units.
	Rate string `json:"rate,omitempty"`

	QuoteState    string `json:"quote_state"`
	QuoteExpired  bool   `json:"quote_expired,omitempty"`
	NetOutput     string `json:"net_output,omitempty"`
	SlipBps       int64  `json:"slip_bps,omitempty"`
	Memo          string `json:"memo,omitempty"`
	QuoteValidFor string `json:"quote_valid_for,omitempty"`

	FeeState    string `json:"fee_state"`
	InFee       string `json:"in_fee,omitempty"`
	OutFee      string `json:"out_fee,omitempty"`
	RefundFee   string `json:"refund_fee,omitempty"`
	MinAmountIn string `json:"min_amount_in,omitempty"`

	TxPhase string `json:"tx_phase"`
	TxHash  string `json:"tx_hash,omitempty"`

	Error string `json:"error,omitempty"`
}

// Status snapshots the session.
func (s *Swapper) Status() Status {
	status := Status{
		SourceAsset: s.cfg.SourceAsset.String(),
		TargetAsset: s.cfg.TargetAsset.String(),
		Amount:      s.engine.Amount().AssetValue().String(),
		PreviewMode: s.PreviewMode(),
	}

	s.mu.Lock()
	sourcePool, hasSource := s.poolData[s.cfg.SourceAsset.String()]
	targetPool, hasTarget := s.poolData[s.cfg.TargetAsset.String()]
	s.mu.Unlock()
	if hasSource && hasTarget {
		if forward, _, ok := quote.Rate(sourcePool, targetPool); ok {
			status.Rate = forward.String()
		}
	}

	rd := s.engine.Quote()
	status.QuoteState = remoteStateLabel(rd.State())
	if q, ok := rd.Value(); ok {
		status.QuoteExpired = s.engine.Expired()
		status.NetOutput = q.NetOutput.AssetValue().String()
		status.SlipBps = q.SlipBps
		status.Memo = q.Memo
		if remaining := q.RemainingValidity(time.Now()); remaining > 0 {
			status.QuoteValidFor = remaining.Truncate(time.Second).String()
		}
	}

	fees, feeState := s.Fees()
	status.FeeState = remoteStateLabel(feeState)
	if feeState == domain.RemoteSuccess || s.hasGood() {
		status.InFee = fees.In.AssetValue().String()
		status.OutFee = fees.Out.AssetValue().String()
		status.RefundFee = fees.Refund.AssetValue().String()
		if min := s.MinAmountIn(); !min.IsZero() {
			status.MinAmountIn = min.AssetValue().String()
		}
	}

	tx := s.machine.State()
	status.TxPhase = tx.Phase.String()
	status.TxHash = tx.TxHash

	if blocking, ok := s.engine.PrimaryError(); ok {
		status.Error = blocking.Message
	}
	return status
}

func (s *Swapper) hasGood() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasGoodFees
}

func remoteStateLabel(state domain.RemoteState) string {
	switch state {
	case domain.RemotePending:
		return "pending"
	case domain.RemoteSuccess:
		return "success"
	case domain.RemoteFailure:
		return "failure"
	default:
		return "initial"
	}
}
