// Package submit drives a swap through broadcast: initial -> pending ->
// success|error, terminal until an explicit reset. The machine performs no
// retries; a failed attempt needs a user-initiated resubmission.
package submit

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/runevault/swapcore/internal/domain"
)

var (
	ErrNoRecipient         = errors.New("recipient address is not resolved")
	ErrQuoteNotReady       = errors.New("no fresh authoritative quote")
	ErrInsufficientBalance = errors.New("balance does not cover amount plus inbound fee")
	ErrSlippageExceeded    = errors.New("expected slippage exceeds tolerance")
	ErrChainHalted         = errors.New("trading is halted on the source chain")
	ErrNoInboundAddress    = errors.New("no inbound address for the source chain")
	ErrBusy                = errors.New("a submission is already in flight")
)

// TxDescriptor is the fully-resolved transaction handed to the broadcast
// collaborator.
type TxDescriptor struct {
	Asset     domain.Asset
	Amount    domain.Amount
	Recipient string
	Memo      string
	// Router is set for EVM chains that deposit through a router contract.
	Router string
}

// Broadcaster signs and broadcasts a transaction, returning its hash.
// Hardware-device interaction happens behind this interface.
type Broadcaster interface {
	Broadcast(ctx context.Context, tx TxDescriptor) (string, error)
}

// Request carries everything the preconditions inspect. The controller
// assembles it from the quote engine, the balance provider, and the
// inbound schedule at the moment the user submits.
type Request struct {
	SourceAsset domain.Asset
	TargetAsset domain.Asset
	Amount      domain.Amount
	Recipient   string

	Quote   domain.Quote
	QuoteOK bool

	Balance domain.Amount
	InFee   domain.Amount

	ToleranceBps int64
	Streaming    domain.StreamingParams

	Inbound domain.InboundAddress
}

// Machine owns the submission state. One submission at a time.
type Machine struct {
	broadcaster Broadcaster
	journal     *Journal
	logger      *zap.Logger
	// onReset runs after a terminal state is dismissed, so the owning
	// controller can zero the amount and mark the quote stale.
	onReset func()

	mu    sync.Mutex
	state domain.SwapTxState
}

// NewMachine builds a submission machine. journal and onReset may be nil.
func NewMachine(broadcaster Broadcaster, journal *Journal, onReset func(), logger *zap.Logger) *Machine {
	return &Machine{
		broadcaster: broadcaster,
		journal:     journal,
		onReset:     onReset,
		logger:      logger,
		state:       domain.SwapTxState{Phase: domain.SwapTxInitial},
	}
}

// State returns the current submission state.
func (m *Machine) State() domain.SwapTxState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Submit checks the preconditions, journals the attempt, and blocks on the
// broadcast collaborator. The returned state is terminal; the error is the
// precondition or broadcast failure, if any.
func (m *Machine) Submit(ctx context.Context, req Request) (domain.SwapTxState, error) {
	if err := validate(req); err != nil {
		return m.State(), err
	}

	m.mu.Lock()
	if m.state.Phase != domain.SwapTxInitial {
		m.mu.Unlock()
		return m.state, ErrBusy
	}
	m.state = domain.SwapTxState{Phase: domain.SwapTxPending}
	m.mu.Unlock()

	recipient := req.Inbound.Address
	if req.Inbound.Router != "" {
		recipient = req.Inbound.Router
	}

	var attempt *Attempt
	if m.journal != nil {
		var err error
		attempt, err = m.journal.Open(
			req.SourceAsset.String(), req.TargetAsset.String(),
			req.Amount.BaseUnits(), req.Quote.Memo, req.Recipient, recipient)
		if err != nil {
			// journaling failure must not strand the machine in pending
			m.setState(domain.SwapTxState{Phase: domain.SwapTxError, Err: err})
			return m.State(), errors.Wrap(err, "journal swap attempt")
		}
	}

	m.logger.Info("broadcasting swap",
		zap.String("from", req.SourceAsset.String()),
		zap.String("to", req.TargetAsset.String()),
		zap.String("memo", req.Quote.Memo))

	txHash, err := m.broadcaster.Broadcast(ctx, TxDescriptor{
		Asset:     req.SourceAsset,
		Amount:    req.Amount,
		Recipient: recipient,
		Memo:      req.Quote.Memo,
		Router:    req.Inbound.Router,
	})
	if err != nil {
		err = errors.Wrap(err, "broadcast swap")
		if m.journal != nil {
			if jerr := m.journal.MarkFailed(attempt, err); jerr != nil {
				m.logger.Error("failed to journal attempt outcome", zap.Error(jerr))
			}
		}
		m.setState(domain.SwapTxState{Phase: domain.SwapTxError, Err: err})
		m.logger.Error("swap broadcast failed", zap.Error(err))
		return m.State(), err
	}

	if m.journal != nil {
		if jerr := m.journal.MarkDone(attempt, txHash); jerr != nil {
			m.logger.Error("failed to journal attempt outcome", zap.Error(jerr))
		}
	}
	m.setState(domain.SwapTxState{Phase: domain.SwapTxSuccess, TxHash: txHash})
	m.logger.Info("swap broadcast", zap.String("tx_hash", txHash))
	return m.State(), nil
}

// Attempts replays the journaled attempt history. Returns nil when the
// machine runs without a journal.
func (m *Machine) Attempts() ([]Attempt, error) {
	if m.journal == nil {
		return nil, nil
	}
	return m.journal.Attempts()
}

// Reset dismisses a terminal state. A no-op while initial or pending.
func (m *Machine) Reset() {
	m.mu.Lock()
	if !m.state.Terminal() {
		m.mu.Unlock()
		return
	}
	m.state = domain.SwapTxState{Phase: domain.SwapTxInitial}
	onReset := m.onReset
	m.mu.Unlock()

	if onReset != nil {
		onReset()
	}
}

func (m *Machine) setState(s domain.SwapTxState) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// validate enforces the entry conditions for pending.
func validate(req Request) error {
	if req.Recipient == "" {
		return ErrNoRecipient
	}
	if !req.QuoteOK || req.Quote.EstimateOnly || len(req.Quote.Errors) > 0 {
		return ErrQuoteNotReady
	}
	if req.Inbound.Address == "" {
		return ErrNoInboundAddress
	}
	if req.Inbound.Halted {
		return ErrChainHalted
	}

	needed := req.Amount.Add(req.InFee.ToDecimals(req.Amount.Decimals()))
	if req.Balance.ToDecimals(req.Amount.Decimals()).LessThan(needed) {
		return ErrInsufficientBalance
	}

	// the network enforces its own per-sub-swap tolerance while streaming
	if !req.Streaming.IsStreaming() && req.Quote.SlipBps > req.ToleranceBps {
		return ErrSlippageExceeded
	}
	return nil
}
