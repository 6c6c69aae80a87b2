package submit

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/runevault/swapcore/internal/domain"
)

type fakeBroadcaster struct {
	txHash string
	err    error
	calls  []TxDescriptor
}

func (f *fakeBroadcaster) Broadcast(_ context.Context, tx TxDescriptor) (string, error) {
	f.calls = append(f.calls, tx)
	return f.txHash, f.err
}

func validRequest() Request {
	return Request{
		SourceAsset: domain.Asset{Chain: domain.ChainBitcoin, Symbol: "BTC", Ticker: "BTC"},
		TargetAsset: domain.Asset{Chain: domain.ChainEthereum, Symbol: "ETH", Ticker: "ETH"},
		Amount:      domain.NewAmount(1_000_000, 8),
		Recipient:   "0xdest",
		Quote: domain.Quote{
			Memo:    "=:ETH.ETH:0xdest:93000000/0/0",
			SlipBps: 80,
		},
		QuoteOK:      true,
		Balance:      domain.NewAmount(2_000_000, 8),
		InFee:        domain.NewAmount(10_000, 8),
		ToleranceBps: 100,
		Inbound: domain.InboundAddress{
			Chain:   domain.ChainBitcoin,
			Address: "bc1qvault",
		},
	}
}

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	journal, err := NewJournal(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, journal.Close())
	})
	return journal
}

func TestSubmitSuccess(t *testing.T) {
	broadcaster := &fakeBroadcaster{txHash: "ABCDEF"}
	journal := newTestJournal(t)
	m := NewMachine(broadcaster, journal, nil, zap.NewNop())

	state, err := m.Submit(context.Background(), validRequest())
	require.NoError(t, err)
	require.Equal(t, domain.SwapTxSuccess, state.Phase)
	require.Equal(t, "ABCDEF", state.TxHash)

	require.Len(t, broadcaster.calls, 1)
	require.Equal(t, "bc1qvault", broadcaster.calls[0].Recipient,
		"funds go to the inbound vault, not the user's destination")
	require.Equal(t, "=:ETH.ETH:0xdest:93000000/0/0", broadcaster.calls[0].Memo)

	attempts, err := journal.Attempts()
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	require.Equal(t, attemptStatusDone, attempts[0].Status)
	require.Equal(t, "ABCDEF", attempts[0].TxHash)
}

func TestSubmitBroadcastFailureIsTerminal(t *testing.T) {
	broadcaster := &fakeBroadcaster{err: errors.New("device rejected")}
	journal := newTestJournal(t)
	m := NewMachine(broadcaster, journal, nil, zap.NewNop())

	state, err := m.Submit(context.Background(), validRequest())
	require.Error(t, err)
	require.Equal(t, domain.SwapTxError, state.Phase)

	// no retry happens on its own; a second submit needs a reset first
	_, err = m.Submit(context.Background(), validRequest())
	require.ErrorIs(t, err, ErrBusy)

	attempts, jerr := journal.Attempts()
	require.NoError(t, jerr)
	require.Len(t, attempts, 1)
	require.Equal(t, attemptStatusFailed, attempts[0].Status)
	require.Contains(t, attempts[0].Error, "device rejected")
}

func TestResetDismissesTerminalState(t *testing.T) {
	broadcaster := &fakeBroadcaster{txHash: "AA"}
	resetCalled := false
	m := NewMachine(broadcaster, nil, func() { resetCalled = true }, zap.NewNop())

	_, err := m.Submit(context.Background(), validRequest())
	require.NoError(t, err)
	require.True(t, m.State().Terminal())

	m.Reset()
	require.Equal(t, domain.SwapTxInitial, m.State().Phase)
	require.True(t, resetCalled, "reset must hand control back to the controller")

	// reset from initial is a no-op and does not fire the callback twice
	resetCalled = false
	m.Reset()
	require.False(t, resetCalled)
}

func TestSubmitPreconditions(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Request)
		wantErr error
	}{
		{
			name:    "missing recipient",
			mutate:  func(r *Request) { r.Recipient = "" },
			wantErr: ErrNoRecipient,
		},
		{
			name:    "no quote",
			mutate:  func(r *Request) { r.QuoteOK = false },
			wantErr: ErrQuoteNotReady,
		},
		{
			name:    "estimate-only quote",
			mutate:  func(r *Request) { r.Quote.EstimateOnly = true },
			wantErr: ErrQuoteNotReady,
		},
		{
			name:    "quote carries validation errors",
			mutate:  func(r *Request) { r.Quote.Errors = []string{"swap too small"} },
			wantErr: ErrQuoteNotReady,
		},
		{
			name:    "halted chain",
			mutate:  func(r *Request) { r.Inbound.Halted = true },
			wantErr: ErrChainHalted,
		},
		{
			name:    "missing inbound address",
			mutate:  func(r *Request) { r.Inbound.Address = "" },
			wantErr: ErrNoInboundAddress,
		},
		{
			name: "balance does not cover amount plus fee",
			mutate: func(r *Request) {
				r.Balance = domain.NewAmount(1_005_000, 8)
			},
			wantErr: ErrInsufficientBalance,
		},
		{
			name: "slippage above tolerance",
			mutate: func(r *Request) {
				r.Quote.SlipBps = 250
			},
			wantErr: ErrSlippageExceeded,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			broadcaster := &fakeBroadcaster{txHash: "AA"}
			m := NewMachine(broadcaster, nil, nil, zap.NewNop())

			req := validRequest()
			tc.mutate(&req)

			state, err := m.Submit(context.Background(), req)
			require.ErrorIs(t, err, tc.wantErr)
			require.Equal(t, domain.SwapTxInitial, state.Phase,
				"a failed precondition must not leave initial")
			require.Empty(t, broadcaster.calls)
		})
	}
}

func TestStreamingBypassesToleranceCheck(t *testing.T) {
	broadcaster := &fakeBroadcaster{txHash: "AA"}
	m := NewMachine(broadcaster, nil, nil, zap.NewNop())

	req := validRequest()
	req.Quote.SlipBps = 900
	req.Streaming = domain.StreamingParams{Interval: 2}

	state, err := m.Submit(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, domain.SwapTxSuccess, state.Phase)
}

func TestRouterOverridesVaultAddress(t *testing.T) {
	broadcaster := &fakeBroadcaster{txHash: "AA"}
	m := NewMachine(broadcaster, nil, nil, zap.NewNop())

	req := validRequest()
	req.Inbound.Address = "0xvault"
	req.Inbound.Router = "0xrouter"

	_, err := m.Submit(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "0xrouter", broadcaster.calls[0].Recipient)
	require.Equal(t, "0xrouter", broadcaster.calls[0].Router)
}

func TestJournalReplayKeepsLatestRecord(t *testing.T) {
	journal := newTestJournal(t)

	attempt, err := journal.Open("BTC.BTC", "ETH.ETH",
		domain.NewAmount(100, 8).BaseUnits(), "=:ETH.ETH:0xd", "0xd", "bc1qvault")
	require.NoError(t, err)
	require.NoError(t, journal.MarkDone(attempt, "HASH"))

	other, err := journal.Open("BTC.BTC", "ETH.ETH",
		domain.NewAmount(200, 8).BaseUnits(), "=:ETH.ETH:0xd", "0xd", "bc1qvault")
	require.NoError(t, err)
	_ = other // left pending, as after a crash mid-broadcast

	attempts, err := journal.Attempts()
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	require.Equal(t, attemptStatusDone, attempts[0].Status)
	require.Equal(t, attemptStatusPending, attempts[1].Status)
}
