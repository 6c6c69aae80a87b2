package domain

// SwapTxPhase tags the lifecycle of one submission attempt.
type SwapTxPhase int

const (
	// SwapTxInitial nothing submitted.
	SwapTxInitial SwapTxPhase = iota
	// SwapTxPending signing/broadcast in progress.
	SwapTxPending
	// SwapTxSuccess broadcast confirmed with a hash.
	SwapTxSuccess
	// SwapTxError broadcast failed; terminal until explicit reset.
	SwapTxError
)

// String returns the string representation of the phase.
func (p SwapTxPhase) String() string {
	switch p {
	case SwapTxInitial:
		return "initial"
	case SwapTxPending:
		return "pending"
	case SwapTxSuccess:
		return "success"
	case SwapTxError:
		return "error"
	default:
		return "unknown"
	}
}

// SwapTxState is the tagged state of a single submission attempt. Owned
// exclusively by the submission state machine.
type SwapTxState struct {
	Phase  SwapTxPhase
	TxHash string
	Err    error
}

// Terminal reports whether the state requires an explicit reset before a
// new submission.
func (s SwapTxState) Terminal() bool {
	return s.Phase == SwapTxSuccess || s.Phase == SwapTxError
}
