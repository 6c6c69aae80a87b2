package domain

// InboundAddress is one entry of the protocol's inbound-address schedule:
// where deposits for a chain must be sent and what the network currently
// charges for moving funds on it.
type InboundAddress struct {
	Chain   Chain
	Address string
	// Router EVM router contract, empty for non-router chains.
	Router string
	// GasRate network-reported gas rate in the chain's native rate unit
	// (sat/vB for UTXO chains, gwei for EVM chains).
	GasRate Amount
	// OutboundFee fee the network charges for an outbound transfer on this
	// chain, in the chain's gas asset at protocol precision.
	OutboundFee Amount
	// DustThreshold smallest inbound amount the network will observe.
	DustThreshold Amount
	// Halted true while the network refuses trading on this chain. A
	// halted chain blocks submission.
	Halted bool
}
