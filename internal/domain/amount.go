package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ProtocolDecimals is the fixed accounting precision of the liquidity
// protocol. Every amount crossing into protocol-facing math is rescaled to
// this precision first.
const ProtocolDecimals int32 = 8

// Amount is a non-negative quantity of base units at a given decimal
// precision. Arithmetic between two amounts requires equal precision;
// rescale explicitly with ToDecimals before mixing precisions.
//
// Precision-narrowing always truncates toward zero. Rounding up could ask a
// user to spend more than they hold.
type Amount struct {
	value    decimal.Decimal // whole base units
	decimals int32
}

// NewAmount builds an amount from a count of base units.
func NewAmount(baseUnits int64, decimals int32) Amount {
	a := Amount{value: decimal.NewFromInt(baseUnits), decimals: decimals}
	return a.clamp()
}

// NewAmountFromBaseUnits builds an amount from an arbitrary-precision count
// of base units, truncating any fractional part.
func NewAmountFromBaseUnits(baseUnits decimal.Decimal, decimals int32) Amount {
	a := Amount{value: baseUnits.Truncate(0), decimals: decimals}
	return a.clamp()
}

// NewAmountFromAsset builds an amount from an asset-denominated value,
// e.g. NewAmountFromAsset(0.0001 BTC, 8) == 10_000 base units.
func NewAmountFromAsset(assetValue decimal.Decimal, decimals int32) Amount {
	units := assetValue.Shift(decimals).Truncate(0)
	return Amount{value: units, decimals: decimals}.clamp()
}

// ZeroAmount returns a zero amount at the given precision.
func ZeroAmount(decimals int32) Amount {
	return Amount{value: decimal.Zero, decimals: decimals}
}

func (a Amount) clamp() Amount {
	if a.value.IsNegative() {
		a.value = decimal.Zero
	}
	return a
}

// BaseUnits returns the base-unit magnitude.
func (a Amount) BaseUnits() decimal.Decimal { return a.value }

// Decimals returns the decimal precision.
func (a Amount) Decimals() int32 { return a.decimals }

// AssetValue returns the amount denominated in whole asset units.
func (a Amount) AssetValue() decimal.Decimal { return a.value.Shift(-a.decimals) }

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool { return a.value.IsZero() }

// ToDecimals rescales to the target precision, truncating when precision
// narrows. The lost sub-precision remainder is an accepted lossy edge for
// chains whose native precision exceeds the protocol's.
func (a Amount) ToDecimals(target int32) Amount {
	if target == a.decimals {
		return a
	}
	return Amount{
		value:    a.value.Shift(target - a.decimals).Truncate(0),
		decimals: target,
	}
}

// ToProtocol rescales to the protocol's 1e8 accounting precision.
func (a Amount) ToProtocol() Amount { return a.ToDecimals(ProtocolDecimals) }

// Max1e8 clamps precision to at most the protocol precision, leaving coarser
// precisions untouched.
func (a Amount) Max1e8() Amount {
	if a.decimals <= ProtocolDecimals {
		return a
	}
	return a.ToDecimals(ProtocolDecimals)
}

func (a Amount) assertSameDecimals(b Amount, op string) {
	if a.decimals != b.decimals {
		panic(fmt.Sprintf("amount %s: precision mismatch %d vs %d", op, a.decimals, b.decimals))
	}
}

// Add returns a+b. Panics on precision mismatch: mixing precisions silently
// is a programming error.
func (a Amount) Add(b Amount) Amount {
	a.assertSameDecimals(b, "add")
	return Amount{value: a.value.Add(b.value), decimals: a.decimals}
}

// SubClamped returns a-b clamped at zero. A balance smaller than a fee must
// read as "nothing spendable", never as a negative suggestion.
func (a Amount) SubClamped(b Amount) Amount {
	a.assertSameDecimals(b, "sub")
	return Amount{value: a.value.Sub(b.value), decimals: a.decimals}.clamp()
}

// MulRatio multiplies by a dimensionless ratio, truncating to whole base
// units.
func (a Amount) MulRatio(r decimal.Decimal) Amount {
	return Amount{value: a.value.Mul(r).Truncate(0), decimals: a.decimals}.clamp()
}

// Min returns the smaller of two equal-precision amounts.
func (a Amount) Min(b Amount) Amount {
	a.assertSameDecimals(b, "min")
	if a.value.LessThanOrEqual(b.value) {
		return a
	}
	return b
}

// GreaterThan reports a > b.
func (a Amount) GreaterThan(b Amount) bool {
	a.assertSameDecimals(b, "cmp")
	return a.value.GreaterThan(b.value)
}

// LessThan reports a < b.
func (a Amount) LessThan(b Amount) bool {
	a.assertSameDecimals(b, "cmp")
	return a.value.LessThan(b.value)
}

// Equal reports a == b at equal precision.
func (a Amount) Equal(b Amount) bool {
	return a.decimals == b.decimals && a.value.Equal(b.value)
}

// String renders the asset-denominated value, e.g. "0.0001 (8 dp)".
func (a Amount) String() string {
	return fmt.Sprintf("%s (%d dp)", a.AssetValue().String(), a.decimals)
}
