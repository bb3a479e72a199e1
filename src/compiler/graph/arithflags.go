package graph

import "tlog.app/go/tlog/tlwire"

// ArithFlags is the small bitset over a node's arithmetic demand: how its
// consumers will use the value. Like Prediction, it only ever grows
// (spec.md §3, "Invariants").
type ArithFlags uint8

const (
	// UsedAsNumber means some consumer treats the result as a number (as
	// opposed to, say, immediately truncating it to int32 and discarding
	// the original value).
	UsedAsNumber ArithFlags = 1 << iota

	// NeedsNegZero means a consumer can distinguish -0 from +0, so
	// transformations that collapse the distinction are unsound.
	NeedsNegZero

	arithFlagCount
)

// UsedAsMask is the set of bits flag propagation ever sets; incoming masks
// are filtered to this before being joined, so no non-flag information
// leaks across the transfer functions (spec.md §4.1).
const UsedAsMask = UsedAsNumber | NeedsNegZero

func (f ArithFlags) Merge(g ArithFlags) ArithFlags { return f | g }

func (f ArithFlags) Has(bit ArithFlags) bool { return f&bit != 0 }

func (f ArithFlags) String() string {
	switch f & UsedAsMask {
	case 0:
		return "none"
	case UsedAsNumber:
		return "UsedAsNumber"
	case NeedsNegZero:
		return "NeedsNegZero"
	case UsedAsNumber | NeedsNegZero:
		return "UsedAsNumber|NeedsNegZero"
	}
	return "?"
}

func (f ArithFlags) TlogAppend(b []byte) []byte {
	var e tlwire.LowEncoder
	return e.AppendString(b, f.String())
}
