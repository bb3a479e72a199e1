package graph

import "math"

// ValueKind tags the payload of a JSConstant/WeakJSConstant node, standing
// in for the host runtime's boxed dynamic value (an external collaborator
// per spec.md §6 — only the sliver needed for constant folding and
// negative-zero detection is modeled here).
type ValueKind int

const (
	ValueOther ValueKind = iota
	ValueInt32
	ValueDouble
	ValueBoolean
	ValueString
)

// Value is the constant-folding view of a dynamic value.
type Value struct {
	Kind   ValueKind
	Int32  int32
	Double float64
	Bool   bool
	Str    string
}

func Int32Value(v int32) Value  { return Value{Kind: ValueInt32, Int32: v} }
func DoubleValue(v float64) Value { return Value{Kind: ValueDouble, Double: v} }
func BoolValue(v bool) Value    { return Value{Kind: ValueBoolean, Bool: v} }
func StringValue(v string) Value { return Value{Kind: ValueString, Str: v} }

// IsNumber reports whether the value is int32 or double.
func (v Value) IsNumber() bool { return v.Kind == ValueInt32 || v.Kind == ValueDouble }

// IsNegativeZero reports whether v is the double -0, the one numeric
// constant whose identity flag propagation must account for.
func (v Value) IsNegativeZero() bool {
	return v.Kind == ValueDouble && v.Double == 0 && math.Signbit(v.Double)
}

// AsFloat64 returns the value as a float64 when numeric; ok is false
// otherwise.
func (v Value) AsFloat64() (f float64, ok bool) {
	switch v.Kind {
	case ValueInt32:
		return float64(v.Int32), true
	case ValueDouble:
		return v.Double, true
	default:
		return 0, false
	}
}

// Prediction returns the atomic Prediction a literal of this value folds
// to, used by the JSConstant/WeakJSConstant transfer rule (spec.md §4.2).
func (v Value) Prediction() Prediction {
	switch v.Kind {
	case ValueInt32:
		return PredInt32
	case ValueDouble:
		return PredDouble
	case ValueBoolean:
		return PredBoolean
	case ValueString:
		return PredString
	default:
		return PredOther
	}
}
