package graph

import "tlog.app/go/tlog/tlwire"

// Prediction is a lattice element over dynamic-type categories. Bottom is
// the zero value (None); every other value is a union of the atom bits
// below, joined monotonically by Merge. It never shrinks once set
// (spec.md §3, "Invariants").
type Prediction uint32

const (
	PredNone Prediction = 0

	PredInt32 Prediction = 1 << iota
	PredDouble
	PredBoolean
	PredString
	PredArray
	PredFinalObject
	PredObjectOther
	PredFunction
	PredCellOther
	PredInt8Array
	PredInt32Array
	PredFloat64Array
	PredOther
)

// PredNumber is the union of the two numeric representations; several
// transfer rules test "is this definitely a number" without caring which.
const PredNumber = PredInt32 | PredDouble

// PredObject is the union of every heap-object-shaped category.
const PredObject = PredArray | PredFinalObject | PredObjectOther | PredFunction |
	PredCellOther | PredInt8Array | PredInt32Array | PredFloat64Array

// Merge returns the join of p and q (bitwise union — the lattice is a
// simple powerset, so join is just OR).
func (p Prediction) Merge(q Prediction) Prediction { return p | q }

// Includes reports whether every category in q is also in p.
func (p Prediction) Includes(q Prediction) bool { return p&q == q }

// IsSet reports whether p has any prediction at all.
func (p Prediction) IsSet() bool { return p != PredNone }

// IsPure reports whether p is exactly q (no other category mixed in).
func (p Prediction) IsPure(q Prediction) bool { return p == q }

func (p Prediction) IsNumeric() bool    { return p != PredNone && p&^PredNumber == 0 }
func (p Prediction) IsDefinitelyNot(q Prediction) bool {
	return p != PredNone && p&q == 0
}

func (p Prediction) String() string {
	if p == PredNone {
		return "None"
	}
	s := ""
	for bit, name := range predictionNames {
		if p&bit != 0 {
			if s != "" {
				s += "|"
			}
			s += name
		}
	}
	return s
}

var predictionNames = map[Prediction]string{
	PredInt32: "Int32", PredDouble: "Double", PredBoolean: "Boolean",
	PredString: "String", PredArray: "Array", PredFinalObject: "FinalObject",
	PredObjectOther: "ObjectOther", PredFunction: "Function",
	PredCellOther: "CellOther", PredInt8Array: "Int8Array",
	PredInt32Array: "Int32Array", PredFloat64Array: "Float64Array",
	PredOther: "Other",
}

func (p Prediction) TlogAppend(b []byte) []byte {
	var e tlwire.LowEncoder
	return e.AppendString(b, p.String())
}

var predictionByName map[string]Prediction

func init() {
	predictionByName = make(map[string]Prediction, len(predictionNames))
	for bit, name := range predictionNames {
		predictionByName[name] = bit
	}
}

// ParsePrediction looks up a single atom by its String() spelling, for
// the text graph loader in cmd/dfgprop.
func ParsePrediction(name string) (Prediction, bool) {
	p, ok := predictionByName[name]
	return p, ok
}
