package propagate

import (
	"context"

	"tlog.app/go/tlog"

	"github.com/zihong/dfgprop/src/compiler/collab"
	"github.com/zihong/dfgprop/src/compiler/graph"
)

// propagatePredictions implements spec.md §4.2: an inner forward-then-
// backward fixpoint over the per-opcode transfer table, nested inside an
// outer loop interleaved with double voting (doublevote.go) until a full
// round induces no change at all.
func propagatePredictions(ctx context.Context, g *graph.Graph, cb *collab.CodeBlock, gd *collab.GlobalData, opt Options) (err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "propagate: predictions")
	defer tr.Finish("err", &err)

	maxRounds := opt.maxFixpointRounds()

	for outer := 0; outer < maxRounds; outer++ {
		_, err := runToFixpoint(maxRounds, func() (bool, error) {
			fwd, ferr := predictSweep(g, cb, gd, true)
			if ferr != nil {
				return false, ferr
			}
			back, berr := predictSweep(g, cb, gd, false)
			if berr != nil {
				return false, berr
			}
			return fwd || back, nil
		})
		if err != nil {
			return err
		}

		ballotsChanged := voteDouble(g)

		if !ballotsChanged {
			if tr.If("dump_predictions") {
				dumpPredictions(tr, g)
			}
			return nil
		}
	}

	return errFixpointDidNotConverge
}

func dumpPredictions(tr tlog.Span, g *graph.Graph) {
	for i, n := range g.Nodes {
		tr.Printw("node prediction", "i", i, "op", n.Op.String(), "prediction", n.Prediction.String())
	}
}

// predictSweep applies the per-opcode transfer function to every node,
// ascending if forward else descending, reporting whether any
// prediction widened.
func predictSweep(g *graph.Graph, cb *collab.CodeBlock, gd *collab.GlobalData, forward bool) (bool, error) {
	changed := false
	n := len(g.Nodes)
	for k := 0; k < n; k++ {
		i := graph.NodeIndex(k)
		if !forward {
			i = graph.NodeIndex(n - 1 - k)
		}
		c, err := predictTransfer(g, cb, gd, i)
		if err != nil {
			return false, err
		}
		if c {
			changed = true
		}
	}
	return changed, nil
}

// mayIgnoreNegativeZero reports whether node i's result can be
// represented as int32 without losing information its consumers need —
// i.e. nothing downstream needs to distinguish -0 from +0.
func mayIgnoreNegativeZero(g *graph.Graph, i graph.NodeIndex) bool {
	return !g.At(i).ArithFlags.Has(graph.NeedsNegZero)
}

func childPrediction(g *graph.Graph, i graph.NodeIndex) graph.Prediction {
	if i == graph.NoNode {
		return graph.PredNone
	}
	return g.At(i).Prediction
}

// predictTransfer computes node i's contribution to the fixpoint: it
// merges a new prediction into i (and, for SetLocal, into the shared
// variable-access descriptor) and reports whether anything changed.
// Condensed per-opcode table from spec.md §4.2, supplemented per
// SPEC_FULL.md with the opcodes the condensed table elides.
func predictTransfer(g *graph.Graph, cb *collab.CodeBlock, gd *collab.GlobalData, i graph.NodeIndex) (bool, error) {
	node := g.At(i)

	merge := func(p graph.Prediction) bool { return g.MergePrediction(i, p) }

	heapOrElse := func(fallback graph.Prediction) graph.Prediction {
		if hint, ok := cb.HeapHint(int(i)); ok {
			return hint
		}
		if node.HeapType.IsSet() {
			return node.HeapType
		}
		return fallback
	}

	switch node.Op {
	case graph.OpJSConstant, graph.OpWeakJSConstant:
		return merge(node.Constant.Prediction()), nil

	case graph.OpGetLocal:
		return merge(g.VarAccess.Prediction(node.VarAccessIndex)), nil

	case graph.OpSetLocal:
		return g.VarAccess.MergePrediction(node.VarAccessIndex, childPrediction(g, node.Child[0])), nil

	case graph.OpBitAnd, graph.OpBitOr, graph.OpBitXor,
		graph.OpBitLShift, graph.OpBitRShift, graph.OpBitURShift,
		graph.OpValueToInt32, graph.OpDoubleAsInt32:
		return merge(graph.PredInt32), nil

	case graph.OpStringCharCodeAt:
		return merge(graph.PredInt32), nil

	case graph.OpInt32ToDouble, graph.OpArithSqrt:
		return merge(graph.PredDouble), nil

	case graph.OpUInt32ToNumber:
		if mayIgnoreNegativeZero(g, i) {
			return merge(graph.PredInt32), nil
		}
		return merge(graph.PredNumber), nil

	case graph.OpArithMod, graph.OpArithMul, graph.OpArithMin, graph.OpArithMax, graph.OpArithDiv:
		l, r := childPrediction(g, node.Child[0]), childPrediction(g, node.Child[1])
		if isPureInt32(l) && isPureInt32(r) && mayIgnoreNegativeZero(g, i) {
			return merge(graph.PredInt32), nil
		}
		return merge(graph.PredDouble), nil

	case graph.OpArithAdd, graph.OpArithSub:
		if shouldSpeculateInt32Arith(g, i) {
			return merge(graph.PredInt32), nil
		}
		return merge(graph.PredDouble), nil

	case graph.OpValueAdd:
		l, r := childPrediction(g, node.Child[0]), childPrediction(g, node.Child[1])
		switch {
		case l.IsNumeric() && r.IsNumeric():
			if shouldSpeculateInt32Arith(g, i) {
				return merge(graph.PredInt32), nil
			}
			return merge(graph.PredDouble), nil
		case definitelyNonNumeric(l) || definitelyNonNumeric(r):
			return merge(graph.PredString), nil
		default:
			return merge(graph.PredString | graph.PredInt32 | graph.PredDouble), nil
		}

	case graph.OpArithAbs, graph.OpArithNegate, graph.OpArithRound, graph.OpArithFloor, graph.OpArithCeil:
		child := childPrediction(g, node.Child[0])
		if isPureInt32(child) && mayIgnoreNegativeZero(g, i) {
			return merge(child), nil
		}
		return merge(graph.PredDouble), nil

	case graph.OpCompareEq, graph.OpCompareLess, graph.OpCompareLessEq,
		graph.OpCompareGreater, graph.OpCompareGreaterEq,
		graph.OpLogicalNot, graph.OpInstanceOf:
		return merge(graph.PredBoolean), nil

	case graph.OpGetById:
		if hint, ok := cb.HeapHint(int(i)); ok {
			return merge(hint), nil
		}
		base := childPrediction(g, node.Child[0])
		if cb.IdentifierIsLength(gd, node.Identifier) && base.IsSet() &&
			(graph.PredArray | graph.PredString | graph.PredInt8Array | graph.PredInt32Array | graph.PredFloat64Array).Includes(base) {
			return merge(graph.PredInt32), nil
		}
		return false, nil

	case graph.OpGetByVal:
		base := childPrediction(g, node.Child[0])
		if base.IsSet() && (graph.PredInt8Array | graph.PredInt32Array | graph.PredFloat64Array).Includes(base) {
			return merge(graph.PredDouble), nil
		}
		return merge(heapOrElse(graph.PredNone)), nil

	case graph.OpGetPropertyStorage, graph.OpGetIndexedPropertyStorage:
		return merge(graph.PredOther), nil

	case graph.OpConvertThis:
		child := childPrediction(g, node.Child[0])
		nonObject := child &^ graph.PredObject
		if nonObject != graph.PredNone {
			return merge((child & graph.PredObject) | graph.PredObjectOther), nil
		}
		return merge(child), nil

	case graph.OpNewObject, graph.OpCreateThis:
		return merge(graph.PredFinalObject), nil

	case graph.OpNewArray, graph.OpNewArrayBuffer:
		return merge(graph.PredArray), nil

	case graph.OpNewRegexp:
		return merge(graph.PredObjectOther), nil

	case graph.OpNewTypedArray:
		return merge(heapOrElse(graph.PredInt32Array)), nil

	case graph.OpStringCharAt, graph.OpStrCat:
		return merge(graph.PredString), nil

	case graph.OpToPrimitive:
		child := childPrediction(g, node.Child[0])
		switch {
		case child.IsSet() && child&^graph.PredObject == 0:
			return merge(graph.PredString), nil
		case child&graph.PredObject != 0:
			return merge((child &^ graph.PredObject) | graph.PredString), nil
		default:
			return merge(child), nil
		}

	case graph.OpGetScopeChain:
		return merge(graph.PredCellOther), nil

	case graph.OpGetCallee:
		return merge(graph.PredFunction), nil

	case graph.OpCall, graph.OpResolve, graph.OpGetScopedVar,
		graph.OpGetByOffset, graph.OpArrayPush, graph.OpArrayPop, graph.OpGetGlobalVar:
		return merge(heapOrElse(graph.PredNone)), nil

	case graph.OpCheckArray, graph.OpArrayifyToStructure:
		return merge(childPrediction(g, node.Child[0])), nil

	case graph.OpGetArrayLength, graph.OpGetStringLength, graph.OpGetInt8ArrayLength,
		graph.OpGetInt32ArrayLength, graph.OpGetFloat64ArrayLength:
		return false, errLengthOpcodeBeforeFixup

	default:
		return false, nil
	}
}

// isPureInt32 reports whether p is set and consists only of the Int32
// category — the "integer-compatible" test in spec.md §4.2's table.
func isPureInt32(p graph.Prediction) bool { return p == graph.PredInt32 }

func definitelyNonNumeric(p graph.Prediction) bool {
	return p.IsSet() && p&graph.PredNumber == 0
}

// shouldSpeculateInt32Arith implements the "addition-should-speculate-
// integer heuristic" spec.md §4.2 names but leaves condensed: both
// operands numeric, no overflow evidence (both int32, not merely
// numeric), and the result isn't used somewhere that needs -0.
func shouldSpeculateInt32Arith(g *graph.Graph, i graph.NodeIndex) bool {
	node := g.At(i)
	l, r := childPrediction(g, node.Child[0]), childPrediction(g, node.Child[1])
	return isPureInt32(l) && isPureInt32(r) && mayIgnoreNegativeZero(g, i)
}
