package propagate

import (
	"context"

	"tlog.app/go/tlog"

	"github.com/zihong/dfgprop/src/compiler/graph"
)

// propagateFlags implements spec.md §4.1: a backward sweep (consumer to
// producer, which usually converges first since demand flows backward
// through the graph) followed by a forward sweep, repeated until neither
// changes anything.
func propagateFlags(ctx context.Context, g *graph.Graph, opt Options) (err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "propagate: flags")
	defer tr.Finish("err", &err)

	rounds, err := runToFixpoint(opt.maxFixpointRounds(), func() (bool, error) {
		back := flagsSweep(g, false)
		fwd := flagsSweep(g, true)
		return back || fwd, nil
	})
	if err != nil {
		return err
	}

	if tr.If("dump_flags") {
		tr.Printw("flags fixpoint", "rounds", rounds)
	}

	return nil
}

// flagsSweep runs one pass over every node, in ascending order if forward
// is true and descending order otherwise, applying the per-opcode
// transfer function and reporting whether any child's flags widened.
func flagsSweep(g *graph.Graph, forward bool) bool {
	changed := false
	n := len(g.Nodes)
	for k := 0; k < n; k++ {
		i := graph.NodeIndex(k)
		if !forward {
			i = graph.NodeIndex(n - 1 - k)
		}
		if flagsTransfer(g, i) {
			changed = true
		}
	}
	return changed
}

// flagsTransfer applies node i's per-opcode transfer function, pushing
// demand flags onto its operands, and reports whether anything changed.
func flagsTransfer(g *graph.Graph, i graph.NodeIndex) bool {
	node := g.At(i)
	demand := node.ArithFlags & graph.UsedAsMask
	changed := false

	propagate := func(child graph.NodeIndex, f graph.ArithFlags) {
		if child == graph.NoNode {
			return
		}
		if g.MergeArithFlags(child, f) {
			changed = true
		}
	}

	switch node.Op {
	case graph.OpBitAnd, graph.OpBitOr, graph.OpBitXor,
		graph.OpBitLShift, graph.OpBitRShift, graph.OpBitURShift,
		graph.OpValueToInt32:
		// Sinks: producers feeding a truncating consumer are unconstrained.

	case graph.OpUInt32ToNumber:
		propagate(node.Child[0], demand)

	case graph.OpArithAdd, graph.OpValueAdd:
		f := demand
		if isNonNegativeZeroNumericConstant(g, node.Child[0]) || isNonNegativeZeroNumericConstant(g, node.Child[1]) {
			f &^= graph.NeedsNegZero
		}
		propagate(node.Child[0], f)
		propagate(node.Child[1], f)

	case graph.OpArithSub:
		f := demand
		if isNonZeroConstant(g, node.Child[0]) || isNonZeroConstant(g, node.Child[1]) {
			f &^= graph.NeedsNegZero
		}
		propagate(node.Child[0], f)
		propagate(node.Child[1], f)

	case graph.OpArithMul, graph.OpArithDiv:
		f := graph.UsedAsNumber | graph.NeedsNegZero
		propagate(node.Child[0], f)
		propagate(node.Child[1], f)

	case graph.OpArithMin, graph.OpArithMax:
		f := demand | graph.UsedAsNumber
		propagate(node.Child[0], f)
		propagate(node.Child[1], f)

	case graph.OpArithAbs:
		f := demand &^ graph.NeedsNegZero
		propagate(node.Child[0], f)

	case graph.OpPutByVal:
		propagate(node.Child[0], graph.UsedAsNumber|graph.NeedsNegZero)
		propagate(node.Child[1], graph.UsedAsNumber)
		propagate(node.Child[2], graph.UsedAsNumber|graph.NeedsNegZero)

	case graph.OpGetByVal:
		propagate(node.Child[0], graph.UsedAsNumber|graph.NeedsNegZero)
		propagate(node.Child[1], graph.UsedAsNumber)

	default:
		full := graph.UsedAsNumber | graph.NeedsNegZero
		g.Children(i, func(child graph.NodeIndex) {
			propagate(child, full)
		})
	}

	return changed
}

// isNonNegativeZeroNumericConstant reports whether child is a JSConstant
// holding a numeric value that is not negative zero — the ArithAdd/
// ValueAdd strip-NeedsNegZero condition from spec.md §4.1.
func isNonNegativeZeroNumericConstant(g *graph.Graph, child graph.NodeIndex) bool {
	if child == graph.NoNode {
		return false
	}
	n := g.At(child)
	if n.Op != graph.OpJSConstant && n.Op != graph.OpWeakJSConstant {
		return false
	}
	return n.Constant.IsNumber() && !n.Constant.IsNegativeZero()
}

// isNonZeroConstant reports whether child is a JSConstant holding a
// nonzero numeric value — the ArithSub strip-NeedsNegZero condition.
func isNonZeroConstant(g *graph.Graph, child graph.NodeIndex) bool {
	if child == graph.NoNode {
		return false
	}
	n := g.At(child)
	if n.Op != graph.OpJSConstant && n.Op != graph.OpWeakJSConstant {
		return false
	}
	f, ok := n.Constant.AsFloat64()
	return ok && f != 0
}
