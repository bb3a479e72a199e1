package propagate

import "github.com/zihong/dfgprop/src/compiler/graph"

// voteDouble implements spec.md §4.2's "Double voting": clear every
// variable-access descriptor's ballot, walk every node casting votes per
// the rules below, then tally. Returns whether any descriptor's
// should-use-double bit flipped, which is what drives the outer
// prediction/voting loop around another round.
func voteDouble(g *graph.Graph) bool {
	pool := g.VarAccess
	for i := 0; i < pool.Len(); i++ {
		pool.ClearBallot(i)
	}

	for i := range g.Nodes {
		castVotes(g, graph.NodeIndex(i))
	}

	changed := false
	for i := 0; i < pool.Len(); i++ {
		if pool.Tally(i) {
			changed = true
		}
	}
	return changed
}

func castVotes(g *graph.Graph, i graph.NodeIndex) {
	node := g.At(i)

	cast := func(child graph.NodeIndex, v graph.Vote) {
		if va, ok := localVarAccess(g, child); ok {
			g.VarAccess.Cast(va, v)
		}
	}

	switch node.Op {
	case graph.OpValueAdd, graph.OpArithAdd, graph.OpArithSub:
		l, r := childPrediction(g, node.Child[0]), childPrediction(g, node.Child[1])
		if l.IsNumeric() && r.IsNumeric() && !shouldSpeculateInt32Arith(g, i) {
			cast(node.Child[0], graph.VoteDouble)
			cast(node.Child[1], graph.VoteDouble)
		} else {
			cast(node.Child[0], graph.VoteValue)
			cast(node.Child[1], graph.VoteValue)
		}

	case graph.OpArithMul, graph.OpArithMin, graph.OpArithMax, graph.OpArithMod, graph.OpArithDiv:
		l, r := childPrediction(g, node.Child[0]), childPrediction(g, node.Child[1])
		if isPureInt32(l) && isPureInt32(r) && mayIgnoreNegativeZero(g, i) {
			cast(node.Child[0], graph.VoteValue)
			cast(node.Child[1], graph.VoteValue)
		} else {
			cast(node.Child[0], graph.VoteDouble)
			cast(node.Child[1], graph.VoteDouble)
		}

	case graph.OpArithAbs:
		// spec.md §9 Open Question (b): the source's ArithAbs voting
		// branch never initializes the ballot on one reachable path; the
		// intended meaning is to default to VoteValue before checking
		// whether the child may speculate integer.
		vote := graph.VoteValue
		child := childPrediction(g, node.Child[0])
		if !(isPureInt32(child) && mayIgnoreNegativeZero(g, i)) {
			vote = graph.VoteDouble
		}
		cast(node.Child[0], vote)

	case graph.OpArithSqrt:
		cast(node.Child[0], graph.VoteDouble)

	case graph.OpSetLocal:
		src := childPrediction(g, node.Child[0])
		vote := graph.VoteValue
		if src == graph.PredDouble {
			vote = graph.VoteDouble
		}
		if va, ok := localVarAccessDirect(node); ok {
			g.VarAccess.Cast(va, vote)
		}

	default:
		g.Children(i, func(child graph.NodeIndex) {
			cast(child, graph.VoteValue)
		})
	}
}

// localVarAccess peels ValueToInt32/UInt32ToNumber wrappers to find the
// underlying GetLocal a vote should land on, per spec.md §4.2: "Votes
// traverse ValueToInt32/UInt32ToNumber wrappers to reach the underlying
// GetLocal."
func localVarAccess(g *graph.Graph, child graph.NodeIndex) (int, bool) {
	for child != graph.NoNode {
		n := g.At(child)
		switch n.Op {
		case graph.OpValueToInt32, graph.OpUInt32ToNumber:
			child = n.Child[0]
			continue
		case graph.OpGetLocal:
			return n.VarAccessIndex, true
		default:
			return 0, false
		}
	}
	return 0, false
}

// localVarAccessDirect returns a SetLocal node's own destination
// variable-access index (no unwrapping needed: the SetLocal node itself
// names its destination).
func localVarAccessDirect(node *graph.Node) (int, bool) {
	if node.VarAccessIndex < 0 {
		return 0, false
	}
	return node.VarAccessIndex, true
}
