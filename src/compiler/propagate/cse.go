package propagate

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/zihong/dfgprop/src/compiler/graph"
)

// localCSE implements spec.md §4.4: per-basic-block value numbering that
// deduplicates pure and conditionally-pure expressions, eliminates
// redundant loads, promotes certain stores to alias form, and drops
// redundant guards. Nothing here crosses a block boundary — global CSE is
// an explicit Non-goal (spec.md §1).
func localCSE(ctx context.Context, g *graph.Graph, opt Options) (err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "propagate: cse")
	defer tr.Finish("err", &err)

	for bi, b := range g.Blocks {
		if err := cseBlock(g, b, opt); err != nil {
			return errors.Wrap(err, "cse block %d", bi)
		}
	}

	if tr.If("dump_cse") {
		for i, j := range g.Replacements {
			if j != graph.NoNode {
				tr.Printw("cse replacement", "i", i, "j", j)
			}
		}
	}

	return nil
}

// cseBlock runs value numbering over one basic block in program order.
func cseBlock(g *graph.Graph, b graph.BasicBlock, opt Options) error {
	lastSeen := make([]int, int(graph.KindCount))
	for k := range lastSeen {
		lastSeen[k] = b.Begin - 1
	}

	for i := b.Begin; i < b.End; i++ {
		idx := graph.NodeIndex(i)
		node := g.At(idx)
		if node.IsPhantom() || node.IsNop() {
			continue
		}

		performSubstitution(g, idx)
		node = g.At(idx) // re-fetch: substitution may have rewritten Child in place

		if eliminateGuard(g, b, idx) {
			lastSeen[node.Op.Kind()] = i
			node.TurnIntoPhantom()
			continue
		}

		if node.Op == graph.OpPutByVal {
			maybeAliasPutByVal(g, b, idx, opt)
			node = g.At(idx)
		}

		if hit, ok := tryEliminate(g, b, idx, lastSeen, opt); ok {
			if hit != graph.NoNode {
				if g.BlockOf(int(hit)) != g.BlockOf(i) {
					return errCSEAcrossBlocks
				}
			}
			g.Replacements[idx] = hit
			node.TurnIntoPhantom()
		}

		lastSeen[g.At(idx).Op.Kind()] = i
	}

	return nil
}

// performSubstitution rewrites node i's operands through the replacement
// table (single-hop) and, since i is still live at this point and so
// counts as a real consumer of whatever it now points at directly,
// increments that target's reference count (spec.md §4.4, step 1).
func performSubstitution(g *graph.Graph, i graph.NodeIndex) {
	node := g.At(i)
	for k, c := range node.Child {
		if c == graph.NoNode {
			continue
		}
		if r := g.Resolve(c); r != c {
			node.Child[k] = r
			g.At(r).RefCount++
		}
	}
	if node.Op.HasVarArgs() {
		args := g.VarArgs(i)
		for k, c := range args {
			if c == graph.NoNode {
				continue
			}
			if r := g.Resolve(c); r != c {
				args[k] = r
				g.At(r).RefCount++
			}
		}
	}
}

// tryEliminate dispatches node i to the matching CSE discipline and
// reports (replacement target, true) if a prior equivalent node makes i
// redundant.
func tryEliminate(g *graph.Graph, b graph.BasicBlock, i graph.NodeIndex, lastSeen []int, opt Options) (graph.NodeIndex, bool) {
	node := g.At(i)

	switch node.Op {
	case graph.OpGetGlobalVar:
		return globalVarLoadElimination(g, b, i, opt)
	case graph.OpGetByVal:
		if !clobbersWorld(g, i) {
			return getByValLoadElimination(g, b, i, opt)
		}
		return graph.NoNode, false
	case graph.OpGetByOffset:
		return getByOffsetLoadElimination(g, b, i, opt)
	case graph.OpGetPropertyStorage:
		return getPropertyStorageLoadElimination(g, b, i, lastSeen)
	case graph.OpGetIndexedPropertyStorage:
		return getIndexedPropertyStorageLoadElimination(g, b, i, lastSeen)
	}

	if isStaticallyPureKind(node.Op.Kind()) {
		return pureValueNumber(g, b, i, lastSeen[node.Op.Kind()]+1, opt)
	}

	if conditionallyPure(node.Op) && !clobbersWorld(g, i) {
		return impureValueNumber(g, b, i, opt)
	}

	return graph.NoNode, false
}

func isStaticallyPureKind(k graph.IDKind) bool {
	switch k {
	case graph.KindArith, graph.KindBitwise, graph.KindCallee,
		graph.KindLength, graph.KindStringChar, graph.KindScopeChain:
		return true
	default:
		return false
	}
}

func conditionallyPure(op graph.Opcode) bool {
	switch op {
	case graph.OpValueAdd, graph.OpCompareEq, graph.OpCompareLess, graph.OpCompareLessEq,
		graph.OpCompareGreater, graph.OpCompareGreaterEq, graph.OpLogicalNot, graph.OpToPrimitive:
		return true
	default:
		return false
	}
}

// pureValueNumber searches backward from from-1 (from is lastSeen[kind]+1,
// so the most recent node of i's kind is the first candidate; nodes after
// it are of other kinds and cannot match) down to the block start, capped
// by opt.cseLookback, for a node equal to i. No world-clobber check is
// needed: by construction the opcode family is unconditionally pure, so
// nothing in the window can invalidate it.
func pureValueNumber(g *graph.Graph, b graph.BasicBlock, i graph.NodeIndex, from int, opt Options) (graph.NodeIndex, bool) {
	lo := b.Begin
	if cap := int(i) - opt.cseLookback(); cap > lo {
		lo = cap
	}
	for k := from - 1; k >= lo; k-- {
		cand := graph.NodeIndex(k)
		if nodesEqualForCSE(g, cand, i) {
			return cand, true
		}
	}
	return graph.NoNode, false
}

// impureValueNumber searches backward from i to the block start (capped
// by opt.cseLookback), aborting as soon as a world-clobbering node is
// encountered (spec.md §4.4, "Impure CSE").
func impureValueNumber(g *graph.Graph, b graph.BasicBlock, i graph.NodeIndex, opt Options) (graph.NodeIndex, bool) {
	lo := b.Begin
	if cap := int(i) - opt.cseLookback(); cap > lo {
		lo = cap
	}
	for k := int(i) - 1; k >= lo; k-- {
		cand := graph.NodeIndex(k)
		if clobbersWorld(g, cand) {
			return graph.NoNode, false
		}
		if nodesEqualForCSE(g, cand, i) {
			return cand, true
		}
	}
	return graph.NoNode, false
}

// nodesEqualForCSE implements the soundness condition spec.md §8 tests:
// identical opcode, identical arith-compare-relevant flags, identical
// canonicalized operands, identical predictions.
func nodesEqualForCSE(g *graph.Graph, a, b graph.NodeIndex) bool {
	na, nb := g.At(a), g.At(b)
	if na.IsPhantom() || na.IsNop() {
		return false
	}
	if na.Op != nb.Op || na.Prediction != nb.Prediction || na.ArithFlags != nb.ArithFlags {
		return false
	}
	for k := 0; k < 3; k++ {
		if canonicalChild(g, na.Child[k]) != canonicalChild(g, nb.Child[k]) {
			return false
		}
	}
	return !payloadDiffers(na, nb)
}

// canonicalChild strips a ValueToInt32 wrapper so that x and
// ValueToInt32(x) compare equal for CSE purposes (spec.md §4.4, step 2).
func canonicalChild(g *graph.Graph, c graph.NodeIndex) graph.NodeIndex {
	for c != graph.NoNode {
		c = g.Resolve(c)
		if g.At(c).Op != graph.OpValueToInt32 {
			break
		}
		c = g.At(c).Child[0]
	}
	return c
}

func payloadDiffers(a, b *graph.Node) bool {
	switch a.Op {
	case graph.OpJSConstant, graph.OpWeakJSConstant:
		return a.Constant != b.Constant
	case graph.OpGetById, graph.OpGetByOffset, graph.OpPutByOffset:
		return a.Identifier != b.Identifier
	case graph.OpGetScopeChain:
		return a.ScopeDepth != b.ScopeDepth
	case graph.OpGetLocal, graph.OpSetLocal:
		return a.VarAccessIndex != b.VarAccessIndex
	case graph.OpCheckStructure, graph.OpPutStructure, graph.OpCheckFunction:
		return a.StructAccess != b.StructAccess
	default:
		return false
	}
}

// clobbersWorld is the conditional-purity predicate for opcodes flagged
// MightClobber: their purity depends on the current operand predictions,
// not on the opcode alone (spec.md §4.4, "Conditional purity").
func clobbersWorld(g *graph.Graph, i graph.NodeIndex) bool {
	node := g.At(i)
	if node.Op.ClobbersWorld() {
		return true
	}
	if !node.Op.MightClobber() {
		return false
	}

	switch node.Op {
	case graph.OpValueAdd, graph.OpCompareEq, graph.OpCompareLess, graph.OpCompareLessEq,
		graph.OpCompareGreater, graph.OpCompareGreaterEq:
		l, r := childPrediction(g, node.Child[0]), childPrediction(g, node.Child[1])
		return !(l.IsNumeric() && r.IsNumeric())

	case graph.OpLogicalNot:
		return childPrediction(g, node.Child[0]) != graph.PredBoolean

	case graph.OpGetByVal:
		index := childPrediction(g, node.Child[1])
		base := childPrediction(g, node.Child[0])
		actionable := base.IsSet() && (graph.PredArray | graph.PredInt8Array | graph.PredInt32Array | graph.PredFloat64Array).Includes(base)
		return !(index == graph.PredInt32 && actionable)

	case graph.OpToPrimitive:
		child := childPrediction(g, node.Child[0])
		return !child.IsSet() || child&graph.PredObject != 0

	default:
		return true
	}
}

// eliminateGuard handles CheckStructure/CheckFunction: nodes that carry
// no result, only a guarantee. A hit turns the guard into Phantom with no
// replacement target (spec.md §4.4, "Guard elimination").
func eliminateGuard(g *graph.Graph, b graph.BasicBlock, i graph.NodeIndex) bool {
	node := g.At(i)
	switch node.Op {
	case graph.OpCheckStructure:
		return checkStructureLoadElimination(g, b, i)
	case graph.OpCheckFunction:
		return checkFunctionElimination(g, b, i)
	default:
		return false
	}
}

// checkStructureLoadElimination walks back over the same base looking
// for an earlier CheckStructure/PutStructure that already proves the
// current query. A prior CheckStructure whose set is a superset of this
// one's makes this one redundant; a PutStructure transitioning the base
// into a structure the query doesn't cover invalidates the search
// entirely, and any other world-clobber aborts it (spec.md §4.4,
// "checkStructureLoadElimination").
func checkStructureLoadElimination(g *graph.Graph, b graph.BasicBlock, i graph.NodeIndex) bool {
	node := g.At(i)
	base := canonicalChild(g, node.Child[0])
	query := g.StructAccess[node.StructAccess].Structures

	for k := int(i) - 1; k >= b.Begin; k-- {
		cand := graph.NodeIndex(k)
		cn := g.At(cand)
		if cn.IsPhantom() || cn.IsNop() {
			continue
		}

		switch cn.Op {
		case graph.OpCheckStructure:
			if canonicalChild(g, cn.Child[0]) == base {
				if g.StructAccess[cn.StructAccess].Structures.IsSupersetOf(query) {
					g.Replacements[i] = graph.NoNode
					return true
				}
			}
		case graph.OpPutStructure:
			if canonicalChild(g, cn.Child[0]) == base {
				t := g.StructAccess[cn.StructAccess].Transition
				if !query.Contains(t.To) {
					return false
				}
			}
		default:
			if cn.Op.ClobbersWorld() {
				return false
			}
		}
	}

	return false
}

// checkFunctionElimination is pure value numbering over CheckFunction
// guards: identical target function, identical base, same block.
func checkFunctionElimination(g *graph.Graph, b graph.BasicBlock, i graph.NodeIndex) bool {
	node := g.At(i)
	for k := int(i) - 1; k >= b.Begin; k-- {
		cand := graph.NodeIndex(k)
		cn := g.At(cand)
		if cn.IsPhantom() || cn.IsNop() {
			continue
		}
		if cn.Op == graph.OpCheckFunction &&
			cn.StructAccess == node.StructAccess &&
			canonicalChild(g, cn.Child[0]) == canonicalChild(g, node.Child[0]) {
			g.Replacements[i] = graph.NoNode
			return true
		}
		if cn.Op.ClobbersWorld() {
			return false
		}
	}
	return false
}

// globalVarLoadElimination tracks the last write/read to a global-var
// slot: a matching earlier GetGlobalVar aliases directly, a matching
// PutGlobalVar supplies the stored value, and anything else that
// clobbers the world invalidates the search (spec.md §4.4,
// "globalVarLoadElimination").
func globalVarLoadElimination(g *graph.Graph, b graph.BasicBlock, i graph.NodeIndex, opt Options) (graph.NodeIndex, bool) {
	node := g.At(i)
	lo := b.Begin
	if cap := int(i) - opt.cseLookback(); cap > lo {
		lo = cap
	}

	for k := int(i) - 1; k >= lo; k-- {
		cand := graph.NodeIndex(k)
		cn := g.At(cand)
		if cn.IsPhantom() || cn.IsNop() {
			continue
		}
		switch cn.Op {
		case graph.OpGetGlobalVar, graph.OpPutGlobalVar:
			if cn.Identifier == node.Identifier {
				if cn.Op == graph.OpGetGlobalVar {
					return cand, true
				}
				return canonicalChild(g, cn.Child[0]), true
			}
		default:
			if cn.Op.ClobbersWorld() {
				return graph.NoNode, false
			}
		}
	}
	return graph.NoNode, false
}

// getByValLoadElimination walks back over the same (base, index) pair.
// A matching prior GetByVal aliases directly, but only if that prior
// read is itself pure — an impure GetByVal can have run a getter with
// arbitrary side effects, so it aborts the search exactly like any
// other world-clobber. A matching PutByVal/PutByValAlias supplies the
// value it just stored. PutStructure, PutByOffset and ArrayPush never
// alias an indexed element so the walk steps past them instead of
// aborting (spec.md §4.4, "getByValLoadElimination"). node i need not
// itself be a GetByVal: maybeAliasPutByVal reuses this same walk for a
// PutByVal, since both opcodes share the (base, index) child layout.
func getByValLoadElimination(g *graph.Graph, b graph.BasicBlock, i graph.NodeIndex, opt Options) (graph.NodeIndex, bool) {
	node := g.At(i)
	base, index := canonicalChild(g, node.Child[0]), canonicalChild(g, node.Child[1])
	lo := b.Begin
	if cap := int(i) - opt.cseLookback(); cap > lo {
		lo = cap
	}

	for k := int(i) - 1; k >= lo; k-- {
		cand := graph.NodeIndex(k)
		cn := g.At(cand)
		if cn.IsPhantom() || cn.IsNop() {
			continue
		}
		switch cn.Op {
		case graph.OpGetByVal:
			if clobbersWorld(g, cand) {
				return graph.NoNode, false
			}
			if canonicalChild(g, cn.Child[0]) == base && canonicalChild(g, cn.Child[1]) == index {
				return cand, true
			}
		case graph.OpPutByVal, graph.OpPutByValAlias:
			if canonicalChild(g, cn.Child[0]) == base && canonicalChild(g, cn.Child[1]) == index {
				return canonicalChild(g, cn.Child[2]), true
			}
			return graph.NoNode, false
		case graph.OpPutStructure, graph.OpPutByOffset, graph.OpArrayPush, graph.OpArrayPop:
			continue
		default:
			if cn.Op.ClobbersWorld() {
				return graph.NoNode, false
			}
		}
	}
	return graph.NoNode, false
}

// getByOffsetLoadElimination tracks named-property loads by identifier.
// A matching PutByOffset to the same base supplies the value; a
// PutByOffset to a different identifier or base, or a structure
// transition, doesn't alias and is skipped past (spec.md §4.4,
// "getByOffsetLoadElimination").
func getByOffsetLoadElimination(g *graph.Graph, b graph.BasicBlock, i graph.NodeIndex, opt Options) (graph.NodeIndex, bool) {
	node := g.At(i)
	base := canonicalChild(g, node.Child[0])
	lo := b.Begin
	if cap := int(i) - opt.cseLookback(); cap > lo {
		lo = cap
	}

	for k := int(i) - 1; k >= lo; k-- {
		cand := graph.NodeIndex(k)
		cn := g.At(cand)
		if cn.IsPhantom() || cn.IsNop() {
			continue
		}
		switch cn.Op {
		case graph.OpGetByOffset:
			if cn.Identifier == node.Identifier && canonicalChild(g, cn.Child[0]) == base {
				return cand, true
			}
		case graph.OpPutByOffset:
			if cn.Identifier == node.Identifier && canonicalChild(g, cn.Child[0]) == base {
				return canonicalChild(g, cn.Child[1]), true
			}
		case graph.OpPutStructure:
			continue
		default:
			if cn.Op.ClobbersWorld() {
				return graph.NoNode, false
			}
		}
	}
	return graph.NoNode, false
}

// getPropertyStorageLoadElimination and its indexed counterpart are pure
// value numbering restricted to matching base: the storage pointer for a
// given base is stable between any two world-clobbers that could
// reshape it, and nothing in this pipeline reshapes it mid-block once
// fixup has run, so a same-base match at any lookback distance suffices
// (spec.md §4.4).
func getPropertyStorageLoadElimination(g *graph.Graph, b graph.BasicBlock, i graph.NodeIndex, lastSeen []int) (graph.NodeIndex, bool) {
	return storagePointerElimination(g, b, i, lastSeen[graph.KindPropertyStorage]+1, graph.OpGetPropertyStorage)
}

func getIndexedPropertyStorageLoadElimination(g *graph.Graph, b graph.BasicBlock, i graph.NodeIndex, lastSeen []int) (graph.NodeIndex, bool) {
	return storagePointerElimination(g, b, i, lastSeen[graph.KindIndexedPropertyStorage]+1, graph.OpGetIndexedPropertyStorage)
}

func storagePointerElimination(g *graph.Graph, b graph.BasicBlock, i graph.NodeIndex, from int, op graph.Opcode) (graph.NodeIndex, bool) {
	node := g.At(i)
	base := canonicalChild(g, node.Child[0])
	for k := from - 1; k >= b.Begin; k-- {
		cand := graph.NodeIndex(k)
		cn := g.At(cand)
		if cn.IsPhantom() || cn.IsNop() {
			continue
		}
		if cn.Op == op && canonicalChild(g, cn.Child[0]) == base {
			return cand, true
		}
	}
	return graph.NoNode, false
}

// maybeAliasPutByVal checks whether this store is to the same (base,
// index) pair as one already seen in the block with nothing aliasing
// it could have clobbered in between; if so it is demoted to the
// cheaper PutByValAlias form (spec.md §4.4, "PutByVal -> PutByValAlias").
// A PutByVal node has the same (base, index) child layout as a GetByVal
// (Child[2] holds the stored value rather than an auxiliary storage
// pointer), so this reuses getByValLoadElimination's own walk instead
// of a second, easily-divergent copy of it.
func maybeAliasPutByVal(g *graph.Graph, b graph.BasicBlock, i graph.NodeIndex, opt Options) {
	if _, ok := getByValLoadElimination(g, b, i, opt); ok {
		g.At(i).Op = graph.OpPutByValAlias
	}
}
