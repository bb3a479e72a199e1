package propagate

import (
	"context"

	"tlog.app/go/tlog"

	"github.com/zihong/dfgprop/src/compiler/collab"
	"github.com/zihong/dfgprop/src/compiler/graph"
)

// fixup implements spec.md §4.3: a single forward pass that specializes
// opcodes now that predictions are stable. Unlike the earlier passes this
// never re-runs to a fixpoint — running it twice on an already-fixed-up
// graph must be a no-op (spec.md §8, "Round-trip safety"), which every
// rule below satisfies by only firing on the pre-fixup opcode.
func fixup(ctx context.Context, g *graph.Graph) (err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "propagate: fixup")
	defer tr.Finish("err", &err)

	for i := range g.Nodes {
		fixupLengthOfKnownContainer(g, graph.NodeIndex(i))
		fixupIndexedPropertyStorage(g, graph.NodeIndex(i))
		fixupClearedStorageOperand(g, graph.NodeIndex(i))
		fixupPreserveAlwaysLiveSetLocal(g, graph.NodeIndex(i))
	}

	return nil
}

// fixupPreserveAlwaysLiveSetLocal forces a SetLocal targeting a preserved
// local slot to keep its must-generate obligation: a local captured by a
// closure has to be flushed to its stack slot even if nothing inside this
// graph reads it back (spec.md §3, "preserved locals").
func fixupPreserveAlwaysLiveSetLocal(g *graph.Graph, i graph.NodeIndex) {
	node := g.At(i)
	if node.Op != graph.OpSetLocal {
		return
	}
	if g.IsPreservedLocal(g.VarAccess.Local(node.VarAccessIndex)) {
		node.MarkMustGenerate()
	}
}

// fixupLengthOfKnownContainer rewrites a GetById(base, "length") into the
// dedicated length opcode once both the result and the base's container
// kind are known, and drops the node's must-generate obligation since the
// specialized opcode is pure (spec.md §4.3, bullet 1).
func fixupLengthOfKnownContainer(g *graph.Graph, i graph.NodeIndex) {
	node := g.At(i)
	if node.Op != graph.OpGetById {
		return
	}
	if node.Identifier != collab.LengthIdentifier {
		return
	}
	if node.Prediction != graph.PredInt32 {
		return
	}

	base := node.Child[0]
	if base == graph.NoNode {
		return
	}
	baseP := g.At(base).Prediction

	lengthOp, ok := lengthOpcodeFor(baseP)
	if !ok {
		return
	}

	node.Op = lengthOp
	if node.MustGenerate() {
		node.ClearMustGenerate()
		if node.RefCount > 0 {
			node.RefCount--
		}
	}
}

func lengthOpcodeFor(base graph.Prediction) (graph.Opcode, bool) {
	switch base {
	case graph.PredArray:
		return graph.OpGetArrayLength, true
	case graph.PredString:
		return graph.OpGetStringLength, true
	case graph.PredInt8Array:
		return graph.OpGetInt8ArrayLength, true
	case graph.PredInt32Array:
		return graph.OpGetInt32ArrayLength, true
	case graph.PredFloat64Array:
		return graph.OpGetFloat64ArrayLength, true
	default:
		return graph.OpInvalid, false
	}
}

// fixupIndexedPropertyStorage demotes a GetIndexedPropertyStorage whose
// index operand predicts a definitely-non-integer type to Nop, unlinking
// its children and dropping their reference counts (spec.md §4.3,
// bullet 2).
func fixupIndexedPropertyStorage(g *graph.Graph, i graph.NodeIndex) {
	node := g.At(i)
	if node.Op != graph.OpGetIndexedPropertyStorage {
		return
	}

	index := node.Child[1]
	if index == graph.NoNode {
		return
	}
	ip := g.At(index).Prediction
	if !ip.IsSet() || ip.Includes(graph.PredInt32) {
		return
	}

	unlinkChildren(g, i)
	node.TurnIntoNop()
}

// fixupClearedStorageOperand clears a GetByVal/StringCharAt/
// StringCharCodeAt's auxiliary-storage operand (child3) once it has been
// demoted to Nop by fixupIndexedPropertyStorage (spec.md §4.3, bullet 3).
func fixupClearedStorageOperand(g *graph.Graph, i graph.NodeIndex) {
	node := g.At(i)
	switch node.Op {
	case graph.OpGetByVal, graph.OpStringCharAt, graph.OpStringCharCodeAt:
	default:
		return
	}

	if c := node.Child[2]; c != graph.NoNode && g.At(c).IsNop() {
		node.Child[2] = graph.NoNode
	}
}

// unlinkChildren decrements the reference count of every operand of node
// i, used when i is demoted and no longer counts as a user of its
// children.
func unlinkChildren(g *graph.Graph, i graph.NodeIndex) {
	node := g.At(i)
	for _, c := range node.Child {
		decrementRef(g, c)
	}
	for _, c := range g.VarArgs(i) {
		decrementRef(g, c)
	}
}

func decrementRef(g *graph.Graph, i graph.NodeIndex) {
	if i == graph.NoNode {
		return
	}
	n := g.At(i)
	if n.RefCount > 0 {
		n.RefCount--
	}
}
