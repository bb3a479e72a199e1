package propagate

import (
	"context"

	"tlog.app/go/tlog"

	"github.com/zihong/dfgprop/src/compiler/collab"
	"github.com/zihong/dfgprop/src/compiler/graph"
)

// allocateRegisters implements spec.md §4.5: a single forward pass over
// the (post-CSE) graph driven by a collab.Scoreboard. Every node's
// operands are marked used before the node itself is allocated a slot, so
// a result can reuse a register one of its own operands just freed.
// Phi-shaped GetLocal nodes don't exist in this graph — locals are
// unified through VarAccessPool, not cross-block register merges — so
// there is no liveness to track across basic blocks at all.
func allocateRegisters(ctx context.Context, g *graph.Graph, cb *collab.CodeBlock) (err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "propagate: regalloc")
	defer tr.Finish("err", &err)

	sb := collab.NewSimpleScoreboard(g)

	for i := range g.Nodes {
		idx := graph.NodeIndex(i)
		node := g.At(idx)

		g.Children(idx, func(child graph.NodeIndex) {
			sb.Use(child)
		})

		if !node.HasResult() || node.IsPhantom() {
			continue
		}
		if node.RefCount <= 0 && !node.MustGenerate() {
			continue
		}

		node.VReg = sb.Allocate(idx)

		if node.RefCount <= 0 && node.MustGenerate() {
			// Synthetic use: nothing will ever read this value, but it
			// must still be generated for its side effect, so the slot
			// is claimed and handed straight back (spec.md §4.5,
			// "MustGenerate synthetic use").
			sb.Use(idx)
		}
	}

	cb.RaiseCalleeRegisters(cb.ParameterSlots + sb.HighWatermark())

	if tr.If("dump_regalloc") {
		for i := range g.Nodes {
			n := g.At(graph.NodeIndex(i))
			if n.VReg >= 0 {
				tr.Printw("vreg assigned", "i", i, "op", n.Op.String(), "vreg", n.VReg)
			}
		}
	}

	return nil
}
