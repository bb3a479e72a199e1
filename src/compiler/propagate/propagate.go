// Package propagate runs the six-pass local-optimization pipeline over a
// graph.Graph built by an external bytecode-to-IR stage: flag
// propagation, prediction propagation (with double voting), fixup, local
// CSE, virtual register allocation, and a global CFA pass that narrows
// reachability and per-local predictions across basic blocks.
package propagate

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/zihong/dfgprop/src/compiler/collab"
	"github.com/zihong/dfgprop/src/compiler/graph"
)

// Propagate runs every pass in spec.md §2's fixed order and leaves g
// mutated in place. An error means some invariant the pipeline depends on
// broke; callers should discard g and fall back to an unoptimized
// compile rather than run with a partially-transformed graph (spec.md §7).
func Propagate(ctx context.Context, g *graph.Graph, cb *collab.CodeBlock, gd *collab.GlobalData, opt Options) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "propagate")
	defer tr.Finish("err", &err)

	if opt.Debug {
		tr.Printw("propagate start", "nodes", len(g.Nodes), "blocks", len(g.Blocks), "from", loc.Caller(1))
	}

	if err := propagateFlags(ctx, g, opt); err != nil {
		return errors.Wrap(err, "flags")
	}

	if err := propagatePredictions(ctx, g, cb, gd, opt); err != nil {
		return errors.Wrap(err, "predictions")
	}

	if err := fixup(ctx, g); err != nil {
		return errors.Wrap(err, "fixup")
	}

	if err := localCSE(ctx, g, opt); err != nil {
		return errors.Wrap(err, "cse")
	}

	if err := g.CheckReplacementsAcyclic(); err != nil {
		return errors.Wrap(err, "cse left a broken replacement table")
	}

	if err := allocateRegisters(ctx, g, cb); err != nil {
		return errors.Wrap(err, "regalloc")
	}

	state := collab.NewLatticeAbstractState()
	if err := runCFA(ctx, g, state, opt); err != nil {
		return errors.Wrap(err, "cfa")
	}

	return nil
}
