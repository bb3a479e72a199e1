package propagate

import (
	"context"

	"tlog.app/go/tlog"

	"github.com/zihong/dfgprop/src/compiler/collab"
	"github.com/zihong/dfgprop/src/compiler/graph"
)

// runCFA implements spec.md §4.6: a worklist-driven forward fixpoint over
// basic blocks, folding each node's effect into an AbstractState and
// revisiting a block's successors whenever its tail state widens. Unlike
// propagatePredictions this never loops over the whole graph repeatedly —
// only blocks a change can actually reach go back on the worklist.
func runCFA(ctx context.Context, g *graph.Graph, state collab.AbstractState, opt Options) (err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "propagate: cfa")
	defer tr.Finish("err", &err)

	if len(g.Blocks) == 0 {
		return nil
	}

	state.Initialize(g)

	for bi := range g.Blocks {
		g.Blocks[bi].ShouldRevisit = bi == 0
	}
	worklist := []int{0}

	visits := 0
	max := opt.maxFixpointRounds()

	for len(worklist) > 0 {
		bi := worklist[0]
		worklist = worklist[1:]

		if !g.Blocks[bi].ShouldRevisit {
			continue
		}
		g.Blocks[bi].ShouldRevisit = false

		visits++
		if visits > max {
			return errFixpointDidNotConverge
		}

		b := g.Blocks[bi]
		state.BeginBasicBlock(b)

		for i := b.Begin; i < b.End; i++ {
			cont, err := state.Execute(graph.NodeIndex(i))
			if err != nil {
				return err
			}
			if !cont {
				break
			}
		}

		changed, err := state.EndBasicBlock(collab.MergeToSuccessors)
		if err != nil {
			return err
		}
		if !changed {
			continue
		}

		for _, succ := range b.Successors {
			if succ < 0 || succ >= len(g.Blocks) {
				continue
			}
			if !g.Blocks[succ].ShouldRevisit {
				g.Blocks[succ].ShouldRevisit = true
				worklist = append(worklist, succ)
			}
		}
	}

	if tr.If("dump_cfa") {
		var buf writerFunc = func(p []byte) (int, error) {
			tr.Printw("cfa state", "line", string(p))
			return len(p), nil
		}
		state.Dump(buf)
	}

	return nil
}

// writerFunc adapts a func(p []byte) (int, error) to io.Writer so
// AbstractState.Dump's output can be routed through the span instead of
// stdout.
type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }
