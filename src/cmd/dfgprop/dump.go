package main

import (
	"fmt"
	"io"

	"github.com/zihong/dfgprop/src/compiler/graph"
)

// dumpGraph prints every node and block in the text-graph format's own
// vocabulary, so a round-tripped dump stays readable next to its input.
func dumpGraph(w io.Writer, g *graph.Graph) {
	for i := range g.Nodes {
		n := &g.Nodes[i]
		status := ""
		if n.IsPhantom() {
			status = " [phantom]"
		} else if n.IsNop() {
			status = " [nop]"
		} else if r := g.Replacements[i]; r != graph.NoNode {
			status = fmt.Sprintf(" [-> %d]", r)
		}

		fmt.Fprintf(w, "%4d: %-12s children=%v prediction=%s arith=%s vreg=%d%s\n",
			i, n.Op.String(), n.Child, n.Prediction.String(), n.ArithFlags.String(), n.VReg, status)
	}

	for bi, b := range g.Blocks {
		fmt.Fprintf(w, "block %d: [%d, %d) -> %v\n", bi, b.Begin, b.End, b.Successors)
	}
}
