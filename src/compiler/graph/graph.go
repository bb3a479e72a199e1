package graph

import (
	"tlog.app/go/errors"

	"github.com/zihong/dfgprop/src/compiler/set"
)

// BasicBlock is a half-open node-index range in program order, plus the
// successor blocks control can fall into (populated by the external graph
// builder; the propagation pipeline only reads it, never builds the CFG).
type BasicBlock struct {
	Begin, End  int
	Successors  []int
	ShouldRevisit bool
}

// Contains reports whether node index i falls inside [Begin, End).
func (b BasicBlock) Contains(i int) bool { return i >= b.Begin && i < b.End }

// Graph is the append-only sequence of nodes plus its side tables
// (spec.md §3, "Graph"). A Graph is built externally (bytecode parsing is
// out of scope here) and mutated in place by every pass in propagate.
type Graph struct {
	Nodes  []Node
	Blocks []BasicBlock

	// VarArgsChildren backs Node.VarArgsBegin/VarArgsCount for nodes with
	// more than three fixed operands.
	VarArgsChildren []NodeIndex

	// PreservedLocals names local-variable slots that are always live
	// (e.g. captured by a closure), regardless of reference counts
	// (spec.md §3, "Graph"). Slot numbers are small and dense, so a
	// Bitmap fits better than a map.
	PreservedLocals set.Bitmap

	VarAccess  *VarAccessPool
	StructAccess []StructureAccessData

	// Replacements is the CSE replacement table: Replacements[i] = j means
	// node i was eliminated in favor of node j. Single-hop only — if
	// Replacements[i] = j then Replacements[j] = NoNode (spec.md §3,
	// "Invariants").
	Replacements []NodeIndex
}

// NewGraph allocates an empty graph with initialized side tables.
func NewGraph() *Graph {
	return &Graph{
		PreservedLocals: set.Make(0),
		VarAccess:       NewVarAccessPool(),
	}
}

// PreserveLocal marks local-variable slot a permanently live, e.g. because
// it is captured by a closure the optimizer cannot see into.
func (g *Graph) PreserveLocal(slot int) { g.PreservedLocals.Set(slot) }

// IsPreservedLocal reports whether slot was marked by PreserveLocal.
func (g *Graph) IsPreservedLocal(slot int) bool { return g.PreservedLocals.IsSet(slot) }

// AddNode appends n to the arena and returns its stable index.
func (g *Graph) AddNode(n Node) NodeIndex {
	g.Nodes = append(g.Nodes, n)
	idx := NodeIndex(len(g.Nodes) - 1)
	if len(g.Replacements) < len(g.Nodes) {
		g.Replacements = append(g.Replacements, NoNode)
	}
	return idx
}

// AddBlock appends a basic block spanning [begin, end).
func (g *Graph) AddBlock(begin, end int, successors ...int) int {
	g.Blocks = append(g.Blocks, BasicBlock{Begin: begin, End: end, Successors: successors})
	return len(g.Blocks) - 1
}

// AddVarArgs appends vararg operand indices and returns the (begin, count)
// slice to store on the owning Node.
func (g *Graph) AddVarArgs(children ...NodeIndex) (begin, count int) {
	begin = len(g.VarArgsChildren)
	g.VarArgsChildren = append(g.VarArgsChildren, children...)
	return begin, len(children)
}

// At returns a pointer to node i for in-place mutation.
func (g *Graph) At(i NodeIndex) *Node { return &g.Nodes[i] }

// VarArgs returns the var-args operand slice of node i.
func (g *Graph) VarArgs(i NodeIndex) []NodeIndex {
	n := &g.Nodes[i]
	return g.VarArgsChildren[n.VarArgsBegin : n.VarArgsBegin+n.VarArgsCount]
}

// Children calls f for every operand of node i, fixed and var-args alike,
// in operand order.
func (g *Graph) Children(i NodeIndex, f func(child NodeIndex)) {
	n := &g.Nodes[i]
	if n.Op.HasVarArgs() {
		for _, c := range g.VarArgs(i) {
			f(c)
		}
		return
	}
	for _, c := range n.Child {
		if c != NoNode {
			f(c)
		}
	}
}

// SetPrediction asserts the node has no prior prediction or exactly p,
// then joins — spec.md §4.2's setPrediction primitive. Violating the
// "exact match or unset" contract is an invariant break, not a silent
// overwrite, hence the returned error (spec.md §7).
func (g *Graph) SetPrediction(i NodeIndex, p Prediction) error {
	n := &g.Nodes[i]
	if n.Prediction != PredNone && n.Prediction != p {
		return errors.New("setPrediction: node %d already predicts %v, cannot assert %v", i, n.Prediction, p)
	}
	n.Prediction = n.Prediction.Merge(p)
	return nil
}

// MergePrediction is the monotone join primitive (spec.md §4.2's
// mergePrediction): safe to call repeatedly, never errors.
func (g *Graph) MergePrediction(i NodeIndex, p Prediction) bool {
	n := &g.Nodes[i]
	before := n.Prediction
	n.Prediction = n.Prediction.Merge(p)
	return n.Prediction != before
}

// MergeArithFlags joins f into node i's arith flags, masked to
// UsedAsMask, and reports whether anything changed.
func (g *Graph) MergeArithFlags(i NodeIndex, f ArithFlags) bool {
	n := &g.Nodes[i]
	f &= UsedAsMask
	before := n.ArithFlags
	n.ArithFlags = n.ArithFlags.Merge(f)
	return n.ArithFlags != before
}

// BlockOf returns the index into Graph.Blocks containing node index i, or
// -1 if none does.
func (g *Graph) BlockOf(i int) int {
	for bi, b := range g.Blocks {
		if b.Contains(i) {
			return bi
		}
	}
	return -1
}

// Resolve follows g.Replacements[i] once (replacements never chain) and
// returns the live node to use in i's place, or i itself if untouched.
func (g *Graph) Resolve(i NodeIndex) NodeIndex {
	if j := g.Replacements[i]; j != NoNode {
		return j
	}
	return i
}

// CheckReplacementsAcyclic verifies the single-hop invariant from
// spec.md §3/§8: ∀i, Replacements[i] = NONE ∨ Replacements[Replacements[i]] = NONE.
func (g *Graph) CheckReplacementsAcyclic() error {
	for i, j := range g.Replacements {
		if j == NoNode {
			continue
		}
		if int(j) >= len(g.Replacements) {
			return errors.New("replacement %d -> %d out of range", i, j)
		}
		if g.Replacements[j] != NoNode {
			return errors.New("replacement chain: %d -> %d -> %d", i, j, g.Replacements[j])
		}
	}
	return nil
}
