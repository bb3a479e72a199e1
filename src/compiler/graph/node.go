package graph

// NodeIndex identifies a Node by its position in Graph.Nodes. Indices are
// stable for the lifetime of a graph: nodes are demoted in place, never
// reordered or physically removed (spec.md §3, "Lifecycle").
type NodeIndex int

// NoNode is the NONE sentinel: an absent operand or replacement target.
const NoNode NodeIndex = -1

// MustGenerate marks a Node as obligated to emit code even with RefCount
// at its minimum: a node held live only by its side effect still needs
// codegen. The pipeline itself never emits code, but Fixup and CSE must
// know which nodes carry this obligation to decide whether clearing a
// reference also clears the generate requirement.
type sideEffect uint8

const (
	sideEffectNone sideEffect = iota
	sideEffectMustGenerate
)

// Node is one entry in the append-only graph arena.
type Node struct {
	Op    Opcode
	Child [3]NodeIndex

	// VarArgsBegin/VarArgsCount slice into Graph.VarArgsChildren; only
	// meaningful when Op.HasVarArgs().
	VarArgsBegin int
	VarArgsCount int

	RefCount int32
	effect   sideEffect

	Prediction Prediction
	ArithFlags ArithFlags

	// VReg is the virtual register slot assigned by register allocation;
	// -1 until then.
	VReg int

	// Opcode-specific payload. Only the fields relevant to Op are
	// meaningful; which ones those are is documented per opcode in
	// flags.go/predict.go/fixup.go/cse.go.
	Constant       Value
	Identifier     int
	ScopeDepth     int
	VarAccessIndex int // -1 if this node is not a GetLocal/SetLocal
	StructAccess   int // index into Graph.StructAccess, -1 if unused
	HeapType       Prediction
	StorageAccess  int
}

// NewNode builds a Node with the invariant defaults (no prediction, no
// arith flags, unassigned register, no var-access/struct-access link).
func NewNode(op Opcode, children ...NodeIndex) Node {
	n := Node{
		Op:             op,
		VarAccessIndex: -1,
		StructAccess:   -1,
		VReg:           -1,
	}
	for i := 0; i < len(children) && i < 3; i++ {
		n.Child[i] = children[i]
	}
	for i := len(children); i < 3; i++ {
		n.Child[i] = NoNode
	}
	return n
}

// MarkMustGenerate records that this node must emit code purely for its
// side effect, independent of whether any later node reads its result.
func (n *Node) MarkMustGenerate() { n.effect = sideEffectMustGenerate }

// ClearMustGenerate drops the side-effect obligation, e.g. once Fixup
// proves an opcode pure.
func (n *Node) ClearMustGenerate() { n.effect = sideEffectNone }

func (n Node) MustGenerate() bool { return n.effect == sideEffectMustGenerate }

// IsPhantom/IsNop reflect the two demotion states a node can be rewritten
// into: Phantom keeps the reference alive for users that still point at
// it but emits no code; Nop is fully dead with cleared operands
// (spec.md §3, "Lifecycle").
func (n Node) IsPhantom() bool { return n.Op == OpPhantom }
func (n Node) IsNop() bool     { return n.Op == OpNop }

// TurnIntoPhantom demotes n in place: its children and payload are kept,
// its RefCount becomes the single synthetic reference, and its
// must-generate obligation is dropped.
func (n *Node) TurnIntoPhantom() {
	n.Op = OpPhantom
	n.RefCount = 1
	n.effect = sideEffectNone
}

// TurnIntoNop fully kills n: no references, no children, no code.
func (n *Node) TurnIntoNop() {
	n.Op = OpNop
	n.Child = [3]NodeIndex{NoNode, NoNode, NoNode}
	n.VarArgsCount = 0
	n.RefCount = 0
	n.effect = sideEffectNone
}

// HasResult reports whether n produces a value a later node might
// reference — everything except Nop.
func (n Node) HasResult() bool { return n.Op != OpNop }
