package propagate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zihong/dfgprop/src/compiler/collab"
	"github.com/zihong/dfgprop/src/compiler/graph"
)

// TestRegallocReusesOperandSlotForResult exercises spec.md §4.5's core
// claim: since children are used before the owning node is allocated, a
// two-operand op whose both operands die here can reuse one of their
// slots for its own result instead of growing the watermark.
func TestRegallocReusesOperandSlotForResult(t *testing.T) {
	g := graph.NewGraph()
	c0 := g.AddNode(NewConstNode(graph.Int32Value(1)))
	c1 := g.AddNode(NewConstNode(graph.Int32Value(2)))
	add := g.AddNode(graph.NewNode(graph.OpArithAdd, c0, c1))
	g.At(c0).RefCount = 1
	g.At(c1).RefCount = 1
	g.At(add).MarkMustGenerate()

	cb := collab.NewCodeBlock()
	require.NoError(t, allocateRegisters(context.Background(), g, cb))

	require.Equal(t, 0, g.At(c0).VReg)
	require.Equal(t, 1, g.At(c1).VReg)
	require.Equal(t, 1, g.At(add).VReg, "add should reuse the most recently freed operand slot")
	require.Equal(t, 2, cb.NumCalleeRegisters)
}

// TestRegallocSyntheticUseFreesMustGenerateSlot checks the MustGenerate
// synthetic-use path: a side-effect-only node with no reader still claims
// a slot to be generated, then immediately frees it back for reuse.
func TestRegallocSyntheticUseFreesMustGenerateSlot(t *testing.T) {
	g := graph.NewGraph()
	call := g.AddNode(graph.NewNode(graph.OpCall))
	g.At(call).MarkMustGenerate()
	after := g.AddNode(NewConstNode(graph.Int32Value(3)))
	g.At(after).RefCount = 1

	cb := collab.NewCodeBlock()
	cb.ParameterSlots = 2
	require.NoError(t, allocateRegisters(context.Background(), g, cb))

	require.Equal(t, 0, g.At(call).VReg)
	require.Equal(t, 0, g.At(after).VReg, "the call's slot should already be free for the next allocation")
	require.Equal(t, cb.ParameterSlots+1, cb.NumCalleeRegisters)
}

// TestRegallocSkipsPhantomNodes checks that a node demoted to Phantom by
// CSE is never handed a register, even though TurnIntoPhantom forces its
// RefCount to 1.
func TestRegallocSkipsPhantomNodes(t *testing.T) {
	g := graph.NewGraph()
	dead := g.AddNode(graph.NewNode(graph.OpArithAdd))
	g.At(dead).TurnIntoPhantom()

	cb := collab.NewCodeBlock()
	require.NoError(t, allocateRegisters(context.Background(), g, cb))

	require.Equal(t, -1, g.At(dead).VReg)
	require.Equal(t, 0, cb.NumCalleeRegisters)
}
