package propagate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zihong/dfgprop/src/compiler/collab"
	"github.com/zihong/dfgprop/src/compiler/graph"
)

// TestAddOfTwoInt32LocalsPredictsInt32 is spec.md §8's first end-to-end
// scenario distilled to just the prediction pass: two locals seeded
// Int32, added together, with nothing downstream demanding -0.
func TestAddOfTwoInt32LocalsPredictsInt32(t *testing.T) {
	g := graph.NewGraph()
	v0 := g.VarAccess.New(0)
	v1 := g.VarAccess.New(1)
	g.VarAccess.MergePrediction(v0, graph.PredInt32)
	g.VarAccess.MergePrediction(v1, graph.PredInt32)

	get0 := g.AddNode(graph.NewNode(graph.OpGetLocal))
	g.At(get0).VarAccessIndex = v0
	get1 := g.AddNode(graph.NewNode(graph.OpGetLocal))
	g.At(get1).VarAccessIndex = v1

	add := g.AddNode(graph.NewNode(graph.OpArithAdd, get0, get1))
	g.At(add).MarkMustGenerate()
	g.AddBlock(0, 3)

	ctx := context.Background()
	cb, gd := collab.NewCodeBlock(), collab.NewGlobalData()

	require.NoError(t, propagateFlags(ctx, g, Options{}))
	require.NoError(t, propagatePredictions(ctx, g, cb, gd, Options{}))

	require.Equal(t, graph.PredInt32, g.At(add).Prediction)
}

// TestArrayLengthPredictsInt32 is spec.md §8's second scenario: GetById
// "length" on a known-Array base predicts Int32 even before fixup
// rewrites the opcode.
func TestArrayLengthPredictsInt32(t *testing.T) {
	g := graph.NewGraph()
	base := g.AddNode(graph.NewNode(graph.OpNewArray))
	getLen := g.AddNode(graph.NewNode(graph.OpGetById, base))
	g.At(getLen).MarkMustGenerate()
	g.AddBlock(0, 2)

	ctx := context.Background()
	cb, gd := collab.NewCodeBlock(), collab.NewGlobalData()

	require.NoError(t, propagateFlags(ctx, g, Options{}))
	require.NoError(t, propagatePredictions(ctx, g, cb, gd, Options{}))

	require.Equal(t, graph.PredInt32, g.At(getLen).Prediction)
}

// TestDoubleVoteFlipsForNonInt32MulOperands exercises spec.md §8's sixth
// scenario: a local read twice, with both reads feeding an ArithMul that
// cannot speculate int32 (the local predicts Int32|Double), should end up
// voted double.
func TestDoubleVoteFlipsForNonInt32MulOperands(t *testing.T) {
	g := graph.NewGraph()
	v0 := g.VarAccess.New(0)
	g.VarAccess.MergePrediction(v0, graph.PredInt32|graph.PredDouble)

	get0 := g.AddNode(graph.NewNode(graph.OpGetLocal))
	g.At(get0).VarAccessIndex = v0
	get1 := g.AddNode(graph.NewNode(graph.OpGetLocal))
	g.At(get1).VarAccessIndex = v0

	mul := g.AddNode(graph.NewNode(graph.OpArithMul, get0, get1))
	g.At(mul).MarkMustGenerate()
	g.AddBlock(0, 3)

	ctx := context.Background()
	cb, gd := collab.NewCodeBlock(), collab.NewGlobalData()

	require.NoError(t, propagateFlags(ctx, g, Options{}))
	require.NoError(t, propagatePredictions(ctx, g, cb, gd, Options{}))

	require.True(t, g.VarAccess.ShouldUseDouble(v0), "a local feeding a non-speculatable ArithMul on both sides should vote double")
}
