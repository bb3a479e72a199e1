package propagate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zihong/dfgprop/src/compiler/collab"
	"github.com/zihong/dfgprop/src/compiler/graph"
)

func TestCFASingleBlockPropagatesLocalToConsumer(t *testing.T) {
	g := graph.NewGraph()
	va := g.VarAccess.New(0)

	c := g.AddNode(NewConstNode(graph.Int32Value(1)))
	g.MergePrediction(c, graph.PredInt32)
	setLocal := g.AddNode(graph.NewNode(graph.OpSetLocal, c))
	g.At(setLocal).VarAccessIndex = va
	getLocal := g.AddNode(graph.NewNode(graph.OpGetLocal))
	g.At(getLocal).VarAccessIndex = va

	g.AddBlock(0, 3)

	state := collab.NewLatticeAbstractState()
	require.NoError(t, runCFA(context.Background(), g, state, Options{}))

	require.Equal(t, graph.PredInt32, g.At(getLocal).Prediction)
}

// TestCFAJoinMergesBothPredecessors: a diamond CFG where the two arms
// set a local to different predictions; the join block's GetLocal should
// see the union of both, regardless of arm processing order.
func TestCFAJoinMergesBothPredecessors(t *testing.T) {
	g := graph.NewGraph()
	va := g.VarAccess.New(0)

	entry := g.AddNode(graph.NewNode(graph.OpJSConstant)) // block0: [0,1)
	c1 := g.AddNode(NewConstNode(graph.Int32Value(1)))    // block1: [1,3)
	g.MergePrediction(c1, graph.PredInt32)
	setLocal1 := g.AddNode(graph.NewNode(graph.OpSetLocal, c1))
	g.At(setLocal1).VarAccessIndex = va
	c2 := g.AddNode(NewConstNode(graph.DoubleValue(1))) // block2: [3,5)
	g.MergePrediction(c2, graph.PredDouble)
	setLocal2 := g.AddNode(graph.NewNode(graph.OpSetLocal, c2))
	g.At(setLocal2).VarAccessIndex = va
	getLocal := g.AddNode(graph.NewNode(graph.OpGetLocal)) // block3: [5,6)
	g.At(getLocal).VarAccessIndex = va
	_ = entry

	g.AddBlock(0, 1, 1, 2)
	g.AddBlock(1, 3, 3)
	g.AddBlock(3, 5, 3)
	g.AddBlock(5, 6)

	state := collab.NewLatticeAbstractState()
	require.NoError(t, runCFA(context.Background(), g, state, Options{}))

	require.Equal(t, graph.PredInt32|graph.PredDouble, g.At(getLocal).Prediction)
}

// TestCFAMarksGuardUnreachableOnContradiction: a CheckStructure whose
// base is already proven definitely non-object marks that program point
// dead (spec.md §4.6).
func TestCFAMarksGuardUnreachableOnContradiction(t *testing.T) {
	g := graph.NewGraph()
	base := g.AddNode(NewConstNode(graph.StringValue("x")))
	g.MergePrediction(base, graph.PredString)
	check := g.AddNode(graph.NewNode(graph.OpCheckStructure, base))

	g.AddBlock(0, 2)

	state := collab.NewLatticeAbstractState()
	require.NoError(t, runCFA(context.Background(), g, state, Options{}))

	require.True(t, state.IsUnreachable(check))
}
