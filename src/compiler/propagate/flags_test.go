package propagate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zihong/dfgprop/src/compiler/graph"
)

// buildAddGraph builds `var0 = ValueToInt32(ArithAdd(c0, c1))` and returns the
// add node's index, for flag/prediction tests that don't need a full
// program.
func buildAddGraph() (*graph.Graph, graph.NodeIndex) {
	g := graph.NewGraph()
	c0 := g.AddNode(NewConstNode(graph.Int32Value(1)))
	c1 := g.AddNode(NewConstNode(graph.Int32Value(2)))
	add := g.AddNode(graph.NewNode(graph.OpArithAdd, c0, c1))
	trunc := g.AddNode(graph.NewNode(graph.OpValueToInt32, add))
	g.At(trunc).MarkMustGenerate()
	g.AddBlock(0, 4)
	return g, add
}

// NewConstNode is a small test helper mirroring what a real graph builder
// would emit for a JSConstant.
func NewConstNode(v graph.Value) graph.Node {
	n := graph.NewNode(graph.OpJSConstant)
	n.Constant = v
	return n
}

func TestPropagateFlagsSinkClearsNegZero(t *testing.T) {
	g, add := buildAddGraph()
	ctx := context.Background()

	require.NoError(t, propagateFlags(ctx, g, Options{}))

	f := g.At(add).ArithFlags
	require.False(t, f.Has(graph.NeedsNegZero), "add feeding only a ValueToInt32 sink should not need -0 distinguished")
}

func TestPropagateFlagsNonNegativeConstantStripsNegZero(t *testing.T) {
	g := graph.NewGraph()
	c0 := g.AddNode(NewConstNode(graph.Int32Value(5)))
	c1 := g.AddNode(NewConstNode(graph.DoubleValue(2)))
	add := g.AddNode(graph.NewNode(graph.OpArithAdd, c0, c1))
	store := g.AddNode(graph.NewNode(graph.OpSetLocal, add))
	g.At(store).VarAccessIndex = g.VarAccess.New(0)
	g.At(store).MarkMustGenerate()
	g.AddBlock(0, 4)

	ctx := context.Background()
	require.NoError(t, propagateFlags(ctx, g, Options{}))

	require.True(t, g.At(add).ArithFlags.Has(graph.UsedAsNumber))
	require.False(t, g.At(c0).ArithFlags.Has(graph.NeedsNegZero), "a non-negative-zero constant operand should strip NeedsNegZero before it reaches the operands")
}

func TestPropagateFlagsMulAlwaysDemandsBothBits(t *testing.T) {
	g := graph.NewGraph()
	c0 := g.AddNode(NewConstNode(graph.Int32Value(3)))
	c1 := g.AddNode(NewConstNode(graph.Int32Value(4)))
	mul := g.AddNode(graph.NewNode(graph.OpArithMul, c0, c1))
	g.At(mul).MarkMustGenerate()
	g.AddBlock(0, 3)

	ctx := context.Background()
	require.NoError(t, propagateFlags(ctx, g, Options{}))

	l, r := g.At(c0).ArithFlags, g.At(c1).ArithFlags
	require.True(t, l.Has(graph.NeedsNegZero))
	require.True(t, r.Has(graph.NeedsNegZero))
}
