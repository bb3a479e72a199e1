package propagate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zihong/dfgprop/src/compiler/collab"
	"github.com/zihong/dfgprop/src/compiler/graph"
)

func TestPropagateEndToEndAddOfTwoInt32Locals(t *testing.T) {
	g := graph.NewGraph()
	v0 := g.VarAccess.New(0)
	v1 := g.VarAccess.New(1)
	g.VarAccess.MergePrediction(v0, graph.PredInt32)
	g.VarAccess.MergePrediction(v1, graph.PredInt32)

	get0 := g.AddNode(graph.NewNode(graph.OpGetLocal))
	g.At(get0).VarAccessIndex = v0
	g.At(get0).RefCount = 1
	get1 := g.AddNode(graph.NewNode(graph.OpGetLocal))
	g.At(get1).VarAccessIndex = v1
	g.At(get1).RefCount = 1

	add := g.AddNode(graph.NewNode(graph.OpArithAdd, get0, get1))
	g.At(add).MarkMustGenerate()
	g.AddBlock(0, 3)

	cb, gd := collab.NewCodeBlock(), collab.NewGlobalData()
	err := Propagate(context.Background(), g, cb, gd, Options{})
	require.NoError(t, err)

	require.Equal(t, graph.PredInt32, g.At(add).Prediction)
	require.GreaterOrEqual(t, g.At(add).VReg, 0, "a must-generate node should end up with a real register")
	require.Equal(t, 2, cb.NumCalleeRegisters, "two operand slots is the high water mark even though the result reuses one")
}

func TestPropagateEndToEndArrayLengthRewritesToPureLengthOp(t *testing.T) {
	g := graph.NewGraph()
	base := g.AddNode(graph.NewNode(graph.OpNewArray))
	getLen := g.AddNode(graph.NewNode(graph.OpGetById, base))
	g.At(getLen).MarkMustGenerate()
	g.AddBlock(0, 2)

	cb, gd := collab.NewCodeBlock(), collab.NewGlobalData()
	require.NoError(t, Propagate(context.Background(), g, cb, gd, Options{}))

	n := g.At(getLen)
	require.Equal(t, graph.OpGetArrayLength, n.Op)
	require.False(t, n.MustGenerate(), "fixup proved it pure, so the side-effect obligation is gone")
	require.Equal(t, -1, n.VReg, "nothing reads the length, so it should never be allocated a register")
}

func TestPropagateEndToEndElidesRedundantStructureCheck(t *testing.T) {
	g := graph.NewGraph()
	base := g.AddNode(graph.NewNode(graph.OpGetLocal))
	g.At(base).VarAccessIndex = g.VarAccess.New(0)

	wideIdx := len(g.StructAccess)
	g.StructAccess = append(g.StructAccess, graph.StructureAccessData{Structures: graph.StructureSet{1, 2}})
	check1 := g.AddNode(graph.NewNode(graph.OpCheckStructure, base))
	g.At(check1).StructAccess = wideIdx

	narrowIdx := len(g.StructAccess)
	g.StructAccess = append(g.StructAccess, graph.StructureAccessData{Structures: graph.StructureSet{1}})
	check2 := g.AddNode(graph.NewNode(graph.OpCheckStructure, base))
	g.At(check2).StructAccess = narrowIdx

	g.AddBlock(0, 3)

	cb, gd := collab.NewCodeBlock(), collab.NewGlobalData()
	require.NoError(t, Propagate(context.Background(), g, cb, gd, Options{}))

	require.True(t, g.At(check2).IsPhantom())
}
