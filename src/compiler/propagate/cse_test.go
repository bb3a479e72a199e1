package propagate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zihong/dfgprop/src/compiler/graph"
)

func TestCSEDeduplicatesIdenticalPureAdd(t *testing.T) {
	g := graph.NewGraph()
	c0 := g.AddNode(NewConstNode(graph.Int32Value(1)))
	c1 := g.AddNode(NewConstNode(graph.Int32Value(2)))
	add1 := g.AddNode(graph.NewNode(graph.OpArithAdd, c0, c1))
	add2 := g.AddNode(graph.NewNode(graph.OpArithAdd, c0, c1))
	g.At(add2).MarkMustGenerate()
	g.AddBlock(0, 4)

	require.NoError(t, localCSE(context.Background(), g, Options{}))

	require.True(t, g.At(add2).IsPhantom())
	require.Equal(t, add1, g.Resolve(add2))
}

// spec.md §8 scenario 3: a CheckStructure whose structure set is already
// proven by an earlier, broader CheckStructure over the same base is
// redundant.
func TestCSEElidesRedundantStructureCheck(t *testing.T) {
	g := graph.NewGraph()
	base := g.AddNode(graph.NewNode(graph.OpGetLocal))

	wide := g.StructAccess
	wideIdx := len(wide)
	g.StructAccess = append(g.StructAccess, graph.StructureAccessData{Structures: graph.StructureSet{1, 2}})
	check1 := g.AddNode(graph.NewNode(graph.OpCheckStructure, base))
	g.At(check1).StructAccess = wideIdx

	narrowIdx := len(g.StructAccess)
	g.StructAccess = append(g.StructAccess, graph.StructureAccessData{Structures: graph.StructureSet{1}})
	check2 := g.AddNode(graph.NewNode(graph.OpCheckStructure, base))
	g.At(check2).StructAccess = narrowIdx

	g.AddBlock(0, 3)

	require.NoError(t, localCSE(context.Background(), g, Options{}))

	require.True(t, g.At(check2).IsPhantom())
	require.Equal(t, graph.NoNode, g.Replacements[check2], "a guard has no value to replace with, only a phantom demotion")
}

// spec.md §8 scenario 4: a named-property load survives across a store to
// a different identifier on the same base.
func TestCSELoadEliminationAcrossNonAliasingStore(t *testing.T) {
	g := graph.NewGraph()
	base := g.AddNode(graph.NewNode(graph.OpGetLocal))
	value := g.AddNode(NewConstNode(graph.Int32Value(9)))

	get1 := g.AddNode(graph.NewNode(graph.OpGetByOffset, base))
	g.At(get1).Identifier = 5
	g.At(get1).MarkMustGenerate()

	put := g.AddNode(graph.NewNode(graph.OpPutByOffset, base, value))
	g.At(put).Identifier = 7

	get2 := g.AddNode(graph.NewNode(graph.OpGetByOffset, base))
	g.At(get2).Identifier = 5
	g.At(get2).MarkMustGenerate()

	g.AddBlock(0, 5)

	require.NoError(t, localCSE(context.Background(), g, Options{}))

	require.True(t, g.At(get2).IsPhantom())
	require.Equal(t, get1, g.Resolve(get2))
}

// spec.md §8 scenario 5: an intervening world-clobbering call invalidates
// an otherwise-matching load.
func TestCSEInvalidatedByWorldClobber(t *testing.T) {
	g := graph.NewGraph()
	base := g.AddNode(graph.NewNode(graph.OpGetLocal))

	get1 := g.AddNode(graph.NewNode(graph.OpGetByOffset, base))
	g.At(get1).Identifier = 5
	g.At(get1).MarkMustGenerate()

	call := g.AddNode(graph.NewNode(graph.OpCall))
	g.At(call).MarkMustGenerate()

	get2 := g.AddNode(graph.NewNode(graph.OpGetByOffset, base))
	g.At(get2).Identifier = 5
	g.At(get2).MarkMustGenerate()

	g.AddBlock(0, 4)

	require.NoError(t, localCSE(context.Background(), g, Options{}))

	require.False(t, g.At(get2).IsPhantom(), "an intervening clobbering call should block the alias")
	require.Equal(t, graph.OpGetByOffset, g.At(get2).Op)
}

// A pure GetByVal pair (narrow array-typed base, int32 index) is still
// eliminated — the purity gate added for
// TestCSELeavesImpureGetByValPairAlone must not over-block the happy
// path.
func TestCSEDeduplicatesPureGetByValPair(t *testing.T) {
	g := graph.NewGraph()
	base := g.AddNode(graph.NewNode(graph.OpGetLocal))
	g.MergePrediction(base, graph.PredArray)
	index := g.AddNode(NewConstNode(graph.Int32Value(0)))
	g.MergePrediction(index, graph.PredInt32)

	get1 := g.AddNode(graph.NewNode(graph.OpGetByVal, base, index))
	g.At(get1).MarkMustGenerate()
	get2 := g.AddNode(graph.NewNode(graph.OpGetByVal, base, index))
	g.At(get2).MarkMustGenerate()

	g.AddBlock(0, 4)

	require.NoError(t, localCSE(context.Background(), g, Options{}))

	require.True(t, g.At(get2).IsPhantom())
	require.Equal(t, get1, g.Resolve(get2))
}

// An impure GetByVal (base prediction not narrow enough to prove no
// getter can run) must never be eliminated as a re-read of an earlier
// identical GetByVal, even when operands match exactly — matches the
// original's byValIsPure gate, which spec.md §4.4 folds into
// clobbersWorld.
func TestCSELeavesImpureGetByValPairAlone(t *testing.T) {
	g := graph.NewGraph()
	base := g.AddNode(graph.NewNode(graph.OpGetLocal))
	index := g.AddNode(NewConstNode(graph.Int32Value(0)))

	get1 := g.AddNode(graph.NewNode(graph.OpGetByVal, base, index))
	g.At(get1).MarkMustGenerate()
	get2 := g.AddNode(graph.NewNode(graph.OpGetByVal, base, index))
	g.At(get2).MarkMustGenerate()

	g.AddBlock(0, 4)

	require.NoError(t, localCSE(context.Background(), g, Options{}))

	require.False(t, g.At(get2).IsPhantom(), "an impure GetByVal re-read must not be eliminated")
	require.Equal(t, graph.OpGetByVal, g.At(get2).Op)
}

func TestCSEPromotesPutByValToAlias(t *testing.T) {
	g := graph.NewGraph()
	base := g.AddNode(graph.NewNode(graph.OpGetLocal))
	index := g.AddNode(NewConstNode(graph.Int32Value(0)))
	v1 := g.AddNode(NewConstNode(graph.Int32Value(1)))
	v2 := g.AddNode(NewConstNode(graph.Int32Value(2)))

	put1 := g.AddNode(graph.NewNode(graph.OpPutByVal, base, index, v1))
	g.At(put1).MarkMustGenerate()
	put2 := g.AddNode(graph.NewNode(graph.OpPutByVal, base, index, v2))
	g.At(put2).MarkMustGenerate()

	g.AddBlock(0, 6)

	require.NoError(t, localCSE(context.Background(), g, Options{}))

	require.Equal(t, graph.OpPutByValAlias, g.At(put2).Op)
}
