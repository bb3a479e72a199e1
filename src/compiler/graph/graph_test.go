package graph

import "testing"

func TestMergePredictionMonotone(t *testing.T) {
	g := NewGraph()
	i := g.AddNode(NewNode(OpJSConstant))

	if !g.MergePrediction(i, PredInt32) {
		t.Fatalf("first merge should report changed")
	}
	if g.MergePrediction(i, PredInt32) {
		t.Fatalf("re-merging the same bit should report unchanged")
	}
	if !g.MergePrediction(i, PredDouble) {
		t.Fatalf("widening merge should report changed")
	}
	if got := g.At(i).Prediction; got != PredInt32|PredDouble {
		t.Fatalf("prediction = %v, want Int32|Double", got)
	}
}

func TestSetPredictionRejectsConflict(t *testing.T) {
	g := NewGraph()
	i := g.AddNode(NewNode(OpJSConstant))

	if err := g.SetPrediction(i, PredInt32); err != nil {
		t.Fatalf("first assert: %v", err)
	}
	if err := g.SetPrediction(i, PredInt32); err != nil {
		t.Fatalf("repeating the same assert should be fine: %v", err)
	}
	if err := g.SetPrediction(i, PredDouble); err == nil {
		t.Fatalf("conflicting assert should error")
	}
}

func TestResolveAndReplacementsAcyclic(t *testing.T) {
	g := NewGraph()
	a := g.AddNode(NewNode(OpJSConstant))
	b := g.AddNode(NewNode(OpJSConstant))

	if got := g.Resolve(a); got != a {
		t.Fatalf("unresolved node should resolve to itself")
	}

	g.Replacements[a] = b
	if got := g.Resolve(a); got != b {
		t.Fatalf("Resolve(a) = %v, want %v", got, b)
	}

	if err := g.CheckReplacementsAcyclic(); err != nil {
		t.Fatalf("single-hop replacement should be acyclic: %v", err)
	}

	g.Replacements[b] = a
	if err := g.CheckReplacementsAcyclic(); err == nil {
		t.Fatalf("two-hop chain should be rejected")
	}
}

func TestVarAccessPoolUnion(t *testing.T) {
	p := NewVarAccessPool()
	a := p.New(0)
	b := p.New(0)

	p.MergePrediction(a, PredInt32)
	p.MergePrediction(b, PredDouble)

	r := p.Union(a, b)
	if got := p.Prediction(r); got != PredInt32|PredDouble {
		t.Fatalf("unioned prediction = %v, want Int32|Double", got)
	}
	if p.Find(a) != p.Find(b) {
		t.Fatalf("a and b should share a representative after Union")
	}
}

func TestVarAccessPoolTally(t *testing.T) {
	p := NewVarAccessPool()
	a := p.New(0)

	p.Cast(a, VoteDouble)
	p.Cast(a, VoteDouble)
	p.Cast(a, VoteValue)

	if changed := p.Tally(a); !changed {
		t.Fatalf("first tally should flip useDouble from false to true")
	}
	if !p.ShouldUseDouble(a) {
		t.Fatalf("two double votes against one value vote should pick double")
	}

	p.ClearBallot(a)
	p.Cast(a, VoteValue)
	if changed := p.Tally(a); !changed {
		t.Fatalf("tally should flip back when votes reverse")
	}
}

func TestStructureSetSupersetAndEqual(t *testing.T) {
	s := StructureSet{1, 2, 3}
	sub := StructureSet{1, 2}

	if !s.IsSupersetOf(sub) {
		t.Fatalf("{1,2,3} should be a superset of {1,2}")
	}
	if sub.IsSupersetOf(s) {
		t.Fatalf("{1,2} should not be a superset of {1,2,3}")
	}
	if s.Equal(sub) {
		t.Fatalf("unequal sets reported equal")
	}
	if !s.Equal(StructureSet{3, 2, 1}) {
		t.Fatalf("Equal should ignore order")
	}
}

func TestOpcodeParseRoundTrip(t *testing.T) {
	for op := OpInvalid + 1; op < opcodeCount; op++ {
		name := op.String()
		if name == "OpUnknown" {
			continue
		}
		got, ok := ParseOpcode(name)
		if !ok || got != op {
			t.Fatalf("ParseOpcode(%q) = %v, %v; want %v, true", name, got, ok, op)
		}
	}
}

func TestPredictionParseRoundTrip(t *testing.T) {
	for p, name := range predictionNames {
		got, ok := ParsePrediction(name)
		if !ok || got != p {
			t.Fatalf("ParsePrediction(%q) = %v, %v; want %v, true", name, got, ok, p)
		}
	}
}
