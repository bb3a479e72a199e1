package graph

// Vote is a double-voting ballot cast by a node against the local it
// reads or writes (spec.md §4.2, "Double voting").
type Vote int

const (
	VoteValue Vote = iota
	VoteDouble
)

// varAccessDescriptor is one entry in the union-find forest unifying every
// use-site cluster of a given local variable. The representative of a set
// carries the accumulated prediction and the double-voting ballot tally;
// non-representatives only carry a parent pointer.
type varAccessDescriptor struct {
	parent int // index into VarAccessPool.entries; self if representative

	local int // source local-variable slot this cluster names

	prediction Prediction

	valueVotes  int
	doubleVotes int
	useDouble   bool
}

// VarAccessPool is the graph's pool of variable-access descriptors,
// unified by union-find so that every GetLocal/SetLocal touching the same
// source local shares one accumulated prediction and ballot (spec.md §3,
// "Graph"; §9, "Union-find for locals").
type VarAccessPool struct {
	entries []varAccessDescriptor
}

func NewVarAccessPool() *VarAccessPool {
	return &VarAccessPool{}
}

// New allocates a fresh descriptor naming local and returns its index.
func (p *VarAccessPool) New(local int) int {
	i := len(p.entries)
	p.entries = append(p.entries, varAccessDescriptor{parent: i, local: local})
	return i
}

// Find returns the canonical representative of i's set, path-compressing
// along the way. Idempotent per spec.md §3's invariant.
func (p *VarAccessPool) Find(i int) int {
	root := i
	for p.entries[root].parent != root {
		root = p.entries[root].parent
	}
	for i != root {
		next := p.entries[i].parent
		p.entries[i].parent = root
		i = next
	}
	return root
}

// Union merges the sets containing a and b, keeping the lower-indexed of
// the two representatives and folding the other's prediction and ballots
// into it.
func (p *VarAccessPool) Union(a, b int) int {
	ra, rb := p.Find(a), p.Find(b)
	if ra == rb {
		return ra
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	p.entries[rb].parent = ra
	p.entries[ra].prediction = p.entries[ra].prediction.Merge(p.entries[rb].prediction)
	p.entries[ra].valueVotes += p.entries[rb].valueVotes
	p.entries[ra].doubleVotes += p.entries[rb].doubleVotes
	return ra
}

// Local returns the source local-variable slot named by i's set.
func (p *VarAccessPool) Local(i int) int { return p.entries[p.Find(i)].local }

// Prediction returns the representative's accumulated prediction.
func (p *VarAccessPool) Prediction(i int) Prediction { return p.entries[p.Find(i)].prediction }

// MergePrediction joins pr into i's representative, reporting whether it
// changed.
func (p *VarAccessPool) MergePrediction(i int, pr Prediction) bool {
	r := p.Find(i)
	before := p.entries[r].prediction
	p.entries[r].prediction = p.entries[r].prediction.Merge(pr)
	return p.entries[r].prediction != before
}

// ClearBallot resets the vote tally ahead of a fresh voting round.
func (p *VarAccessPool) ClearBallot(i int) {
	r := p.Find(i)
	p.entries[r].valueVotes = 0
	p.entries[r].doubleVotes = 0
}

// Cast records one ballot of kind v against i's representative.
func (p *VarAccessPool) Cast(i int, v Vote) {
	r := p.Find(i)
	switch v {
	case VoteDouble:
		p.entries[r].doubleVotes++
	default:
		p.entries[r].valueVotes++
	}
}

// Tally decides (and records) whether i's representative should use the
// double format, based on the votes cast since the last ClearBallot, and
// reports whether the decision flipped from its previous value.
func (p *VarAccessPool) Tally(i int) (changed bool) {
	r := p.Find(i)
	e := &p.entries[r]
	want := e.doubleVotes > e.valueVotes
	changed = want != e.useDouble
	e.useDouble = want
	return changed
}

// ShouldUseDouble reports the representative's current double-format
// decision.
func (p *VarAccessPool) ShouldUseDouble(i int) bool {
	return p.entries[p.Find(i)].useDouble
}

// Len reports how many descriptors (not sets) the pool holds.
func (p *VarAccessPool) Len() int { return len(p.entries) }
