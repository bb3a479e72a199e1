package collab

import "github.com/zihong/dfgprop/src/compiler/graph"

// Scoreboard is the opaque register-allocation engine spec.md §6 names:
// Use decrements a child's live-use count and frees its slot once that
// count reaches zero; Allocate hands out a slot (reused or fresh);
// HighWatermark reports the largest slot count ever simultaneously live.
type Scoreboard interface {
	Use(child graph.NodeIndex)
	Allocate(owner graph.NodeIndex) int
	HighWatermark() int
}

// SimpleScoreboard is a straightforward array-backed scoreboard: each
// node's remaining use count is its RefCount at the time register
// allocation starts; Use decrements it and returns the node's slot to the
// free pool when it hits zero. Grounded on the free-slot/high-water-mark
// shape of fkuehnel-golang-cfg's regalloc.go, simplified to this
// pipeline's single ref-count-driven linear scan (no cross-block liveness
// — spec.md §4.5 skips phi-shaped GetLocal nodes entirely).
type SimpleScoreboard struct {
	remaining []int32 // remaining use count per node, indexed by NodeIndex
	slot      []int   // assigned slot per node, -1 until allocated
	free      []int   // pool of slots returned by dying nodes, LIFO
	highWater int
}

// NewSimpleScoreboard builds a scoreboard seeded from the graph's current
// ref counts (as left by CSE).
func NewSimpleScoreboard(g *graph.Graph) *SimpleScoreboard {
	s := &SimpleScoreboard{
		remaining: make([]int32, len(g.Nodes)),
		slot:      make([]int, len(g.Nodes)),
	}
	for i := range g.Nodes {
		s.remaining[i] = g.Nodes[i].RefCount
		s.slot[i] = -1
	}
	return s
}

// Use decrements child's remaining use count; once it hits zero, the
// slot it was assigned (if any) returns to the free pool for reuse by
// whichever node kills it (spec.md §4.5, step 1).
func (s *SimpleScoreboard) Use(child graph.NodeIndex) {
	if int(child) >= len(s.remaining) || child < 0 {
		return
	}
	s.remaining[child]--
	if s.remaining[child] > 0 {
		return
	}
	if slot := s.slot[child]; slot >= 0 {
		s.free = append(s.free, slot)
		s.slot[child] = -1
	}
}

// Allocate assigns owner a slot: a freed one if available, else grows the
// high-water mark (spec.md §4.5, step 2).
func (s *SimpleScoreboard) Allocate(owner graph.NodeIndex) int {
	var slot int
	if n := len(s.free); n > 0 {
		slot = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		slot = s.highWater
		s.highWater++
	}
	s.slot[owner] = slot
	return slot
}

// HighWatermark reports the largest slot count ever simultaneously live.
func (s *SimpleScoreboard) HighWatermark() int { return s.highWater }
