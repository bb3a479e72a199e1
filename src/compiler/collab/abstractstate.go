package collab

import (
	"fmt"
	"io"

	"github.com/zihong/dfgprop/src/compiler/graph"
	"github.com/zihong/dfgprop/src/compiler/set"
)

// MergePolicy selects how EndBasicBlock propagates the tail state to
// successors. Only one policy exists today — DFG's global CFA always
// merges forward into every successor — but the type keeps the interface
// open the way spec.md §6 describes it.
type MergePolicy int

const MergeToSuccessors MergePolicy = 0

// AbstractState is the opaque dataflow engine driving global CFA
// (spec.md §4.6, §6). BeginBasicBlock loads the block's head state;
// Execute folds one node's effect into the current state, reporting
// whether control can still fall through; EndBasicBlock propagates the
// tail state into successor heads and reports whether any of them changed
// (the signal the outer worklist fixpoint watches).
type AbstractState interface {
	Initialize(g *graph.Graph)
	BeginBasicBlock(b graph.BasicBlock)
	Execute(i graph.NodeIndex) (continuable bool, err error)
	EndBasicBlock(merge MergePolicy) (changed bool, err error)
	Dump(w io.Writer)
}

// localState is the per-local abstract value tracked at a program point:
// the refined Prediction. Reachability is tracked per block, in
// blockState.
type localState struct {
	prediction graph.Prediction
}

// blockState is the abstract state attached to one basic block's entry.
type blockState struct {
	locals      map[int]localState
	reachable   bool
	initialized bool
}

func (s blockState) clone() blockState {
	locals := make(map[int]localState, len(s.locals))
	for k, v := range s.locals {
		locals[k] = v
	}
	return blockState{locals: locals, reachable: s.reachable, initialized: s.initialized}
}

// merge joins other into s (union of predictions per local, reachable iff
// either side is), reporting whether s changed.
func (s *blockState) merge(other blockState) (changed bool) {
	if !s.initialized {
		*s = other.clone()
		return true
	}
	if other.reachable && !s.reachable {
		s.reachable = true
		changed = true
	}
	for local, ls := range other.locals {
		cur, ok := s.locals[local]
		merged := cur.prediction.Merge(ls.prediction)
		if !ok || merged != cur.prediction {
			s.locals[local] = localState{prediction: merged}
			changed = true
		}
	}
	return changed
}

// LatticeAbstractState is the concrete AbstractState used by runCFA. It
// tracks, per basic block, an abstract value (a Prediction, the same
// lattice value propagation already computes) for every local variable
// slot, and marks a node's containing program point unreachable once a
// structure/function guard is proven to contradict the currently known
// abstract value of its base — the simplified analogue of DFG's full
// AbstractValue (which additionally tracks value ranges and structure
// sets; spec.md's Non-goals exclude rebuilding that machinery here).
type LatticeAbstractState struct {
	g *graph.Graph

	heads []blockState // per-block entry state
	cur   blockState   // state being threaded through the block currently executing
	block graph.BasicBlock

	unreachableNodes set.Keyed[graph.NodeIndex]
}

func NewLatticeAbstractState() *LatticeAbstractState {
	return &LatticeAbstractState{unreachableNodes: set.MakeKeyed[graph.NodeIndex](0)}
}

func (s *LatticeAbstractState) Initialize(g *graph.Graph) {
	s.g = g
	s.heads = make([]blockState, len(g.Blocks))
	s.heads[0] = blockState{locals: map[int]localState{}, reachable: true, initialized: true}
}

func (s *LatticeAbstractState) BeginBasicBlock(b graph.BasicBlock) {
	s.block = b
	idx := s.g.BlockOf(b.Begin)
	if idx >= 0 && s.heads[idx].initialized {
		s.cur = s.heads[idx].clone()
	} else {
		s.cur = blockState{locals: map[int]localState{}, reachable: idx == 0, initialized: true}
	}
}

// Execute folds node i's effect into the current abstract state and
// reports whether control can still reach the next node in program
// order.
func (s *LatticeAbstractState) Execute(i graph.NodeIndex) (bool, error) {
	if !s.cur.reachable {
		return false, nil
	}

	n := s.g.At(i)

	switch n.Op {
	case graph.OpGetLocal:
		if ls, ok := s.cur.locals[n.VarAccessIndex]; ok {
			s.g.MergePrediction(i, ls.prediction)
		}
	case graph.OpSetLocal:
		pred := s.g.At(n.Child[0]).Prediction
		s.cur.locals[n.VarAccessIndex] = localState{prediction: pred}
	case graph.OpCheckStructure, graph.OpCheckFunction:
		base := n.Child[0]
		bp := s.g.At(base).Prediction
		if bp.IsSet() && bp.IsDefinitelyNot(graph.PredObject) {
			s.unreachableNodes.Set(i)
			s.cur.reachable = false
			return false, nil
		}
	}

	return true, nil
}

// EndBasicBlock propagates s.cur into every successor's head state and
// reports whether any of them changed — the signal the outer worklist
// fixpoint in cfa.go watches to decide whether to revisit that successor.
func (s *LatticeAbstractState) EndBasicBlock(merge MergePolicy) (bool, error) {
	changed := false
	for _, succ := range s.block.Successors {
		if s.heads[succ].merge(s.cur) {
			changed = true
		}
	}
	return changed, nil
}

func (s *LatticeAbstractState) Dump(w io.Writer) {
	for bi, h := range s.heads {
		fmt.Fprintf(w, "block %d: reachable=%v locals=%v\n", bi, h.reachable, h.locals)
	}
}

// IsUnreachable reports whether Execute ever proved node i unreachable.
func (s *LatticeAbstractState) IsUnreachable(i graph.NodeIndex) bool {
	return s.unreachableNodes.IsSet(i)
}
