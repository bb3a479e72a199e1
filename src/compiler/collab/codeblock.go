// Package collab holds the external collaborators the propagation
// pipeline consumes through narrow interfaces (spec.md §6): the code
// block's constant pool and identifier table, the host's global-data
// singletons, the register-allocation scoreboard, and the abstract-
// interpretation engine driving global CFA. None of these are graph
// construction or code generation — they are the minimal stand-ins needed
// to run and test the pipeline end to end.
package collab

import "github.com/zihong/dfgprop/src/compiler/graph"

// LengthIdentifier is the well-known identifier number the fixup pass
// compares GetById nodes against to recognize `.length` (spec.md §4.3).
const LengthIdentifier = 0

// GlobalData holds the host runtime's well-known identifier singletons.
// Only the one the pipeline actually consults is modeled.
type GlobalData struct {
	LengthIdentifier int
}

// NewGlobalData returns a GlobalData with the conventional length
// identifier already assigned.
func NewGlobalData() *GlobalData {
	return &GlobalData{LengthIdentifier: LengthIdentifier}
}

// CodeBlock is the per-function compilation unit the pipeline reads
// constants from and writes the callee-register watermark back into.
type CodeBlock struct {
	// Identifiers maps an interned identifier number to its name, purely
	// so GetById nodes can be compared against the length sentinel by
	// name as well as by number.
	Identifiers []string

	// Constants is the constant pool read by ValueOfConstant and its
	// siblings. The passes in package propagate do not index it: they read
	// a JSConstant/WeakJSConstant node's value from its Node.Constant
	// payload.
	Constants []graph.Value

	// NumCalleeRegisters is raised monotonically by register allocation
	// (spec.md §4.5): it only ever grows, never shrinks, matching the
	// "idempotent monotone max" contract in spec.md §5.
	NumCalleeRegisters int

	// ParameterSlots is the number of incoming-argument virtual register
	// slots reserved ahead of the callee registers.
	ParameterSlots int

	// AlternativeCodeBlock is the profiled (interpreter-tier) code block
	// this one was compiled from; heap-type hints are read from it. Nil
	// when no profiling data is available.
	AlternativeCodeBlock *CodeBlock

	// HeapHints maps a node index in the *profiled* code block's graph to
	// the dynamic-type category the profiler observed there. This is the
	// only piece of "the external profiler" the pipeline reads.
	HeapHints map[int]graph.Prediction
}

// NewCodeBlock returns an empty CodeBlock with no profiling data attached.
func NewCodeBlock() *CodeBlock {
	return &CodeBlock{HeapHints: map[int]graph.Prediction{}}
}

// ValueOfConstant returns the constant pool entry at index i.
func (cb *CodeBlock) ValueOfConstant(i int) graph.Value {
	if i < 0 || i >= len(cb.Constants) {
		return graph.Value{}
	}
	return cb.Constants[i]
}

// IsNumberConstant reports whether the constant at index i is numeric.
func (cb *CodeBlock) IsNumberConstant(i int) bool {
	return cb.ValueOfConstant(i).IsNumber()
}

// ValueOfNumberConstant returns the constant at index i as a float64; ok
// is false when it is not numeric.
func (cb *CodeBlock) ValueOfNumberConstant(i int) (f float64, ok bool) {
	return cb.ValueOfConstant(i).AsFloat64()
}

// IdentifierIsLength reports whether identifier number id names the
// `length` property, per GlobalData's well-known singleton.
func (cb *CodeBlock) IdentifierIsLength(gd *GlobalData, id int) bool {
	if id == gd.LengthIdentifier {
		return true
	}
	return id >= 0 && id < len(cb.Identifiers) && cb.Identifiers[id] == "length"
}

// HeapHint returns the profiler's predicted type for node index i, if any
// profiling data is attached.
func (cb *CodeBlock) HeapHint(i int) (graph.Prediction, bool) {
	src := cb
	if cb.AlternativeCodeBlock != nil {
		src = cb.AlternativeCodeBlock
	}
	p, ok := src.HeapHints[i]
	return p, ok
}

// RaiseCalleeRegisters implements the one write the pipeline performs on
// the code block besides the graph itself: numCalleeRegisters only ever
// increases (spec.md §4.5, §5).
func (cb *CodeBlock) RaiseCalleeRegisters(n int) {
	if n > cb.NumCalleeRegisters {
		cb.NumCalleeRegisters = n
	}
}
