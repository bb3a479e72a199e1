package propagate

import "tlog.app/go/errors"

// Invariant-violation errors (spec.md §7): every one aborts Propagate so
// the caller can fall back to the unoptimized path instead of running
// with a broken graph.
var (
	errLengthOpcodeBeforeFixup = errors.New("propagate: length-specialized opcode observed before fixup ran")
	errCSEAcrossBlocks          = errors.New("propagate: CSE replacement crosses a basic-block boundary")
	errReplacementChain         = errors.New("propagate: replacement chain longer than one hop")
)
