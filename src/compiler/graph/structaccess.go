package graph

// StructureID names one of the host runtime's hidden-class shapes. The
// pipeline treats it as an opaque small integer; only the external object
// model (out of scope here) knows what it describes.
type StructureID int

// StructureSet is the small set of structures a CheckStructure/PutStructure
// node reasons about. It is a plain slice in no particular order (Equal
// ignores order): structure-set sizes in
// practice are tiny (single digits), so a bitset would be overkill here
// unlike the larger register/block sets in package set.
type StructureSet []StructureID

// Contains reports whether id is a member of s.
func (s StructureSet) Contains(id StructureID) bool {
	for _, x := range s {
		if x == id {
			return true
		}
	}
	return false
}

// IsSupersetOf reports whether every structure in other is also in s,
// i.e. whether a CheckStructure asking for other is implied by a prior
// CheckStructure over s (spec.md §4.4, "checkStructureLoadElimination").
func (s StructureSet) IsSupersetOf(other StructureSet) bool {
	for _, x := range other {
		if !s.Contains(x) {
			return false
		}
	}
	return true
}

// Equal reports set equality regardless of order.
func (s StructureSet) Equal(other StructureSet) bool {
	return s.IsSupersetOf(other) && other.IsSupersetOf(s)
}

// StructureTransition records a PutStructure's effect: it moves an object
// from From to To. CSE's structure-check elimination uses this to decide
// whether a transition invalidates or validates a pending CheckStructure
// query (spec.md §4.4).
type StructureTransition struct {
	From, To StructureID
}

// StructureAccessData is the side-table entry a CheckStructure/PutStructure
// node's Node.StructAccess field indexes into.
type StructureAccessData struct {
	Structures StructureSet
	Transition StructureTransition // only meaningful for PutStructure
}
