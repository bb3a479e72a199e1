package propagate

// runToFixpoint repeatedly calls step until a round makes no changes, per
// spec.md §9's "Fixpoint drivers" design note: flag propagation,
// prediction propagation (nested with double voting), and global CFA all
// share this shape — set changed=false, run one sweep, repeat until
// unchanged.
//
// maxRounds bounds worst-case iteration (the lattice has finite height, so
// this always converges well under the cap; the cap exists only to turn a
// broken transfer function into a returned error instead of a hang,
// consistent with spec.md §7 treating invariant violations as abortable
// errors rather than silent infinite loops).
func runToFixpoint(maxRounds int, step func() (changed bool, err error)) (rounds int, err error) {
	for rounds = 0; rounds < maxRounds; rounds++ {
		changed, err := step()
		if err != nil {
			return rounds, err
		}
		if !changed {
			return rounds + 1, nil
		}
	}
	return rounds, errFixpointDidNotConverge
}
