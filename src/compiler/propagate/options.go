package propagate

import "tlog.app/go/errors"

// Options configures a Propagate run: debug-dump verbosity and the
// iteration caps spec.md §9's design notes call out as tunable without
// affecting correctness (the 300-node CSE lookback cap, the fixpoint round
// cap).
type Options struct {
	// Debug makes Propagate log a start line (node and block counts plus
	// the caller's location). The per-phase tr.If("dump_...") dumps are
	// gated by the span's own debug topics and do not read this field.
	Debug bool

	// CSELookback bounds the backward search window of pure and impure
	// value numbering and of the global-var, GetByVal and GetByOffset load
	// eliminators. 0 means use the default of 300, matching spec.md §4.4.
	CSELookback int

	// MaxFixpointRounds bounds every fixpoint driver. 0 means use the
	// default of 10000.
	MaxFixpointRounds int
}

const (
	defaultCSELookback      = 300
	defaultMaxFixpointRounds = 10000
)

func (o Options) cseLookback() int {
	if o.CSELookback > 0 {
		return o.CSELookback
	}
	return defaultCSELookback
}

func (o Options) maxFixpointRounds() int {
	if o.MaxFixpointRounds > 0 {
		return o.MaxFixpointRounds
	}
	return defaultMaxFixpointRounds
}

var errFixpointDidNotConverge = errors.New("propagate: fixpoint did not converge within round cap")
