// Package mc sequences, gates and classifies Monte Carlo kick trials. It
// owns the per-trial decision tree (disruption, non-merger, offset match,
// energy-budget violation), the one-row-per-trial bookkeeping, and the
// radial/tangential diagnostic grid sweep.
package mc

import "fmt"

// Outcome classifies one finished trial. The integer values are part of
// the output-file contract and must not change.
type Outcome int

const (
	// OutcomeOffsetMiss: merged, but not at the required projected offset.
	OutcomeOffsetMiss Outcome = 0
	// OutcomeOffsetMatch: merged within one sigma of the observed offset.
	OutcomeOffsetMatch Outcome = 1
	// OutcomeNoMerger: inspiral time outside the allowed window.
	OutcomeNoMerger Outcome = 2
	// OutcomeDisrupted: the kick unbound the binary.
	OutcomeDisrupted Outcome = 3
	// OutcomeEnergyFail: energy residual above tolerance; the trial's
	// classification is numerically untrustworthy.
	OutcomeEnergyFail Outcome = 4

	// outcomePending marks a sweep grid point whose offset crossing has
	// not been observed yet. It never reaches a finalized row.
	outcomePending Outcome = 9
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOffsetMiss:
		return "offset-miss"
	case OutcomeOffsetMatch:
		return "offset-match"
	case OutcomeNoMerger:
		return "no-merger"
	case OutcomeDisrupted:
		return "disrupted"
	case OutcomeEnergyFail:
		return "energy-fail"
	case outcomePending:
		return "pending"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Terminal reports whether o may appear in an emitted row.
func (o Outcome) Terminal() bool {
	return o >= OutcomeOffsetMiss && o <= OutcomeEnergyFail
}
