package sequencer

import (
	"log/slog"

	"github.com/abhisek/triplehelix/internal/stitch"
)

// Verifier repairs the single-ready invariant over a tube's merged view.
// Violations are fixed in place and logged; they are never surfaced as
// errors because the caller can always continue on the repaired state.
type Verifier struct {
	log *slog.Logger
}

// NewVerifier creates a verifier. A nil logger falls back to slog.Default.
func NewVerifier(log *slog.Logger) *Verifier {
	if log == nil {
		log = slog.Default()
	}
	return &Verifier{log: log}
}

// Repair asserts that exactly one stitch in the tube occupies position 0
// and fixes the tube when that does not hold. It returns the stitches it
// mutated. Running it on an already-valid tube mutates nothing.
//
// Duplicate or gapped positions away from the ready slot are left alone;
// the reorder arithmetic is the only place gaps get closed.
func (v *Verifier) Repair(q *stitch.Queue, tube stitch.TubeNumber) []*stitch.Stitch {
	merged := q.TubeStitches(tube)

	var ready []*stitch.Stitch
	for _, s := range merged {
		if s.Position == 0 {
			ready = append(ready, s)
		}
	}

	switch {
	case len(ready) == 1:
		return nil

	case len(ready) == 0:
		// Promote the stitch closest to the front. The sentinel and the
		// (absent) zero slot are excluded by the strict positivity check.
		var best *stitch.Stitch
		for _, s := range merged {
			if s.Position > 0 && (best == nil || s.Position < best.Position) {
				best = s
			}
		}
		if best == nil {
			// Empty tube: a legitimate terminal condition, not a defect.
			v.log.Debug("tube has no stitch to promote", "tube", int(tube))
			return nil
		}
		v.log.Info("repaired tube with no ready stitch",
			"tube", int(tube), "thread", best.ThreadID, "stitch", best.ID, "from", best.Position)
		_ = q.SetPosition(best.ThreadID, best.ID, 0)
		return []*stitch.Stitch{best}

	default:
		// Keep the first ready stitch in merge order; renumber the rest
		// from 1 up, preserving their relative order.
		repaired := make([]*stitch.Stitch, 0, len(ready)-1)
		for i, s := range ready[1:] {
			_ = q.SetPosition(s.ThreadID, s.ID, i+1)
			repaired = append(repaired, s)
		}
		v.log.Info("repaired tube with multiple ready stitches",
			"tube", int(tube), "kept", ready[0].ID, "demoted", len(repaired))
		return repaired
	}
}
