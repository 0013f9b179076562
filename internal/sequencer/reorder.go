package sequencer

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/abhisek/triplehelix/internal/stitch"
)

// CompletionEvent records one attempt at a tube's ready stitch. Events are
// validated at the boundary; the reorder arithmetic assumes a valid event.
type CompletionEvent struct {
	ThreadID string
	StitchID string
	Score    int
	MaxScore int
}

// Validate checks the event's required fields.
func (e CompletionEvent) Validate() error {
	if e.ThreadID == "" {
		return errors.New("completion event missing thread ID")
	}
	if e.StitchID == "" {
		return errors.New("completion event missing stitch ID")
	}
	if e.MaxScore <= 0 {
		return fmt.Errorf("completion event max score %d must be positive", e.MaxScore)
	}
	if e.Score < 0 || e.Score > e.MaxScore {
		return fmt.Errorf("completion event score %d outside [0, %d]", e.Score, e.MaxScore)
	}
	return nil
}

// Mastered reports whether the attempt was perfect.
func (e CompletionEvent) Mastered() bool {
	return e.Score == e.MaxScore
}

// Result describes what a completion did to the queue.
type Result struct {
	Stitch   *stitch.Stitch
	Mastered bool

	// Changed lists every stitch whose scheduling fields were touched,
	// completed stitch included, in a deterministic order. The caller
	// forwards these to the sync layer.
	Changed []*stitch.Stitch
}

// Sequencer applies completion events to a queue. It owns the verifier run
// that closes every mastery reorder.
type Sequencer struct {
	verifier *Verifier
}

// New creates a sequencer. A nil logger falls back to slog.Default.
func New(log *slog.Logger) *Sequencer {
	return &Sequencer{verifier: NewVerifier(log)}
}

// Verifier exposes the integrity verifier for on-demand checks.
func (sq *Sequencer) Verifier() *Verifier {
	return sq.verifier
}

// Apply executes a completion against the queue.
//
// A mastered stitch jumps to the position given by its current skip
// distance: it is parked on the reposition sentinel, every tube-mate in
// [1, skip] is pulled forward one rank to keep the tube dense, and the
// stitch lands exactly at skip. Its skip distance then climbs the ladder
// and its distractor level steps up. A non-mastered stitch stays put at
// position 0 with its skip distance reset to the bottom of the ladder.
func (sq *Sequencer) Apply(q *stitch.Queue, ev CompletionEvent) (*Result, error) {
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	s, err := q.Stitch(ev.ThreadID, ev.StitchID)
	if err != nil {
		return nil, err
	}

	res := &Result{Stitch: s, Mastered: ev.Mastered()}

	if !ev.Mastered() {
		if s.SkipDistance != stitch.FirstSkip {
			_ = q.SetSkipDistance(s.ThreadID, s.ID, stitch.FirstSkip)
		}
		res.Changed = []*stitch.Stitch{s}
		return res, nil
	}

	th, err := q.Thread(ev.ThreadID)
	if err != nil {
		return nil, err
	}
	tube := th.Tube
	target := s.SkipDistance

	changed := newChangeSet()
	changed.add(s)

	// Park the completed stitch so the shift below skips it.
	_ = q.SetPosition(s.ThreadID, s.ID, stitch.SentinelPosition)

	// Pull every tube-mate in [1, target] forward one rank.
	for _, other := range q.TubeStitches(tube) {
		if other == s {
			continue
		}
		if p := other.Position; p >= 1 && p <= target {
			_ = q.SetPosition(other.ThreadID, other.ID, p-1)
			changed.add(other)
		}
	}

	_ = q.SetPosition(s.ThreadID, s.ID, target)
	_ = q.SetSkipDistance(s.ThreadID, s.ID, stitch.NextSkip(target))
	_ = q.SetLevel(s.ThreadID, s.ID, s.Level.Advance())

	// The shift can leave the tube with no ready stitch (single-stitch
	// tube) or, with colliding positions, more than one.
	for _, repaired := range sq.verifier.Repair(q, tube) {
		changed.add(repaired)
	}

	res.Changed = changed.slice()
	return res, nil
}

// changeSet keeps the touched-stitch list deduplicated while preserving
// first-touch order.
type changeSet struct {
	seen map[*stitch.Stitch]bool
	list []*stitch.Stitch
}

func newChangeSet() *changeSet {
	return &changeSet{seen: make(map[*stitch.Stitch]bool)}
}

func (c *changeSet) add(s *stitch.Stitch) {
	if c.seen[s] {
		return
	}
	c.seen[s] = true
	c.list = append(c.list, s)
}

func (c *changeSet) slice() []*stitch.Stitch {
	return c.list
}
