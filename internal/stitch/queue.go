package stitch

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrThreadNotFound is returned when a thread ID is unknown to the queue.
	ErrThreadNotFound = errors.New("thread not found")

	// ErrStitchNotFound is returned when a stitch ID is unknown within its thread.
	ErrStitchNotFound = errors.New("stitch not found")
)

// Queue owns the scheduling state for every thread of a learner session.
// A tube has no storage of its own: it is the merged view of all threads
// assigned to it, ordered by thread ID then position. All mutation goes
// through the Set* primitives so callers can observe every field change.
type Queue struct {
	threads map[string]*Thread
	order   []string // thread IDs, sorted; fixes the merge order for tubes
}

// NewQueue builds a queue over the given threads. Thread IDs must be unique
// and every thread must carry a valid tube assignment.
func NewQueue(threads []*Thread) (*Queue, error) {
	q := &Queue{threads: make(map[string]*Thread, len(threads))}
	for _, th := range threads {
		if th.ID == "" {
			return nil, errors.New("thread with empty ID")
		}
		if !th.Tube.Valid() {
			return nil, fmt.Errorf("thread %s: invalid tube %d", th.ID, th.Tube)
		}
		if _, dup := q.threads[th.ID]; dup {
			return nil, fmt.Errorf("duplicate thread %s", th.ID)
		}
		q.threads[th.ID] = th
		q.order = append(q.order, th.ID)
	}
	sort.Strings(q.order)
	return q, nil
}

// Thread returns the thread with the given ID.
func (q *Queue) Thread(id string) (*Thread, error) {
	th, ok := q.threads[id]
	if !ok {
		return nil, fmt.Errorf("thread %s: %w", id, ErrThreadNotFound)
	}
	return th, nil
}

// Threads returns all threads in merge order.
func (q *Queue) Threads() []*Thread {
	out := make([]*Thread, 0, len(q.order))
	for _, id := range q.order {
		out = append(out, q.threads[id])
	}
	return out
}

// Stitch returns the stitch with the given IDs.
func (q *Queue) Stitch(threadID, stitchID string) (*Stitch, error) {
	th, err := q.Thread(threadID)
	if err != nil {
		return nil, err
	}
	for _, s := range th.Stitches {
		if s.ID == stitchID {
			return s, nil
		}
	}
	return nil, fmt.Errorf("stitch %s/%s: %w", threadID, stitchID, ErrStitchNotFound)
}

// TubeStitches returns the merged view of a tube: every stitch of every
// thread feeding it, ordered by thread ID then position. Stitches holding
// the reposition sentinel sort first within their thread; callers doing
// rank arithmetic must skip them.
func (q *Queue) TubeStitches(tube TubeNumber) []*Stitch {
	var out []*Stitch
	for _, id := range q.order {
		th := q.threads[id]
		if th.Tube != tube {
			continue
		}
		group := make([]*Stitch, len(th.Stitches))
		copy(group, th.Stitches)
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Position < group[j].Position
		})
		out = append(out, group...)
	}
	return out
}

// ReadyStitch returns the stitch occupying position 0 in the tube's merged
// view, or false when the tube has none. With a valid tube state there is
// exactly one; after a repair there may briefly be none.
func (q *Queue) ReadyStitch(tube TubeNumber) (*Stitch, bool) {
	for _, s := range q.TubeStitches(tube) {
		if s.Position == 0 {
			return s, true
		}
	}
	return nil, false
}

// SetPosition updates a stitch's position. SentinelPosition is permitted as
// a transient value during reordering.
func (q *Queue) SetPosition(threadID, stitchID string, pos int) error {
	if pos < SentinelPosition {
		return fmt.Errorf("position %d out of range", pos)
	}
	s, err := q.Stitch(threadID, stitchID)
	if err != nil {
		return err
	}
	s.Position = pos
	return nil
}

// SetSkipDistance updates a stitch's skip distance.
func (q *Queue) SetSkipDistance(threadID, stitchID string, skip int) error {
	if skip <= 0 {
		return fmt.Errorf("skip distance %d out of range", skip)
	}
	s, err := q.Stitch(threadID, stitchID)
	if err != nil {
		return err
	}
	s.SkipDistance = skip
	return nil
}

// SetLevel updates a stitch's distractor level.
func (q *Queue) SetLevel(threadID, stitchID string, level DistractorLevel) error {
	if !level.Valid() {
		return fmt.Errorf("distractor level %d out of range", level)
	}
	s, err := q.Stitch(threadID, stitchID)
	if err != nil {
		return err
	}
	s.Level = level
	return nil
}
