// Package helix owns the tube cycle: which tube is active, how many full
// round-trips have run, and the single public surface the session driver
// calls. One controller serves one learner session. The controller's mutex
// serializes every entry point; the queue has no locking of its own and
// must only be reached through the controller once a session is running.
package helix

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/abhisek/triplehelix/internal/backend"
	"github.com/abhisek/triplehelix/internal/metrics"
	"github.com/abhisek/triplehelix/internal/sequencer"
	"github.com/abhisek/triplehelix/internal/stitch"
	"github.com/abhisek/triplehelix/internal/store"
)

// ErrNoReadyStitch reports a tube with nothing at position 0. It marks a
// degraded tube, not a failure: the cycle keeps moving.
var ErrNoReadyStitch = errors.New("no ready stitch")

// Sink receives scheduling mutations for out-of-band delivery.
type Sink interface {
	Enqueue(rec backend.StitchRecord)
	SetSession(rec backend.SessionRecord)
}

// Completion is the structured outcome of completing a ready stitch.
type Completion struct {
	// Stitch is the completed stitch; nil when the tube was degraded.
	Stitch   *stitch.Stitch
	Mastered bool

	// Degraded reports that the active tube had no ready stitch. The
	// cycle still advanced.
	Degraded bool

	// NextTube is the tube now active.
	NextTube stitch.TubeNumber
}

// Options configures a controller.
type Options struct {
	Queue     *stitch.Queue
	Sink      Sink
	Events    store.EventRepo
	Logger    *slog.Logger
	SessionID string

	// InitialTube and CycleCount restore a persisted session pointer.
	// A zero or invalid tube falls back to tube 1.
	InitialTube stitch.TubeNumber
	CycleCount  int
}

// Controller is the tube cycle state machine. mu guards the cycle pointer
// and, because the queue is unsynchronized, every read or write of the
// queue's stitches.
type Controller struct {
	queue  *stitch.Queue
	seq    *sequencer.Sequencer
	sink   Sink
	events store.EventRepo
	log    *slog.Logger

	sessionID string

	mu     sync.Mutex
	active stitch.TubeNumber
	cycles int
}

// New creates a controller and normalises the queue: each tube gets one
// verifier pass so catalogues where several threads feed one tube start
// with a single ready stitch. Repairs are forwarded to the sink.
func New(opts Options) (*Controller, error) {
	if opts.Queue == nil {
		return nil, errors.New("helix: queue required")
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	active := opts.InitialTube
	if !active.Valid() {
		if active != 0 {
			log.Warn("ignoring invalid persisted tube", "tube", int(active))
		}
		active = stitch.Tube1
	}
	cycles := opts.CycleCount
	if cycles < 0 {
		cycles = 0
	}

	c := &Controller{
		queue:     opts.Queue,
		seq:       sequencer.New(log),
		sink:      opts.Sink,
		events:    opts.Events,
		log:       log,
		sessionID: opts.SessionID,
		active:    active,
		cycles:    cycles,
	}

	for t := stitch.Tube1; t <= stitch.Tube3; t++ {
		repaired := c.seq.Verifier().Repair(c.queue, t)
		if len(repaired) > 0 {
			metrics.Repairs.Inc()
		}
		c.enqueue(repaired)
	}
	return c, nil
}

// ActiveTube returns the tube currently presenting.
func (c *Controller) ActiveTube() stitch.TubeNumber {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// CycleCount returns the number of complete round-trips through all tubes.
func (c *Controller) CycleCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cycles
}

// SessionID returns the identifier attached to this session's events.
func (c *Controller) SessionID() string {
	return c.sessionID
}

// ReadyStitch returns the stitch at position 0 in the given tube.
func (c *Controller) ReadyStitch(tube stitch.TubeNumber) (*stitch.Stitch, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readyStitch(tube)
}

// CurrentStitch returns the active tube's ready stitch.
func (c *Controller) CurrentStitch() (*stitch.Stitch, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readyStitch(c.active)
}

func (c *Controller) readyStitch(tube stitch.TubeNumber) (*stitch.Stitch, error) {
	s, ok := c.queue.ReadyStitch(tube)
	if !ok {
		return nil, ErrNoReadyStitch
	}
	return s, nil
}

// Advance rotates the active tube. Wrapping back to tube 1 completes a
// cycle. The new pointer is handed to the sink for persistence.
func (c *Controller) Advance() stitch.TubeNumber {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.advance()
}

func (c *Controller) advance() stitch.TubeNumber {
	c.active = c.active.Next()
	if c.active == stitch.Tube1 {
		c.cycles++
	}
	c.pushSession()
	return c.active
}

// CompleteReadyStitch records an attempt at the active tube's ready stitch,
// reorders the tube, queues the resulting mutations, and advances. When the
// active tube has no ready stitch the cycle still advances and the outcome
// carries the degraded flag; a broken tube must not stall the helix.
func (c *Controller) CompleteReadyStitch(ctx context.Context, score, maxScore int) (Completion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.queue.ReadyStitch(c.active)
	if !ok {
		c.log.Warn("active tube degraded; advancing past it", "tube", int(c.active))
		return Completion{Degraded: true, NextTube: c.advance()}, nil
	}

	ev := sequencer.CompletionEvent{
		ThreadID: s.ThreadID,
		StitchID: s.ID,
		Score:    score,
		MaxScore: maxScore,
	}
	res, err := c.seq.Apply(c.queue, ev)
	if err != nil {
		return Completion{}, err
	}

	c.enqueue(res.Changed)
	c.recordEvent(ctx, s, ev, res.Mastered)

	outcome := "repeat"
	if res.Mastered {
		outcome = "mastered"
	}
	metrics.Completions.WithLabelValues(outcome).Inc()

	return Completion{
		Stitch:   s,
		Mastered: res.Mastered,
		NextTube: c.advance(),
	}, nil
}

// Export captures the full scheduler state for snapshotting.
func (c *Controller) Export() store.SnapshotData {
	c.mu.Lock()
	defer c.mu.Unlock()

	data := store.SnapshotData{
		Version: store.SnapshotVersion,
		Session: backend.SessionRecord{
			ActiveTube: int(c.active),
			CycleCount: c.cycles,
		},
	}
	if s, ok := c.queue.ReadyStitch(c.active); ok {
		data.Session.ThreadID = s.ThreadID
	}
	for _, th := range c.queue.Threads() {
		for _, s := range th.Stitches {
			data.Stitches = append(data.Stitches, backend.StitchRecord{
				ThreadID:     s.ThreadID,
				StitchID:     s.ID,
				Position:     s.Position,
				SkipDistance: s.SkipDistance,
				Level:        int(s.Level),
			})
		}
	}
	return data
}

func (c *Controller) enqueue(changed []*stitch.Stitch) {
	if c.sink == nil {
		return
	}
	for _, s := range changed {
		c.sink.Enqueue(backend.StitchRecord{
			ThreadID:     s.ThreadID,
			StitchID:     s.ID,
			Position:     s.Position,
			SkipDistance: s.SkipDistance,
			Level:        int(s.Level),
		})
	}
}

func (c *Controller) pushSession() {
	if c.sink == nil {
		return
	}
	rec := backend.SessionRecord{
		ActiveTube: int(c.active),
		CycleCount: c.cycles,
	}
	if s, ok := c.queue.ReadyStitch(c.active); ok {
		rec.ThreadID = s.ThreadID
	}
	c.sink.SetSession(rec)
}

// recordEvent appends to the local completion log before the completion
// returns. The append stays synchronous: the log's global sequence must
// match completion order, and the write is a local sqlite insert, not a
// backend delivery. Failures degrade to a warning.
func (c *Controller) recordEvent(ctx context.Context, s *stitch.Stitch, ev sequencer.CompletionEvent, mastered bool) {
	if c.events == nil {
		return
	}
	err := c.events.AppendCompletion(ctx, store.CompletionEventData{
		SessionID: c.sessionID,
		ThreadID:  s.ThreadID,
		StitchID:  s.ID,
		Tube:      int(c.active),
		Score:     ev.Score,
		MaxScore:  ev.MaxScore,
		Mastered:  mastered,
	})
	if err != nil {
		c.log.Warn("append completion event failed", "err", err)
	}
}
