// Package syncer delivers scheduling mutations to the store of record
// without ever blocking the scheduler. Mutations coalesce per stitch,
// failed deliveries stay pending, and retries continue for the lifetime of
// the instance: staleness on the backend is worse than retrying.
package syncer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/abhisek/triplehelix/internal/backend"
	"github.com/abhisek/triplehelix/internal/metrics"
)

// Config controls flush timing.
type Config struct {
	// ImmediateDelay is how long an enqueue waits before triggering an
	// out-of-schedule flush, so a burst of mutations rides one delivery.
	ImmediateDelay time.Duration

	// MinImmediateGap rate-limits immediate flushes; back-to-back enqueues
	// past the limit wait for the gap (or the scheduled flush).
	MinImmediateGap time.Duration

	// FlushInterval is the scheduled flush period.
	FlushInterval time.Duration

	// DeliveryTimeout bounds one per-key delivery attempt. A timed-out
	// delivery counts as failed and the key stays pending.
	DeliveryTimeout time.Duration
}

// DefaultConfig returns the recommended timings.
func DefaultConfig() Config {
	return Config{
		ImmediateDelay:  100 * time.Millisecond,
		MinImmediateGap: time.Second,
		FlushInterval:   10 * time.Second,
		DeliveryTimeout: 5 * time.Second,
	}
}

// Syncer owns the pending mutation set and the flush loop.
type Syncer struct {
	rec backend.Recorder
	cfg Config
	log *slog.Logger

	pending *pendingSet

	mu            sync.Mutex
	session       *backend.SessionRecord
	sessionSeq    uint64
	timer         *time.Timer
	lastImmediate time.Time

	flushCh chan struct{}
	cancel  context.CancelFunc
	done    chan struct{}

	now func() time.Time
}

// New creates a syncer delivering to rec. A nil logger falls back to
// slog.Default; zero config fields take their defaults.
func New(rec backend.Recorder, cfg Config, log *slog.Logger) *Syncer {
	if log == nil {
		log = slog.Default()
	}
	def := DefaultConfig()
	if cfg.ImmediateDelay == 0 {
		cfg.ImmediateDelay = def.ImmediateDelay
	}
	if cfg.MinImmediateGap == 0 {
		cfg.MinImmediateGap = def.MinImmediateGap
	}
	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.DeliveryTimeout == 0 {
		cfg.DeliveryTimeout = def.DeliveryTimeout
	}
	return &Syncer{
		rec:     rec,
		cfg:     cfg,
		log:     log,
		pending: newPendingSet(),
		flushCh: make(chan struct{}, 1),
		now:     time.Now,
	}
}

// Config returns the effective timing config.
func (s *Syncer) Config() Config {
	return s.cfg
}

// Enqueue coalesces a stitch mutation for delivery and arms an immediate
// flush. It never blocks on I/O.
func (s *Syncer) Enqueue(rec backend.StitchRecord) {
	s.pending.put(rec)
	metrics.SyncPending.Set(float64(s.pending.size()))
	s.armImmediate()
}

// SetSession records the latest cycle pointer for delivery. Like stitch
// mutations it is latest-wins.
func (s *Syncer) SetSession(rec backend.SessionRecord) {
	s.mu.Lock()
	s.session = &rec
	s.sessionSeq++
	s.mu.Unlock()
	s.armImmediate()
}

// Pending reports the number of coalesced stitch mutations not yet
// delivered.
func (s *Syncer) Pending() int {
	return s.pending.size()
}

// armImmediate schedules a near-term flush, respecting the rate limit.
func (s *Syncer) armImmediate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		return
	}
	delay := s.cfg.ImmediateDelay
	if since := s.now().Sub(s.lastImmediate); since < s.cfg.MinImmediateGap {
		if wait := s.cfg.MinImmediateGap - since; wait > delay {
			delay = wait
		}
	}
	s.timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		s.timer = nil
		s.lastImmediate = s.now()
		s.mu.Unlock()
		select {
		case s.flushCh <- struct{}{}:
		default:
		}
	})
}

// Start launches the flush worker. The worker drains immediate flush
// requests; scheduled flushes arrive from the jobs scheduler calling Flush.
func (s *Syncer) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.flushCh:
				s.Flush(ctx)
			}
		}
	}()
}

// Stop halts the worker and performs a final flush so a clean shutdown
// leaves nothing pending that the backend would have accepted.
func (s *Syncer) Stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.DeliveryTimeout*2)
	defer cancel()
	s.Flush(ctx)
}

// Flush attempts delivery of every pending key independently. A failure
// for one key never blocks the others; failed keys stay pending for the
// next flush. Removal of a delivered key checks that the key was not
// re-mutated while its delivery was in flight.
func (s *Syncer) Flush(ctx context.Context) {
	for _, e := range s.pending.snapshot() {
		dctx, cancel := context.WithTimeout(ctx, s.cfg.DeliveryTimeout)
		err := s.rec.SaveStitch(dctx, e.rec)
		cancel()
		if err != nil {
			metrics.SyncFailed.Inc()
			s.log.Warn("stitch delivery failed; will retry",
				"thread", e.rec.ThreadID, "stitch", e.rec.StitchID, "err", err)
			continue
		}
		metrics.SyncDelivered.Inc()
		s.pending.resolve(e.key, e.seq)
	}
	metrics.SyncPending.Set(float64(s.pending.size()))

	s.flushSession(ctx)
}

func (s *Syncer) flushSession(ctx context.Context) {
	s.mu.Lock()
	rec, seq := s.session, s.sessionSeq
	s.mu.Unlock()
	if rec == nil {
		return
	}

	dctx, cancel := context.WithTimeout(ctx, s.cfg.DeliveryTimeout)
	err := s.rec.SaveSession(dctx, *rec)
	cancel()
	if err != nil {
		s.log.Warn("session pointer delivery failed; will retry", "err", err)
		return
	}

	s.mu.Lock()
	if s.sessionSeq == seq {
		s.session = nil
	}
	s.mu.Unlock()
}
