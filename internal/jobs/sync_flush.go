package jobs

import (
	"context"
	"fmt"

	"github.com/abhisek/triplehelix/internal/syncer"
)

// SyncFlushJob drives the scheduled flush of the sync layer. Immediate
// flushes handle fresh mutations; this job is the safety net that retries
// everything still pending.
type SyncFlushJob struct {
	Syncer *syncer.Syncer
}

// NewSyncFlushJob wires the sync layer into the job scheduler.
func NewSyncFlushJob(s *syncer.Syncer) *SyncFlushJob {
	return &SyncFlushJob{Syncer: s}
}

// Name returns the job identifier.
func (j *SyncFlushJob) Name() string { return "sync.flush" }

// Run flushes the pending mutation set.
func (j *SyncFlushJob) Run(ctx context.Context) error {
	if j == nil || j.Syncer == nil {
		return fmt.Errorf("sync flush job not configured")
	}
	j.Syncer.Flush(ctx)
	return nil
}
