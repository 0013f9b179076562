package jobs

import (
	"context"
	"fmt"

	"github.com/abhisek/triplehelix/internal/store"
)

// StateExporter supplies the current scheduler state for snapshotting.
type StateExporter interface {
	Export() store.SnapshotData
}

// SnapshotJob periodically captures the scheduler state and prunes old
// captures so the snapshots table stays bounded.
type SnapshotJob struct {
	Exporter StateExporter
	Repo     store.SnapshotRepo
	Keep     int
}

// NewSnapshotJob builds a snapshot job keeping the most recent keep
// captures.
func NewSnapshotJob(exporter StateExporter, repo store.SnapshotRepo, keep int) *SnapshotJob {
	if keep < 1 {
		keep = 5
	}
	return &SnapshotJob{Exporter: exporter, Repo: repo, Keep: keep}
}

// Name returns the job identifier.
func (j *SnapshotJob) Name() string { return "snapshot.capture" }

// Run saves a snapshot and prunes beyond the retention count.
func (j *SnapshotJob) Run(ctx context.Context) error {
	if j == nil || j.Exporter == nil || j.Repo == nil {
		return fmt.Errorf("snapshot job not configured")
	}
	if err := j.Repo.Save(ctx, j.Exporter.Export()); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if err := j.Repo.Prune(ctx, j.Keep); err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	return nil
}
