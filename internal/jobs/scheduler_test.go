package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/triplehelix/internal/store"
)

type countingJob struct {
	name string
	runs int32
	err  error
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(_ context.Context) error {
	atomic.AddInt32(&j.runs, 1)
	return j.err
}

func TestRegister_Validation(t *testing.T) {
	s := NewScheduler(nil)

	_, err := s.Register("@every 1s", nil)
	require.Error(t, err)

	_, err = s.Register("", &countingJob{name: "noop"})
	require.Error(t, err)

	_, err = s.Register("not a spec", &countingJob{name: "noop"})
	require.Error(t, err)

	_, err = s.Register("@every 1s", &countingJob{name: "noop"})
	require.NoError(t, err)
}

func TestSchedulerRunsRegisteredJobs(t *testing.T) {
	s := NewScheduler(nil)
	job := &countingJob{name: "tick"}
	_, err := s.Register("@every 1s", job)
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&job.runs) >= 1
	}, 3*time.Second, 50*time.Millisecond, "job never fired")
}

func TestSchedulerSurvivesFailingJob(t *testing.T) {
	s := NewScheduler(nil)
	failing := &countingJob{name: "broken", err: errors.New("boom")}
	healthy := &countingJob{name: "tick"}
	_, err := s.Register("@every 1s", failing)
	require.NoError(t, err)
	_, err = s.Register("@every 1s", healthy)
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&failing.runs) >= 1 && atomic.LoadInt32(&healthy.runs) >= 1
	}, 3*time.Second, 50*time.Millisecond)
}

func TestStopWaitsForInFlightJobs(t *testing.T) {
	s := NewScheduler(nil)
	s.Start()
	ctx := s.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("stop context never completed")
	}

	// Stopping before starting is a no-op.
	s2 := NewScheduler(nil)
	assert.NotNil(t, s2.Stop())
}

type fakeSnapshotRepo struct {
	saved  []store.SnapshotData
	pruned []int
	err    error
}

func (f *fakeSnapshotRepo) Save(_ context.Context, data store.SnapshotData) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, data)
	return nil
}

func (f *fakeSnapshotRepo) Latest(_ context.Context) (*store.Snapshot, error) { return nil, nil }

func (f *fakeSnapshotRepo) Prune(_ context.Context, keep int) error {
	f.pruned = append(f.pruned, keep)
	return nil
}

type fakeExporter struct{ data store.SnapshotData }

func (f *fakeExporter) Export() store.SnapshotData { return f.data }

func TestSnapshotJob(t *testing.T) {
	repo := &fakeSnapshotRepo{}
	exporter := &fakeExporter{data: store.SnapshotData{Version: store.SnapshotVersion}}

	job := NewSnapshotJob(exporter, repo, 0)
	assert.Equal(t, 5, job.Keep, "non-positive keep takes the default")

	require.NoError(t, job.Run(context.Background()))
	require.Len(t, repo.saved, 1)
	assert.Equal(t, store.SnapshotVersion, repo.saved[0].Version)
	require.Len(t, repo.pruned, 1)
	assert.Equal(t, 5, repo.pruned[0])

	repo.err = errors.New("disk full")
	require.Error(t, job.Run(context.Background()))
}

func TestSyncFlushJob_NotConfigured(t *testing.T) {
	var j *SyncFlushJob
	require.Error(t, j.Run(context.Background()))
	require.Error(t, (&SyncFlushJob{}).Run(context.Background()))
}
