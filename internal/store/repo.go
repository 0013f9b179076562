package store

import (
	"context"
	"time"

	"github.com/abhisek/triplehelix/internal/backend"
)

// CompletionEventData captures one processed completion for the event log.
type CompletionEventData struct {
	SessionID string
	ThreadID  string
	StitchID  string
	Tube      int
	Score     int
	MaxScore  int
	Mastered  bool
}

// CompletionEventRecord is a stored completion event.
type CompletionEventRecord struct {
	ID        int       `db:"id"`
	Sequence  int64     `db:"sequence"`
	SessionID string    `db:"session_id"`
	ThreadID  string    `db:"thread_id"`
	StitchID  string    `db:"stitch_id"`
	Tube      int       `db:"tube"`
	Score     int       `db:"score"`
	MaxScore  int       `db:"max_score"`
	Mastered  bool      `db:"mastered"`
	CreatedAt time.Time `db:"-"`
}

// StatsSummary aggregates the completion event log for display.
type StatsSummary struct {
	Attempts       int
	Mastered       int
	AttemptsByTube map[int]int
}

// EventRepo provides append and aggregate access to the completion log.
type EventRepo interface {
	// AppendCompletion records one completion event with a globally
	// monotonic sequence number.
	AppendCompletion(ctx context.Context, data CompletionEventData) error

	// RecentCompletions returns the latest events, newest first.
	RecentCompletions(ctx context.Context, limit int) ([]CompletionEventRecord, error)

	// Stats aggregates the full event log.
	Stats(ctx context.Context) (*StatsSummary, error)
}

// SnapshotData captures the full scheduler state at a point in time.
type SnapshotData struct {
	Version  int                    `json:"version"`
	Session  backend.SessionRecord  `json:"session"`
	Stitches []backend.StitchRecord `json:"stitches"`
}

// Snapshot is a stored point-in-time capture.
type Snapshot struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	Data      SnapshotData
}

// SnapshotRepo manages scheduler state snapshots.
type SnapshotRepo interface {
	// Save stores a new snapshot.
	Save(ctx context.Context, data SnapshotData) error

	// Latest returns the most recent snapshot, or nil if none exist.
	Latest(ctx context.Context) (*Snapshot, error)

	// Prune deletes all but the N most recent snapshots.
	Prune(ctx context.Context, keep int) error
}
