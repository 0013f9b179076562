// Package backend defines the boundary to the store of record: the wire
// records the sync layer delivers and the interfaces the scheduler consumes.
// Implementations live in the HTTP client below and in the sqlite store.
package backend

import "context"

// StitchRecord is one logical stitch upsert: the full scheduling state for
// a (thread, stitch) key. A record is persisted whole or not at all.
type StitchRecord struct {
	ThreadID     string `json:"threadId" db:"thread_id"`
	StitchID     string `json:"stitchId" db:"stitch_id"`
	Position     int    `json:"position" db:"position"`
	SkipDistance int    `json:"skipDistance" db:"skip_distance"`
	Level        int    `json:"distractorLevel" db:"distractor_level"`
}

// SessionRecord is the persisted cycle pointer: which tube was active and
// which thread its ready stitch belonged to when the session last synced.
type SessionRecord struct {
	ActiveTube int    `json:"activeTube" db:"active_tube"`
	ThreadID   string `json:"threadId" db:"thread_id"`
	CycleCount int    `json:"cycleCount" db:"cycle_count"`
}

// Recorder accepts scheduling state for persistence. Each call's outcome
// applies to that call's record only; callers must not infer success for
// one record from another.
type Recorder interface {
	SaveStitch(ctx context.Context, rec StitchRecord) error
	SaveSession(ctx context.Context, rec SessionRecord) error
}

// Bootstrapper supplies previously persisted state at startup. An absent
// session pointer is reported through ok=false, never as an error.
type Bootstrapper interface {
	LoadSession(ctx context.Context) (rec SessionRecord, ok bool, err error)
	LoadStitches(ctx context.Context) ([]StitchRecord, error)
}
