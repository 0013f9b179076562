package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/triplehelix/internal/backend"
)

// The store implements backend.Recorder and backend.Bootstrapper so the
// embedded scheduler can sync straight into sqlite with no record server.

// SaveStitch upserts the scheduling state for one stitch.
func (s *Store) SaveStitch(ctx context.Context, rec backend.StitchRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stitch_state (thread_id, stitch_id, position, skip_distance, distractor_level, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (thread_id, stitch_id) DO UPDATE SET
			position = excluded.position,
			skip_distance = excluded.skip_distance,
			distractor_level = excluded.distractor_level,
			updated_at = excluded.updated_at`,
		rec.ThreadID, rec.StitchID, rec.Position, rec.SkipDistance, rec.Level,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert stitch %s/%s: %w", rec.ThreadID, rec.StitchID, err)
	}
	return nil
}

// SaveSession upserts the cycle pointer.
func (s *Store) SaveSession(ctx context.Context, rec backend.SessionRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_state (id, active_tube, thread_id, cycle_count, updated_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			active_tube = excluded.active_tube,
			thread_id = excluded.thread_id,
			cycle_count = excluded.cycle_count,
			updated_at = excluded.updated_at`,
		rec.ActiveTube, rec.ThreadID, rec.CycleCount,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert session state: %w", err)
	}
	return nil
}

// LoadSession fetches the cycle pointer; ok is false when none was ever saved.
func (s *Store) LoadSession(ctx context.Context) (backend.SessionRecord, bool, error) {
	var rec backend.SessionRecord
	err := s.db.GetContext(ctx, &rec,
		`SELECT active_tube, thread_id, cycle_count FROM session_state WHERE id = 1`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return backend.SessionRecord{}, false, nil
		}
		return backend.SessionRecord{}, false, fmt.Errorf("load session state: %w", err)
	}
	return rec, true, nil
}

// LoadStitches fetches every persisted stitch record.
func (s *Store) LoadStitches(ctx context.Context) ([]backend.StitchRecord, error) {
	var recs []backend.StitchRecord
	err := s.db.SelectContext(ctx, &recs, `
		SELECT thread_id, stitch_id, position, skip_distance, distractor_level
		FROM stitch_state ORDER BY thread_id, stitch_id`)
	if err != nil {
		return nil, fmt.Errorf("load stitch state: %w", err)
	}
	return recs, nil
}
