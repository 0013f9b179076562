package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
)

// sequenceCounter manages the global monotonic sequence shared by the
// completion log and the snapshots table, so a snapshot can name the exact
// point in the event stream it captured. The mutex serializes within the
// process; the RETURNING clause makes the increment atomic at the database
// level.
type sequenceCounter struct {
	mu sync.Mutex
	db *sqlx.DB
}

// newSequenceCounter creates a counter and ensures the tracking table exists.
func newSequenceCounter(db *sqlx.DB) (*sequenceCounter, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS global_sequence (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		next_val INTEGER NOT NULL DEFAULT 1
	)`)
	if err != nil {
		return nil, fmt.Errorf("create sequence table: %w", err)
	}

	_, err = db.Exec(`INSERT OR IGNORE INTO global_sequence (id, next_val) VALUES (1, 1)`)
	if err != nil {
		return nil, fmt.Errorf("seed sequence: %w", err)
	}

	return &sequenceCounter{db: db}, nil
}

// Next atomically returns the next sequence number and increments the counter.
func (sc *sequenceCounter) Next(ctx context.Context) (int64, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	var seq int64
	err := sc.db.QueryRowContext(ctx,
		`UPDATE global_sequence SET next_val = next_val + 1 WHERE id = 1 RETURNING next_val - 1`,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return seq, nil
}

// eventRepo implements EventRepo over sqlx.
type eventRepo struct {
	db  *sqlx.DB
	seq *sequenceCounter
}

func (r *eventRepo) AppendCompletion(ctx context.Context, data CompletionEventData) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO completion_events
			(sequence, session_id, thread_id, stitch_id, tube, score, max_score, mastered, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		seqNum, data.SessionID, data.ThreadID, data.StitchID, data.Tube,
		data.Score, data.MaxScore, data.Mastered, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save completion event: %w", err)
	}
	return nil
}

func (r *eventRepo) RecentCompletions(ctx context.Context, limit int) ([]CompletionEventRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []struct {
		CompletionEventRecord
		CreatedAt string `db:"created_at"`
	}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, sequence, session_id, thread_id, stitch_id, tube, score, max_score, mastered, created_at
		FROM completion_events ORDER BY sequence DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent completions: %w", err)
	}

	out := make([]CompletionEventRecord, 0, len(rows))
	for _, row := range rows {
		rec := row.CompletionEventRecord
		if t, err := time.Parse(time.RFC3339, row.CreatedAt); err == nil {
			rec.CreatedAt = t
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *eventRepo) Stats(ctx context.Context) (*StatsSummary, error) {
	summary := &StatsSummary{AttemptsByTube: make(map[int]int)}

	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(mastered), 0) FROM completion_events`,
	).Scan(&summary.Attempts, &summary.Mastered)
	if err != nil {
		return nil, fmt.Errorf("aggregate completions: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT tube, COUNT(*) FROM completion_events GROUP BY tube`)
	if err != nil {
		return nil, fmt.Errorf("aggregate by tube: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var tube, count int
		if err := rows.Scan(&tube, &count); err != nil {
			return nil, fmt.Errorf("scan tube aggregate: %w", err)
		}
		summary.AttemptsByTube[tube] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tube aggregates: %w", err)
	}
	return summary, nil
}
