package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// SnapshotVersion is the current snapshot payload version.
const SnapshotVersion = 1

// snapshotRepo implements SnapshotRepo over sqlx.
type snapshotRepo struct {
	db  *sqlx.DB
	seq *sequenceCounter
}

func (r *snapshotRepo) Save(ctx context.Context, data SnapshotData) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}
	if data.Version == 0 {
		data.Version = SnapshotVersion
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal snapshot data: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO snapshots (sequence, created_at, data) VALUES (?, ?, ?)`,
		seqNum, time.Now().UTC().Format(time.RFC3339), string(payload),
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (r *snapshotRepo) Latest(ctx context.Context) (*Snapshot, error) {
	var row struct {
		ID        int    `db:"id"`
		Sequence  int64  `db:"sequence"`
		CreatedAt string `db:"created_at"`
		Data      string `db:"data"`
	}
	err := r.db.GetContext(ctx, &row,
		`SELECT id, sequence, created_at, data FROM snapshots ORDER BY sequence DESC LIMIT 1`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}

	snap := &Snapshot{ID: row.ID, Sequence: row.Sequence}
	if t, err := time.Parse(time.RFC3339, row.CreatedAt); err == nil {
		snap.Timestamp = t
	}
	if err := json.Unmarshal([]byte(row.Data), &snap.Data); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot data: %w", err)
	}
	return snap, nil
}

func (r *snapshotRepo) Prune(ctx context.Context, keep int) error {
	if keep < 1 {
		keep = 1
	}
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM snapshots WHERE id NOT IN (
			SELECT id FROM snapshots ORDER BY sequence DESC LIMIT ?
		)`, keep)
	if err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	return nil
}
