package helix

import (
	"log/slog"

	"github.com/abhisek/triplehelix/internal/backend"
	"github.com/abhisek/triplehelix/internal/stitch"
)

// RestoreRecords lays persisted scheduling state over catalogue defaults so
// a learner resumes where the backend last saw them. Records for stitches
// the catalogue no longer carries are skipped; a stale backend must not
// block startup. Field values that cannot be valid are dropped per field,
// keeping the catalogue default instead.
func RestoreRecords(q *stitch.Queue, recs []backend.StitchRecord, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	for _, rec := range recs {
		s, err := q.Stitch(rec.ThreadID, rec.StitchID)
		if err != nil {
			log.Debug("skipping persisted record for unknown stitch",
				"thread", rec.ThreadID, "stitch", rec.StitchID)
			continue
		}
		if rec.Position >= 0 {
			_ = q.SetPosition(s.ThreadID, s.ID, rec.Position)
		}
		if rec.SkipDistance > 0 {
			_ = q.SetSkipDistance(s.ThreadID, s.ID, rec.SkipDistance)
		}
		if lvl := stitch.DistractorLevel(rec.Level); lvl.Valid() {
			_ = q.SetLevel(s.ThreadID, s.ID, lvl)
		}
	}
}
