// Package catalogue loads and validates content catalogues. The scheduler
// refuses to start on a malformed catalogue; silent degradation at load
// time is much harder to debug than a descriptive rejection.
package catalogue

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/abhisek/triplehelix/internal/stitch"
)

// Load reads the catalogue file at path and builds the initial threads.
func Load(path string) ([]*stitch.Thread, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalogue: %w", err)
	}
	threads, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("catalogue %s: %w", path, err)
	}
	return threads, nil
}

// Parse validates raw catalogue bytes and builds the initial threads.
// Stitches take their thread order as starting position, the bottom skip
// distance, and the lowest distractor level, so every thread arrives with
// its first stitch ready.
func Parse(raw []byte) ([]*stitch.Thread, error) {
	if err := validate(raw); err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode catalogue: %w", err)
	}

	seenThreads := make(map[string]bool)
	threads := make([]*stitch.Thread, 0, len(doc.Threads))
	for _, td := range doc.Threads {
		if seenThreads[td.ID] {
			return nil, fmt.Errorf("duplicate thread %q", td.ID)
		}
		seenThreads[td.ID] = true

		th := &stitch.Thread{
			ID:   td.ID,
			Tube: stitch.TubeNumber(td.Tube),
		}
		seenStitches := make(map[string]bool)
		for i, sd := range td.Stitches {
			if seenStitches[sd.ID] {
				return nil, fmt.Errorf("thread %q: duplicate stitch %q", td.ID, sd.ID)
			}
			seenStitches[sd.ID] = true
			th.Stitches = append(th.Stitches, &stitch.Stitch{
				ID:           sd.ID,
				ThreadID:     td.ID,
				Position:     i,
				SkipDistance: stitch.FirstSkip,
				Level:        stitch.Level1,
				Content:      sd.Content,
			})
		}
		threads = append(threads, th)
	}
	return threads, nil
}
