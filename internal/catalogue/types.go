package catalogue

import "encoding/json"

// Document is the parsed form of a catalogue file: the full set of threads
// a learner session schedules over.
type Document struct {
	Threads []ThreadDef `json:"threads"`
}

// ThreadDef declares one thread and the tube it feeds.
type ThreadDef struct {
	ID       string      `json:"id"`
	Tube     int         `json:"tube"`
	Stitches []StitchDef `json:"stitches"`
}

// StitchDef declares one stitch. Content is opaque to the scheduler and is
// carried through untouched. Initial position is the stitch's order in the
// thread; skip distance and distractor level start at their defaults.
type StitchDef struct {
	ID      string          `json:"id"`
	Content json.RawMessage `json:"content,omitempty"`
}
