package stitch

import "encoding/json"

// SkipSequence is the fixed ladder of skip distances a stitch climbs as it
// is repeatedly mastered. Values outside the ladder are treated as corrupt.
var SkipSequence = []int{3, 5, 10, 25, 100}

const (
	// FirstSkip is the skip distance assigned to new stitches and restored
	// after a non-mastery completion.
	FirstSkip = 3

	// MaxSkip is the ladder cap; a stitch never jumps further than this.
	MaxSkip = 100
)

// NextSkip returns the ladder value after current. At the cap it stays at
// the cap. A value not on the ladder clamps to MaxSkip: under-repeating a
// corrupt stitch is safer than failing the completion.
func NextSkip(current int) int {
	for i, v := range SkipSequence {
		if v == current {
			if i == len(SkipSequence)-1 {
				return MaxSkip
			}
			return SkipSequence[i+1]
		}
	}
	return MaxSkip
}

// DistractorLevel is the ordinal difficulty tier of a stitch's incorrect
// answer options. It only ever moves up.
type DistractorLevel int

const (
	Level1 DistractorLevel = 1
	Level2 DistractorLevel = 2
	Level3 DistractorLevel = 3
)

// Advance returns the next level, capped at Level3.
func (l DistractorLevel) Advance() DistractorLevel {
	if l >= Level3 {
		return Level3
	}
	if l < Level1 {
		return Level1
	}
	return l + 1
}

// Valid reports whether l is one of the defined levels.
func (l DistractorLevel) Valid() bool {
	return l >= Level1 && l <= Level3
}

// SentinelPosition marks a stitch that is mid-reposition. A stitch holding
// it is excluded from rank arithmetic and from the ready lookup.
const SentinelPosition = -1

// Stitch is a single schedulable content unit. Content is an opaque payload
// handed back to the presentation layer; the scheduler never reads it.
type Stitch struct {
	ID           string
	ThreadID     string
	Position     int
	SkipDistance int
	Level        DistractorLevel
	Content      json.RawMessage
}

// Ready reports whether the stitch occupies the ready slot.
func (s *Stitch) Ready() bool {
	return s.Position == 0
}
