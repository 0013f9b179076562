package stitch

// TubeNumber identifies one of the three round-robin rank spaces.
type TubeNumber int

const (
	Tube1 TubeNumber = 1
	Tube2 TubeNumber = 2
	Tube3 TubeNumber = 3

	// TubeCount is the number of tubes in the helix.
	TubeCount = 3
)

// Valid reports whether t is a real tube.
func (t TubeNumber) Valid() bool {
	return t >= Tube1 && t <= Tube3
}

// Next returns the tube after t in round-robin order.
func (t TubeNumber) Next() TubeNumber {
	return TubeNumber(int(t)%TubeCount + 1)
}

// Thread is a named collection of stitches that feeds exactly one tube.
// Several threads may feed the same tube; their stitches share that tube's
// position space.
type Thread struct {
	ID       string
	Tube     TubeNumber
	Stitches []*Stitch
}
