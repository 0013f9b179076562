package stitch

import (
	"errors"
	"fmt"
	"testing"
)

// newThread builds a thread with count stitches in catalogue order.
func newThread(id string, tube TubeNumber, count int) *Thread {
	th := &Thread{ID: id, Tube: tube}
	for i := 0; i < count; i++ {
		th.Stitches = append(th.Stitches, &Stitch{
			ID:           fmt.Sprintf("%s-s%d", id, i),
			ThreadID:     id,
			Position:     i,
			SkipDistance: FirstSkip,
			Level:        Level1,
		})
	}
	return th
}

func TestNewQueue_RejectsBadThreads(t *testing.T) {
	cases := []struct {
		name    string
		threads []*Thread
	}{
		{"empty ID", []*Thread{{ID: "", Tube: Tube1}}},
		{"invalid tube", []*Thread{{ID: "t", Tube: 4}}},
		{"duplicate", []*Thread{{ID: "t", Tube: Tube1}, {ID: "t", Tube: Tube2}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewQueue(tc.threads); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestQueue_ThreadNotFound(t *testing.T) {
	q, err := NewQueue([]*Thread{newThread("alpha", Tube1, 2)})
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}
	_, err = q.Thread("missing")
	if !errors.Is(err, ErrThreadNotFound) {
		t.Errorf("err = %v, want ErrThreadNotFound", err)
	}
	_, err = q.Stitch("alpha", "missing")
	if !errors.Is(err, ErrStitchNotFound) {
		t.Errorf("err = %v, want ErrStitchNotFound", err)
	}
}

func TestTubeStitches_MergesThreadsInOrder(t *testing.T) {
	// Two threads feed tube 1, one feeds tube 2. The merged view orders
	// by thread ID then position.
	q, err := NewQueue([]*Thread{
		newThread("beta", Tube1, 2),
		newThread("alpha", Tube1, 2),
		newThread("gamma", Tube2, 1),
	})
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}

	merged := q.TubeStitches(Tube1)
	want := []string{"alpha-s0", "alpha-s1", "beta-s0", "beta-s1"}
	if len(merged) != len(want) {
		t.Fatalf("len = %d, want %d", len(merged), len(want))
	}
	for i, id := range want {
		if merged[i].ID != id {
			t.Errorf("merged[%d] = %s, want %s", i, merged[i].ID, id)
		}
	}

	if got := q.TubeStitches(Tube3); len(got) != 0 {
		t.Errorf("empty tube returned %d stitches", len(got))
	}
}

func TestReadyStitch(t *testing.T) {
	q, err := NewQueue([]*Thread{newThread("alpha", Tube1, 3)})
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}

	s, ok := q.ReadyStitch(Tube1)
	if !ok || s.ID != "alpha-s0" {
		t.Errorf("ReadyStitch = %v, %v; want alpha-s0, true", s, ok)
	}
	if _, ok := q.ReadyStitch(Tube2); ok {
		t.Error("empty tube reported a ready stitch")
	}
}

func TestSetPosition_AllowsSentinel(t *testing.T) {
	q, _ := NewQueue([]*Thread{newThread("alpha", Tube1, 2)})

	if err := q.SetPosition("alpha", "alpha-s0", SentinelPosition); err != nil {
		t.Errorf("sentinel rejected: %v", err)
	}
	if err := q.SetPosition("alpha", "alpha-s0", -2); err == nil {
		t.Error("position below sentinel accepted")
	}
}

func TestPrimitives_RejectInvalidValues(t *testing.T) {
	q, _ := NewQueue([]*Thread{newThread("alpha", Tube1, 1)})

	if err := q.SetSkipDistance("alpha", "alpha-s0", 0); err == nil {
		t.Error("zero skip distance accepted")
	}
	if err := q.SetLevel("alpha", "alpha-s0", 4); err == nil {
		t.Error("out of range level accepted")
	}
	if err := q.SetLevel("alpha", "alpha-s0", Level2); err != nil {
		t.Errorf("valid level rejected: %v", err)
	}
}
