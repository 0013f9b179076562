package syncer

import (
	"sync"

	"github.com/abhisek/triplehelix/internal/backend"
)

// mutationKey identifies the coalescing slot for a stitch.
type mutationKey struct {
	threadID string
	stitchID string
}

// pendingEntry is one coalesced mutation plus the sequence of the write
// that produced it. Removal after delivery checks the sequence so a record
// re-mutated while in flight stays pending with its newer value.
type pendingEntry struct {
	key mutationKey
	rec backend.StitchRecord
	seq uint64
}

// pendingSet is the mutation buffer: latest record wins per key.
type pendingSet struct {
	mu      sync.Mutex
	seq     uint64
	entries map[mutationKey]pendingEntry
}

func newPendingSet() *pendingSet {
	return &pendingSet{entries: make(map[mutationKey]pendingEntry)}
}

// put coalesces rec into the set, replacing any older value for its key.
func (p *pendingSet) put(rec backend.StitchRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	k := mutationKey{threadID: rec.ThreadID, stitchID: rec.StitchID}
	p.entries[k] = pendingEntry{key: k, rec: rec, seq: p.seq}
}

// snapshot returns the current entries in key order-independent fashion.
func (p *pendingSet) snapshot() []pendingEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]pendingEntry, 0, len(p.entries))
	for _, e := range p.entries {
		out = append(out, e)
	}
	return out
}

// resolve removes the entry for k if it still holds the delivered sequence.
// It reports whether the entry was removed.
func (p *pendingSet) resolve(k mutationKey, seq uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[k]
	if !ok || e.seq != seq {
		return false
	}
	delete(p.entries, k)
	return true
}

func (p *pendingSet) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
