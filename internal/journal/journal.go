// Package journal keeps a bounded in-memory history of run events for
// late joiners and post-run summaries. Old entries are evicted in FIFO
// order once the ring fills.
package journal

import (
	"sync"
	"time"
)

// Entry is one recorded occurrence.
type Entry struct {
	Seq     uint64         `json:"seq"`
	Tick    uint64         `json:"tick"`
	Kind    string         `json:"kind"`
	ActorID string         `json:"actorId,omitempty"`
	Time    time.Time      `json:"time"`
	Data    map[string]any `json:"data,omitempty"`
}

// DefaultCapacity bounds the ring when the caller passes zero.
const DefaultCapacity = 512

// Journal is a fixed-capacity event ring. Safe for one writer and many
// readers.
type Journal struct {
	mu      sync.RWMutex
	entries []Entry
	start   int
	count   int
	nextSeq uint64
}

// New builds a journal holding at most capacity entries.
func New(capacity int) *Journal {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Journal{entries: make([]Entry, capacity)}
}

// Append records an entry, evicting the oldest when full. The assigned
// sequence number is returned.
func (j *Journal) Append(entry Entry) uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.nextSeq++
	entry.Seq = j.nextSeq
	if entry.Time.IsZero() {
		entry.Time = time.Now()
	}

	idx := (j.start + j.count) % len(j.entries)
	j.entries[idx] = entry
	if j.count < len(j.entries) {
		j.count++
	} else {
		j.start = (j.start + 1) % len(j.entries)
	}
	return entry.Seq
}

// Len reports the number of retained entries.
func (j *Journal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.count
}

// Recent returns up to n of the newest entries, oldest first. n <= 0
// returns everything retained.
func (j *Journal) Recent(n int) []Entry {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if n <= 0 || n > j.count {
		n = j.count
	}
	out := make([]Entry, 0, n)
	for i := j.count - n; i < j.count; i++ {
		out = append(out, j.entries[(j.start+i)%len(j.entries)])
	}
	return out
}

// Since returns entries with a sequence number strictly greater than
// seq, oldest first. Entries already evicted are gone for good.
func (j *Journal) Since(seq uint64) []Entry {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var out []Entry
	for i := 0; i < j.count; i++ {
		entry := j.entries[(j.start+i)%len(j.entries)]
		if entry.Seq > seq {
			out = append(out, entry)
		}
	}
	return out
}
