package journal

import (
	"fmt"
	"testing"
)

func TestAppendAssignsMonotonicSequence(t *testing.T) {
	t.Parallel()
	j := New(8)
	for i := 0; i < 3; i++ {
		if seq := j.Append(Entry{Kind: "k"}); seq != uint64(i+1) {
			t.Fatalf("seq = %d, want %d", seq, i+1)
		}
	}
	if j.Len() != 3 {
		t.Fatalf("len = %d, want 3", j.Len())
	}
}

func TestRingEvictsOldestFirst(t *testing.T) {
	t.Parallel()
	j := New(4)
	for i := 0; i < 10; i++ {
		j.Append(Entry{Kind: fmt.Sprintf("k%d", i)})
	}
	if j.Len() != 4 {
		t.Fatalf("len = %d, want capacity 4", j.Len())
	}
	got := j.Recent(0)
	if len(got) != 4 {
		t.Fatalf("recent = %d entries", len(got))
	}
	for i, entry := range got {
		want := fmt.Sprintf("k%d", 6+i)
		if entry.Kind != want {
			t.Fatalf("entry %d kind = %q, want %q", i, entry.Kind, want)
		}
	}
}

func TestRecentLimitsAndOrders(t *testing.T) {
	t.Parallel()
	j := New(8)
	for i := 0; i < 5; i++ {
		j.Append(Entry{Kind: fmt.Sprintf("k%d", i)})
	}
	got := j.Recent(2)
	if len(got) != 2 || got[0].Kind != "k3" || got[1].Kind != "k4" {
		t.Fatalf("recent(2) = %+v", got)
	}
}

func TestSinceSkipsEvicted(t *testing.T) {
	t.Parallel()
	j := New(4)
	for i := 0; i < 8; i++ {
		j.Append(Entry{Kind: fmt.Sprintf("k%d", i)})
	}
	// Seqs 1..4 are evicted; asking since 2 returns only what survived.
	got := j.Since(2)
	if len(got) != 4 || got[0].Seq != 5 {
		t.Fatalf("since(2) = %+v", got)
	}
	if got := j.Since(100); got != nil {
		t.Fatalf("since(beyond) = %+v, want nil", got)
	}
}
