package memcache

import (
	"testing"

	flashcache "github.com/codeGROOVE-dev/flashcache"
)

func TestS3FIFOChurn(t *testing.T) {
	// Scenario E: max_size = 10 bytes, 20 candidates of size 1, distinct ids.
	c := New(10, nil)

	for i := uint64(0); i < 20; i++ {
		c.Insert(flashcache.Candidate{ID: i, ObjSize: 1})
	}

	if got := c.CurrentSize(); got != 10 {
		t.Fatalf("current size = %d, want 10", got)
	}
	if got := c.Len(); got != 10 {
		t.Fatalf("live entries = %d, want 10", got)
	}

	for i := uint64(10); i < 20; i++ {
		if !c.Find(flashcache.Candidate{ID: i}) {
			t.Errorf("id %d: expected live, not found", i)
		}
	}
	for i := uint64(0); i < 10; i++ {
		if c.Find(flashcache.Candidate{ID: i}) {
			t.Errorf("id %d: expected evicted, but found live", i)
		}
	}
}

func TestS3FIFOOversizeImmediateEviction(t *testing.T) {
	c := New(10, nil)
	evicted := c.Insert(flashcache.Candidate{ID: 1, ObjSize: 20})
	if len(evicted) != 1 || evicted[0].ID != 1 {
		t.Fatalf("oversize insert should return the item itself as evicted, got %+v", evicted)
	}
	if c.CurrentSize() != 0 {
		t.Fatalf("oversize insert must not change current size, got %d", c.CurrentSize())
	}
}

func TestS3FIFOWarmEvictionPropagates(t *testing.T) {
	c := New(2, nil)
	c.Insert(flashcache.Candidate{ID: 1, ObjSize: 1})
	c.Find(flashcache.Candidate{ID: 1}) // bump hit count to 1 (warm)
	c.Insert(flashcache.Candidate{ID: 2, ObjSize: 1})

	// Third insert forces eviction; id 1 is warm and must be returned, not ghosted.
	evicted := c.Insert(flashcache.Candidate{ID: 3, ObjSize: 1})
	if len(evicted) != 1 || evicted[0].ID != 1 {
		t.Fatalf("expected warm id 1 evicted, got %+v", evicted)
	}
	if c.Find(flashcache.Candidate{ID: 1}) {
		t.Fatalf("warm-evicted id must no longer be live")
	}
}

func TestS3FIFOColdEvictionGoesToGhost(t *testing.T) {
	c := New(1, nil)
	c.Insert(flashcache.Candidate{ID: 1, ObjSize: 1})
	// id 1 is never found, stays cold; this insert evicts it to ghost.
	c.Insert(flashcache.Candidate{ID: 2, ObjSize: 1})

	if c.GhostSize() != 1 {
		t.Fatalf("ghost size = %d, want 1", c.GhostSize())
	}

	// A repeat reference to the ghosted id is treated as a promotion
	// observation: the input candidate itself is returned as evicted
	// (not the ghost entry's copy), removed from ghost, not admitted.
	evicted := c.Insert(flashcache.Candidate{ID: 1, ObjSize: 1})
	if len(evicted) != 1 || evicted[0].ID != 1 {
		t.Fatalf("ghost-hit insert should return the input item, got %+v", evicted)
	}
	if evicted[0].HitCount != 0 {
		t.Fatalf("ghost-hit insert should return the input unmodified, got HitCount %d", evicted[0].HitCount)
	}
	if c.GhostSize() != 0 {
		t.Fatalf("ghost entry should be removed after a ghost hit, got size %d", c.GhostSize())
	}
}

func TestS3FIFOEvictionCountersTrackAllPaths(t *testing.T) {
	stats := flashcache.NewLocalStats()
	c := New(1, stats)

	// Oversize-reject path.
	c.Insert(flashcache.Candidate{ID: 100, ObjSize: 5})
	if got := stats.Value(flashcache.StatNumEvictions); got != 1 {
		t.Fatalf("after oversize reject: numEvictions = %d, want 1", got)
	}
	if got := stats.Value(flashcache.StatSizeEvictions); got != 5 {
		t.Fatalf("after oversize reject: sizeEvictions = %d, want 5", got)
	}

	// Queue-pop (cold) path.
	c.Insert(flashcache.Candidate{ID: 1, ObjSize: 1})
	c.Insert(flashcache.Candidate{ID: 2, ObjSize: 1}) // evicts id 1 cold, to ghost
	if got := stats.Value(flashcache.StatNumEvictions); got != 2 {
		t.Fatalf("after cold queue-pop: numEvictions = %d, want 2", got)
	}
	if got := stats.Value(flashcache.StatSizeEvictions); got != 6 {
		t.Fatalf("after cold queue-pop: sizeEvictions = %d, want 6", got)
	}

	// Ghost-hit path.
	c.Insert(flashcache.Candidate{ID: 1, ObjSize: 1})
	if got := stats.Value(flashcache.StatNumEvictions); got != 3 {
		t.Fatalf("after ghost hit: numEvictions = %d, want 3", got)
	}
	if got := stats.Value(flashcache.StatSizeEvictions); got != 7 {
		t.Fatalf("after ghost hit: sizeEvictions = %d, want 7", got)
	}
}

func TestS3FIFOInvariantCurrentSizeNeverExceedsMax(t *testing.T) {
	const max = 7
	c := New(max, nil)
	for i := uint64(0); i < 50; i++ {
		c.Insert(flashcache.Candidate{ID: i, ObjSize: 1})
		if c.CurrentSize() > max {
			t.Fatalf("after insert %d: current size %d exceeds max %d", i, c.CurrentSize(), max)
		}
	}
}
