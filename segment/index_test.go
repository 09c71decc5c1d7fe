package segment

import (
	"testing"

	flashcache "github.com/codeGROOVE-dev/flashcache"
)

func TestIndexFillsWithoutReplacement(t *testing.T) {
	ix := NewIndex(4) // 16 slots
	for i := uint64(0); i < 16; i++ {
		if !ix.Insert(flashcache.Candidate{ID: i, ObjSize: 1}) {
			t.Fatalf("insert %d failed unexpectedly", i)
		}
	}
	if !ix.IsFull() {
		t.Fatalf("expected full segment")
	}
	for i := uint64(0); i < 16; i++ {
		if _, ok := ix.Find(i); !ok {
			t.Errorf("id %d: expected found", i)
		}
	}
}

func TestIndexFindBumpsHitCount(t *testing.T) {
	ix := NewIndex(4)
	ix.Insert(flashcache.Candidate{ID: 1, ObjSize: 1})
	got, ok := ix.Find(1)
	if !ok {
		t.Fatalf("expected found")
	}
	if got.HitCount == 0 {
		t.Fatalf("expected hit count bumped by Find")
	}
}

func TestIndexRemoveAllDrainsAndResets(t *testing.T) {
	ix := NewIndex(4)
	for i := uint64(0); i < 16; i++ {
		ix.Insert(flashcache.Candidate{ID: i, ObjSize: 1})
	}
	evicted := ix.RemoveAll()
	if len(evicted) != 16 {
		t.Fatalf("expected 16 evicted, got %d", len(evicted))
	}
	if ix.IsFull() {
		t.Fatalf("segment should be empty after RemoveAll")
	}
	if _, ok := ix.Find(0); ok {
		t.Fatalf("id 0 should no longer be findable after RemoveAll")
	}
}

func TestIndexGhostInsertTrimsToEightXCapacity(t *testing.T) {
	ix := NewIndex(2) // 4 slots, ghost bound = 32
	for i := uint64(0); i < 40; i++ {
		ix.GhostInsert(flashcache.Candidate{ID: i, ObjSize: 1})
	}
	if ix.ghostSize > ix.maxNumEntries*8 {
		t.Fatalf("ghost size %d exceeds bound %d", ix.ghostSize, ix.maxNumEntries*8)
	}
}
