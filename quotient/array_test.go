package quotient

import (
	"testing"

	flashcache "github.com/codeGROOVE-dev/flashcache"
)

func TestArrayInsertAndFind(t *testing.T) {
	a := NewArray(6) // 64 total entries, 4 sub-tables of 16
	for i := uint64(0); i < 16; i++ {
		a.Insert(flashcache.Candidate{ID: i, ObjSize: 1})
	}
	for i := uint64(0); i < 16; i++ {
		if _, ok := a.Find(i); !ok {
			t.Errorf("id %d: expected found", i)
		}
	}
}

func TestArrayBulkEvictsFullSubTable(t *testing.T) {
	a := NewArray(4) // 16 total entries, 1 sub-table of 16
	for i := uint64(0); i < 16; i++ {
		evicted := a.Insert(flashcache.Candidate{ID: i, ObjSize: 1})
		if len(evicted) != 0 {
			t.Fatalf("insert %d: unexpected eviction before sub-table is full", i)
		}
	}
	if a.RatioCapacityUsed() != 1.0 {
		t.Fatalf("expected full sub-table, ratio = %f", a.RatioCapacityUsed())
	}

	// The sub-table is now full; the next insert must bulk-evict it entirely
	// before placing the new item.
	evicted := a.Insert(flashcache.Candidate{ID: 100, ObjSize: 1})
	if len(evicted) != 16 {
		t.Fatalf("expected bulk eviction of 16 entries, got %d", len(evicted))
	}
	for i := uint64(0); i < 16; i++ {
		if _, ok := a.Find(i); ok {
			t.Errorf("id %d: should have been bulk-evicted", i)
		}
	}
	if _, ok := a.Find(100); !ok {
		t.Fatalf("id 100: expected found after bulk eviction made room")
	}
}

func TestArrayReadmitRefusesWhenFull(t *testing.T) {
	a := NewArray(4)
	for i := uint64(0); i < 16; i++ {
		a.Insert(flashcache.Candidate{ID: i, ObjSize: 1})
	}
	if a.Readmit(flashcache.Candidate{ID: 200, ObjSize: 1}) {
		t.Fatalf("readmit should refuse silently when sub-table is full")
	}
	if _, ok := a.Find(200); ok {
		t.Fatalf("refused readmit must not be present")
	}
}

func TestArrayGhostInsertIsNoop(t *testing.T) {
	a := NewArray(4)
	a.GhostInsert(flashcache.Candidate{ID: 1, ObjSize: 1})
	if _, ok := a.Find(1); ok {
		t.Fatalf("GhostInsert must not make an entry findable")
	}
}
