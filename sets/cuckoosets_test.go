package sets

import (
	"context"
	"testing"

	flashcache "github.com/codeGROOVE-dev/flashcache"
)

func TestCuckooSetsOverflowReadmitsUnfittingItems(t *testing.T) {
	// Scenario F: page_size = 64 bytes, a 16-candidate cluster where 12
	// fit and 4 overflow.
	var readmitted []flashcache.Candidate
	cs := New(64, 64, func(c flashcache.Candidate) { readmitted = append(readmitted, c) }, nil)

	items := make([]flashcache.Candidate, 0, 16)
	for i := 0; i < 12; i++ {
		items = append(items, flashcache.Candidate{ID: uint64(i), ObjSize: 5})
	}
	for i := 12; i < 16; i++ {
		items = append(items, flashcache.Candidate{ID: uint64(i), ObjSize: 20})
	}

	cs.Insert(items)

	if len(readmitted) != 4 {
		t.Fatalf("overflow readmits = %d, want 4", len(readmitted))
	}
}

func TestCuckooSetsInsertThenFind(t *testing.T) {
	cs := New(64, 1024, nil, nil)
	items := make([]flashcache.Candidate, 16)
	for i := range items {
		items[i] = flashcache.Candidate{ID: uint64(i), ObjSize: 1}
	}
	cs.Insert(items)

	for i := 0; i < 16; i++ {
		if !cs.Find(context.Background(), flashcache.Candidate{ID: uint64(i)}) {
			t.Errorf("id %d: expected found after insert", i)
		}
	}
}

func TestCuckooSetsReplacedWarmItemsAreReadmitted(t *testing.T) {
	var readmitted []flashcache.Candidate
	cs := New(4, 1024, func(c flashcache.Candidate) { readmitted = append(readmitted, c) }, nil)

	// totalPageNum=4 -> numSets=1, so every id routes to the same single
	// bucket. Preload all 4 of its slots directly with single-item pages at
	// increasing values, so the upcoming Insert call finds the bucket full
	// and must evict the minimum-value ("oldest") one via cuckoo fallback.
	// Installing a page zeroes its hit counts, so each preloaded item is
	// then found once to make it warm (hit_count>0).
	for i, val := range []uint64{10, 20, 30, 40} {
		page := flashcache.Page{{ID: uint64(1000 + i), ObjSize: 1, HitCount: 5}}
		cs.index.Insert(0, val, page)
	}
	for i := 0; i < 4; i++ {
		if _, ok := cs.index.Find(context.Background(), 0, uint64(1000+i)); !ok {
			t.Fatalf("preloaded id %d: expected found", 1000+i)
		}
	}

	items := make([]flashcache.Candidate, 16)
	for i := range items {
		items[i] = flashcache.Candidate{ID: uint64(2000 + i), ObjSize: 1}
	}
	cs.Insert(items)

	var sawEvictedWarmItem bool
	for _, c := range readmitted {
		if c.ID == 1000 {
			sawEvictedWarmItem = true
			if c.HitCount != 0 {
				t.Errorf("readmitted replaced item should have hit count reset to 0, got %d", c.HitCount)
			}
		}
	}
	if !sawEvictedWarmItem {
		t.Fatalf("expected the minimum-value preloaded page (id 1000) to be evicted and readmitted")
	}
}
