package segment

import (
	"math/bits"

	flashcache "github.com/codeGROOVE-dev/flashcache"
)

// SubIndexSize is the fixed entry count of each segment sub-table,
// matching quotient.SubIndexSize so the two engines share one array shape.
const SubIndexSize = 16

// Array routes candidates across a bank of equal-sized circular-buffer
// segments, bulk-evicting a segment only once it is both full and every
// one of its slots has been hit at least once.
type Array struct {
	offsetBits uint
	indexMask  uint64
	numEntries uint32
	subs       []*Index
}

// NewArray creates an Array over 2^q total entries, split into banks of
// SubIndexSize entries apiece.
func NewArray(q int) *Array {
	offsetBits := uint(bits.Len(uint(SubIndexSize - 1)))
	total := 1 << uint(q)
	numSubs := total / SubIndexSize
	if numSubs < 1 {
		numSubs = 1
	}

	subs := make([]*Index, numSubs)
	for i := range subs {
		subs[i] = NewIndex(int(offsetBits))
	}

	return &Array{
		offsetBits: offsetBits,
		indexMask:  uint64(total - 1),
		subs:       subs,
	}
}

func (a *Array) groupID(id uint64) uint64 {
	return ((id & a.indexMask) >> a.offsetBits) % uint64(len(a.subs))
}

// Insert places item into its routed segment, bulk-evicting that segment
// first if it was both full and every slot within it had been hit.
func (a *Array) Insert(item flashcache.Candidate) []flashcache.Candidate {
	sub := a.subs[a.groupID(item.ID)]

	var evicted []flashcache.Candidate
	if sub.IsFull() && sub.CanRemoveAll() {
		evicted = sub.RemoveAll()
		a.numEntries -= uint32(len(evicted))
	}

	wasFull := sub.IsFull()
	sub.Insert(item)
	if !wasFull {
		a.numEntries++
	}
	return evicted
}

// Find reports whether id is present in its routed segment.
func (a *Array) Find(id uint64) (flashcache.Candidate, bool) {
	sub := a.subs[a.groupID(id)]
	return sub.Find(id)
}

// Readmit attempts to place item into its routed segment without
// triggering a bulk eviction, refusing silently if that segment is full.
func (a *Array) Readmit(item flashcache.Candidate) bool {
	sub := a.subs[a.groupID(item.ID)]
	if sub.IsFull() {
		return false
	}
	return sub.Insert(item)
}

// GhostInsert records item as a cold eviction in its routed segment's ghost
// FIFO, forcing its hit count to zero first as the reference does.
func (a *Array) GhostInsert(item flashcache.Candidate) {
	item.HitCount = 0
	sub := a.subs[a.groupID(item.ID)]
	sub.GhostInsert(item)
}

// RatioCapacityUsed reports the fraction of total entries currently
// populated across every segment.
func (a *Array) RatioCapacityUsed() float64 {
	var total int
	for _, sub := range a.subs {
		total += int(sub.maxNumEntries)
	}
	if total == 0 {
		return 0
	}
	return float64(a.numEntries) / float64(total)
}
