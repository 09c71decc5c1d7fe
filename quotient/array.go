package quotient

import (
	"math/bits"

	flashcache "github.com/codeGROOVE-dev/flashcache"
)

// SubIndexSize is the fixed entry count of each quotient sub-table
// (kQFSubIndexSize in the reference implementation).
const SubIndexSize = 16

// Array routes candidates across a bank of equal-sized quotient sub-tables
// by the high bits of their id, and bulk-evicts a whole sub-table ("erases
// the flash segment") when that sub-table fills up, rather than evicting
// individual entries.
type Array struct {
	offsetBits uint
	offsetMask uint64
	indexMask  uint64
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
		offsetMask: uint64(SubIndexSize - 1),
		indexMask:  uint64(total - 1),
		subs:       subs,
	}
}

func (a *Array) route(id uint64) (sub *Index, offset uint64) {
	fq := id & a.indexMask
	idx := (fq >> a.offsetBits) % uint64(len(a.subs))
	offset = fq & a.offsetMask
	return a.subs[idx], offset
}

// Insert places item into its routed sub-table, bulk-evicting that
// sub-table first if it was already full. Insert always succeeds
// (post-eviction the sub-table is empty), returning any evicted Candidates.
func (a *Array) Insert(item flashcache.Candidate) []flashcache.Candidate {
	sub, offset := a.route(item.ID)

	var evicted []flashcache.Candidate
	if sub.RatioCapacityUsed() >= 1.0 {
		evicted = sub.RemoveAll()
	}
	sub.Insert(offset, item)
	return evicted
}

// Find reports whether id is present, returning the routed sub-table's copy.
func (a *Array) Find(id uint64) (flashcache.Candidate, bool) {
	sub, offset := a.route(id)
	return sub.Find(offset, id)
}

// Readmit attempts to place item without triggering a bulk eviction; it
// refuses silently (capacity refusal, not an eviction) if the routed
// sub-table is already full.
func (a *Array) Readmit(item flashcache.Candidate) bool {
	sub, offset := a.route(item.ID)
	if sub.Full() {
		return false
	}
	return sub.Insert(offset, item)
}

// GhostInsert is a documented no-op for the quotient engine: a quotient
// filter keeps no separate ghost list, since a rejected cold item simply
// leaves no trace in the filter itself. See DESIGN.md for the rationale.
func (a *Array) GhostInsert(flashcache.Candidate) {}

// RatioCapacityUsed reports the fraction of total entries populated across
// every sub-table.
func (a *Array) RatioCapacityUsed() float64 {
	var used, total int
	for _, sub := range a.subs {
		used += sub.Count()
		total += sub.Capacity()
	}
	if total == 0 {
		return 0
	}
	return float64(used) / float64(total)
}
