// Package segment implements the alternate, swappable flash log engine: a
// fixed-size circular buffer with probabilistic admission and a ghost FIFO
// eight times its size, as an alternative to the quotient-filter engine.
package segment

import (
	"container/list"
	"math/rand/v2"

	flashcache "github.com/codeGROOVE-dev/flashcache"
)

// admitThreshold is max(uint64)/100, the integer form of the reference
// implementation's constexpr 0.01 * max(uint64): a roughly 1% random-admission
// coin flip for cold items arriving when the ghost list already holds state
// to compare against.
const admitThreshold = ^uint64(0) / 100

// Index is a single circular-buffer segment of capacity 2^q entries.
type Index struct {
	maxNumEntries uint32
	numEntries    uint32
	hitOneEntries uint32
	head          uint32
	entries       []flashcache.Candidate

	ghostSize uint32
	ghost     *list.List
	ghostTags map[uint64]*list.Element
}

// NewIndex creates a segment index with capacity 2^q.
func NewIndex(q int) *Index {
	max := uint32(1) << uint(q)
	return &Index{
		maxNumEntries: max,
		entries:       make([]flashcache.Candidate, max),
		ghost:         list.New(),
		ghostTags:     make(map[uint64]*list.Element),
	}
}

func (ix *Index) incr(i uint32) uint32 { return (i + 1) % ix.maxNumEntries }

// IsFull reports whether every slot in the buffer is occupied.
func (ix *Index) IsFull() bool { return ix.numEntries == ix.maxNumEntries }

// CanRemoveAll reports whether every occupied slot has been hit at least
// once, the gate that permits a bulk eviction of the whole segment.
func (ix *Index) CanRemoveAll() bool { return ix.hitOneEntries == ix.maxNumEntries }

// Insert admits item into the buffer, replacing a never-hit ("cold") slot
// via round-robin scan when full, ghosting the replaced entry. It returns
// false only in the (unreachable in a correctly gated array) case where
// every slot is full and every slot has been hit at least once.
func (ix *Index) Insert(item flashcache.Candidate) bool {
	if ix.numEntries >= ix.maxNumEntries && ix.hitOneEntries >= ix.maxNumEntries {
		return false
	}

	if elem, ok := ix.ghostTags[item.ID]; ok {
		item.HitCount = 1
		ix.removeGhost(item.ID)
		_ = elem
	} else if ix.ghost.Len() == 0 || rand.Uint64() <= admitThreshold {
		item.HitCount = 1
	} else {
		item.HitCount = 0
	}

	if ix.numEntries == ix.maxNumEntries {
		beg := ix.head
		for {
			cur := ix.entries[ix.head]
			next := ix.incr(ix.head)
			if cur.HitCount == 0 {
				ix.entries[ix.head] = item
				ix.head = next
				ghostItem := cur
				ghostItem.HitCount = 0
				ix.GhostInsert(ghostItem)
				if item.HitCount > 0 {
					ix.hitOneEntries++
				}
				return true
			}
			ix.head = next
			if ix.head == beg {
				break
			}
		}
		return false
	}

	ix.entries[ix.numEntries] = item
	ix.numEntries++
	if item.HitCount > 0 {
		ix.hitOneEntries++
	}
	return true
}

// Find reports whether id is present, bumping its hit count on success.
func (ix *Index) Find(id uint64) (flashcache.Candidate, bool) {
	for i := uint32(0); i < ix.numEntries; i++ {
		if ix.entries[i].ID == id {
			ix.entries[i].HitCount++
			if ix.entries[i].HitCount == 1 {
				ix.hitOneEntries++
			}
			return ix.entries[i], true
		}
	}
	return flashcache.Candidate{}, false
}

// RemoveAll drains every populated slot as a Candidate and resets occupancy
// counters; it does not clear the ghost FIFO.
func (ix *Index) RemoveAll() []flashcache.Candidate {
	out := make([]flashcache.Candidate, ix.numEntries)
	copy(out, ix.entries[:ix.numEntries])
	ix.numEntries = 0
	ix.hitOneEntries = 0
	ix.head = 0
	return out
}

// GhostInsert records a cold eviction in the ghost FIFO, trimming it to
// eight times the segment's capacity.
func (ix *Index) GhostInsert(item flashcache.Candidate) {
	for ix.ghostSize+1 > ix.maxNumEntries*8 {
		front := ix.ghost.Front()
		if front == nil {
			break
		}
		id := front.Value.(uint64)
		ix.ghost.Remove(front)
		if _, ok := ix.ghostTags[id]; ok {
			delete(ix.ghostTags, id)
			ix.ghostSize--
		}
	}

	elem := ix.ghost.PushBack(item.ID)
	ix.ghostTags[item.ID] = elem
	ix.ghostSize++
}

func (ix *Index) removeGhost(id uint64) {
	if elem, ok := ix.ghostTags[id]; ok {
		ix.ghost.Remove(elem)
		delete(ix.ghostTags, id)
		ix.ghostSize--
	}
}
