package cuckoo

import (
	"context"
	"log/slog"

	flashcache "github.com/codeGROOVE-dev/flashcache"
)

// MaxBFSPathLen bounds cuckoo path search depth (kMaxBFSPathLen).
const MaxBFSPathLen = 5

// hashMixConstant is the 64-bit MurmurHash2 mixing constant used by altIndex.
const hashMixConstant = 0xc6a4a7935bd1e995

type set struct {
	id      uint32
	partial uint8
}

type cuckooRecord struct {
	bucketID uint32
	slotIdx  int
	set      set
	inplace  bool
}

// HashMap is a fixed-size, page-valued cuckoo hash map: 2^q buckets of
// SlotsPerBucket slots apiece, each slot holding a whole Page under a
// chained per-bucket timestamp, with fine-grained spinlock concurrency.
//
// Scheduling note: size accounting and the BFS path search read bucket
// state outside the lock that individual slot mutations hold. This mirrors
// the single-threaded, trace-replay-driven scheduling model this map is
// embedded in (see the coordinator in package zonecache); the lock
// machinery itself (ascending lock-order acquisition, duplicate-index
// skipping, re-verification via isIdentical before any move) is preserved
// in full so the map remains safe to later drive from multiple goroutines.
type HashMap struct {
	indexMask  uint32
	buckets    []bucket
	timestamps []timestamp
	locks      []*spinLock
	numLocks   uint32
	size       int
}

// NewHashMap creates a cuckoo hash map with 2^q buckets.
func NewHashMap(q int) *HashMap {
	numBuckets := uint32(1) << uint(q)
	numLocks := numBuckets
	if numLocks > MaxNumLocks {
		numLocks = MaxNumLocks
	}
	locks := make([]*spinLock, numLocks)
	for i := range locks {
		locks[i] = &spinLock{}
	}
	return &HashMap{
		indexMask:  numBuckets - 1,
		buckets:    make([]bucket, numBuckets),
		timestamps: make([]timestamp, numBuckets),
		locks:      locks,
		numLocks:   numLocks,
	}
}

func (m *HashMap) lockIndex(bucketID uint32) uint32 { return bucketID & (m.numLocks - 1) }

// altIndex is the involution pairing every bucket with its cuckoo sibling
// for a given partial: altIndex(altIndex(b, p), p) == b.
func (m *HashMap) altIndex(index uint32, partial uint8) uint32 {
	return uint32((uint64(index) ^ (uint64(partial) * hashMixConstant)) & uint64(m.indexMask))
}

func (m *HashMap) setIndex(key uint64) uint32 { return uint32(key & uint64(m.indexMask)) }

// Size reports the number of live (bucket, slot) entries.
func (m *HashMap) Size() int { return m.size }

// LoadFactor reports the fraction of all slots currently occupied.
func (m *HashMap) LoadFactor() float64 {
	return float64(m.size) / float64(len(m.buckets)*SlotsPerBucket)
}

func (m *HashMap) getSet(b *bucket, bucketID uint32, slotIdx int) set {
	s := b.slots[slotIdx]
	id := bucketID
	if !s.inplace {
		id = m.altIndex(bucketID, s.partial)
	}
	return set{id: id, partial: s.partial}
}

// Insert stores page under setID with opaque value val, returning any page
// it displaced (nil if none). It always succeeds for a table with at least
// one slot: if no free slot is found within the BFS depth bound, it falls
// back to evicting the oldest-lifetime slot visited during the search.
func (m *HashMap) Insert(setID uint32, val uint64, page flashcache.Page) (flashcache.Page, bool) {
	setID &= m.indexMask

	tsLock := m.acquire(setID)
	partial := m.timestamps[setID].getNew()
	tsLock.Unlock()

	altIdx := m.altIndex(setID, partial)

	if replaced, ok := m.tryDirectInsert(setID, altIdx, partial, val, page); ok {
		return replaced, true
	}

	return m.runCuckoo(setID, altIdx, partial, val, page)
}

func (m *HashMap) tryDirectInsert(i1, i2 uint32, partial uint8, val uint64, page flashcache.Page) (flashcache.Page, bool) {
	ls := m.acquire(i1, i2)
	defer ls.Unlock()

	if slotIdx, ok := m.firstFreeSlot(i1); ok {
		for i := range page {
			page[i].HitCount = 0
		}
		m.buckets[i1].setEntry(slotIdx, val, page, partial, true)
		m.size++
		return nil, true
	}
	if slotIdx, ok := m.firstFreeSlot(i2); ok {
		for i := range page {
			page[i].HitCount = 0
		}
		m.buckets[i2].setEntry(slotIdx, val, page, partial, false)
		m.size++
		return nil, true
	}
	return nil, false
}

func (m *HashMap) firstFreeSlot(bucketID uint32) (int, bool) {
	b := &m.buckets[bucketID]
	for s := 0; s < SlotsPerBucket; s++ {
		if !b.isOccupied(s) {
			return s, true
		}
	}
	return 0, false
}

type queueItem struct {
	bucketID uint32
	path     []cuckooRecord
}

// cuckooPathSearch runs a breadth-first search over cuckoo-reachable slots
// seeded at i1 and i2, bounded to depth MaxBFSPathLen. It returns the first
// free slot found (found=true) along with the path of displacements needed
// to reach it, or, failing that, the oldest-lifetime (minimum value) slot
// visited (haveVictim=true) as a fallback eviction target.
func (m *HashMap) cuckooPathSearch(i1, i2 uint32) (destBucket uint32, destSlot int, path []cuckooRecord, victim set, victimInplace bool, haveVictim bool, found bool) {
	queue := []queueItem{{bucketID: i1}, {bucketID: i2}}
	oldestVal := ^uint64(0)

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		depth := len(cur.path)

		b := &m.buckets[cur.bucketID]
		for s := 0; s < SlotsPerBucket; s++ {
			if !b.isOccupied(s) {
				return cur.bucketID, s, cur.path, set{}, false, false, true
			}
			if b.slots[s].value < oldestVal {
				oldestVal = b.slots[s].value
				destBucket = cur.bucketID
				destSlot = s
				victim = m.getSet(b, cur.bucketID, s)
				victimInplace = b.slots[s].inplace
				path = cur.path
				haveVictim = true
			}
			if depth+1 >= MaxBFSPathLen {
				continue
			}

			st := m.getSet(b, cur.bucketID, s)
			next := m.altIndex(st.id, st.partial)
			rec := cuckooRecord{bucketID: cur.bucketID, slotIdx: s, set: st, inplace: b.slots[s].inplace}
			newPath := make([]cuckooRecord, len(cur.path)+1)
			copy(newPath, cur.path)
			newPath[len(cur.path)] = rec
			queue = append(queue, queueItem{bucketID: next, path: newPath})
		}
	}
	return destBucket, destSlot, path, victim, victimInplace, haveVictim, false
}

// cuckooPathMove relocates each recorded slot's occupant into the slot
// vacated by the level below it, bottom-up, re-verifying with isIdentical
// before every move since the path was discovered without holding locks.
// A false return means the path is stale and the caller should re-search.
func (m *HashMap) cuckooPathMove(path []cuckooRecord, destBucket uint32, destSlot int) bool {
	curBucket, curSlot := destBucket, destSlot
	for i := len(path) - 1; i >= 0; i-- {
		rec := path[i]
		ls := m.acquire(rec.bucketID, curBucket)
		if !m.buckets[rec.bucketID].isIdentical(rec.slotIdx, rec.set.partial, rec.inplace) {
			ls.Unlock()
			return false
		}

		s := m.buckets[rec.bucketID].slots[rec.slotIdx]
		m.buckets[curBucket].setEntry(curSlot, s.value, s.page, s.partial, s.inplace)
		m.buckets[rec.bucketID].clearEntry(rec.slotIdx)
		ls.Unlock()

		curBucket, curSlot = rec.bucketID, rec.slotIdx
	}
	return true
}

func (m *HashMap) evictSlot(bucketID uint32, slotIdx int, victim set, victimInplace bool) (flashcache.Page, bool) {
	ls := m.acquire(bucketID)
	defer ls.Unlock()

	b := &m.buckets[bucketID]
	if !b.isIdentical(slotIdx, victim.partial, victimInplace) {
		return nil, false
	}
	replaced := b.clearEntry(slotIdx)
	m.timestamps[victim.id].remove(victim.partial)
	m.size--
	return replaced, true
}

// runCuckoo handles the case where both of an insert's candidate buckets
// were full: search for a cuckoo path to a free slot, or fall back to the
// oldest-lifetime slot visited, then cascade moves to open the root slot.
func (m *HashMap) runCuckoo(i1, i2 uint32, partial uint8, val uint64, page flashcache.Page) (flashcache.Page, bool) {
	for attempt := 0; attempt < 8; attempt++ {
		destBucket, destSlot, path, victim, victimInplace, haveVictim, found := m.cuckooPathSearch(i1, i2)
		if !found && !haveVictim {
			return nil, false
		}

		var replaced flashcache.Page
		if !found {
			slog.Debug("cuckoo: path search exhausted depth, evicting oldest-lifetime slot",
				"bucket", destBucket, "slot", destSlot)
			var ok bool
			replaced, ok = m.evictSlot(destBucket, destSlot, victim, victimInplace)
			if !ok {
				continue
			}
		}

		if m.cuckooPathMove(path, destBucket, destSlot) {
			rootBucket, rootSlot := destBucket, destSlot
			if len(path) > 0 {
				rootBucket = path[0].bucketID
				rootSlot = path[0].slotIdx
			}
			inplace := rootBucket == i1

			ls := m.acquire(rootBucket)
			for i := range page {
				page[i].HitCount = 0
			}
			m.buckets[rootBucket].setEntry(rootSlot, val, page, partial, inplace)
			m.size++
			ls.Unlock()
			return replaced, true
		}
		// Verification failed mid-move: the path went stale, retry the search.
	}
	return nil, false
}

func (m *HashMap) tryReadFromBucket(bucketID uint32, partial uint8, inplace bool, itemID uint64) (uint64, bool) {
	b := &m.buckets[bucketID]
	for s := 0; s < SlotsPerBucket; s++ {
		if !b.isIdentical(s, partial, inplace) {
			continue
		}
		for i := range b.slots[s].page {
			if b.slots[s].page[i].ID == itemID {
				b.slots[s].page[i].HitCount++
				return b.slots[s].value, true
			}
		}
	}
	return 0, false
}

// Find looks up item within key's set, walking the timestamp chain from
// newest to oldest until a match is found or the chain is exhausted. ctx
// is checked between timestamp-chain steps purely so a long-lived caller
// can cancel; the search itself is already bounded.
func (m *HashMap) Find(ctx context.Context, key uint64, itemID uint64) (uint64, bool) {
	setID := m.setIndex(key)

	tsLock := m.acquire(setID)
	p, ok := m.timestamps[setID].tryNewest()
	tsLock.Unlock()
	if !ok {
		return 0, false
	}

	for {
		select {
		case <-ctx.Done():
			return 0, false
		default:
		}

		altIdx := m.altIndex(setID, p)
		ls := m.acquire(setID, altIdx)
		val, found := m.tryReadFromBucket(setID, p, true, itemID)
		if !found {
			val, found = m.tryReadFromBucket(altIdx, p, false, itemID)
		}
		ls.Unlock()
		if found {
			return val, true
		}

		tsLock := m.acquire(setID)
		next, ok := m.timestamps[setID].tryNext(p)
		tsLock.Unlock()
		if !ok {
			return 0, false
		}
		p = next
	}
}
