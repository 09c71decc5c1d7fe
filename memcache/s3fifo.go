// Package memcache implements the S3FIFO DRAM tier: a single FIFO queue of
// admitted objects backed by a ghost directory of recently-evicted ids,
// sized in bytes rather than item counts.
package memcache

import (
	"container/list"
	"log/slog"

	flashcache "github.com/codeGROOVE-dev/flashcache"
)

type entry struct {
	cand flashcache.Candidate
}

// S3FIFO is the byte-budgeted memory tier described in SPEC_FULL.md §4.1.
// It is not safe for concurrent use; the coordinator drives it from a
// single goroutine, same as the reference simulator.
type S3FIFO struct {
	maxSize     uint32
	currentSize uint32
	ghostSize   uint32

	queue *list.List
	tags  map[uint64]*list.Element

	ghostQueue *list.List
	ghostTags  map[uint64]*list.Element

	stats flashcache.StatsCollector
}

// New creates an S3FIFO memory tier with the given byte budget. A nil
// collector is replaced with a fresh in-memory LocalStats.
func New(maxSize uint32, stats flashcache.StatsCollector) *S3FIFO {
	if stats == nil {
		stats = flashcache.NewLocalStats()
	}
	return &S3FIFO{
		maxSize:    maxSize,
		queue:      list.New(),
		tags:       make(map[uint64]*list.Element),
		ghostQueue: list.New(),
		ghostTags:  make(map[uint64]*list.Element),
		stats:      stats,
	}
}

// Insert admits item into the memory tier, returning Candidates the caller
// must propagate to the next tier (evictions, or the input itself if it
// cannot be admitted at all).
func (s *S3FIFO) Insert(item flashcache.Candidate) []flashcache.Candidate {
	if item.ObjSize > s.maxSize {
		s.stats.Incr(flashcache.StatNumEvictions, 1)
		s.stats.Incr(flashcache.StatSizeEvictions, int64(item.ObjSize))
		return []flashcache.Candidate{item}
	}

	if elem, ok := s.ghostTags[item.ID]; ok {
		ge := elem.Value.(*entry)
		ge.cand.HitCount++
		s.removeGhost(item.ID)
		s.stats.Incr(flashcache.StatNumEvictions, 1)
		s.stats.Incr(flashcache.StatSizeEvictions, int64(item.ObjSize))
		return []flashcache.Candidate{item}
	}

	var evicted []flashcache.Candidate
	for s.currentSize+item.ObjSize > s.maxSize && s.queue.Len() > 0 {
		front := s.queue.Front()
		popped := front.Value.(*entry).cand
		s.queue.Remove(front)
		delete(s.tags, popped.ID)
		s.currentSize -= popped.ObjSize
		s.stats.Incr(flashcache.StatNumEvictions, 1)
		s.stats.Incr(flashcache.StatSizeEvictions, int64(popped.ObjSize))

		if popped.HitCount > 0 {
			evicted = append(evicted, popped)
		} else {
			s.ghostInsert(popped)
		}
	}

	if item.HitCount != 0 {
		panic("memcache: insert precondition violated: item.HitCount must be 0")
	}

	e := &entry{cand: item}
	s.tags[item.ID] = s.queue.PushBack(e)
	s.currentSize += item.ObjSize

	return evicted
}

// Find reports whether item.ID is live in the memory tier, bumping its hit
// count on success.
func (s *S3FIFO) Find(item flashcache.Candidate) bool {
	elem, ok := s.tags[item.ID]
	if !ok {
		s.stats.Incr(flashcache.StatMisses, 1)
		return false
	}
	e := elem.Value.(*entry)
	if e.cand.HitCount < 255 {
		e.cand.HitCount++
	}
	s.stats.Incr(flashcache.StatHits, 1)
	return true
}

// CurrentSize returns the live tier's byte occupancy.
func (s *S3FIFO) CurrentSize() uint32 { return s.currentSize }

// GhostSize returns the ghost directory's byte occupancy.
func (s *S3FIFO) GhostSize() uint32 { return s.ghostSize }

// Len returns the number of live entries.
func (s *S3FIFO) Len() int { return s.queue.Len() }

// ghostInsert records a cold eviction in the ghost directory, trimming the
// ghost FIFO down to the same byte budget as the live tier.
func (s *S3FIFO) ghostInsert(c flashcache.Candidate) {
	e := &entry{cand: c}
	s.ghostTags[c.ID] = s.ghostQueue.PushBack(e)
	s.ghostSize += c.ObjSize

	for s.ghostSize > s.maxSize && s.ghostQueue.Len() > 0 {
		front := s.ghostQueue.Front()
		popped := front.Value.(*entry).cand
		s.ghostQueue.Remove(front)
		delete(s.ghostTags, popped.ID)
		s.ghostSize -= popped.ObjSize
	}
	slog.Debug("memcache: ghost admission", "id", c.ID, "ghost_size", s.ghostSize)
}

func (s *S3FIFO) removeGhost(id uint64) {
	elem, ok := s.ghostTags[id]
	if !ok {
		return
	}
	popped := elem.Value.(*entry).cand
	s.ghostQueue.Remove(elem)
	delete(s.ghostTags, id)
	s.ghostSize -= popped.ObjSize
}
