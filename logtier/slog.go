// Package logtier implements the flash log tier (SLog): the cache's
// second-chance store between MemCache and the set-associative flash zones,
// backed by a swappable LogEngine.
package logtier

import (
	"log/slog"

	flashcache "github.com/codeGROOVE-dev/flashcache"
)

// LogEngine is the interface a flash log backend must satisfy, letting SLog
// be built over either the quotient-filter or segment engine interchangeably.
type LogEngine interface {
	Insert(item flashcache.Candidate) []flashcache.Candidate
	Find(id uint64) (flashcache.Candidate, bool)
	Readmit(item flashcache.Candidate) bool
	GhostInsert(item flashcache.Candidate)
	RatioCapacityUsed() float64
}

// SLog is the flash log tier: it owns a LogEngine and tracks the byte
// accounting needed for write-amplification reporting.
type SLog struct {
	engine LogEngine
	stats  flashcache.StatsCollector

	totalCapacity uint64
	totalSize     uint64
}

// New wraps engine as an SLog tracking up to totalCapacity bytes.
func New(engine LogEngine, totalCapacity uint64, stats flashcache.StatsCollector) *SLog {
	if stats == nil {
		stats = flashcache.NewLocalStats()
	}
	return &SLog{engine: engine, stats: stats, totalCapacity: totalCapacity}
}

// Insert writes items into the log, returning every Candidate evicted as a
// result (individually, or in bulk if a sub-table/segment was erased).
func (s *SLog) Insert(items []flashcache.Candidate) []flashcache.Candidate {
	var evicted []flashcache.Candidate

	for _, item := range items {
		localEvict := s.engine.Insert(item)
		s.stats.Incr(flashcache.StatBytesWritten, int64(item.ObjSize))
		s.stats.Incr(flashcache.StatStoresRequestedBytes, int64(item.ObjSize))
		s.totalSize += uint64(item.ObjSize)

		if len(localEvict) > 0 {
			for _, obj := range localEvict {
				s.totalSize -= uint64(obj.ObjSize)
			}
			evicted = append(evicted, localEvict...)
		}
	}

	s.stats.Set(flashcache.StatCurrentSize, int64(s.totalSize))
	if s.totalSize > s.totalCapacity {
		panic("logtier: total size exceeds configured capacity")
	}
	return evicted
}

// Find reports whether id is present in the log, recording a hit or miss
// on this tier's own collector. Whether a log hit also counts as a
// cross-tier "logHits" event is the coordinator's concern, not this tier's.
func (s *SLog) Find(id uint64) bool {
	if _, ok := s.engine.Find(id); ok {
		s.stats.Incr(flashcache.StatHits, 1)
		return true
	}
	s.stats.Incr(flashcache.StatMisses, 1)
	return false
}

// Readmit re-inserts previously-evicted items without triggering a bulk
// eviction, silently dropping any the engine's routed sub-table refuses.
func (s *SLog) Readmit(items []flashcache.Candidate) {
	for _, item := range items {
		if s.engine.Readmit(item) {
			s.totalSize += uint64(item.ObjSize)
		}
	}
	s.stats.Set(flashcache.StatCurrentSize, int64(s.totalSize))
	if s.totalSize > s.totalCapacity {
		panic("logtier: total size exceeds configured capacity")
	}
}

// InsertFromSets handles a single item demoted out of the set-associative
// tier: warm items (hit_count > 0) are readmitted to the log proper, cold
// items are only recorded in the engine's ghost tracking.
func (s *SLog) InsertFromSets(item flashcache.Candidate) {
	if item.HitCount > 0 {
		if s.engine.Readmit(item) {
			s.totalSize += uint64(item.ObjSize)
		}
	} else {
		s.engine.GhostInsert(item)
	}

	s.stats.Set(flashcache.StatCurrentSize, int64(s.totalSize))
	if s.totalSize > s.totalCapacity {
		panic("logtier: total size exceeds configured capacity")
	}
}

// RatioCapacityUsed reports the engine's fraction of populated capacity.
func (s *SLog) RatioCapacityUsed() float64 { return s.engine.RatioCapacityUsed() }

// CalcWriteAmp reports bytes_written / stores_requested_bytes, the log
// tier's contribution to overall flash write amplification.
func (s *SLog) CalcWriteAmp() float64 {
	written := float64(s.stats.Value(flashcache.StatBytesWritten))
	requested := float64(s.stats.Value(flashcache.StatStoresRequestedBytes))
	if requested == 0 {
		slog.Debug("logtier: write-amp requested with zero stores_requested_bytes")
		return 0
	}
	return written / requested
}
