package flashcache

import "sync"

// Recognized counter names reported by the core tiers. A StatsCollector
// implementation is free to track additional counters; these are the ones
// this module writes to.
const (
	StatMemHits              = "memHits"
	StatLogHits              = "logHits"
	StatSetHits              = "setHits"
	StatBytesWritten         = "bytes_written"
	StatStoresRequested      = "stores_requested"
	StatStoresRequestedBytes = "stores_requested_bytes"
	StatHits                 = "hits"
	StatMisses               = "misses"
	StatNumEvictions         = "numEvictions"
	StatSizeEvictions        = "sizeEvictions"
	StatCurrentSize          = "current_size"
	StatS3FIFOCacheCapacity  = "s3fifoCacheCapacity"
	StatLRUCacheCapacity     = "lruCacheCapacity"
)

// StatsCollector is a sink for named counters, the core's only contract
// with an external statistics-aggregation system. Incr adds delta to the
// named counter (creating it at 0 first if unseen); Set pins it to an
// absolute value. Implementations must be safe for concurrent use, since
// CuckooSets, which sits on the concurrency-tolerant cuckoo map, may report
// hits from multiple goroutines.
type StatsCollector interface {
	Incr(name string, delta int64)
	Set(name string, value int64)
	Value(name string) int64
}

// TraceSource yields Candidates in arrival order. Parsing a trace file into
// one is out of scope for this module; only the contract matters here, and
// internal/fixtures provides a minimal test-only implementation over a
// compressed, in-memory trace.
type TraceSource interface {
	// Next returns the next request's id and size. ok is false once the
	// trace is exhausted.
	Next() (id uint64, objSize uint32, ok bool)
}

// LocalStats is a simple in-memory StatsCollector, the default used when a
// caller doesn't supply one of its own.
type LocalStats struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewLocalStats returns an empty LocalStats collector.
func NewLocalStats() *LocalStats {
	return &LocalStats{counters: make(map[string]int64)}
}

// Incr adds delta to the named counter.
func (s *LocalStats) Incr(name string, delta int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[name] += delta
}

// Set pins the named counter to an absolute value.
func (s *LocalStats) Set(name string, value int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[name] = value
}

// Value returns the current value of the named counter (0 if unseen).
func (s *LocalStats) Value(name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[name]
}

// MissRate computes 1 - (memHits+logHits+setHits)/requests, the exit-
// contract derived metric. requests must be the total number of find()
// calls issued; returns 0 if requests is 0.
func (s *LocalStats) MissRate(requests int64) float64 {
	if requests == 0 {
		return 0
	}
	hits := s.Value(StatMemHits) + s.Value(StatLogHits) + s.Value(StatSetHits)
	return 1 - float64(hits)/float64(requests)
}

// ScopedStats is a name-scoped view of a parent StatsCollector: every
// counter name passed through Incr/Set/Value is prefixed with the scope's
// name before reaching the parent, so two scopes never share a counter.
// This is the Go equivalent of the reference implementation's
// StatsCollector::createLocalCollector(name) — each tier gets what is
// effectively its own collector (so per-tier derived metrics like write
// amplification aren't conflated across tiers) while everything still
// flows through one underlying sink a caller can export as a whole.
type ScopedStats struct {
	parent StatsCollector
	prefix string
}

// NewScopedStats returns a StatsCollector scoping every counter under
// name within parent. A nil parent is replaced with a fresh LocalStats.
func NewScopedStats(parent StatsCollector, name string) *ScopedStats {
	if parent == nil {
		parent = NewLocalStats()
	}
	return &ScopedStats{parent: parent, prefix: name + "."}
}

// Incr adds delta to the scoped counter name.
func (s *ScopedStats) Incr(name string, delta int64) { s.parent.Incr(s.prefix+name, delta) }

// Set pins the scoped counter name to an absolute value.
func (s *ScopedStats) Set(name string, value int64) { s.parent.Set(s.prefix+name, value) }

// Value returns the scoped counter name's current value.
func (s *ScopedStats) Value(name string) int64 { return s.parent.Value(s.prefix + name) }
