// Package zonecache coordinates the three-tier hierarchy — MemCache, the
// flash log, and the set-associative flash zones — into one cache.
package zonecache

import (
	"context"
	"fmt"
	"math/bits"

	flashcache "github.com/codeGROOVE-dev/flashcache"
	"github.com/codeGROOVE-dev/flashcache/logtier"
	"github.com/codeGROOVE-dev/flashcache/memcache"
	"github.com/codeGROOVE-dev/flashcache/quotient"
	"github.com/codeGROOVE-dev/flashcache/segment"
	"github.com/codeGROOVE-dev/flashcache/sets"
)

func bitCalc(capacity uint64) int {
	if capacity <= 1 {
		return 0
	}
	return bits.Len64(capacity - 1)
}

// ZoneCache is the hierarchical flash-aware cache: every insert and lookup
// flows through MemCache, then the flash log, then the set-associative
// flash tier, each demoting whatever it can't keep to the next.
type ZoneCache struct {
	mem  *memcache.S3FIFO
	log  *logtier.SLog
	sets *sets.CuckooSets

	stats    flashcache.StatsCollector
	preLog   *flashcache.PreLogAdmission
	warmedUp bool
}

// New builds a ZoneCache from the given options. It returns an error for
// a structurally invalid configuration (non-positive flash size or set
// capacity, negative memory size). It panics if RequireSlowWarmup was not
// set, mirroring the reference implementation's assert(warmed_up): this
// coordinator has no "half configured" state to fall back to.
func New(stats flashcache.StatsCollector, opts ...flashcache.Option) (*ZoneCache, error) {
	cfg := flashcache.NewConfig(opts...)

	if cfg.FlashSizeMB <= 0 {
		return nil, fmt.Errorf("zonecache: FlashSizeMB must be positive, got %d", cfg.FlashSizeMB)
	}
	if cfg.SetCapacity <= 0 {
		return nil, fmt.Errorf("zonecache: SetCapacity must be positive, got %d", cfg.SetCapacity)
	}
	if cfg.MemorySizeMB < 0 {
		return nil, fmt.Errorf("zonecache: MemorySizeMB must not be negative, got %d", cfg.MemorySizeMB)
	}
	if !cfg.RequireSlowWarmup {
		panic("zonecache: RequireSlowWarmup must be set (matches the reference implementation's assert(warmed_up))")
	}

	if stats == nil {
		stats = flashcache.NewLocalStats()
	}

	flashSize := uint64(cfg.FlashSizeMB) * 1024 * 1024
	pageSize := uint64(cfg.SetCapacity)
	totalPageNum := flashSize / pageSize
	if totalPageNum == 0 {
		return nil, fmt.Errorf("zonecache: flash size %d MB too small for set capacity %d bytes", cfg.FlashSizeMB, cfg.SetCapacity)
	}

	zc := &ZoneCache{stats: stats, preLog: cfg.PreLogAdmission, warmedUp: true}

	// Each tier gets its own name-scoped collector (createLocalCollector
	// in the reference implementation), so per-tier derived metrics like
	// write amplification read that tier's own bytes_written /
	// stores_requested_bytes rather than a pool shared across all three.
	// zc.stats itself stays the caller's collector, used only for the
	// cross-tier memHits/logHits/setHits counters below.
	setStats := flashcache.NewScopedStats(stats, "sets")
	logStats := flashcache.NewScopedStats(stats, "log")
	memStats := flashcache.NewScopedStats(stats, "memCache")

	zc.sets = sets.New(totalPageNum, pageSize, zc.readmitToLogFromSets, setStats)

	q := bitCalc(totalPageNum)
	var engine logtier.LogEngine
	switch cfg.LogEngine {
	case flashcache.LogEngineSegment:
		engine = segment.NewArray(q)
	default:
		engine = quotient.NewArray(q)
	}
	// The reference implementation sizes its log's capacity bound by the
	// same total_page_num used for index sizing, even though the bound is
	// checked against a running byte total: for any object bigger than a
	// few bytes that assertion would fire almost immediately. We size the
	// byte bound by the actual flash budget the log tier is carved out of
	// instead, so the capacity check is load-bearing rather than vestigial.
	zc.log = logtier.New(engine, totalPageNum*pageSize, logStats)

	memSize := uint64(cfg.MemorySizeMB) * 1024 * 1024
	if memSize > uint64(^uint32(0)) {
		memSize = uint64(^uint32(0))
	}
	zc.mem = memcache.New(uint32(memSize), memStats)

	return zc, nil
}

// readmitToLogFromSets is handed to CuckooSets as its Readmitter at
// construction time: it lets the sets tier hand a demoted item back to the
// log without holding a pointer back to ZoneCache, breaking the ownership
// cycle the reference implementation resolves with a raw back-pointer.
func (zc *ZoneCache) readmitToLogFromSets(item flashcache.Candidate) {
	zc.log.InsertFromSets(item)
}

// Insert admits item into MemCache, cascading whatever that tier can't
// keep down through the log and then the sets tier.
func (zc *ZoneCache) Insert(item flashcache.Candidate) {
	evicted := zc.mem.Insert(item)
	if len(evicted) == 0 {
		return
	}
	evicted = zc.log.Insert(evicted)
	if len(evicted) == 0 {
		return
	}
	zc.sets.Insert(evicted)
}

// Find probes MemCache, then the log, then the sets tier, returning on the
// first hit. Each tier records its own hit/miss counters.
func (zc *ZoneCache) Find(ctx context.Context, item flashcache.Candidate) bool {
	if zc.mem.Find(item) {
		zc.stats.Incr(flashcache.StatMemHits, 1)
		return true
	}
	if zc.log.Find(item.ID) {
		zc.stats.Incr(flashcache.StatLogHits, 1)
		return true
	}
	if zc.sets.Find(ctx, item) {
		zc.stats.Incr(flashcache.StatSetHits, 1)
		return true
	}
	return false
}

// CalcFlashWriteAmp reports the combined write amplification of the log
// and sets tiers: bytes actually written to flash divided by bytes the
// caller asked to have stored, summed across both tiers. If a
// PreLogAdmission filter is installed and the cache has finished warming
// up, the result is scaled by its observed admission ratio.
func (zc *ZoneCache) CalcFlashWriteAmp() float64 {
	amp := zc.sets.CalcWriteAmp() + zc.log.CalcWriteAmp()
	if zc.warmedUp && zc.preLog != nil && zc.preLog.OfferedBytes > 0 {
		amp *= float64(zc.preLog.AdmittedBytes) / float64(zc.preLog.OfferedBytes)
	}
	return amp
}

// RatioCapacityUsed reports the log and sets tiers' fraction of populated
// capacity, respectively.
func (zc *ZoneCache) RatioCapacityUsed() (logRatio, setsRatio float64) {
	return zc.log.RatioCapacityUsed(), zc.sets.RatioCapacityUsed()
}

// WarmedUp reports whether the cache has left its initial warmup phase.
// In this module it is always true once New succeeds, since RequireSlowWarmup
// gates construction itself rather than a runtime transition; kept as its
// own method because the reference implementation exposes it as separate
// observable state from construction.
func (zc *ZoneCache) WarmedUp() bool { return zc.warmedUp }

var _ logtier.LogEngine = (*quotient.Array)(nil)
var _ logtier.LogEngine = (*segment.Array)(nil)
