// Package sets implements the set-associative flash tier: clusters of
// candidates are packed into fixed-size pages and installed into a cuckoo
// hash map keyed by a voted set id.
package sets

import (
	"context"
	"sort"

	flashcache "github.com/codeGROOVE-dev/flashcache"
	"github.com/codeGROOVE-dev/flashcache/cuckoo"
)

// clusterSize is the fixed number of candidates grouped into one page
// before packing (kQFSubIndexSize in the reference implementation).
const clusterSize = 16

func bitCalc(capacity uint64) int {
	b := 0
	for (uint64(1) << uint(b)) < capacity {
		b++
	}
	return b
}

// Readmitter receives a candidate that CuckooSets could not keep: either
// skipped during page packing (too large for the remaining budget) or
// evicted with residual hit count when a page is replaced.
type Readmitter func(item flashcache.Candidate)

// CuckooSets is the set-associative flash tier atop a cuckoo.HashMap.
type CuckooSets struct {
	index         *cuckoo.HashMap
	numSets       uint64
	totalCapacity uint64
	pageSize      uint64
	currTimestamp uint64
	readmit       Readmitter
	stats         flashcache.StatsCollector
}

// New creates a CuckooSets tier sized for totalPageNum pages of pageSize
// bytes apiece. readmit is invoked (possibly more than once per Insert
// call) for every candidate the tier cannot keep.
func New(totalPageNum, pageSize uint64, readmit Readmitter, stats flashcache.StatsCollector) *CuckooSets {
	if stats == nil {
		stats = flashcache.NewLocalStats()
	}
	numSets := totalPageNum / cuckoo.SlotsPerBucket
	if numSets < 1 {
		numSets = 1
	}
	return &CuckooSets{
		index:         cuckoo.NewHashMap(bitCalc(numSets)),
		numSets:       numSets,
		totalCapacity: totalPageNum,
		pageSize:      pageSize,
		readmit:       readmit,
		stats:         stats,
	}
}

func (c *CuckooSets) calcSetNum(id uint64) uint32 {
	res := id >> uint(bitCalc(cuckoo.SlotsPerBucket))
	return uint32(res % c.numSets)
}

// Insert partitions items into consecutive clusters of clusterSize
// candidates (a short tail is dropped by contract), packs each cluster
// into a page under the page-size budget, and installs the page under the
// plurality-voted set. Overflowing items and still-warm items from a
// replaced page are handed to readmit.
func (c *CuckooSets) Insert(items []flashcache.Candidate) {
	numClusters := len(items) / clusterSize
	for i := 0; i < numClusters; i++ {
		beg, end := i*clusterSize, (i+1)*clusterSize
		cluster := items[beg:end]

		// Highest hit count first, ties broken by smallest size first:
		// maximizes how many items a size-bounded page can hold.
		sort.Slice(cluster, func(a, b int) bool {
			if cluster[a].HitCount != cluster[b].HitCount {
				return cluster[a].HitCount > cluster[b].HitCount
			}
			return cluster[a].ObjSize < cluster[b].ObjSize
		})

		var page flashcache.Page
		var currPageSize uint64
		setVotes := make(map[uint32]uint64)

		for _, item := range cluster {
			if currPageSize+uint64(item.ObjSize) <= c.pageSize {
				page = append(page, item)
				currPageSize += uint64(item.ObjSize)
				c.stats.Incr(flashcache.StatStoresRequested, 1)
				c.stats.Incr(flashcache.StatStoresRequestedBytes, int64(item.ObjSize))
				setVotes[c.calcSetNum(item.ID)]++
			} else if c.readmit != nil {
				c.readmit(item)
			}
		}

		targetSet := plurality(setVotes)
		c.currTimestamp++
		replaced, _ := c.index.Insert(targetSet, c.currTimestamp, page)
		c.stats.Incr(flashcache.StatBytesWritten, int64(c.pageSize))

		for _, item := range replaced {
			if item.HitCount > 0 && c.readmit != nil {
				item.HitCount = 0
				c.readmit(item)
			}
		}
	}
}

// plurality returns the set id with the most votes, breaking ties by the
// lowest id for determinism.
func plurality(votes map[uint32]uint64) uint32 {
	var best uint32
	var bestCount uint64
	first := true
	for id, n := range votes {
		if first || n > bestCount || (n == bestCount && id < best) {
			best, bestCount, first = id, n, false
		}
	}
	return best
}

// Find reports whether item is present. Because a set id only encodes the
// high bits of a cluster's routing key, every low-bit variant within the
// same cluster range must be probed.
func (c *CuckooSets) Find(ctx context.Context, item flashcache.Candidate) bool {
	offsetBits := bitCalc(clusterSize)
	slotBits := bitCalc(cuckoo.SlotsPerBucket)
	setRangeBits := offsetBits - slotBits
	setRangeMask := uint32(1)<<uint(setRangeBits) - 1
	setRange := uint32(1) << uint(setRangeBits)

	setID := c.calcSetNum(item.ID)
	left := setID &^ setRangeMask

	for i := uint32(0); i < setRange; i++ {
		if _, ok := c.index.Find(ctx, uint64(left+i), item.ID); ok {
			c.stats.Incr(flashcache.StatHits, 1)
			return true
		}
	}
	c.stats.Incr(flashcache.StatMisses, 1)
	return false
}

// RatioCapacityUsed reports the fraction of pages currently occupied.
func (c *CuckooSets) RatioCapacityUsed() float64 {
	return c.index.LoadFactor()
}

// CalcWriteAmp reports bytes_written / stores_requested_bytes, this tier's
// contribution to overall flash write amplification.
func (c *CuckooSets) CalcWriteAmp() float64 {
	written := float64(c.stats.Value(flashcache.StatBytesWritten))
	requested := float64(c.stats.Value(flashcache.StatStoresRequestedBytes))
	if requested == 0 {
		return 0
	}
	return written / requested
}
