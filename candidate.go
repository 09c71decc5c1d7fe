// Package flashcache simulates a hierarchical flash-aware cache: an S3-FIFO
// DRAM tier backed by a segmented flash log, backed in turn by a page-oriented
// cuckoo-hashed flash region, coordinated by ZoneCache.
package flashcache

// Candidate is one object reference flowing through the tiers: an id, its
// size in bytes, and an evolving hit count. Candidates are copied by value
// at every tier boundary; none of the tiers retain a pointer to another
// tier's copy.
type Candidate struct {
	ID       uint64
	ObjSize  uint32
	HitCount uint8
}

// Page is an ordered sequence of Candidates, the unit of storage on the
// Sets tier. A Page's total size is the sum of its Candidates' ObjSize.
// Pages move by ownership between tiers: a function that accepts or returns
// a Page is transferring it, never duplicating it for both sides to hold.
type Page []Candidate

// Size returns the total byte size of every Candidate in the page.
func (p Page) Size() uint32 {
	var total uint32
	for _, c := range p {
		total += c.ObjSize
	}
	return total
}
