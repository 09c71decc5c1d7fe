// Package quotient implements the bit-packed, linear-probing quotient index
// used as the SLog tier's default flash log engine: a quotient filter
// specialized to carry full Candidates instead of fingerprints.
package quotient

import flashcache "github.com/codeGROOVE-dev/flashcache"

const (
	flagOccupied     = 1 << 0
	flagContinuation = 1 << 1
	flagShifted      = 1 << 2
	flagValid        = 1 << 3
	hitsShift        = 4
	hitsMask         = 0x7 // 3-bit saturating counter, max value 7
)

// entry is one slot of a quotient index: a byte-sized flags header (the
// occupied/continuation/shifted/valid bits plus a saturating 3-bit hit
// counter) alongside the canonical quotient it belongs to and the stored
// Candidate. canon is recorded explicitly so deletion can tell whether a
// slid entry has returned to its own canonical home without recomputing
// routing bits it no longer has access to.
type entry struct {
	flags uint8
	canon uint32
	cand  flashcache.Candidate
}

func (e entry) occupied() bool     { return e.flags&flagOccupied != 0 }
func (e entry) continuation() bool { return e.flags&flagContinuation != 0 }
func (e entry) shifted() bool      { return e.flags&flagShifted != 0 }
func (e entry) valid() bool        { return e.flags&flagValid != 0 }
func (e entry) hits() uint8        { return (e.flags >> hitsShift) & hitsMask }

func (e *entry) setOccupied(v bool)     { e.setFlag(flagOccupied, v) }
func (e *entry) setContinuation(v bool) { e.setFlag(flagContinuation, v) }
func (e *entry) setShifted(v bool)      { e.setFlag(flagShifted, v) }

func (e *entry) setFlag(bit uint8, v bool) {
	if v {
		e.flags |= bit
	} else {
		e.flags &^= bit
	}
}

func (e *entry) incrHits() {
	h := e.hits()
	if h < hitsMask {
		h++
		e.flags = (e.flags &^ (hitsMask << hitsShift)) | (h << hitsShift)
	}
	if e.cand.HitCount < 255 {
		e.cand.HitCount++
	}
}

// tag is the value entries within a run are ordered by: the candidate's id.
func (e entry) tag() uint64 { return e.cand.ID }

// isEmpty reports whether the slot carries no entry at all.
func (e entry) isEmpty() bool { return !e.occupied() && !e.continuation() && !e.shifted() }

// isRunStart reports whether this slot is the first entry of a run.
func (e entry) isRunStart() bool { return !e.continuation() && (e.occupied() || e.shifted()) }

// isClusterStart reports whether this slot both starts a run and sits at
// its own canonical home (i.e. is not displaced by any prior collision).
func (e entry) isClusterStart() bool { return e.occupied() && !e.continuation() && !e.shifted() }

func newOccupiedEntry(canon uint32, item flashcache.Candidate) entry {
	item.HitCount = 0
	return entry{
		flags: flagOccupied | flagValid | (1 << hitsShift),
		canon: canon,
		cand:  item,
	}
}
