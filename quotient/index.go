package quotient

import flashcache "github.com/codeGROOVE-dev/flashcache"

// Index is a single quotient-filter sub-table of capacity 2^q, storing full
// Candidates rather than fingerprints. It implements the linear-probing
// run/cluster maintenance described in SPEC_FULL.md §4.4.
type Index struct {
	capacity int
	mask     int
	entries  []entry
	count    int
}

// NewIndex creates a quotient index with capacity 2^q.
func NewIndex(q int) *Index {
	cap := 1 << uint(q)
	return &Index{
		capacity: cap,
		mask:     cap - 1,
		entries:  make([]entry, cap),
	}
}

// Capacity returns the number of slots in the table.
func (ix *Index) Capacity() int { return ix.capacity }

// SlotFlags reports a slot's (occupied, continuation, shifted) status bits,
// for introspection in tests that verify run/cluster maintenance directly.
func (ix *Index) SlotFlags(slot int) (occupied, continuation, shifted bool) {
	e := ix.entries[ix.mod(slot)]
	return e.occupied(), e.continuation(), e.shifted()
}

// Count returns the number of populated slots.
func (ix *Index) Count() int { return ix.count }

// Full reports whether every slot is populated.
func (ix *Index) Full() bool { return ix.count >= ix.capacity }

// RatioCapacityUsed reports the fraction of slots populated.
func (ix *Index) RatioCapacityUsed() float64 {
	return float64(ix.count) / float64(ix.capacity)
}

func (ix *Index) mod(i int) int {
	i %= ix.capacity
	if i < 0 {
		i += ix.capacity
	}
	return i
}

// findRunStartIndex locates the first slot of canonical quotient fq's run.
// It walks shifted links backward to the start of fq's cluster, then walks
// forward counting occupied canonicals up to fq, skipping one whole run on
// the data side per canonical counted.
func (ix *Index) findRunStartIndex(fq int) int {
	b := fq
	for ix.entries[ix.mod(b)].shifted() {
		b--
	}
	s := b
	for b < fq {
		for {
			s++
			if !ix.entries[ix.mod(s)].continuation() {
				break
			}
		}
		for {
			b++
			if ix.entries[ix.mod(b)].occupied() {
				break
			}
		}
	}
	return ix.mod(s)
}

// Insert places item at canonical quotient offset&mask, sliding existing
// entries forward as needed. It returns false only when the table is full.
func (ix *Index) Insert(offset uint64, item flashcache.Candidate) bool {
	if ix.Full() {
		return false
	}
	fq := int(offset) & ix.mask

	home := &ix.entries[fq]
	if home.isEmpty() {
		*home = newOccupiedEntry(uint32(fq), item)
		ix.count++
		return true
	}

	home.setOccupied(true)

	runStart := ix.findRunStartIndex(fq)
	pos := runStart
	for {
		cur := ix.entries[ix.mod(pos)]
		if !cur.valid() {
			break
		}
		if cur.tag() == item.ID {
			return true // already present; dedup is a no-op success
		}
		if cur.tag() > item.ID {
			break
		}
		nxt := ix.mod(pos + 1)
		if !ix.entries[nxt].continuation() {
			pos = nxt
			break
		}
		pos = nxt
	}
	insertPos := ix.mod(pos)

	flipOldRunStart := false
	pendingContinuation := true
	if insertPos == runStart {
		pendingContinuation = false
		if ix.entries[insertPos].valid() {
			flipOldRunStart = true
		}
	}

	item.HitCount = 0
	toWrite := entry{
		flags: flagValid | (1 << hitsShift),
		canon: uint32(fq),
		cand:  item,
	}
	toWrite.setContinuation(pendingContinuation)
	toWrite.setShifted(insertPos != fq)

	writePos := insertPos
	first := true
	for {
		target := ix.mod(writePos)
		old := ix.entries[target]
		wasEmpty := old.isEmpty()
		preservedOccupied := old.occupied()

		written := toWrite
		written.setOccupied(preservedOccupied)
		ix.entries[target] = written

		if wasEmpty {
			break
		}

		dispContinuation := old.continuation()
		if first && flipOldRunStart {
			dispContinuation = true
		}
		toWrite = entry{
			flags: flagValid,
			canon: old.canon,
			cand:  old.cand,
		}
		toWrite.setContinuation(dispContinuation)
		toWrite.setShifted(true)
		if h := old.hits(); h > 0 {
			toWrite.flags |= h << hitsShift
		}

		writePos++
		first = false
	}

	ix.count++
	return true
}

// Find reports whether id's entry exists at canonical offset&mask, bumping
// its saturating hit counter and the stored Candidate's HitCount on a hit.
func (ix *Index) Find(offset uint64, id uint64) (flashcache.Candidate, bool) {
	fq := int(offset) & ix.mask
	if !ix.entries[fq].occupied() {
		return flashcache.Candidate{}, false
	}

	runStart := ix.findRunStartIndex(fq)
	pos := runStart
	for {
		idx := ix.mod(pos)
		cur := &ix.entries[idx]
		if !cur.valid() {
			return flashcache.Candidate{}, false
		}
		if cur.tag() == id {
			cur.incrHits()
			return cur.cand, true
		}
		if cur.tag() > id {
			return flashcache.Candidate{}, false
		}
		nxt := ix.mod(pos + 1)
		if !ix.entries[nxt].continuation() {
			return flashcache.Candidate{}, false
		}
		pos = nxt
	}
}

// Delete removes the entry for id within canonical offset&mask's run,
// reporting whether an entry was found and removed.
func (ix *Index) Delete(offset uint64, id uint64) bool {
	fq := int(offset) & ix.mask
	if !ix.entries[fq].occupied() {
		return false
	}

	runStart := ix.findRunStartIndex(fq)
	pos := runStart
	for {
		idx := ix.mod(pos)
		cur := ix.entries[idx]
		if !cur.valid() {
			return false
		}
		if cur.tag() == id {
			break
		}
		if cur.tag() > id {
			return false
		}
		nxt := ix.mod(pos + 1)
		if !ix.entries[nxt].continuation() {
			return false
		}
		pos = nxt
	}

	idx := ix.mod(pos)
	wasRunStart := ix.entries[idx].isRunStart()
	nextIdx := ix.mod(idx + 1)
	runContinuesAfter := ix.entries[nextIdx].continuation()

	ix.deleteEntry(idx)

	if wasRunStart && !runContinuesAfter {
		ix.entries[fq].setOccupied(false)
	}

	ix.count--
	return true
}

// deleteEntry slides every subsequent shifted entry in idx's cluster back
// by one slot, clearing the final vacated slot. An entry that slides back
// into its own canonical home stops being shifted, and if the deleted entry
// started its run, the continuation that slides into its place becomes the
// new run start.
func (ix *Index) deleteEntry(idx int) {
	promoteNext := !ix.entries[ix.mod(idx)].continuation()
	i := idx
	for {
		nxt := ix.mod(i + 1)
		nxtEntry := ix.entries[nxt]
		if !nxtEntry.shifted() {
			ix.entries[ix.mod(i)] = entry{flags: boolFlag(ix.entries[ix.mod(i)].occupied())}
			return
		}

		moved := nxtEntry
		moved.setOccupied(ix.entries[ix.mod(i)].occupied())
		if promoteNext && moved.continuation() {
			moved.setContinuation(false)
		}
		promoteNext = false
		if ix.mod(i) == int(moved.canon) {
			moved.setShifted(false)
		}
		ix.entries[ix.mod(i)] = moved
		i = nxt
	}
}

func boolFlag(occupied bool) uint8 {
	if occupied {
		return flagOccupied
	}
	return 0
}

// RemoveAll drains every valid entry as a Candidate and resets the table to
// empty, modeling the bulk eviction of an entire flash segment.
func (ix *Index) RemoveAll() []flashcache.Candidate {
	var out []flashcache.Candidate
	for i := range ix.entries {
		if ix.entries[i].valid() {
			out = append(out, ix.entries[i].cand)
		}
		ix.entries[i] = entry{}
	}
	ix.count = 0
	return out
}
