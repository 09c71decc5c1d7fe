// Package cuckoo implements the set-associative flash zone storage: a
// fixed-size cuckoo hash map whose slots each hold a whole Page, a
// chained per-bucket timestamp window, and a fine-grained spinlock array
// supporting concurrent insert/find.
package cuckoo

import flashcache "github.com/codeGROOVE-dev/flashcache"

// SlotsPerBucket is the fixed associativity of every bucket
// (kDefaultSlotPerBucket in the reference implementation).
const SlotsPerBucket = 4

type slot struct {
	value    uint64
	partial  uint8
	page     flashcache.Page
	inplace  bool
	occupied bool
}

// bucket is one hash-table bucket of SlotsPerBucket page-valued slots.
type bucket struct {
	slots [SlotsPerBucket]slot
}

func (b *bucket) isOccupied(i int) bool { return b.slots[i].occupied }

func (b *bucket) setEntry(i int, value uint64, page flashcache.Page, partial uint8, inplace bool) {
	b.slots[i] = slot{value: value, partial: partial, page: page, inplace: inplace, occupied: true}
}

// clearEntry vacates a slot, returning the page it held so the caller can
// transfer ownership onward (to a replaced_page return, for instance).
func (b *bucket) clearEntry(i int) flashcache.Page {
	p := b.slots[i].page
	b.slots[i] = slot{}
	return p
}

// isIdentical reports whether slot i is occupied with exactly the given
// (partial, inplace) pair — the re-verification check used after a cuckoo
// path search releases and re-acquires its locks.
func (b *bucket) isIdentical(i int, partial uint8, inplace bool) bool {
	s := b.slots[i]
	return s.occupied && s.inplace == inplace && s.partial == partial
}
