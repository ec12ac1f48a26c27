// Package bitset implements the fixed-capacity, resizable-width bit vector
// used throughout biomcmc to represent tree bipartitions ("splits"). The
// representation is a plain array of 64-bit words; popcount is cached. The
// single-bit setters keep it consistent; the boolean operations recount it
// only when their updatePopcount argument is true, so hot paths can skip
// the recount when they do not read it.
package bitset

import (
	"fmt"
	"math/bits"
)

// Split is a bit vector over leaf ids with a logical width that may shrink
// and grow again up to the capacity it was created with. Growing past that
// capacity is a programmer error: callers size a Split for the largest
// width they will ever need and resize downward from there.
type Split struct {
	words    []uint64
	capacity int // bits, fixed at construction
	width    int // current logical width, <= capacity
	nOnes    int // cached popcount over [0, width)
}

// New allocates a Split of logical width n and capacity n.
func New(n int) *Split {
	if n < 0 {
		panic("bitset: negative width")
	}
	return &Split{
		words:    make([]uint64, wordsFor(n)),
		capacity: n,
		width:    n,
	}
}

// NewCapacity allocates a Split with logical width n but capacity cap,
// so it may later grow back up to cap via Resize.
func NewCapacity(n, cap int) *Split {
	if n > cap {
		panic("bitset: width exceeds requested capacity")
	}
	s := New(cap)
	s.width = n
	return s
}

func wordsFor(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + 63) / 64
}

// FromCopy returns a new Split identical to other, same width and capacity.
func FromCopy(other *Split) *Split {
	s := &Split{
		words:    make([]uint64, len(other.words)),
		capacity: other.capacity,
		width:    other.width,
		nOnes:    other.nOnes,
	}
	copy(s.words, other.words)
	return s
}

// CopyFrom overwrites s in place with other's bits. Capacities need not
// match as long as other's width does not exceed s's capacity.
func (s *Split) CopyFrom(other *Split) {
	if other.width > s.capacity {
		panic("bitset: CopyFrom source wider than destination capacity")
	}
	for i := range s.words {
		s.words[i] = 0
	}
	copy(s.words, other.words)
	s.width = other.width
	s.nOnes = other.nOnes
}

// Width returns the current logical width.
func (s *Split) Width() int { return s.width }

// Capacity returns the fixed maximum width.
func (s *Split) Capacity() int { return s.capacity }

// NOnes returns the cached population count.
func (s *Split) NOnes() int { return s.nOnes }

// Resize changes the logical width. Growing is only allowed up to the
// capacity recorded at construction; any other growth is a programmer
// error and aborts, matching the source library's "cannot exceed original
// capacity" contract. Bits at positions >= newWidth are always cleared;
// bits that remain below newWidth keep their previous values.
func (s *Split) Resize(newWidth int) {
	if newWidth < 0 {
		panic("bitset: negative resize target")
	}
	if newWidth > s.capacity {
		panic(fmt.Sprintf("bitset: resize to %d exceeds capacity %d", newWidth, s.capacity))
	}
	s.width = newWidth
	s.clearAboveWidth()
	s.recount()
}

func (s *Split) clearAboveWidth() {
	nw := wordsFor(s.width)
	for i := nw; i < len(s.words); i++ {
		s.words[i] = 0
	}
	if s.width%64 != 0 && nw > 0 && nw <= len(s.words) {
		mask := uint64(1)<<uint(s.width%64) - 1
		s.words[nw-1] &= mask
	}
}

func (s *Split) recount() {
	n := 0
	for _, w := range s.words {
		n += bits.OnesCount64(w)
	}
	s.nOnes = n
}

func (s *Split) wordIndex(i int) (int, uint64) {
	return i / 64, uint64(1) << uint(i%64)
}

// SetBit sets bit i (must be < Width) and updates the cached popcount.
func (s *Split) SetBit(i int) {
	if i < 0 || i >= s.width {
		panic("bitset: SetBit out of range")
	}
	w, mask := s.wordIndex(i)
	if s.words[w]&mask == 0 {
		s.words[w] |= mask
		s.nOnes++
	}
}

// UnsetBit clears bit i and updates the cached popcount.
func (s *Split) UnsetBit(i int) {
	if i < 0 || i >= s.width {
		panic("bitset: UnsetBit out of range")
	}
	w, mask := s.wordIndex(i)
	if s.words[w]&mask != 0 {
		s.words[w] &^= mask
		s.nOnes--
	}
}

// FlipBit toggles bit i and updates the cached popcount.
func (s *Split) FlipBit(i int) {
	if i < 0 || i >= s.width {
		panic("bitset: FlipBit out of range")
	}
	w, mask := s.wordIndex(i)
	if s.words[w]&mask != 0 {
		s.words[w] &^= mask
		s.nOnes--
	} else {
		s.words[w] |= mask
		s.nOnes++
	}
}

// IsBitSet reports whether bit i is set.
func (s *Split) IsBitSet(i int) bool {
	if i < 0 || i >= s.width {
		panic("bitset: IsBitSet out of range")
	}
	w, mask := s.wordIndex(i)
	return s.words[w]&mask != 0
}

// Equals reports whether s and other have the same width and bits.
func (s *Split) Equals(other *Split) bool {
	if s.width != other.width {
		return false
	}
	if s.nOnes != other.nOnes {
		return false
	}
	nw := wordsFor(s.width)
	for i := 0; i < nw; i++ {
		if s.words[i] != other.words[i] {
			return false
		}
	}
	return true
}

// Contains reports whether every bit set in other is also set in s
// (other is a subset of s). Widths must match.
func (s *Split) Contains(other *Split) bool {
	if s.width != other.width {
		panic("bitset: Contains width mismatch")
	}
	nw := wordsFor(s.width)
	for i := 0; i < nw; i++ {
		if other.words[i]&^s.words[i] != 0 {
			return false
		}
	}
	return true
}

func (s *Split) binaryOp(a, b *Split, op func(x, y uint64) uint64, updatePopcount bool) {
	if a.width != b.width {
		panic("bitset: binary op width mismatch")
	}
	if s.capacity < a.width {
		panic("bitset: binary op destination too narrow")
	}
	s.width = a.width
	nw := wordsFor(s.width)
	for i := 0; i < nw; i++ {
		s.words[i] = op(a.words[i], b.words[i])
	}
	for i := nw; i < len(s.words); i++ {
		s.words[i] = 0
	}
	if updatePopcount {
		s.recount()
	}
}

// And sets s = a & b (three-address form).
func (s *Split) And(a, b *Split, updatePopcount bool) {
	s.binaryOp(a, b, func(x, y uint64) uint64 { return x & y }, updatePopcount)
}

// Or sets s = a | b (three-address form).
func (s *Split) Or(a, b *Split, updatePopcount bool) {
	s.binaryOp(a, b, func(x, y uint64) uint64 { return x | y }, updatePopcount)
}

// Xor sets s = a ^ b (three-address form).
func (s *Split) Xor(a, b *Split, updatePopcount bool) {
	s.binaryOp(a, b, func(x, y uint64) uint64 { return x ^ y }, updatePopcount)
}

// AndNot sets s = a &^ b (three-address form).
func (s *Split) AndNot(a, b *Split, updatePopcount bool) {
	s.binaryOp(a, b, func(x, y uint64) uint64 { return x &^ y }, updatePopcount)
}

// AndInPlace sets s &= other.
func (s *Split) AndInPlace(other *Split, updatePopcount bool) { s.And(s, other, updatePopcount) }

// OrInPlace sets s |= other.
func (s *Split) OrInPlace(other *Split, updatePopcount bool) { s.Or(s, other, updatePopcount) }

// XorInPlace sets s ^= other.
func (s *Split) XorInPlace(other *Split, updatePopcount bool) { s.Xor(s, other, updatePopcount) }

// AndNotInPlace sets s &^= other.
func (s *Split) AndNotInPlace(other *Split, updatePopcount bool) { s.AndNot(s, other, updatePopcount) }

// Not complements s in place over [0, width).
func (s *Split) Not(updatePopcount bool) {
	nw := wordsFor(s.width)
	for i := 0; i < nw; i++ {
		s.words[i] = ^s.words[i]
	}
	s.clearAboveWidth()
	if updatePopcount {
		s.recount()
	}
}

// FlipToSmallerSet canonicalises a bipartition: if more than half the bits
// are set, complement; if exactly half are set, complement only when bit 0
// is currently set. This guarantees any two Splits representing the same
// unrooted bipartition end up bit-identical regardless of which side the
// caller started from.
func (s *Split) FlipToSmallerSet() {
	half := s.width / 2
	switch {
	case s.nOnes > half:
		s.Not(true)
	case s.width%2 == 0 && s.nOnes == half:
		if s.width > 0 && s.IsBitSet(0) {
			s.Not(true)
		}
	}
}

// ToIndexVector appends the set bit positions (up to maxOnes of them, or
// all of them if maxOnes <= 0) to dst and returns the result.
func (s *Split) ToIndexVector(dst []int, maxOnes int) []int {
	count := 0
	nw := wordsFor(s.width)
	for wi := 0; wi < nw; wi++ {
		w := s.words[wi]
		for w != 0 {
			if maxOnes > 0 && count >= maxOnes {
				return dst
			}
			tz := bits.TrailingZeros64(w)
			pos := wi*64 + tz
			if pos >= s.width {
				return dst
			}
			dst = append(dst, pos)
			count++
			w &= w - 1
		}
	}
	return dst
}

// Hash32 mixes the cached popcount with a fold of the per-word 32-bit
// hashes, so that two logically equal splits at equal widths always hash
// equally, which makes it usable as a fast pre-filter before an exact
// Equals check. No package in this module calls it.
func (s *Split) Hash32() uint32 {
	h := uint32(s.nOnes) * 2654435761
	nw := wordsFor(s.width)
	for i := 0; i < nw; i++ {
		w := s.words[i]
		lo := uint32(w)
		hi := uint32(w >> 32)
		h ^= lo*16777619 + uint32(i)
		h = (h << 13) | (h >> 19)
		h ^= hi*16777619 + uint32(i) + 1
		h = (h << 13) | (h >> 19)
	}
	return h
}

// CompareIncreasing orders splits lexicographically by (popcount,
// word array), matching the order the split-set engine sorts disagreement
// lists by before deduplicating and picking the smallest disagreement.
func CompareIncreasing(a, b *Split) int {
	if a.nOnes != b.nOnes {
		if a.nOnes < b.nOnes {
			return -1
		}
		return 1
	}
	nw := wordsFor(a.width)
	if wordsFor(b.width) < nw {
		nw = wordsFor(b.width)
	}
	for i := 0; i < nw; i++ {
		if a.words[i] != b.words[i] {
			if a.words[i] < b.words[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// ReplaceBitWithLast implements the split-set engine's leaf-removal trick:
// bit `last` is copied into position `victim` (victim ends up set exactly
// when last was set), bit `last` is cleared, and the logical width shrinks
// by one. Used when
// collapsing a resolved cherry or pruning a disputed leaf: the leaf at
// `victim` is deleted by aliasing it to whatever the last leaf was, which
// is itself then dropped by the width shrink.
func (s *Split) ReplaceBitWithLast(victim int) {
	last := s.width - 1
	if victim < 0 || victim > last {
		panic("bitset: ReplaceBitWithLast out of range")
	}
	if victim != last {
		if s.IsBitSet(last) {
			// SetBit requires victim < width, still true pre-shrink.
			if !s.IsBitSet(victim) {
				s.SetBit(victim)
			}
		} else if s.IsBitSet(victim) {
			s.UnsetBit(victim)
		}
	}
	if s.IsBitSet(last) {
		s.UnsetBit(last)
	}
	s.Resize(last)
}

// String renders the split as a 0/1 string of its logical width, most
// significant leaf id last, mainly useful in test failure output.
func (s *Split) String() string {
	buf := make([]byte, s.width)
	for i := 0; i < s.width; i++ {
		if s.IsBitSet(i) {
			buf[i] = '1'
		} else {
			buf[i] = '0'
		}
	}
	return string(buf)
}
