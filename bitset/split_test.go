package bitset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetUnsetFlip(t *testing.T) {
	s := New(10)
	s.SetBit(3)
	s.SetBit(7)
	assert.True(t, s.IsBitSet(3))
	assert.True(t, s.IsBitSet(7))
	assert.Equal(t, 2, s.NOnes())

	s.UnsetBit(3)
	assert.False(t, s.IsBitSet(3))
	assert.Equal(t, 1, s.NOnes())

	s.FlipBit(3)
	s.FlipBit(7)
	assert.True(t, s.IsBitSet(3))
	assert.False(t, s.IsBitSet(7))
}

func TestResizeClearsHighBits(t *testing.T) {
	s := NewCapacity(4, 16)
	s.Resize(16)
	s.SetBit(10)
	s.SetBit(2)
	s.Resize(4)
	assert.Equal(t, 1, s.NOnes())
	assert.True(t, s.IsBitSet(2))

	s.Resize(16)
	assert.False(t, s.IsBitSet(10), "bits above the shrunk width must stay cleared after growing back")
}

func TestResizeAboveCapacityPanics(t *testing.T) {
	s := New(4)
	assert.Panics(t, func() { s.Resize(5) })
}

func TestBooleanOps(t *testing.T) {
	a := New(8)
	a.SetBit(0)
	a.SetBit(1)
	b := New(8)
	b.SetBit(1)
	b.SetBit(2)

	or := New(8)
	or.Or(a, b, true)
	assert.Equal(t, 3, or.NOnes())

	and := New(8)
	and.And(a, b, true)
	assert.Equal(t, 1, and.NOnes())
	assert.True(t, and.IsBitSet(1))

	xor := New(8)
	xor.Xor(a, b, true)
	assert.Equal(t, 2, xor.NOnes())
	assert.True(t, xor.IsBitSet(0))
	assert.True(t, xor.IsBitSet(2))

	andnot := New(8)
	andnot.AndNot(a, b, true)
	assert.Equal(t, 1, andnot.NOnes())
	assert.True(t, andnot.IsBitSet(0))
}

func TestFlipToSmallerSetIsIdempotent(t *testing.T) {
	s := New(6)
	s.SetBit(0)
	s.SetBit(1)
	s.SetBit(2)
	s.SetBit(3)
	s.FlipToSmallerSet()
	first := FromCopy(s)
	s.FlipToSmallerSet()
	assert.True(t, first.Equals(s))
}

func TestToIndexVector(t *testing.T) {
	s := New(10)
	s.SetBit(2)
	s.SetBit(5)
	s.SetBit(9)
	idx := s.ToIndexVector(nil, 0)
	assert.Equal(t, []int{2, 5, 9}, idx)

	limited := s.ToIndexVector(nil, 2)
	assert.Equal(t, []int{2, 5}, limited)
}

func TestReplaceBitWithLast(t *testing.T) {
	s := New(5)
	s.SetBit(0)
	s.SetBit(4)
	s.ReplaceBitWithLast(0)
	require.Equal(t, 4, s.Width())
	assert.True(t, s.IsBitSet(0), "victim position inherits the last bit's value")
	assert.Equal(t, 1, s.NOnes())
}

func TestHash32Equal(t *testing.T) {
	a := New(8)
	a.SetBit(1)
	a.SetBit(4)
	b := New(8)
	b.SetBit(4)
	b.SetBit(1)
	assert.Equal(t, a.Hash32(), b.Hash32())
}

func TestCompareIncreasing(t *testing.T) {
	a := New(8)
	a.SetBit(0)
	b := New(8)
	b.SetBit(0)
	b.SetBit(1)
	assert.Equal(t, -1, CompareIncreasing(a, b))
	assert.Equal(t, 1, CompareIncreasing(b, a))
	assert.Equal(t, 0, CompareIncreasing(a, FromCopy(a)))
}
