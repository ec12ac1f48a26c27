package optics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lineSource places n_samples points on a line: two tight clusters
// (0,1,2) and (10,11,12) separated by a gap wider than epsilon.
type lineSource struct {
	pos []float64
}

func (l lineSource) NSamples() int { return len(l.pos) }
func (l lineSource) Get(i, j int) float64 {
	return math.Abs(l.pos[i] - l.pos[j])
}

func TestOpticsLineTwoClusters(t *testing.T) {
	src := lineSource{pos: []float64{0, 1, 2, 10, 11, 12}}
	c, err := New(src, 2, 5, false)
	require.NoError(t, err)

	for i, cd := range c.CoreDistance {
		assert.LessOrEqual(t, cd, 1.0, "point %d", i)
	}

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, c.Order)

	require.NoError(t, c.Assign(3))
	assert.Equal(t, 2, c.NClusters)

	clusterOf := make(map[int]int, len(c.Order))
	for i, id := range c.Order {
		clusterOf[id] = c.Cluster[i]
	}
	for _, id := range []int{0, 1, 2} {
		assert.Equal(t, clusterOf[0], clusterOf[id])
	}
	for _, id := range []int{3, 4, 5} {
		assert.Equal(t, clusterOf[3], clusterOf[id])
	}
	assert.NotEqual(t, clusterOf[0], clusterOf[3])
}

func TestOpticsParallelMatchesSequential(t *testing.T) {
	src := lineSource{pos: []float64{0, 1, 2, 10, 11, 12, 20, 21, 22}}
	seq, err := New(src, 2, 5, false)
	require.NoError(t, err)
	par, err := New(src, 2, 5, true)
	require.NoError(t, err)

	require.NoError(t, seq.Assign(3))
	require.NoError(t, par.Assign(3))
	assert.Equal(t, seq.NClusters, par.NClusters)
	assert.ElementsMatch(t, seq.Order, par.Order)
}

func TestMinPointsOutOfRange(t *testing.T) {
	src := lineSource{pos: []float64{0, 1, 2}}
	_, err := New(src, 10, 1, false)
	assert.Error(t, err)
}

func TestAssignNegativeClusterEps(t *testing.T) {
	src := lineSource{pos: []float64{0, 1, 2}}
	c, err := New(src, 2, 5, false)
	require.NoError(t, err)
	assert.Error(t, c.Assign(-1))
}

func TestHeapInvariantAfterMutation(t *testing.T) {
	h := newMinHeap()
	pts := []*point{
		{id: 0, reachDist: 5}, {id: 1, reachDist: 2}, {id: 2, reachDist: 8},
		{id: 3, reachDist: 1}, {id: 4, reachDist: 9},
	}
	for _, p := range pts {
		h.push(p)
	}
	pts[2].reachDist = 0
	h.fix(pts[2])
	assert.True(t, h.checkInvariant())

	var popped []int
	for h.Len() > 0 {
		popped = append(popped, h.pop().id)
		assert.True(t, h.checkInvariant())
	}
	assert.Equal(t, []int{2, 3, 1, 0, 4}, popped)
}
