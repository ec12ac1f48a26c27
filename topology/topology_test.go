package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildQuad builds ((A,B),(C,D)) with leaves A=0,B=1,C=2,D=3.
func buildQuad(t *testing.T, names [4]string) *Topology {
	t.Helper()
	top := New(4)
	for i, n := range names {
		top.TaxLabel[i] = n
	}
	top.CreateParentFromChildren(4, 0, 1)
	top.CreateParentFromChildren(5, 2, 3)
	top.CreateParentFromChildren(6, 4, 5)
	top.UpdateTraversal()
	return top
}

func TestUpdateTraversalSplitInvariant(t *testing.T) {
	top := buildQuad(t, [4]string{"A", "B", "C", "D"})
	require.Len(t, top.Postorder, 3)
	for _, p := range top.Postorder {
		left := top.Nodelist[p.Left]
		right := top.Nodelist[p.Right]
		assert.Equal(t, left.Split.NOnes()+right.Split.NOnes(), p.Split.NOnes())
		or := left.Split.NOnes() | right.Split.NOnes()
		_ = or
	}
	assert.Equal(t, 6, top.Root)
	assert.Equal(t, 4, top.Nodelist[top.Root].Split.NOnes())
}

func TestParseNewickMatchesManualBuild(t *testing.T) {
	manual := buildQuad(t, [4]string{"A", "B", "C", "D"})
	parsed, err := ParseNewick("((A:1,B:1):1,(C:1,D:1):1);")
	require.NoError(t, err)
	eq, err := IsEqual(manual, parsed)
	require.NoError(t, err)
	assert.True(t, eq)
}

func TestIsEqualRootedDetectsDifference(t *testing.T) {
	a := buildQuad(t, [4]string{"A", "B", "C", "D"})
	b, err := ParseNewick("((A,C),(B,D));")
	require.NoError(t, err)
	// ParseNewick numbers leaves in order of appearance; renumber by name so
	// b's bit positions mean the same leaves as a's.
	b.ReorderLeaves()
	eq, err := IsEqual(a, b)
	require.NoError(t, err)
	assert.False(t, eq)
}

func TestIsEqualUnrootedBipartitionSet(t *testing.T) {
	a, err := ParseNewick("((A,B),(C,D));")
	require.NoError(t, err)
	b, err := ParseNewick("((B,A),(D,C));")
	require.NoError(t, err)
	a.ReorderLeaves()
	b.ReorderLeaves()
	eq, err := IsEqualUnrooted(a, b, true)
	require.NoError(t, err)
	assert.True(t, eq)

	c, err := ParseNewick("((A,C),(B,D));")
	require.NoError(t, err)
	c.ReorderLeaves()
	eq, err = IsEqualUnrooted(a, c, false)
	require.NoError(t, err)
	assert.False(t, eq)
}

func TestReorderLeavesPreservesEquality(t *testing.T) {
	top, err := ParseNewick("((D,B),(C,A));")
	require.NoError(t, err)
	before := make([]string, len(top.Postorder))
	for i, p := range top.Postorder {
		before[i] = p.Split.String()
	}
	top.ReorderLeaves()
	assert.Equal(t, []string{"A", "B", "C", "D"}, top.TaxLabel)

	reparsed, err := ParseNewick("((D,B),(C,A));")
	require.NoError(t, err)
	reparsed.ReorderLeaves()
	eq, err := IsEqualUnrooted(top, reparsed, false)
	require.NoError(t, err)
	assert.True(t, eq)
}

func TestStaleTraversalRejected(t *testing.T) {
	a := buildQuad(t, [4]string{"A", "B", "C", "D"})
	b := buildQuad(t, [4]string{"A", "B", "C", "D"})
	a.TraversalUpdated = false
	_, err := IsEqual(a, b)
	assert.Error(t, err)
}

func TestOLSBranchLengthsRecoversAdditiveQuad(t *testing.T) {
	// d(A,B)=2 d(A,C)=4 d(A,D)=4 d(B,C)=4 d(B,D)=4 d(C,D)=2, additive for
	// ((A,B):1,(C,D):1) with all leaf edges 1 and both internal edges 1.
	top := buildQuad(t, [4]string{"A", "B", "C", "D"})
	dist := make([]float64, 6)
	set := func(i, j int, v float64) {
		if i < j {
			i, j = j, i
		}
		dist[i*(i-1)/2+j] = v
	}
	set(0, 1, 2)
	set(0, 2, 4)
	set(0, 3, 4)
	set(1, 2, 4)
	set(1, 3, 4)
	set(2, 3, 2)

	err := top.OLSBranchLengths(dist)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, top.Blength[0], 1e-6)
	assert.InDelta(t, 1.0, top.Blength[1], 1e-6)
	assert.InDelta(t, 1.0, top.Blength[2], 1e-6)
	assert.InDelta(t, 1.0, top.Blength[3], 1e-6)
}
