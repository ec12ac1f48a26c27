package distmatrix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quadram-institute-bioscience/biomcmc/topology"
)

func TestNewSquareSentinels(t *testing.T) {
	m := NewSquare(3)
	assert.Equal(t, 0.0, m.D[0][0])
	assert.Equal(t, lowerSentinel, m.D[1][0])
	assert.Equal(t, upperSentinel, m.D[0][1])
}

func TestTranspose(t *testing.T) {
	m := NewSquare(2)
	m.D[0][1] = 5
	m.Transpose()
	assert.Equal(t, 5.0, m.D[1][0])
}

func TestFillFromTopologyNodal(t *testing.T) {
	top, err := topology.ParseNewick("((A,B),(C,D));")
	require.NoError(t, err)
	m := NewSquare(4)
	require.NoError(t, m.FillFromTopology(top, nil, true))
	// A and B are both 2 edges from the root via their cherry parent: nodal distance 2.
	assert.Equal(t, 2.0, m.D[0][1])
	// A and C cross both cherries: nodal distance 4.
	assert.Equal(t, 4.0, m.D[0][2])
}

func TestSpDistFinaliseRescalesAndFillsAbsent(t *testing.T) {
	s := NewSp(3)
	s.Accumulate(0, 1, 2)
	s.Accumulate(0, 1, 4)
	s.Accumulate(0, 2, 1)
	s.Finalise()

	assert.InDelta(t, 1.0, s.Mean[s.index(0, 1)], 1e-9, "max mean pair rescales to 1")
	assert.Equal(t, absentSentinel, s.Mean[s.index(1, 2)])
	assert.Equal(t, 1, s.NMissing)
}

func TestSpDistCopyToSquareUpper(t *testing.T) {
	s := NewSp(3)
	s.Accumulate(0, 1, 2)
	s.Accumulate(0, 2, 4)
	s.Accumulate(1, 2, 1)
	s.Finalise()

	sq := NewSquare(3)
	require.NoError(t, s.CopyToSquareUpper(sq, true))
	assert.InDelta(t, s.Mean[s.index(0, 1)], sq.D[0][1], 1e-12)
}

func TestSpDistUpdateFromOther(t *testing.T) {
	global := NewSp(3)
	local := NewSp(3)
	local.Accumulate(0, 1, 3)
	local.Accumulate(0, 1, 5)
	require.NoError(t, global.UpdateFromOther(local))
	assert.Equal(t, 2, global.Count[global.index(0, 1)])
	assert.InDelta(t, 8.0, global.Mean[global.index(0, 1)], 1e-12)
}
