// Package distmatrix implements the square pairwise distance matrix and
// the packed triangular species-distance form used to feed UPGMA, BIONJ
// and OLS branch-length estimation. Ported from
// original_source/lib/distance_matrix.c.
package distmatrix

import (
	"fmt"
	"math"

	"github.com/quadram-institute-bioscience/biomcmc/topology"
)

const (
	lowerSentinel = -1e35
	upperSentinel = 1e35
)

// Matrix is a dense square distance matrix. Convention: callers decide,
// per fill operation, which triangle (upper or lower) receives the result;
// the unused triangle keeps whatever sentinel NewSquare or ZeroLower left
// it at until explicitly overwritten. The diagonal is always zero.
type Matrix struct {
	Size int
	D    [][]float64

	// Scratch reused by patristic computation (mirrors the C struct's
	// idx/i_l/i_r fields); owned by the matrix, not shared across calls.
	FromRoot []float64
	Idx      []int
	IL       []int
	IR       []int

	MeanJC, MeanK2P, VarK2P, MeanR, VarR float64
	Freq                                 [20]float64
}

// NewSquare allocates an n x n matrix with the diagonal at 0, the lower
// triangle at a large negative sentinel and the upper triangle at a large
// positive sentinel, so that min/max-accumulating fills can tell "never
// written" apart from a legitimate zero distance.
func NewSquare(n int) *Matrix {
	m := &Matrix{Size: n, D: make([][]float64, n)}
	for i := range m.D {
		m.D[i] = make([]float64, n)
		for j := range m.D[i] {
			switch {
			case i > j:
				m.D[i][j] = lowerSentinel
			case i < j:
				m.D[i][j] = upperSentinel
			}
		}
	}
	return m
}

// ZeroLower sets the lower triangle (including the diagonal) to zero and
// the upper triangle back to the positive sentinel, ready for a fresh
// min-accumulating fill.
func (m *Matrix) ZeroLower() {
	for i := 0; i < m.Size; i++ {
		for j := 0; j < m.Size; j++ {
			switch {
			case i == j:
				m.D[i][j] = 0
			case i > j:
				m.D[i][j] = 0
			default:
				m.D[i][j] = upperSentinel
			}
		}
	}
}

// Transpose swaps the upper and lower triangles in place.
func (m *Matrix) Transpose() {
	for i := 0; i < m.Size; i++ {
		for j := i + 1; j < m.Size; j++ {
			m.D[i][j], m.D[j][i] = m.D[j][i], m.D[i][j]
		}
	}
}

// FillFromTopology builds a per-node "distance from root" array (nodal
// distance — edge count — when blen is nil, edge-length sum otherwise),
// then for every internal node p writes d_root(i)+d_root(j)-2*d_root(p)
// for every leaf pair (i below p.Left, j below p.Right) into the requested
// triangle. t must have an up-to-date traversal.
func (m *Matrix) FillFromTopology(t *topology.Topology, blen []float64, useUpper bool) error {
	if !t.TraversalUpdated {
		return fmt.Errorf("distmatrix: FillFromTopology requires an up-to-date traversal")
	}
	if m.Size != t.NLeaves {
		return fmt.Errorf("distmatrix: size %d does not match %d leaves", m.Size, t.NLeaves)
	}
	dRoot := make([]float64, t.NNodes)
	for i := 0; i < t.NLeaves; i++ {
		dRoot[i] = nodeDistance(t, i, blen)
	}
	for _, p := range t.Postorder {
		dRoot[p.ID] = nodeDistance(t, p.ID, blen)
	}
	for _, p := range t.Postorder {
		left, right := t.Nodelist[p.Left], t.Nodelist[p.Right]
		leftLeaves := leavesUnder(t, left.ID)
		rightLeaves := leavesUnder(t, right.ID)
		for _, i := range leftLeaves {
			for _, j := range rightLeaves {
				d := dRoot[i] + dRoot[j] - 2*dRoot[p.ID]
				if useUpper {
					row, col := i, j
					if row > col {
						row, col = col, row
					}
					m.D[row][col] = d
				} else {
					row, col := i, j
					if row < col {
						row, col = col, row
					}
					m.D[row][col] = d
				}
			}
		}
	}
	return nil
}

func nodeDistance(t *topology.Topology, id int, blen []float64) float64 {
	d := 0.0
	for id != t.Root {
		n := t.Nodelist[id]
		if blen != nil {
			d += blen[id]
		} else {
			d++
		}
		id = n.Up
	}
	return d
}

func leavesUnder(t *topology.Topology, id int) []int {
	n := t.Nodelist[id]
	if !n.Internal {
		return []int{id}
	}
	return n.Split.ToIndexVector(nil, 0)
}

// PatristicScaling selects which of the six simultaneous rescalings
// PatristicToVectors emits.
type PatristicScaling int

const (
	ScalingNodal PatristicScaling = iota
	ScalingMeanNormalised
	ScalingRaw
	ScalingEdgeCountNormalised
	ScalingTreeLengthNormalised
	ScalingShortestBranchNormalised
	nScalings
)

// PatristicToVectors computes the patristic distance under up to six
// rescalings at once, returning one upper-triangular vector per requested
// scaling (addressed as out[k][j*(j-1)/2+i], i<j). Branches shorter than
// tolerance are treated as zero-length for the nodal mode, matching the
// "additive-with-rounding" behaviour callers rely on when reconstructing
// near-zero edges from noisy data.
func PatristicToVectors(t *topology.Topology, blen []float64, scalings []PatristicScaling, tolerance float64) (map[PatristicScaling][]float64, error) {
	if !t.TraversalUpdated {
		return nil, fmt.Errorf("distmatrix: PatristicToVectors requires an up-to-date traversal")
	}
	nl := t.NLeaves
	size := nl * (nl - 1) / 2

	raw := make([]float64, size)
	at := func(v []float64, i, j int) float64 {
		if i == j {
			return 0
		}
		if i < j {
			i, j = j, i
		}
		return v[i*(i-1)/2+j]
	}
	set := func(v []float64, i, j int, d float64) {
		if i < j {
			i, j = j, i
		}
		v[i*(i-1)/2+j] = d
	}

	dRoot := make([]float64, t.NNodes)
	nodalRoot := make([]float64, t.NNodes)
	for i := 0; i < nl; i++ {
		dRoot[i] = nodeDistance(t, i, blen)
		nodalRoot[i] = nodeDistanceTol(t, i, blen, tolerance)
	}
	for _, p := range t.Postorder {
		dRoot[p.ID] = nodeDistance(t, p.ID, blen)
		nodalRoot[p.ID] = nodeDistanceTol(t, p.ID, blen, tolerance)
	}

	treeLength := 0.0
	shortest := math.MaxFloat64
	if blen != nil {
		for id, b := range blen {
			if id == t.Root {
				continue
			}
			treeLength += b
			if b > 0 && b < shortest {
				shortest = b
			}
		}
	}
	if shortest == math.MaxFloat64 {
		shortest = 1
	}

	for _, p := range t.Postorder {
		left, right := t.Nodelist[p.Left], t.Nodelist[p.Right]
		for _, i := range leavesUnder(t, left.ID) {
			for _, j := range leavesUnder(t, right.ID) {
				set(raw, i, j, dRoot[i]+dRoot[j]-2*dRoot[p.ID])
			}
		}
	}

	nodal := make([]float64, size)
	for _, p := range t.Postorder {
		left, right := t.Nodelist[p.Left], t.Nodelist[p.Right]
		for _, i := range leavesUnder(t, left.ID) {
			for _, j := range leavesUnder(t, right.ID) {
				set(nodal, i, j, nodalRoot[i]+nodalRoot[j]-2*nodalRoot[p.ID])
			}
		}
	}

	meanSum, meanN := 0.0, 0
	for i := 0; i < nl; i++ {
		for j := i + 1; j < nl; j++ {
			meanSum += at(raw, i, j)
			meanN++
		}
	}
	mean := 1.0
	if meanN > 0 && meanSum > 0 {
		mean = meanSum / float64(meanN)
	}

	out := make(map[PatristicScaling][]float64, len(scalings))
	for _, s := range scalings {
		v := make([]float64, size)
		for i := 0; i < nl; i++ {
			for j := i + 1; j < nl; j++ {
				var d float64
				switch s {
				case ScalingNodal:
					d = at(nodal, i, j)
				case ScalingMeanNormalised:
					d = at(raw, i, j) / mean
				case ScalingRaw:
					d = at(raw, i, j)
				case ScalingEdgeCountNormalised:
					d = at(raw, i, j) / float64(t.NNodes-1)
				case ScalingTreeLengthNormalised:
					if treeLength > 0 {
						d = at(raw, i, j) / treeLength
					}
				case ScalingShortestBranchNormalised:
					d = at(raw, i, j) / shortest
				}
				set(v, i, j, d)
			}
		}
		out[s] = v
	}
	return out, nil
}

// nodeDistanceTol counts the edges between id and the root, skipping every
// edge whose branch length is below tolerance (all edges count when blen is
// nil).
func nodeDistanceTol(t *topology.Topology, id int, blen []float64, tolerance float64) float64 {
	d := 0.0
	for id != t.Root {
		n := t.Nodelist[id]
		if blen == nil || blen[id] >= tolerance {
			d++
		}
		id = n.Up
	}
	return d
}
