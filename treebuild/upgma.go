// Package treebuild implements distance-based tree estimation: UPGMA and
// single-linkage agglomerative clustering, BIONJ, and OLS branch-length
// re-estimation on a fixed topology. Ported from
// original_source/lib/upgma.c.
package treebuild

import (
	"fmt"
	"math"

	"github.com/quadram-institute-bioscience/biomcmc/distmatrix"
	"github.com/quadram-institute-bioscience/biomcmc/topology"
)

const minBranch = 1e-35

// UPGMA builds a ultrametric rooted topology by average-linkage (UPGMA)
// clustering over dist's upper triangle. The working distance matrix is a
// private copy; dist itself is left untouched.
func UPGMA(dist *distmatrix.Matrix) (*topology.Topology, error) {
	return upgma(dist, false)
}

// SingleLinkage builds a rooted topology by nearest-neighbour (single
// linkage) clustering: the distance from a merged cluster to any other is
// the minimum of its two parents' distances, rather than the size-weighted
// average UPGMA uses.
func SingleLinkage(dist *distmatrix.Matrix) (*topology.Topology, error) {
	return upgma(dist, true)
}

func upgma(dist *distmatrix.Matrix, singleLinkage bool) (*topology.Topology, error) {
	n := dist.Size
	if n < 2 {
		return nil, fmt.Errorf("treebuild: need at least two taxa, got %d", n)
	}
	tree := topology.New(n)
	tree.MallocBlength()

	height := make([]float64, tree.NNodes)
	size := make([]float64, tree.NNodes)
	for i := 0; i < n; i++ {
		size[i] = 1
	}

	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
		for j := range m[i] {
			if i == j {
				continue
			}
			row, col := i, j
			if row > col {
				row, col = col, row
			}
			m[i][j] = dist.D[row][col]
		}
	}
	slots := make([]int, n)
	for i := range slots {
		slots[i] = i
	}

	parent := n
	active := n
	for active > 2 {
		bi, bj := 0, 1
		best := math.Inf(1)
		for i := 0; i < active; i++ {
			for j := i + 1; j < active; j++ {
				if m[i][j] < best {
					best, bi, bj = m[i][j], i, j
				}
			}
		}
		if best < minBranch {
			best = minBranch
		}
		idI, idJ := slots[bi], slots[bj]
		tree.CreateParentFromChildren(parent, idI, idJ)

		gs1 := best/2 - height[idI]
		gs2 := best/2 - height[idJ]
		if gs1 < minBranch {
			gs1 = minBranch
		}
		if gs2 < minBranch {
			gs2 = minBranch
		}
		tree.Blength[idI] = gs1
		tree.Blength[idJ] = gs2
		height[parent] = best / 2
		size[parent] = size[idI] + size[idJ]

		for k := 0; k < active; k++ {
			if k == bi || k == bj {
				continue
			}
			var nd float64
			if singleLinkage {
				nd = math.Min(m[bi][k], m[bj][k])
			} else {
				nd = (size[idI]*m[bi][k] + size[idJ]*m[bj][k]) / size[parent]
			}
			m[bi][k], m[k][bi] = nd, nd
		}
		slots[bi] = parent
		last := active - 1
		if bj != last {
			slots[bj] = slots[last]
			for k := 0; k < active; k++ {
				m[bj][k], m[k][bj] = m[last][k], m[k][last]
			}
		}
		active--
		parent++
	}

	idI, idJ := slots[0], slots[1]
	tree.CreateParentFromChildren(parent, idI, idJ)
	half := m[0][1] / 2
	b1 := half - height[idI]
	b2 := half - height[idJ]
	if b1 < minBranch {
		b1 = minBranch
	}
	if b2 < minBranch {
		b2 = minBranch
	}
	tree.Blength[idI] = b1
	tree.Blength[idJ] = b2

	tree.UpdateTraversal()
	return tree, nil
}
