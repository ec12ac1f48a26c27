package treebuild

import (
	"fmt"
	"math"

	"github.com/quadram-institute-bioscience/biomcmc/distmatrix"
	"github.com/quadram-institute-bioscience/biomcmc/topology"
)

// BIONJ builds an unrooted (here: arbitrarily rooted on the last
// surviving cherry) additive topology by Gascuel's variance-weighted
// neighbour-joining method, over dist's upper triangle. Ported from
// original_source/lib/upgma.c's bionj_from_distance_matrix.
func BIONJ(dist *distmatrix.Matrix) (*topology.Topology, error) {
	n := dist.Size
	if n < 3 {
		return nil, fmt.Errorf("treebuild: BIONJ needs at least three taxa, got %d", n)
	}
	tree := topology.New(n)
	tree.MallocBlength()

	// delta[i][j] (i<j) holds the dissimilarity d(i,j) and delta[i][j]
	// (i>j) the variance v(i,j); the diagonal is unused, row sums are
	// recomputed into sums on every iteration.
	delta := make([][]float64, n)
	for i := range delta {
		delta[i] = make([]float64, n)
		for j := range delta[i] {
			if i == j {
				continue
			}
			row, col := i, j
			if row > col {
				row, col = col, row
			}
			d := dist.D[row][col]
			if i < j {
				delta[i][j] = d
			} else {
				delta[i][j] = d // variance starts equal to the dissimilarity
			}
		}
	}

	slots := make([]int, n)
	for i := range slots {
		slots[i] = i
	}
	active := n
	nextID := n

	for active > 2 {
		// Row sums over active peers only.
		sums := make([]float64, active)
		for i := 0; i < active; i++ {
			s := 0.0
			for k := 0; k < active; k++ {
				if k == i {
					continue
				}
				s += dval(delta, i, k)
			}
			sums[i] = s
		}

		b1, b2 := 0, 1
		bestQ := math.Inf(1)
		nf := float64(active)
		for i := 0; i < active; i++ {
			for j := i + 1; j < active; j++ {
				q := (nf-2)*dval(delta, i, j) - sums[i] - sums[j]
				if q < bestQ {
					bestQ, b1, b2 = q, i, j
				}
			}
		}

		dij := dval(delta, b1, b2)
		blen1 := 0.5 * (dij + (sums[b1]-sums[b2])/(nf-2))
		blen2 := dij - blen1
		if blen1 < minBranch {
			blen1 = minBranch
		}
		if blen2 < minBranch {
			blen2 = minBranch
		}

		idB1, idB2 := slots[b1], slots[b2]
		parent := nextID
		nextID++
		tree.CreateParentFromChildren(parent, idB1, idB2)
		tree.Blength[idB1] = blen1
		tree.Blength[idB2] = blen2

		vB1B2 := vval(delta, b1, b2)
		lambda := 0.5
		if vB1B2 >= 1e-12 {
			denom := 0.0
			for k := 0; k < active; k++ {
				if k == b1 || k == b2 {
					continue
				}
				denom += vval(delta, b1, k) - vval(delta, b2, k)
			}
			lambda = 0.5 + denom/(2*(nf-2)*vB1B2)
		}
		if lambda < 0 {
			lambda = 0
		}
		if lambda > 1 {
			lambda = 1
		}

		newD := make([]float64, active)
		newV := make([]float64, active)
		for k := 0; k < active; k++ {
			if k == b1 || k == b2 {
				continue
			}
			newD[k] = lambda*(dval(delta, b1, k)-blen1) + (1-lambda)*(dval(delta, b2, k)-blen2)
			newV[k] = lambda*vval(delta, b1, k) + (1-lambda)*vval(delta, b2, k) - lambda*(1-lambda)*vB1B2
		}
		for k := 0; k < active; k++ {
			if k == b1 || k == b2 {
				continue
			}
			setDval(delta, b1, k, newD[k])
			setVval(delta, b1, k, newV[k])
		}
		slots[b1] = parent

		last := active - 1
		if b2 != last {
			slots[b2] = slots[last]
			for k := 0; k < active; k++ {
				if k == b2 {
					continue
				}
				setDval(delta, b2, k, dval(delta, last, k))
				setVval(delta, b2, k, vval(delta, last, k))
			}
		}
		active--
	}

	idI, idJ := slots[0], slots[1]
	root := nextID
	tree.CreateParentFromChildren(root, idI, idJ)
	finalBlen := math.Max(dval(delta, 0, 1), minBranch)
	tree.Blength[idI] = finalBlen
	tree.Blength[idJ] = finalBlen

	tree.UpdateTraversal()
	return tree, nil
}

func dval(delta [][]float64, i, j int) float64 {
	if i < j {
		return delta[i][j]
	}
	return delta[j][i]
}

func setDval(delta [][]float64, i, j int, v float64) {
	if i < j {
		delta[i][j] = v
	} else {
		delta[j][i] = v
	}
}

func vval(delta [][]float64, i, j int) float64 {
	if i < j {
		return delta[j][i]
	}
	return delta[i][j]
}

func setVval(delta [][]float64, i, j int, v float64) {
	if i < j {
		delta[j][i] = v
	} else {
		delta[i][j] = v
	}
}
