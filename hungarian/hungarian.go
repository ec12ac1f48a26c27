// Package hungarian implements a rectangular minimum-cost bipartite
// assignment solver (Kuhn-Munkres) over integer costs. The original
// biomcmc-lib treats its Hungarian solver as an opaque collaborator
// (referenced, but not defined, by splitset_distances.c); this package
// re-implements it as a rectangular min_cost_assignment with an
// incremental update_cost, so the dSPR inner loop never needs a
// full-matrix rebuild between iterations.
package hungarian

import "fmt"

const unset = -1

// Solver holds a size x size integer cost matrix (missing entries default
// to zero, representing dummy rows/columns for unmatched items) and the
// assignment produced by the last Solve.
type Solver struct {
	size     int
	cost     [][]int64
	ColMate  []int // ColMate[row] = assigned column, or unset
	RowMate  []int // RowMate[col] = assigned row, or unset
	solved   bool
}

// New allocates a solver for a size x size cost matrix.
func New(size int) *Solver {
	cost := make([][]int64, size)
	for i := range cost {
		cost[i] = make([]int64, size)
	}
	return &Solver{size: size, cost: cost}
}

// Reset clears every cost back to zero and invalidates the last solution.
func (s *Solver) Reset() {
	for i := range s.cost {
		for j := range s.cost[i] {
			s.cost[i][j] = 0
		}
	}
	s.solved = false
	s.ColMate = nil
	s.RowMate = nil
}

// UpdateCost sets a single matrix entry, invalidating the cached solution.
func (s *Solver) UpdateCost(row, col int, cost int64) error {
	if row < 0 || row >= s.size || col < 0 || col >= s.size {
		return fmt.Errorf("hungarian: UpdateCost(%d,%d) out of range for size %d", row, col, s.size)
	}
	s.cost[row][col] = cost
	s.solved = false
	return nil
}

// Solve computes the optimal assignment over the leading maxN x maxN
// submatrix (maxN <= size) via the Jonker-Volgenant-style primal-dual
// augmenting path method, and returns the decomposition
// (initialCost, finalCost) whose sum is the optimum total cost; ColMate
// and RowMate are populated as a side effect.
func (s *Solver) Solve(maxN int) (initialCost, finalCost int64, err error) {
	if maxN <= 0 || maxN > s.size {
		return 0, 0, fmt.Errorf("hungarian: Solve maxN=%d out of range for size %d", maxN, s.size)
	}
	n := maxN
	const inf = int64(1) << 60

	u := make([]int64, n+1)
	v := make([]int64, n+1)
	p := make([]int, n+1) // p[col] = row matched to col, 1-indexed; 0 = dummy
	way := make([]int, n+1)

	a := func(i, j int) int64 { return s.cost[i-1][j-1] }

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		minv := make([]int64, n+1)
		used := make([]bool, n+1)
		for j := 0; j <= n; j++ {
			minv[j] = inf
		}
		for {
			used[j0] = true
			i0, delta, j1 := p[j0], inf, -1
			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				cur := a(i0, j) - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= n; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}
		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	s.ColMate = make([]int, n)
	s.RowMate = make([]int, n)
	for i := range s.ColMate {
		s.ColMate[i] = unset
		s.RowMate[i] = unset
	}
	total := int64(0)
	for j := 1; j <= n; j++ {
		if p[j] == 0 {
			continue
		}
		row, col := p[j]-1, j-1
		s.ColMate[row] = col
		s.RowMate[col] = row
		total += a(p[j], j)
	}
	s.solved = true

	// The potentials u/v give a natural (initial, final) split: u[i] is the
	// cost contributed by row i's own reduction, the rest is the remaining
	// reduced-cost total. This keeps the documented two-term decomposition
	// without depending on any particular augmenting path order.
	for i := 1; i <= n; i++ {
		initialCost += u[i]
	}
	finalCost = total - initialCost
	return initialCost, finalCost, nil
}
