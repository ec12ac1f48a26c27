package treebuild

import (
	"github.com/quadram-institute-bioscience/biomcmc/distmatrix"
	"github.com/quadram-institute-bioscience/biomcmc/topology"
)

// EstimateBlensFromDistances wraps topology.OLSBranchLengths with the
// upper-triangle-to-packed-vector conversion distmatrix.Matrix needs: it
// repacks dist's upper triangle into the 1-D vector the Bryant-Waddell
// closed form expects, then estimates every branch length of tree in
// place. tree must already have an up-to-date traversal over the same
// leaf set dist was built for.
func EstimateBlensFromDistances(tree *topology.Topology, dist *distmatrix.Matrix) error {
	nl := tree.NLeaves
	vec := make([]float64, nl*(nl-1)/2)
	for j := 1; j < nl; j++ {
		for i := 0; i < j; i++ {
			vec[j*(j-1)/2+i] = dist.D[i][j]
		}
	}
	return tree.OLSBranchLengths(vec)
}
