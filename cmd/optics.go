package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quadram-institute-bioscience/biomcmc/optics"
)

var (
	opticsDistFile   string
	opticsMinPoints  int
	opticsEpsilon    float64
	opticsClusterEps float64
	opticsParallel   bool
)

// matrixDistanceSource adapts a readDistanceMatrix result to
// optics.DistanceSource.
type matrixDistanceSource struct {
	names []string
	get   func(i, j int) float64
}

func (m matrixDistanceSource) NSamples() int           { return len(m.names) }
func (m matrixDistanceSource) Get(i, j int) float64 { return m.get(i, j) }

var opticsCmd = &cobra.Command{
	Use:   "optics",
	Short: "OPTICS reachability ordering and cluster extraction over a distance matrix",
	RunE: func(cmd *cobra.Command, args []string) error {
		dist, names, err := readDistanceMatrix(opticsDistFile)
		if err != nil {
			return err
		}
		src := matrixDistanceSource{names: names, get: func(i, j int) float64 {
			if i == j {
				return 0
			}
			row, col := i, j
			if row > col {
				row, col = col, row
			}
			return dist.D[row][col]
		}}
		logf("building epsilon-neighbourhood graph over %d points\n", src.NSamples())
		c, err := optics.New(src, opticsMinPoints, opticsEpsilon, opticsParallel)
		if err != nil {
			return err
		}
		if err := c.Assign(opticsClusterEps); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "order\tname\tcore_dist\treach_dist\tcluster\n")
		for i, id := range c.Order {
			fmt.Fprintf(out, "%d\t%s\t%g\t%g\t%d\n", i, names[id], c.CoreDistance[i], c.ReachDistance[i], c.Cluster[i])
		}
		fmt.Fprintf(out, "# %d clusters, max_distance=%g\n", c.NClusters, c.MaxDistance())
		return nil
	},
}

func init() {
	RootCmd.AddCommand(opticsCmd)
	opticsCmd.Flags().StringVarP(&opticsDistFile, "dist", "d", "", "distance matrix (phylip-square format)")
	opticsCmd.Flags().IntVar(&opticsMinPoints, "min-points", 2, "OPTICS min_points")
	opticsCmd.Flags().Float64Var(&opticsEpsilon, "epsilon", 1.0, "OPTICS epsilon radius")
	opticsCmd.Flags().Float64Var(&opticsClusterEps, "cluster-eps", 0.5, "cluster extraction cutoff")
	opticsCmd.Flags().BoolVar(&opticsParallel, "parallel", false, "use the data-parallel graph-construction path")
	opticsCmd.MarkFlagRequired("dist")
}
