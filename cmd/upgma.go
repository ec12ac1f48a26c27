package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quadram-institute-bioscience/biomcmc/topology"
	"github.com/quadram-institute-bioscience/biomcmc/treebuild"
)

var (
	upgmaDistFile      string
	upgmaSingleLinkage bool
)

var upgmaCmd = &cobra.Command{
	Use:   "upgma",
	Short: "Build a tree from a distance matrix by UPGMA or single linkage",
	RunE: func(cmd *cobra.Command, args []string) error {
		dist, names, err := readDistanceMatrix(upgmaDistFile)
		if err != nil {
			return err
		}
		var top *topology.Topology
		if upgmaSingleLinkage {
			top, err = treebuild.SingleLinkage(dist)
		} else {
			top, err = treebuild.UPGMA(dist)
		}
		if err != nil {
			return err
		}
		copy(top.TaxLabel, names)
		fmt.Fprintln(cmd.OutOrStdout(), top.ToNewick(false))
		return nil
	},
}

var bionjCmd = &cobra.Command{
	Use:   "bionj",
	Short: "Build a tree from a distance matrix by BIONJ",
	RunE: func(cmd *cobra.Command, args []string) error {
		dist, names, err := readDistanceMatrix(upgmaDistFile)
		if err != nil {
			return err
		}
		top, err := treebuild.BIONJ(dist)
		if err != nil {
			return err
		}
		copy(top.TaxLabel, names)
		fmt.Fprintln(cmd.OutOrStdout(), top.ToNewick(false))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(upgmaCmd)
	RootCmd.AddCommand(bionjCmd)
	for _, c := range []*cobra.Command{upgmaCmd, bionjCmd} {
		c.Flags().StringVarP(&upgmaDistFile, "dist", "d", "", "distance matrix (phylip-square format)")
		c.MarkFlagRequired("dist")
	}
	upgmaCmd.Flags().BoolVar(&upgmaSingleLinkage, "single-linkage", false, "use single-linkage instead of average-linkage clustering")
}
