package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quadram-institute-bioscience/biomcmc/reconcile"
)

var (
	reconcileGeneFile    string
	reconcileSpeciesFile string
	reconcileMapFile     string
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "LCA-reconcile a gene tree against a species tree",
	Long: `reconcile maps a gene tree's leaves onto a species tree through a
gene-to-species name map and reports the minimum duplication count over
every virtual rooting of the gene tree, together with the matching loss
and deep-coalescence counts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		gene, err := readNewickFile(reconcileGeneFile)
		if err != nil {
			return err
		}
		species, err := readNewickFile(reconcileSpeciesFile)
		if err != nil {
			return err
		}
		spID, err := readSpeciesMap(reconcileMapFile, gene, species)
		if err != nil {
			return err
		}
		logf("reconciling %d gene leaves against %d species leaves\n", gene.NLeaves, species.NLeaves)
		result, err := reconcile.Reconcile(gene, species, spID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ndups\tnloss\tndcos\n%d\t%d\t%d\n", result.NDups, result.NLoss, result.NDcos)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(reconcileCmd)
	reconcileCmd.Flags().StringVarP(&reconcileGeneFile, "gene", "g", "", "gene tree (Newick)")
	reconcileCmd.Flags().StringVarP(&reconcileSpeciesFile, "species", "s", "", "species tree (Newick)")
	reconcileCmd.Flags().StringVarP(&reconcileMapFile, "map", "m", "", "gene-leaf to species-leaf name map")
	reconcileCmd.MarkFlagRequired("gene")
	reconcileCmd.MarkFlagRequired("species")
	reconcileCmd.MarkFlagRequired("map")
}
