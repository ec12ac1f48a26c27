// Package cmd wires biomcmc's library packages into a cobra CLI: one
// subcommand per core algorithm, flags read with pflag, progress written
// to an explicit io.Writer rather than a logger. The library packages
// themselves stay side-effect free.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// logWriter is where subcommands report progress; defaults to stderr and
// is overridable for tests.
var logWriter io.Writer = os.Stderr

// RootCmd is the entry point cobra.Command every subcommand attaches to.
var RootCmd = &cobra.Command{
	Use:   "biomcmc",
	Short: "Phylogenomic reconciliation, tree distance and clustering primitives",
	Long: `biomcmc computes reconciliation-based distances (duplications, losses,
deep coalescences), split-based tree distances (Robinson-Foulds,
Hungarian-matched H-distance, approximate SPR), distance-based tree
builders (UPGMA, single linkage, BIONJ) and OPTICS clustering over
collections of gene trees and a reference species tree.`,
}

// Execute runs the root command; main's sole responsibility is calling
// this and translating a returned error into a non-zero exit code.
func Execute() error {
	return RootCmd.Execute()
}

func logf(format string, args ...interface{}) {
	fmt.Fprintf(logWriter, format, args...)
}
