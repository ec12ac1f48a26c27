// Command biomcmc is a thin CLI front end over the biomcmc library
// packages; see cmd.RootCmd for the subcommand list.
package main

import (
	"fmt"
	"os"

	"github.com/quadram-institute-bioscience/biomcmc/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
