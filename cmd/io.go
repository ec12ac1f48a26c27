package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/quadram-institute-bioscience/biomcmc/distmatrix"
	"github.com/quadram-institute-bioscience/biomcmc/topology"
)

// readNewickFile reads a single Newick tree from path ("-" for stdin).
func readNewickFile(path string) (*topology.Topology, error) {
	data, err := readAll(path)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(strings.TrimSpace(data), "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		return topology.ParseNewick(line)
	}
	return nil, fmt.Errorf("cmd: %s contains no Newick tree", path)
}

// readSpeciesMap reads a two-column, tab- or space-separated file mapping
// gene leaf name to species name, and resolves it against gene/species
// leaf name order into the sp_id vector splitset/reconcile expect.
func readSpeciesMap(path string, gene, species *topology.Topology) ([]int, error) {
	data, err := readAll(path)
	if err != nil {
		return nil, err
	}
	geneIdx := make(map[string]int, gene.NLeaves)
	for i, name := range gene.TaxLabel {
		geneIdx[name] = i
	}
	spIdx := make(map[string]int, species.NLeaves)
	for i, name := range species.TaxLabel {
		spIdx[name] = i
	}
	spID := make([]int, gene.NLeaves)
	for i := range spID {
		spID[i] = -1
	}
	for _, line := range strings.Split(strings.TrimSpace(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("cmd: malformed species-map line %q", line)
		}
		gi, ok := geneIdx[fields[0]]
		if !ok {
			return nil, fmt.Errorf("cmd: species map names unknown gene leaf %q", fields[0])
		}
		si, ok := spIdx[fields[1]]
		if !ok {
			return nil, fmt.Errorf("cmd: species map names unknown species leaf %q", fields[1])
		}
		spID[gi] = si
	}
	for i, s := range spID {
		if s < 0 {
			return nil, fmt.Errorf("cmd: species map missing an entry for gene leaf %q", gene.TaxLabel[i])
		}
	}
	return spID, nil
}

// readDistanceMatrix reads a phylip-square-style distance matrix: a first
// line with the taxon count, then one row per taxon ("name d1 d2 ... dn").
func readDistanceMatrix(path string) (*distmatrix.Matrix, []string, error) {
	data, err := readAll(path)
	if err != nil {
		return nil, nil, err
	}
	lines := strings.Split(strings.TrimSpace(data), "\n")
	if len(lines) < 1 {
		return nil, nil, fmt.Errorf("cmd: %s is empty", path)
	}
	n, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil {
		return nil, nil, fmt.Errorf("cmd: %s: bad taxon count %q", path, lines[0])
	}
	if len(lines) < n+1 {
		return nil, nil, fmt.Errorf("cmd: %s declares %d taxa but has %d data rows", path, n, len(lines)-1)
	}
	names := make([]string, n)
	m := distmatrix.NewSquare(n)
	for i := 0; i < n; i++ {
		fields := strings.Fields(lines[i+1])
		if len(fields) < n+1 {
			return nil, nil, fmt.Errorf("cmd: %s row %d has %d fields, need %d", path, i, len(fields), n+1)
		}
		names[i] = fields[0]
		for j := 0; j < n; j++ {
			v, err := strconv.ParseFloat(fields[j+1], 64)
			if err != nil {
				return nil, nil, fmt.Errorf("cmd: %s row %d col %d: %w", path, i, j, err)
			}
			if i < j {
				m.D[i][j] = v
			}
		}
	}
	return m, names, nil
}

func readAll(path string) (string, error) {
	var f *os.File
	if path == "-" || path == "stdin" {
		f = os.Stdin
	} else {
		var err error
		f, err = os.Open(path)
		if err != nil {
			return "", fmt.Errorf("cmd: %w", err)
		}
		defer f.Close()
	}
	var b strings.Builder
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		b.WriteString(sc.Text())
		b.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("cmd: %w", err)
	}
	return b.String(), nil
}
