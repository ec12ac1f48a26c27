package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quadram-institute-bioscience/biomcmc/topology"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadNewickFile(t *testing.T) {
	path := writeTemp(t, "t.nwk", "((A,B),(C,D));\n")
	top, err := readNewickFile(path)
	require.NoError(t, err)
	assert.Equal(t, 4, top.NLeaves)
}

func TestReadSpeciesMap(t *testing.T) {
	gene, err := topology.ParseNewick("((A1,B),(A2,C));")
	require.NoError(t, err)
	species, err := topology.ParseNewick("((A,B),C);")
	require.NoError(t, err)

	path := writeTemp(t, "map.tsv", "A1\tA\nB\tB\nA2\tA\nC\tC\n")
	spID, err := readSpeciesMap(path, gene, species)
	require.NoError(t, err)
	assert.Len(t, spID, 4)
}

func TestReadSpeciesMapMissingEntry(t *testing.T) {
	gene, err := topology.ParseNewick("((A1,B),(A2,C));")
	require.NoError(t, err)
	species, err := topology.ParseNewick("((A,B),C);")
	require.NoError(t, err)

	path := writeTemp(t, "map.tsv", "A1\tA\nB\tB\n")
	_, err = readSpeciesMap(path, gene, species)
	assert.Error(t, err)
}

func TestReadDistanceMatrix(t *testing.T) {
	content := "3\nA 0 2 4\nB 2 0 4\nC 4 4 0\n"
	path := writeTemp(t, "d.phy", content)
	m, names, err := readDistanceMatrix(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, names)
	assert.Equal(t, 2.0, m.D[0][1])
	assert.Equal(t, 4.0, m.D[0][2])
}
