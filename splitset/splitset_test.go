package splitset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quadram-institute-bioscience/biomcmc/bitset"
	"github.com/quadram-institute-bioscience/biomcmc/topology"
)

func spIDByName(gene, species *topology.Topology) []int {
	spID := make([]int, gene.NLeaves)
	for i, name := range gene.TaxLabel {
		for j, spName := range species.TaxLabel {
			if spName == name {
				spID[i] = j
				break
			}
		}
	}
	return spID
}

func TestDSPRGeneSpeciesCherryCompression(t *testing.T) {
	gene, err := topology.ParseNewick("((A,B),(C,D));")
	require.NoError(t, err)
	species, err := topology.ParseNewick("((A,B),(C,D));")
	require.NoError(t, err)
	spID := spIDByName(gene, species)

	ss, err := DSPRGeneSpecies(gene, species, spID)
	require.NoError(t, err)
	assert.Equal(t, 0, ss.RF)
	assert.Equal(t, 0, ss.Hdist)
	assert.Equal(t, 0, ss.Spr)
}

func TestDSPRGeneSpeciesSingleNNI(t *testing.T) {
	gene, err := topology.ParseNewick("((A,B),(C,D));")
	require.NoError(t, err)
	species, err := topology.ParseNewick("((A,C),(B,D));")
	require.NoError(t, err)
	spID := spIDByName(gene, species)

	ss, err := DSPRGeneSpecies(gene, species, spID)
	require.NoError(t, err)
	assert.Equal(t, 2, ss.RF)
	assert.Equal(t, 1, ss.Hdist)
	assert.Equal(t, 1, ss.Spr)
}

func TestCheckSwappedPruneDetectsTwoIndependentSwaps(t *testing.T) {
	width := 6
	prune := bitset.New(width)
	prune.SetBit(0)
	prune.SetBit(1)

	sideSplit := bitset.New(width)
	sideSplit.SetBit(0)
	sideSplit.SetBit(1)
	sideSplit.SetBit(2)

	complementSplit := bitset.New(width)
	complementSplit.SetBit(1)
	complementSplit.SetBit(2)
	complementSplit.SetBit(3)
	complementSplit.SetBit(4)
	complementSplit.SetBit(5)

	ss := &SplitSet{Prune: prune, GSplit: []*bitset.Split{sideSplit, complementSplit}}
	ss.checkSwappedPrune()
	assert.Equal(t, 1, ss.SprExtra)
}

func TestCheckSwappedPruneIgnoresOneSidedMatch(t *testing.T) {
	width := 6
	prune := bitset.New(width)
	prune.SetBit(0)
	prune.SetBit(1)

	sideSplit := bitset.New(width)
	sideSplit.SetBit(0)
	sideSplit.SetBit(1)
	sideSplit.SetBit(2)

	ss := &SplitSet{Prune: prune, GSplit: []*bitset.Split{sideSplit}}
	ss.checkSwappedPrune()
	assert.Equal(t, 0, ss.SprExtra)
}

func TestDSPRGeneSpeciesRFOnly(t *testing.T) {
	gene, err := topology.ParseNewick("((A,B),(C,D));")
	require.NoError(t, err)
	species, err := topology.ParseNewick("((A,C),(B,D));")
	require.NoError(t, err)
	spID := spIDByName(gene, species)

	ss, err := DSPRGeneSpeciesRF(gene, species, spID)
	require.NoError(t, err)
	assert.Equal(t, 2, ss.RF)
	assert.Equal(t, 0, ss.Hdist, "RF-only pass must not run the Hungarian match")
}
