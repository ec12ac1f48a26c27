package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quadram-institute-bioscience/biomcmc/topology"
)

func TestReconcileNoDuplication(t *testing.T) {
	gene, err := topology.ParseNewick("((A,B),(C,D));")
	require.NoError(t, err)
	species, err := topology.ParseNewick("((A,B),(C,D));")
	require.NoError(t, err)
	spID := make([]int, gene.NLeaves)
	for i, name := range gene.TaxLabel {
		for j, spName := range species.TaxLabel {
			if spName == name {
				spID[i] = j
				break
			}
		}
	}

	res, err := Reconcile(gene, species, spID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.NDups)
	assert.Equal(t, 0, res.NLoss)
	assert.Equal(t, 0, res.NDcos)
}

func TestReconcileDuplication(t *testing.T) {
	gene, err := topology.ParseNewick("((A1,B),(A2,C));")
	require.NoError(t, err)
	species, err := topology.ParseNewick("((A,B),C);")
	require.NoError(t, err)

	spOf := map[string]string{"A1": "A", "A2": "A", "B": "B", "C": "C"}
	spID := make([]int, gene.NLeaves)
	for i, name := range gene.TaxLabel {
		want := spOf[name]
		for j, spName := range species.TaxLabel {
			if spName == want {
				spID[i] = j
				break
			}
		}
	}

	res, err := Reconcile(gene, species, spID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.NDups)
	assert.Equal(t, 1, res.NLoss)
	sizeDiff := 2 * (gene.NLeaves - species.NLeaves)
	assert.Equal(t, sizeDiff, 2)
	assert.Equal(t, res.NLoss-2*res.NDups+sizeDiff, res.NDcos)
	assert.Equal(t, 1, res.NDcos)
}

func TestReconcileInvariantsHoldAtMinimum(t *testing.T) {
	gene, err := topology.ParseNewick("(((A,B),C),D);")
	require.NoError(t, err)
	species, err := topology.ParseNewick("((A,B),(C,D));")
	require.NoError(t, err)
	spID := make([]int, gene.NLeaves)
	for i, name := range gene.TaxLabel {
		for j, spName := range species.TaxLabel {
			if spName == name {
				spID[i] = j
				break
			}
		}
	}

	res, err := Reconcile(gene, species, spID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.NDups, 0)
	assert.GreaterOrEqual(t, res.NLoss, 0)
	assert.GreaterOrEqual(t, res.NDcos, 0)
	sizeDiff := 2 * (gene.NLeaves - species.NLeaves)
	assert.Equal(t, res.NLoss-2*res.NDups+sizeDiff, res.NDcos)
}

func TestReconcileRejectsMismatchedSpIDLength(t *testing.T) {
	gene, err := topology.ParseNewick("((A,B),(C,D));")
	require.NoError(t, err)
	species, err := topology.ParseNewick("((A,B),(C,D));")
	require.NoError(t, err)

	_, err = Reconcile(gene, species, []int{0, 1})
	assert.Error(t, err)
}
