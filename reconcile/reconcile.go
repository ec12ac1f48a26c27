// Package reconcile implements LCA-based gene/species tree reconciliation:
// duplication, loss and deep-coalescence counts minimised over every
// virtual rooting of the gene tree. Ported from
// original_source/lib/reconciliation.c.
package reconcile

import (
	"fmt"

	"github.com/quadram-institute-bioscience/biomcmc/topology"
)

const dummyStatus = 0xffff

// Result is the (ndups, nloss, ndcos) triple reported at the virtual
// root that minimises duplications.
type Result struct {
	NDups int
	NLoss int
	NDcos int
}

// mrcaCache is a lazily populated, write-once-per-pair triangular cache of
// MRCAs over species-tree node ids. Scoped to a single Reconcile call: the
// climb it memoises is purely topological (it never reads the per-gene
// Mid annotations), so nothing about a fresh gene tree invalidates it
// mid-run — only a change of species topology would, and that always
// means a fresh Reconcile call with a fresh cache.
type mrcaCache struct {
	species *topology.Topology
	values  map[int]int
}

func newMRCACache(species *topology.Topology) *mrcaCache {
	return &mrcaCache{species: species, values: make(map[int]int)}
}

func triangIndex(i, j int) int {
	if i < j {
		i, j = j, i
	}
	return i*(i-1)/2 + j
}

// mrca finds the most recent common ancestor of species-tree nodes i and
// j: let a be the deeper node and b the shallower, then climb from b
// toward the root until the current node's split contains a's split
// (true for both the internal and leaf cases, since a leaf's split is
// just its own singleton bit). Reaching the root without containment
// would mean the species tree's split cache is corrupt — a structural
// invariant violation the design requires surfacing immediately rather
// than silently continuing.
func (c *mrcaCache) mrca(i, j int) int {
	if i == j {
		return i
	}
	key := triangIndex(i, j)
	if v, ok := c.values[key]; ok {
		return v
	}
	a, b := i, j
	if c.species.Nodelist[b].Level > c.species.Nodelist[a].Level {
		a, b = b, a
	}
	aSplit := c.species.Nodelist[a].Split
	p := b
	for {
		if c.species.Nodelist[p].Split.Contains(aSplit) {
			c.values[key] = p
			return p
		}
		if p == c.species.Root {
			panic("reconcile: MRCA climb reached the root without containing its target — structural invariant violated")
		}
		p = c.species.Nodelist[p].Up
	}
}

// prepareForLossCalculation writes into the species tree's Mid array the
// per-gene "effective" cardinality (Mid[2]), activity status (Mid[3]) and
// active level (Mid[4]): a species subtree with no gene leaves mapped
// below it is pruned (status 0), one with gene leaves below both
// children is active (status 1), and one with gene leaves below exactly
// one child is a dummy pass-through node whose active level is inherited
// unchanged from its parent, rather than pruning such nodes out of the
// representation entirely.
func prepareForLossCalculation(species *topology.Topology, spID []int) {
	for _, n := range species.Nodelist {
		n.Mid[2], n.Mid[3], n.Mid[4] = 0, 0, 0
	}
	for _, sp := range spID {
		species.Nodelist[sp].Mid[2]++
	}
	for i := 0; i < species.NLeaves; i++ {
		if species.Nodelist[i].Mid[2] > 0 {
			species.Nodelist[i].Mid[3] = 1
		}
	}
	for _, p := range species.Postorder {
		left, right := species.Nodelist[p.Left], species.Nodelist[p.Right]
		p.Mid[2] = left.Mid[2] + right.Mid[2]
		switch {
		case left.Mid[2] == 0 && right.Mid[2] == 0:
			p.Mid[3] = 0
		case left.Mid[2] > 0 && right.Mid[2] > 0:
			p.Mid[3] = 1
		default:
			p.Mid[3] = dummyStatus
		}
	}
	species.Nodelist[species.Root].Mid[4] = 0
	var walk func(id int)
	walk = func(id int) {
		n := species.Nodelist[id]
		if !n.Internal {
			return
		}
		for _, childID := range [2]int{n.Left, n.Right} {
			child := species.Nodelist[childID]
			if child.Mid[3] == dummyStatus {
				child.Mid[4] = n.Mid[4]
			} else {
				child.Mid[4] = n.Mid[4] + 1
			}
			walk(childID)
		}
	}
	walk(species.Root)
}

func activeLevel(species *topology.Topology, id int) int {
	return int(species.Nodelist[id].Mid[4])
}

// isDup reports whether mapped node g equals either ml or mr: the
// signature of a duplication node in the LCA-mapping sense.
func isDup(g, ml, mr int) bool { return g == ml || g == mr }

// lossDelta implements the loss-arithmetic 3-way case split used both by
// the rooted DP and by the virtual-root loss formula: duplications with
// identical child maps add no losses, duplications whose children map
// differently add the level gap on the non-matching side, and
// speciations add both level gaps minus the two edges collapsed into the
// mapping node itself.
func lossDelta(species *topology.Topology, g, ml, mr int) int {
	if ml == mr {
		return 0 // duplication node, both children already at the same map
	}
	if g == ml {
		return activeLevel(species, mr) - activeLevel(species, g)
	}
	if g == mr {
		return activeLevel(species, ml) - activeLevel(species, g)
	}
	return activeLevel(species, ml) + activeLevel(species, mr) - 2*activeLevel(species, g) - 2
}

// Reconcile runs the full rooted + unrooted reconciliation DP and returns
// the duplication/loss/deep-coalescence triple at the virtual root that
// minimises duplications, breaking ties by the lowest loss count at that
// same root rather than tracking duplications, losses and deep
// coalescences as three independent minima.
func Reconcile(gene, species *topology.Topology, spID []int) (Result, error) {
	if len(spID) != gene.NLeaves {
		return Result{}, fmt.Errorf("reconcile: spID length %d does not match gene leaf count %d", len(spID), gene.NLeaves)
	}
	gene.EnsureTraversal()
	species.EnsureTraversal()
	prepareForLossCalculation(species, spID)
	cache := newMRCACache(species)

	n := gene.NNodes
	mapD := make([]int, n)
	mapU := make([]int, n)
	ndupD := make([]int, n)
	ndupU := make([]int, n)
	nlosD := make([]int, n)
	nlosU := make([]int, n)

	for leaf := 0; leaf < gene.NLeaves; leaf++ {
		mapD[leaf] = species.Nodelist[spID[leaf]].ID
	}

	for _, p := range gene.Postorder {
		left, right := p.Left, p.Right
		ml, mr := mapD[left], mapD[right]
		g := cache.mrca(ml, mr)
		mapD[p.ID] = g
		dup := 0
		if isDup(g, ml, mr) {
			dup = 1
		}
		ndupD[p.ID] = ndupD[left] + ndupD[right] + dup
		nlosD[p.ID] = nlosD[left] + nlosD[right] + lossDelta(species, g, ml, mr)
	}

	root := gene.Nodelist[gene.Root]
	rootLeft, rootRight := root.Left, root.Right
	mapU[rootLeft], ndupU[rootLeft], nlosU[rootLeft] = mapD[rootRight], ndupD[rootRight], nlosD[rootRight]
	mapU[rootRight], ndupU[rootRight], nlosU[rootRight] = mapD[rootLeft], ndupD[rootLeft], nlosD[rootLeft]

	var propagate func(parentID int)
	propagate = func(parentID int) {
		parent := gene.Nodelist[parentID]
		if !parent.Internal {
			return
		}
		pairs := [2][2]int{{parent.Left, parent.Right}, {parent.Right, parent.Left}}
		for _, pair := range pairs {
			child, sister := pair[0], pair[1]
			ml, mr := mapU[parentID], mapD[sister]
			g := cache.mrca(ml, mr)
			mapU[child] = g
			dup := 0
			if isDup(g, ml, mr) {
				dup = 1
			}
			ndupU[child] = ndupU[parentID] + ndupD[sister] + dup
			nlosU[child] = nlosU[parentID] + nlosD[sister] + lossDelta(species, g, ml, mr)
			propagate(child)
		}
	}
	propagate(rootLeft)
	propagate(rootRight)

	spSize := 0
	for i := 0; i < species.NLeaves; i++ {
		if species.Nodelist[i].Mid[2] > 0 {
			spSize++
		}
	}
	sizeDiff := 2 * (gene.NLeaves - spSize)

	best := Result{}
	haveBest := false
	for id := 0; id < gene.NNodes; id++ {
		if id == gene.Root {
			continue
		}
		mu, md := mapU[id], mapD[id]
		mroot := cache.mrca(mu, md)
		dup := 0
		if isDup(mroot, mu, md) {
			dup = 1
		}
		dups := ndupU[id] + ndupD[id] + dup
		loss := nlosU[id] + nlosD[id] + lossDelta(species, mroot, mu, md)
		dcos := loss - 2*dups + sizeDiff
		if !haveBest || dups < best.NDups || (dups == best.NDups && loss < best.NLoss) {
			best = Result{NDups: dups, NLoss: loss, NDcos: dcos}
			haveBest = true
		}
	}
	if !haveBest {
		return Result{}, fmt.Errorf("reconcile: gene tree has no non-root node to enumerate as a virtual root")
	}
	return best, nil
}
