// Package splitset implements the approximate dSPR distance, Robinson-
// Foulds distance and Hungarian-matched H-distance between a gene tree
// and a species tree, ported from
// original_source/lib/splitset_distances.c.
package splitset

import (
	"fmt"
	"sort"

	"github.com/quadram-institute-bioscience/biomcmc/bitset"
	"github.com/quadram-institute-bioscience/biomcmc/hungarian"
	"github.com/quadram-institute-bioscience/biomcmc/topology"
)

// SplitSet holds the working bipartition pools for one gene-tree/species-
// tree comparison. Unlike the C original, which aliases s_split into a
// tail segment of the sp0 pointer array, this port keeps SP0 and SSplit
// as distinct slices rather than two mutable views over the same
// backing array.
type SplitSet struct {
	GeneNLeaves int
	SpNLeaves   int

	SP0    []*bitset.Split // indexed by species-tree node id, width = GeneNLeaves
	SSplit []*bitset.Split
	GSplit []*bitset.Split
	Agree  []*bitset.Split

	Disagree []*bitset.Split
	Prune    *bitset.Split

	Match bool
	RF           int
	Hdist        int
	HdistReduced int
	Spr          int
	SprExtra     int

	h *hungarian.Solver
}

// NewFromGeneSpecies builds the initial multree coding: sp0[i] is the set
// of gene leaves mapped to species leaf i, for every species leaf; spID
// maps each gene leaf to a species id. It then runs Prepare once.
func NewFromGeneSpecies(gene, species *topology.Topology, spID []int) (*SplitSet, error) {
	if len(spID) != gene.NLeaves {
		return nil, fmt.Errorf("splitset: spID length %d does not match gene leaf count %d", len(spID), gene.NLeaves)
	}
	sp0 := make([]*bitset.Split, species.NNodes)
	for i := range sp0 {
		sp0[i] = bitset.New(gene.NLeaves)
	}
	for leaf, sp := range spID {
		if sp < 0 || sp >= species.NLeaves {
			return nil, fmt.Errorf("splitset: spID[%d]=%d out of range for %d species leaves", leaf, sp, species.NLeaves)
		}
		sp0[sp].SetBit(leaf)
	}
	ss := &SplitSet{
		GeneNLeaves: gene.NLeaves,
		SpNLeaves:   species.NLeaves,
		SP0:         sp0,
	}
	maxN := gene.NLeaves
	if species.NLeaves > maxN {
		maxN = species.NLeaves
	}
	ss.h = hungarian.New(maxN)
	if err := ss.Prepare(gene, species); err != nil {
		return nil, err
	}
	return ss, nil
}

// Prepare rebuilds SSplit and GSplit from the current gene/species
// topologies: species internal-node multree sets are folded bottom-up
// into SP0, canonicalised into SSplit, deduplicated, extended with any
// multree cherries found directly at species leaves, and deduplicated
// again; GSplit is rebuilt from the gene tree's internal splits.
func (ss *SplitSet) Prepare(gene, species *topology.Topology) error {
	gene.EnsureTraversal()
	species.EnsureTraversal()

	for _, p := range species.Postorder {
		ss.SP0[p.ID].Or(ss.SP0[p.Left], ss.SP0[p.Right], true)
	}

	ss.SSplit = ss.SSplit[:0]
	for _, p := range species.Postorder {
		s := bitset.FromCopy(ss.SP0[p.ID])
		s.FlipToSmallerSet()
		if s.NOnes() >= 2 {
			ss.SSplit = append(ss.SSplit, s)
		}
	}
	dedupeSorted(&ss.SSplit)

	for i := 0; i < species.NLeaves; i++ {
		if ss.SP0[i].NOnes() > 1 {
			s := bitset.FromCopy(ss.SP0[i])
			s.FlipToSmallerSet()
			ss.SSplit = append(ss.SSplit, s)
		}
	}
	dedupeSorted(&ss.SSplit)

	// The root's split is the full leaf set; FlipToSmallerSet turns it into
	// the empty set (popcount > width/2), so the n_ones < 2 filter below
	// drops it without needing to special-case the root id, matching how
	// the species-side loop above handles its own root the same way. Two
	// distinct non-root internal nodes of a 4-leaf rooted binary tree
	// canonicalise to the very same unrooted bipartition (the complementary
	// side of one is the canonical form the other already has), so this
	// needs the same dedup pass as SSplit.
	ss.GSplit = ss.GSplit[:0]
	for _, p := range gene.Postorder {
		s := bitset.FromCopy(p.Split)
		s.FlipToSmallerSet()
		if s.NOnes() >= 2 {
			ss.GSplit = append(ss.GSplit, s)
		}
	}
	dedupeSorted(&ss.GSplit)

	ss.Agree = ss.Agree[:0]
	ss.Match = false
	return nil
}

func dedupeSorted(splits *[]*bitset.Split) {
	s := *splits
	sort.Slice(s, func(i, j int) bool { return bitset.CompareIncreasing(s[i], s[j]) < 0 })
	out := s[:0]
	for i, v := range s {
		if i == 0 || !v.Equals(out[len(out)-1]) {
			out = append(out, v)
		}
	}
	*splits = out
}

// buildAgreementList moves every (g, s) pair with an identical split out
// of GSplit/SSplit and into Agree, and sets RF to the count of splits
// remaining on both sides (the standard symmetric-difference RF count).
func (ss *SplitSet) buildAgreementList() {
	var remainingG, remainingS []*bitset.Split
	used := make([]bool, len(ss.SSplit))
	for _, g := range ss.GSplit {
		matched := -1
		for j, s := range ss.SSplit {
			if used[j] {
				continue
			}
			if g.Equals(s) {
				matched = j
				break
			}
		}
		if matched >= 0 {
			used[matched] = true
			ss.Agree = append(ss.Agree, g)
		} else {
			remainingG = append(remainingG, g)
		}
	}
	for j, s := range ss.SSplit {
		if !used[j] {
			remainingS = append(remainingS, s)
		}
	}
	ss.GSplit = remainingG
	ss.SSplit = remainingS
	ss.RF = len(ss.GSplit) + len(ss.SSplit)
}

// RFAndHdist runs the agreement-list pruning (yielding RF) and, unless
// exitAtRF, the full disagreement matrix + Hungarian match (yielding
// Hdist). HdistReduced is cached from the first Hdist computed since the
// last Prepare (the "match" flag in the source, which Prepare clears).
func (ss *SplitSet) RFAndHdist(exitAtRF bool) error {
	ss.Agree = ss.Agree[:0]
	ss.buildAgreementList()
	if exitAtRF {
		return nil
	}
	return ss.hungarianMatchDisagreement(true)
}

// hungarianMatchDisagreement builds the full |GSplit| x |SSplit|
// disagreement matrix (XOR of every pair, canonicalised), runs the
// Hungarian solver over it, and records Hdist (and HdistReduced the first
// time). When keepAll is true Disagree is left as the full n_g*n_s matrix
// order used only to compute the cost sum; when false (the dSPR inner
// loop) Disagree is replaced by just the matched pairs.
func (ss *SplitSet) hungarianMatchDisagreement(keepAll bool) error {
	ng, ns := len(ss.GSplit), len(ss.SSplit)
	if ng == 0 || ns == 0 {
		ss.Hdist = 0
		if !ss.Match {
			ss.HdistReduced = 0
			ss.Match = true
		}
		ss.Disagree = nil
		return nil
	}
	n := ng
	if ns > n {
		n = ns
	}
	pairwise := make([][]*bitset.Split, ng)
	for i, g := range ss.GSplit {
		pairwise[i] = make([]*bitset.Split, ns)
		for j, s := range ss.SSplit {
			x := bitset.FromCopy(g)
			x.XorInPlace(s, true)
			x.FlipToSmallerSet()
			pairwise[i][j] = x
		}
	}

	// Cost is the number of leaves that must change sides, not the raw XOR
	// popcount: two equal-size bipartitions always differ by an even
	// symmetric difference (a leaf entering one half is a leaf leaving the
	// other), so popcount/2 is the actual edit cost the Hungarian solver
	// should minimise over.
	ss.h.Reset()
	for i := 0; i < ng; i++ {
		for j := 0; j < ns; j++ {
			if err := ss.h.UpdateCost(i, j, int64(pairwise[i][j].NOnes()/2)); err != nil {
				return err
			}
		}
	}
	initial, final, err := ss.h.Solve(n)
	if err != nil {
		return err
	}
	ss.Hdist = int(initial + final)
	if !ss.Match {
		ss.HdistReduced = ss.Hdist
		ss.Match = true
	}

	if keepAll {
		flat := make([]*bitset.Split, 0, ng*ns)
		for i := 0; i < ng; i++ {
			flat = append(flat, pairwise[i]...)
		}
		ss.Disagree = flat
		return nil
	}
	matched := make([]*bitset.Split, 0, n)
	for row, col := range ss.h.ColMate {
		if row < ng && col >= 0 && col < ns {
			matched = append(matched, pairwise[row][col])
		}
	}
	ss.Disagree = matched
	return nil
}

// DSPR runs the iterative prune/regraft loop: compress agreeing
// cherries, match the remaining disagreement via Hungarian, identify and
// remove the smallest disagreeing subtree, and repeat until one side is
// empty. Spr and SprExtra accumulate across iterations; the caller's
// usual downstream estimate is Spr + SprExtra/2.
func (ss *SplitSet) DSPR(gene, species *topology.Topology) error {
	for {
		ss.Agree = ss.Agree[:0]
		ss.buildAgreementList()
		ss.compressAgreement()

		if len(ss.GSplit) == 0 || len(ss.SSplit) == 0 {
			return nil
		}

		if err := ss.hungarianMatchDisagreement(false); err != nil {
			return err
		}
		dedupeSorted(&ss.Disagree)
		if len(ss.Disagree) == 0 {
			return nil
		}
		ss.findSmallDisagreement()
		ss.Spr++
		ss.removeSmallDisagreement()
		ss.minimizeSubtrees()
	}
}

// compressAgreement repeatedly collapses any agreeing cherry (a popcount-2
// split shared by both trees) by aliasing its second leaf onto its first
// and shrinking every pool's width by one, since the two leaves are now
// indistinguishable for SPR purposes.
func (ss *SplitSet) compressAgreement() {
	for {
		idx := -1
		for i, a := range ss.Agree {
			if a.NOnes() == 2 {
				idx = i
				break
			}
		}
		if idx < 0 {
			return
		}
		leaves := ss.Agree[idx].ToIndexVector(nil, 0)
		p1 := leaves[1]
		ss.removeBits([]int{p1}, ss.Agree, ss.GSplit, ss.SSplit)
		ss.pruneSmall()
		ss.Agree = ss.Agree[:0]
		ss.buildAgreementList()
	}
}

// removeBits deletes each leaf in bits from every split in groups via
// bit-replace-with-last, shrinking each split's width by one per leaf.
// bits are processed from highest to lowest so each split's own shrinking
// width stays consistent across multiple removed leaves.
func (ss *SplitSet) removeBits(bits []int, groups ...[]*bitset.Split) {
	sorted := append([]int(nil), bits...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	for _, b := range sorted {
		for _, g := range groups {
			for _, s := range g {
				if b < s.Width() {
					s.ReplaceBitWithLast(b)
				}
			}
		}
	}
}

func (ss *SplitSet) pruneSmall() {
	filter := func(in []*bitset.Split) []*bitset.Split {
		out := in[:0]
		for _, s := range in {
			if s.NOnes() >= 2 {
				out = append(out, s)
			}
		}
		return out
	}
	ss.Agree = filter(ss.Agree)
	ss.GSplit = filter(ss.GSplit)
	ss.SSplit = filter(ss.SSplit)
}

// findSmallDisagreement selects the smallest-popcount disagreement (after
// sorting) as the subtree to prune, preferring an exact match (or
// complement match) against an agreeing split when one exists — that
// indicates the disagreement is isolated to a single resolved subtree
// rather than spanning the whole remaining structure.
func (ss *SplitSet) findSmallDisagreement() {
	ss.Prune = ss.Disagree[0]
	for _, d := range ss.Disagree {
		for _, a := range ss.Agree {
			if d.Width() != a.Width() {
				continue
			}
			if d.NOnes() != a.NOnes() && d.NOnes() != d.Width()-a.NOnes() {
				continue
			}
			x := bitset.FromCopy(d)
			x.XorInPlace(a, true)
			if x.NOnes() == 0 || x.NOnes() == x.Width() {
				ss.Prune = d
				ss.checkSwappedPrune()
				return
			}
		}
	}
	ss.checkSwappedPrune()
}

// checkSwappedPrune looks for the signature of two independent swapped
// subtrees around the chosen prune: one gene split properly containing
// Prune's leaves, and a distinct gene split properly containing the
// complement of Prune's leaves. When both sides are independently
// resolved like that, a single prune/regraft step under-counts the true
// SPR distance by one, so SprExtra records the correction.
func (ss *SplitSet) checkSwappedPrune() {
	prune := ss.Prune
	complement := bitset.FromCopy(prune)
	complement.Not(true)

	var sideFound, complementFound *bitset.Split
	for _, g := range ss.GSplit {
		if g.Width() != prune.Width() {
			continue
		}
		if sideFound == nil && g.NOnes() > prune.NOnes() && g.Contains(prune) {
			sideFound = g
		}
		if complementFound == nil && g.NOnes() > complement.NOnes() && g.Contains(complement) {
			complementFound = g
		}
	}
	if sideFound != nil && complementFound != nil && sideFound != complementFound {
		ss.SprExtra++
	}
}

// removeSmallDisagreement deletes every leaf in Prune from GSplit, SSplit
// and Agree.
func (ss *SplitSet) removeSmallDisagreement() {
	bits := ss.Prune.ToIndexVector(nil, 0)
	ss.removeBits(bits, ss.GSplit, ss.SSplit, ss.Agree)
}

// minimizeSubtrees re-canonicalises every remaining split after a prune
// step and drops any that became trivial (popcount < 2).
func (ss *SplitSet) minimizeSubtrees() {
	for _, s := range ss.GSplit {
		s.FlipToSmallerSet()
	}
	for _, s := range ss.SSplit {
		s.FlipToSmallerSet()
	}
	ss.pruneSmall()
}

// DSPRGeneSpecies is the usual entry point: it runs RFAndHdist first (the
// original's two-pass structure — dSPR must not reuse the agreement/
// disagreement arrays built for the RF pass), short-circuits to zero when
// rf == 0, and otherwise re-prepares from scratch before running the dSPR
// loop. RF and Hdist report the first, unreduced pass; HdistReduced is the
// first Hdist of the dSPR loop.
func DSPRGeneSpecies(gene, species *topology.Topology, spID []int) (*SplitSet, error) {
	ss, err := NewFromGeneSpecies(gene, species, spID)
	if err != nil {
		return nil, err
	}
	if err := ss.RFAndHdist(false); err != nil {
		return nil, err
	}
	if ss.RF == 0 {
		ss.Spr = 0
		return ss, nil
	}
	rf, hdist := ss.RF, ss.Hdist
	if err := ss.Prepare(gene, species); err != nil {
		return nil, err
	}
	if err := ss.DSPR(gene, species); err != nil {
		return nil, err
	}
	ss.RF, ss.Hdist = rf, hdist
	return ss, nil
}

// DSPRGeneSpeciesRF computes only RF (no Hungarian match, no dSPR loop).
func DSPRGeneSpeciesRF(gene, species *topology.Topology, spID []int) (*SplitSet, error) {
	ss, err := NewFromGeneSpecies(gene, species, spID)
	if err != nil {
		return nil, err
	}
	if err := ss.RFAndHdist(true); err != nil {
		return nil, err
	}
	return ss, nil
}

// DSPRGeneSpeciesHdist computes RF and H-distance but does not run the
// dSPR loop.
func DSPRGeneSpeciesHdist(gene, species *topology.Topology, spID []int) (*SplitSet, error) {
	ss, err := NewFromGeneSpecies(gene, species, spID)
	if err != nil {
		return nil, err
	}
	if err := ss.RFAndHdist(false); err != nil {
		return nil, err
	}
	return ss, nil
}
