package topology

import "fmt"

// OLSBranchLengths estimates every branch length of t from a 1-D
// upper-triangular distance vector addressed as dist[j*(j-1)/2+i] for
// i < j, using the Bryant-Waddell fast matrix-multiplication method: an
// Euler-tour index lets every postorder combination step touch each
// distance entry O(1) times instead of recomputing leaf-pair sums from
// scratch at every internal node.
//
// This closed form is adapted from original_source/lib/branchlength.c's
// eq. 9/10 (delta accumulation) and eq. 24/30 (leaf and internal branch
// lengths) of Bryant & Waddell's 1998 Mol. Biol. Evol. paper; the filtered
// source carries several C typos (an undeclared loop variable, `blen` used
// before its declaration) that make it uncompilable as retrieved, so the
// arithmetic here is re-derived directly from the paper's equations rather
// than transcribed verbatim.
//
// t must have an up-to-date traversal. dist must be sized for
// t.NLeaves*(t.NLeaves-1)/2 entries. Negative branch lengths are clamped to
// zero, with their magnitude pushed onto the parent edge (or, at the root,
// split evenly between the root's two children, since the root has no
// parent edge of its own).
func (t *Topology) OLSBranchLengths(dist []float64) error {
	if !t.TraversalUpdated {
		return errTraversalStale("OLSBranchLengths")
	}
	nl := t.NLeaves
	if len(dist) < nl*(nl-1)/2 {
		return fmt.Errorf("topology: OLSBranchLengths distance vector too short: have %d, need %d", len(dist), nl*(nl-1)/2)
	}
	if t.Blength == nil {
		t.MallocBlength()
	}

	at := func(i, j int) float64 {
		if i == j {
			return 0
		}
		if i < j {
			i, j = j, i
		}
		return dist[i*(i-1)/2+j]
	}

	idx, iL, iR := t.eulerTourIndex()

	delta := make([]float64, t.NNodes)
	for i := 0; i < nl; i++ {
		sum := 0.0
		for j := 0; j < nl; j++ {
			sum += at(i, j)
		}
		delta[i] = sum
	}
	for _, p := range t.Postorder {
		left, right := t.Nodelist[p.Left], t.Nodelist[p.Right]
		delta[p.ID] = delta[left.ID] + delta[right.ID]
		for a := iL[left.ID]; a <= iR[left.ID]; a++ {
			for b := iL[right.ID]; b <= iR[right.ID]; b++ {
				delta[p.ID] -= 2 * at(idx[a], idx[b])
			}
		}
	}

	nleaves := float64(nl)
	for i := 0; i < nl; i++ {
		leaf := t.Nodelist[i]
		sister := t.Nodelist[leaf.Sister]
		up := t.Nodelist[leaf.Up]
		nJ := float64(sister.Split.NOnes())
		nK := nleaves - nJ - 1
		tmp := (1+nJ-nK)*delta[sister.ID] + (1-nJ+nK)*delta[up.ID]
		t.Blength[i] = (nleaves*delta[i] - tmp) / (4 * nJ * nK)
	}
	for _, p := range t.Postorder {
		if p.ID == t.Root {
			continue // the root has no parent edge to estimate
		}
		sister := t.Nodelist[p.Sister]
		up := t.Nodelist[p.Up]
		left := t.Nodelist[p.Left]
		right := t.Nodelist[p.Right]
		nJ := float64(sister.Split.NOnes())
		nL := float64(left.Split.NOnes())
		nM := float64(right.Split.NOnes())
		nK := nleaves - nJ - nL - nM

		tmp1 := (2*nK-nleaves)*delta[sister.ID] + (2*nJ-nleaves)*delta[up.ID]
		blen := ((nK + nJ) / (nK * nJ)) * tmp1
		tmp1 = (2*nL-nleaves)*delta[right.ID] + (2*nM-nleaves)*delta[left.ID]
		blen += ((nL + nM) / (nL * nM)) * tmp1
		tmp1 = nleaves/nM + nleaves/nL + nleaves/nJ + nleaves/nK - 4
		blen += tmp1 * delta[p.ID]
		blen /= 4 * (nJ + nK) * (nL * nM)
		t.Blength[p.ID] = blen
	}

	t.clampNegativeBranches()
	return nil
}

// eulerTourIndex returns, for every postorder traversal step, a flat list
// of leaf ids in left-to-right encounter order (idx) together with, for
// every node id, the inclusive [iL,iR] index range into idx covering the
// leaves below it. This lets OLSBranchLengths sum over "all leaves below
// the left child paired with all leaves below the right child" in time
// proportional to the pair count rather than rescanning subtrees.
func (t *Topology) eulerTourIndex() (idx []int, iL, iR []int) {
	idx = make([]int, 0, t.NLeaves)
	iL = make([]int, t.NNodes)
	iR = make([]int, t.NNodes)
	j := 0
	for _, p := range t.Postorder {
		left, right := t.Nodelist[p.Left], t.Nodelist[p.Right]
		if !left.Internal {
			idx = append(idx, left.ID)
			iL[left.ID], iR[left.ID] = j, j
			j++
		}
		if !right.Internal {
			idx = append(idx, right.ID)
			iL[right.ID], iR[right.ID] = j, j
			j++
		}
		iL[p.ID] = iL[left.ID]
		iR[p.ID] = iR[right.ID]
	}
	return idx, iL, iR
}

// clampNegativeBranches walks leaves then postorder internals (children
// before parents), zeroing any negative branch and pushing its magnitude
// onto the parent edge; a negative branch immediately below the root has
// nowhere to push to, so its magnitude is split evenly between the root's
// two children instead.
func (t *Topology) clampNegativeBranches() {
	push := func(id int) {
		if t.Blength[id] >= 0 {
			return
		}
		carry := -t.Blength[id]
		t.Blength[id] = 0
		up := t.Nodelist[id].Up
		if up == t.Root {
			rootNode := t.Nodelist[t.Root]
			t.Blength[rootNode.Left] += carry / 2
			t.Blength[rootNode.Right] += carry / 2
			return
		}
		t.Blength[up] += carry
	}
	for i := 0; i < t.NLeaves; i++ {
		push(i)
	}
	for _, p := range t.Postorder {
		if p.ID == t.Root {
			continue
		}
		push(p.ID)
	}
}
