// Package topology implements the rooted binary tree model biomcmc runs
// every downstream algorithm over: a flat, id-indexed array of nodes
// instead of a pointer graph, so that every traversal is plain integer
// iteration and nothing needs a garbage collector to reason about cycles
// (a topology's up/left/right/sister links all point back into the same
// Nodelist array).
package topology

import (
	"fmt"
	"sort"

	"github.com/quadram-institute-bioscience/biomcmc/bitset"
)

// noID marks an absent node reference (root's Up, a leaf's Left/Right/...).
const noID = -1

// Node is one vertex of a Topology. Leaves carry ids in [0, nleaves); the
// root has the largest id (2*nleaves-2). Sister is whichever of Up's two
// children is not this node.
type Node struct {
	ID             int
	Up             int
	Left           int
	Right          int
	Sister         int
	Split          *bitset.Split
	Level          int
	Mid            [5]int32
	Internal       bool
	UDone          bool
	DDone          bool
}

// Topology is a rooted binary tree over a fixed leaf set.
type Topology struct {
	NLeaves          int
	NNodes           int
	Nodelist         []*Node
	Postorder        []*Node // internal nodes only, length NLeaves-1, root last
	Root             int
	Blength          []float64
	TaxLabel         []string
	TraversalUpdated bool
	Quasirandom      bool
	Index            []int32 // per-algorithm scratch; New leaves it nil
}

// New allocates an empty topology shell for nleaves leaves: node slots exist
// and leaves have singleton splits, but no parent/child links are set yet
// and Root is undefined (noID) until the caller wires the tree together
// with CreateParentFromChildren.
func New(nleaves int) *Topology {
	if nleaves < 2 {
		panic("topology: need at least two leaves")
	}
	nnodes := 2*nleaves - 1
	t := &Topology{
		NLeaves:  nleaves,
		NNodes:   nnodes,
		Nodelist: make([]*Node, nnodes),
		Root:     noID,
		TaxLabel: make([]string, nleaves),
	}
	for i := 0; i < nnodes; i++ {
		n := &Node{
			ID:       i,
			Up:       noID,
			Left:     noID,
			Right:    noID,
			Sister:   noID,
			Internal: i >= nleaves,
		}
		if i < nleaves {
			n.Split = bitset.New(nleaves)
			n.Split.SetBit(i)
		} else {
			n.Split = bitset.New(nleaves)
		}
		t.Nodelist[i] = n
	}
	return t
}

// MallocBlength (re)allocates the branch-length vector, zeroed, indexed by
// node id.
func (t *Topology) MallocBlength() {
	t.Blength = make([]float64, t.NNodes)
}

// CreateParentFromChildren wires parentID as the parent of leftID and
// rightID. It does not update splits, levels, or Postorder: callers must
// call UpdateTraversal (directly or via UpdateSisters+UpdateTraversal)
// once the whole tree has been assembled.
func (t *Topology) CreateParentFromChildren(parentID, leftID, rightID int) {
	p, l, r := t.Nodelist[parentID], t.Nodelist[leftID], t.Nodelist[rightID]
	p.Left, p.Right = leftID, rightID
	l.Up, r.Up = parentID, parentID
	t.TraversalUpdated = false
}

// UpdateSisters recomputes every internal node's children's Sister fields
// from Left/Right. Safe to call redundantly; UpdateTraversal calls it.
func (t *Topology) UpdateSisters() {
	for _, n := range t.Nodelist {
		if !n.Internal || n.Left == noID {
			continue
		}
		t.Nodelist[n.Left].Sister = n.Right
		t.Nodelist[n.Right].Sister = n.Left
	}
}

// UpdateTraversal rebuilds Postorder, per-node Split, Level and Sister from
// the current Up/Left/Right links, and finds the root (the node with no
// Up). This is the only place Split/Level/Sister/Postorder become valid;
// every algorithm that reads them must ensure TraversalUpdated is true
// first (see Topology.EnsureTraversal).
func (t *Topology) UpdateTraversal() {
	t.UpdateSisters()
	root := noID
	for _, n := range t.Nodelist {
		if n.Up == noID {
			root = n.ID
			break
		}
	}
	if root == noID {
		panic("topology: no root found (every node has a parent)")
	}
	t.Root = root
	t.Nodelist[root].Level = 0

	t.Postorder = t.Postorder[:0]
	if cap(t.Postorder) < t.NLeaves-1 {
		t.Postorder = make([]*Node, 0, t.NLeaves-1)
	}
	var walk func(id int)
	walk = func(id int) {
		n := t.Nodelist[id]
		if id == root {
			n.Level = 0
		} else {
			n.Level = t.Nodelist[n.Up].Level + 1
		}
		if !n.Internal {
			return
		}
		walk(n.Left)
		walk(n.Right)
		left, right := t.Nodelist[n.Left], t.Nodelist[n.Right]
		n.Split.Or(left.Split, right.Split, true)
		t.Postorder = append(t.Postorder, n)
	}
	walk(root)
	t.TraversalUpdated = true
}

// EnsureTraversal rebuilds the traversal if it is stale. Per the package's
// error-handling contract, algorithms that must not silently rebuild
// mid-computation call Node-level accessors directly and rely on callers
// having refreshed first; EnsureTraversal exists for the narrow set of
// entry points the design explicitly allows to self-heal.
func (t *Topology) EnsureTraversal() {
	if !t.TraversalUpdated {
		t.UpdateTraversal()
	}
}

// IsEqual reports rooted equality: the multiset of internal-node splits is
// identical between a and b. Both topologies must already have an
// up-to-date traversal (see package docs on TraversalUpdated).
func IsEqual(a, b *Topology) (bool, error) {
	if !a.TraversalUpdated || !b.TraversalUpdated {
		return false, fmt.Errorf("topology: IsEqual requires an up-to-date traversal on both sides")
	}
	if a.NLeaves != b.NLeaves {
		return false, nil
	}
	sa := internalSplitStrings(a)
	sb := internalSplitStrings(b)
	sort.Strings(sa)
	sort.Strings(sb)
	if len(sa) != len(sb) {
		return false, nil
	}
	for i := range sa {
		if sa[i] != sb[i] {
			return false, nil
		}
	}
	return true, nil
}

func internalSplitStrings(t *Topology) []string {
	out := make([]string, 0, len(t.Postorder))
	for _, n := range t.Postorder {
		out = append(out, n.Split.String())
	}
	return out
}

// IsEqualUnrooted compares two topologies as unrooted trees: every
// non-trivial bipartition (an internal edge split) is canonicalised with
// FlipToSmallerSet and the two sets are compared. When compareSplits is
// false the comparison still normalises splits first (there is no cheaper
// correct unrooted comparison without canonicalisation), matching the
// "unordered set of normalised bipartitions" fast path the design calls
// for; when true the caller additionally gets a stable, sorted comparison
// (useful when the caller wants deterministic failure messages).
func IsEqualUnrooted(a, b *Topology, compareSplits bool) (bool, error) {
	if !a.TraversalUpdated || !b.TraversalUpdated {
		return false, fmt.Errorf("topology: IsEqualUnrooted requires an up-to-date traversal on both sides")
	}
	if a.NLeaves != b.NLeaves {
		return false, nil
	}
	sa := normalisedBipartitions(a)
	sb := normalisedBipartitions(b)
	if len(sa) != len(sb) {
		return false, nil
	}
	if compareSplits {
		sort.Strings(sa)
		sort.Strings(sb)
		for i := range sa {
			if sa[i] != sb[i] {
				return false, nil
			}
		}
		return true, nil
	}
	set := make(map[string]struct{}, len(sa))
	for _, s := range sa {
		set[s] = struct{}{}
	}
	for _, s := range sb {
		if _, ok := set[s]; !ok {
			return false, nil
		}
	}
	return true, nil
}

func normalisedBipartitions(t *Topology) []string {
	out := make([]string, 0, len(t.Postorder))
	for _, n := range t.Postorder {
		if n.ID == t.Root {
			continue // the root split is trivial (all leaves), not a bipartition
		}
		flipped := bitset.FromCopy(n.Split)
		flipped.FlipToSmallerSet()
		out = append(out, flipped.String())
	}
	return out
}

// ReorderLeaves renumbers leaves in ascending alphabetical order of
// TaxLabel and rebuilds every split accordingly, so that bit position i
// always corresponds to the i-th leaf name in sorted order. Internal node
// ids are unaffected. Used before comparing trees built from different
// input orders, and to exercise the "equality is invariant under
// reorder_leaves" round-trip property.
func (t *Topology) ReorderLeaves() {
	n := t.NLeaves
	sortIdx := make([]int, n)
	for i := range sortIdx {
		sortIdx[i] = i
	}
	sort.Slice(sortIdx, func(i, j int) bool { return t.TaxLabel[sortIdx[i]] < t.TaxLabel[sortIdx[j]] })

	oldToNew := make([]int, n)
	newTaxLabel := make([]string, n)
	for newID, oldID := range sortIdx {
		oldToNew[oldID] = newID
		newTaxLabel[newID] = t.TaxLabel[oldID]
	}
	remap := func(id int) int {
		if id == noID {
			return noID
		}
		if id < n {
			return oldToNew[id]
		}
		return id
	}

	newNodelist := make([]*Node, t.NNodes)
	for newID, oldID := range sortIdx {
		old := t.Nodelist[oldID]
		nn := &Node{ID: newID, Internal: false, Split: bitset.New(n)}
		nn.Split.SetBit(newID)
		nn.Up = remap(old.Up)
		newNodelist[newID] = nn
	}
	for id := n; id < t.NNodes; id++ {
		old := t.Nodelist[id]
		nn := &Node{ID: id, Internal: true, Split: bitset.New(n)}
		nn.Up = remap(old.Up)
		nn.Left = remap(old.Left)
		nn.Right = remap(old.Right)
		newNodelist[id] = nn
	}

	t.Nodelist = newNodelist
	t.TaxLabel = newTaxLabel
	t.TraversalUpdated = false
	t.UpdateTraversal()
}

// ToNewick renders the topology in Newick format. When showIDs is true,
// internal node labels are the node's numeric id instead of being omitted.
func (t *Topology) ToNewick(showIDs bool) string {
	t.EnsureTraversal()
	var b []byte
	b = t.appendNewick(b, t.Root, showIDs)
	b = append(b, ';')
	return string(b)
}

func (t *Topology) appendNewick(b []byte, id int, showIDs bool) []byte {
	n := t.Nodelist[id]
	if !n.Internal {
		b = append(b, t.TaxLabel[id]...)
	} else {
		b = append(b, '(')
		b = t.appendNewick(b, n.Left, showIDs)
		b = append(b, ',')
		b = t.appendNewick(b, n.Right, showIDs)
		b = append(b, ')')
		if showIDs {
			b = append(b, fmt.Sprintf("%d", id)...)
		}
	}
	if t.Blength != nil && id != t.Root {
		b = append(b, fmt.Sprintf(":%g", t.Blength[id])...)
	}
	return b
}
