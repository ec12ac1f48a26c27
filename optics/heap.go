package optics

// minHeap is a binary min-heap keyed by point.reachDist. It uses the
// same 0-indexed convention as original_source/lib/clustering_goptics.c
// (parent := (child-1)/2) — the source comment about leaving pq[0] empty
// is stale relative to the code it sits above, which does not do that.
// Each point carries its own heap slot in pqPos so decrease-key (fix) is
// O(log n) instead of a linear scan.
type minHeap struct {
	items []*point
}

func newMinHeap() *minHeap {
	return &minHeap{}
}

func (h *minHeap) Len() int { return len(h.items) }

func (h *minHeap) push(p *point) {
	p.pqPos = len(h.items)
	h.items = append(h.items, p)
	h.siftUp(p.pqPos)
}

// fix re-heapifies after p's key decreased in place.
func (h *minHeap) fix(p *point) {
	h.siftUp(p.pqPos)
}

func (h *minHeap) pop() *point {
	top := h.items[0]
	last := len(h.items) - 1
	h.items[0] = h.items[last]
	h.items[0].pqPos = 0
	h.items = h.items[:last]
	top.pqPos = -1
	if len(h.items) > 0 {
		h.siftDown(0)
	}
	return top
}

func (h *minHeap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if h.items[parent].reachDist <= h.items[i].reachDist {
			break
		}
		h.swap(parent, i)
		i = parent
	}
}

func (h *minHeap) siftDown(i int) {
	n := len(h.items)
	for {
		left, right := 2*i+1, 2*i+2
		smallest := i
		if left < n && h.items[left].reachDist < h.items[smallest].reachDist {
			smallest = left
		}
		if right < n && h.items[right].reachDist < h.items[smallest].reachDist {
			smallest = right
		}
		if smallest == i {
			break
		}
		h.swap(i, smallest)
		i = smallest
	}
}

func (h *minHeap) swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].pqPos = i
	h.items[j].pqPos = j
}

// checkInvariant reports whether every item's recorded pqPos matches its
// actual slice position; false signals heap corruption.
func (h *minHeap) checkInvariant() bool {
	for i, p := range h.items {
		if p.pqPos != i {
			return false
		}
	}
	return true
}
