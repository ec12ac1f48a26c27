// Package optics implements OPTICS density-based reachability ordering
// and flat cluster extraction over an abstract distance source. Ported
// from original_source/lib/clustering_goptics.c.
package optics

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// DistanceSource is the abstract distance generator OPTICS runs over. It
// must be symmetric, zero on the diagonal, and deterministic for the
// duration of a single run.
type DistanceSource interface {
	NSamples() int
	Get(i, j int) float64
}

// edge is one entry of a point's CSR neighbour block, sorted ascending
// by Distance.
type edge struct {
	id       int
	distance float64
}

// point is one sample OPTICS tracks while expanding the cluster order.
type point struct {
	id         int
	coreDist   float64
	reachDist  float64
	processed  bool
	pqPos      int
}

// Clustering holds the full run: the ε-neighbourhood graph, the
// reachability ordering, and (after Assign) the extracted cluster labels.
type Clustering struct {
	src        DistanceSource
	minPoints  int
	epsilon    float64
	maxDistance float64

	// CSR neighbour graph: point i's block is Ea[VaI[i] : VaI[i]+VaN[i]].
	vaI []int
	vaN []int
	ea  []edge

	points []*point

	Order          []int
	Core           []bool
	CoreDistance   []float64
	ReachDistance  []float64

	Cluster    []int
	NClusters  int
}

// New builds the ε-neighbourhood graph and runs the reachability
// ordering pass. parallel selects the data-parallel graph-construction
// path.
func New(src DistanceSource, minPoints int, epsilon float64, parallel bool) (*Clustering, error) {
	n := src.NSamples()
	if minPoints < 1 || minPoints > n {
		return nil, fmt.Errorf("optics: min_points %d out of range [1, %d]", minPoints, n)
	}
	c := &Clustering{src: src, minPoints: minPoints, epsilon: epsilon}
	if parallel {
		c.generateGraphParallel()
	} else {
		c.generateGraph()
	}
	c.points = make([]*point, n)
	for i := 0; i < n; i++ {
		c.points[i] = &point{id: i, reachDist: math.Inf(1), pqPos: -1}
	}
	c.orderPoints()
	return c, nil
}

// generateGraph is the single-threaded ε-neighbourhood builder: a walk
// over every ordered pair (i,j) with i != j, matching
// generateGraphParallel's output exactly.
func (c *Clustering) generateGraph() {
	n := c.src.NSamples()
	c.vaN = make([]int, n)
	neighbours := make([][]edge, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			d := c.src.Get(i, j)
			if d > c.maxDistance {
				c.maxDistance = d
			}
			if d <= c.epsilon {
				neighbours[i] = append(neighbours[i], edge{id: j, distance: d})
			}
		}
		sort.Slice(neighbours[i], func(a, b int) bool { return neighbours[i][a].distance < neighbours[i][b].distance })
		c.vaN[i] = len(neighbours[i])
	}
	c.packGraph(neighbours)
}

// generateGraphParallel computes Va_n and populates Ea per-row under a
// worker pool, grounded on support/booster.go's cpus-many-goroutines
// channel-dispatch shape (each worker owns a distinct slice of rows; the
// only shared mutation is maxDistance, a monotonic max reduction guarded
// by a mutex).
func (c *Clustering) generateGraphParallel() {
	n := c.src.NSamples()
	c.vaN = make([]int, n)
	neighbours := make([][]edge, n)

	workers := 4
	if n < workers {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}
	rows := make(chan int, n)
	for i := 0; i < n; i++ {
		rows <- i
	}
	close(rows)

	var mu sync.Mutex
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var localMax float64
			for i := range rows {
				var row []edge
				for j := 0; j < n; j++ {
					if i == j {
						continue
					}
					d := c.src.Get(i, j)
					if d > localMax {
						localMax = d
					}
					if d <= c.epsilon {
						row = append(row, edge{id: j, distance: d})
					}
				}
				sort.Slice(row, func(a, b int) bool { return row[a].distance < row[b].distance })
				neighbours[i] = row
				c.vaN[i] = len(row)
			}
			mu.Lock()
			if localMax > c.maxDistance {
				c.maxDistance = localMax
			}
			mu.Unlock()
		}()
	}
	wg.Wait()
	c.packGraph(neighbours)
}

func (c *Clustering) packGraph(neighbours [][]edge) {
	n := len(neighbours)
	c.vaI = make([]int, n)
	total := 0
	for i := 0; i < n; i++ {
		c.vaI[i] = total
		total += c.vaN[i]
	}
	c.ea = make([]edge, total)
	for i := 0; i < n; i++ {
		copy(c.ea[c.vaI[i]:c.vaI[i]+c.vaN[i]], neighbours[i])
	}
}

func (c *Clustering) neighbours(i int) []edge {
	return c.ea[c.vaI[i] : c.vaI[i]+c.vaN[i]]
}

// orderPoints is the main OPTICS loop: seed with every unprocessed point
// in id order, expand its cluster order via the reachability min-heap.
func (c *Clustering) orderPoints() {
	n := len(c.points)
	c.Order = make([]int, 0, n)
	c.Core = make([]bool, 0, n)
	c.CoreDistance = make([]float64, 0, n)
	c.ReachDistance = make([]float64, 0, n)

	heap := newMinHeap()
	for _, p := range c.points {
		if p.processed {
			continue
		}
		c.expandClusterOrder(p, heap)
		for heap.Len() > 0 {
			next := heap.pop()
			c.expandClusterOrder(next, heap)
		}
	}
}

func (c *Clustering) expandClusterOrder(p *point, heap *minHeap) {
	p.processed = true
	p.coreDist = c.setCoreDist(p)

	reported := p.reachDist
	if math.IsInf(reported, 1) {
		reported = 2 * c.maxDistance
	}
	coreReported := p.coreDist
	if math.IsInf(coreReported, 1) {
		coreReported = 2 * c.maxDistance
	}
	c.Order = append(c.Order, p.id)
	c.CoreDistance = append(c.CoreDistance, coreReported)
	c.ReachDistance = append(c.ReachDistance, reported)
	c.Core = append(c.Core, p.coreDist < c.epsilon)

	if math.IsInf(p.coreDist, 1) {
		return
	}
	for _, nb := range c.neighbours(p.id) {
		q := c.points[nb.id]
		if q.processed {
			continue
		}
		newReach := math.Max(p.coreDist, nb.distance)
		if math.IsInf(q.reachDist, 1) {
			q.reachDist = newReach
			heap.push(q)
		} else if newReach < q.reachDist {
			q.reachDist = newReach
			heap.fix(q)
		}
	}
}

// setCoreDist returns the (minPoints-1)-th nearest neighbour's distance,
// or +Inf if the point has fewer than minPoints-1 neighbours within
// epsilon.
func (c *Clustering) setCoreDist(p *point) float64 {
	n := c.vaN[p.id]
	if n < c.minPoints-1 {
		return math.Inf(1)
	}
	return c.ea[c.vaI[p.id]+c.minPoints-2].distance
}

// MaxDistance is the largest pairwise distance observed while building
// the ε-neighbourhood graph, used to cap reported +Inf reachability/core
// distances cosmetically.
func (c *Clustering) MaxDistance() float64 { return c.maxDistance }

// Assign extracts flat cluster labels from the reachability plot.
// clusterEps is clipped to at most 0.999*epsilon. Points get -1 (noise)
// or a cluster id starting at 0; NClusters is the number of non-noise
// clusters found.
func (c *Clustering) Assign(clusterEps float64) error {
	if clusterEps < 0 {
		return fmt.Errorf("optics: cluster_eps must be non-negative, got %g", clusterEps)
	}
	if clusterEps > 0.999*c.epsilon {
		clusterEps = 0.999 * c.epsilon
	}
	n := len(c.Order)
	c.Cluster = make([]int, n)
	currentCluster := -1
	for j := 0; j < n; j++ {
		if c.ReachDistance[j] > clusterEps {
			if c.CoreDistance[j] <= clusterEps {
				currentCluster++
				c.Cluster[j] = currentCluster
			} else {
				c.Cluster[j] = -1
			}
		} else {
			c.Cluster[j] = currentCluster
		}
	}
	c.NClusters = currentCluster + 1
	return nil
}
