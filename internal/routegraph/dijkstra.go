package routegraph

import (
	"math"

	"github.com/azybler/graphs/internal/model"
)

// pqItem is a priority queue entry: a node and its current tentative
// distance. Ties are broken on node id.
type pqItem struct {
	node model.NodeID
	dist float64
}

// minHeap is a concrete-typed binary min-heap keyed by (distance, node id),
// grounded on the teacher's routing package MinHeap: avoids the interface
// boxing overhead of container/heap for the hot Dijkstra loop.
type minHeap struct {
	items []pqItem
}

func (h *minHeap) Len() int { return len(h.items) }

func (h *minHeap) push(node model.NodeID, dist float64) {
	h.items = append(h.items, pqItem{node, dist})
	h.siftUp(len(h.items) - 1)
}

func (h *minHeap) pop() pqItem {
	n := len(h.items)
	item := h.items[0]
	h.items[0] = h.items[n-1]
	h.items = h.items[:n-1]
	if len(h.items) > 0 {
		h.siftDown(0)
	}
	return item
}

func less(a, b pqItem) bool {
	if a.dist != b.dist {
		return a.dist < b.dist
	}
	return a.node < b.node
}

func (h *minHeap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !less(h.items[i], h.items[parent]) {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *minHeap) siftDown(i int) {
	n := len(h.items)
	for {
		smallest := i
		left := 2*i + 1
		right := 2*i + 2
		if left < n && less(h.items[left], h.items[smallest]) {
			smallest = left
		}
		if right < n && less(h.items[right], h.items[smallest]) {
			smallest = right
		}
		if smallest == i {
			break
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}

// Dijkstra runs the classic single-source shortest-path search from source
// over g, returning distances to every reachable node and a predecessors
// map omitting the source (which has no predecessor). Distances default to
// +Inf for nodes that exist in the graph but are unreachable from source;
// nodes never seen at all are simply absent from the returned map.
//
// Complexity O((V+E) log V). Ties in the priority queue are broken on node
// identifier, making the traversal order — and hence predecessor choice
// among equal-length shortest paths — fully reproducible for a given graph.
func (g *Graph) Dijkstra(source model.NodeID) (distances map[model.NodeID]float64, predecessors map[model.NodeID]model.NodeID) {
	distances = make(map[model.NodeID]float64, len(g.adj))
	predecessors = make(map[model.NodeID]model.NodeID)

	for n := range g.adj {
		distances[n] = math.Inf(1)
	}
	distances[source] = 0

	var pq minHeap
	pq.push(source, 0)

	visited := make(map[model.NodeID]bool, len(g.adj))

	for pq.Len() > 0 {
		item := pq.pop()
		u := item.node
		if visited[u] {
			continue
		}
		visited[u] = true

		for v, w := range g.adj[u] {
			nd := distances[u] + w
			if nd < distances[v] {
				distances[v] = nd
				predecessors[v] = u
				pq.push(v, nd)
			}
		}
	}

	return distances, predecessors
}

// ReconstructPath walks predecessors from target back to source and
// reverses the result. The source is the first element, target the last.
// If target is unreachable (absent from predecessors and target != source),
// ReconstructPath returns nil.
func ReconstructPath(source, target model.NodeID, predecessors map[model.NodeID]model.NodeID) []model.NodeID {
	if target == source {
		return []model.NodeID{source}
	}
	var path []model.NodeID
	curr := target
	for curr != source {
		path = append(path, curr)
		pred, ok := predecessors[curr]
		if !ok {
			return nil // unreachable
		}
		curr = pred
	}
	path = append(path, source)

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
