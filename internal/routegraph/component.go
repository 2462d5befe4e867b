package routegraph

import "github.com/azybler/graphs/internal/model"

// unionFind implements a disjoint-set data structure with path halving and
// union by rank, grounded on the teacher's pkg/graph/component.go.
type unionFind struct {
	parent map[model.NodeID]model.NodeID
	rank   map[model.NodeID]byte
	size   map[model.NodeID]int
}

func newUnionFind(nodes []model.NodeID) *unionFind {
	uf := &unionFind{
		parent: make(map[model.NodeID]model.NodeID, len(nodes)),
		rank:   make(map[model.NodeID]byte, len(nodes)),
		size:   make(map[model.NodeID]int, len(nodes)),
	}
	for _, n := range nodes {
		uf.parent[n] = n
		uf.size[n] = 1
	}
	return uf
}

func (uf *unionFind) find(x model.NodeID) model.NodeID {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]] // path halving
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(x, y model.NodeID) {
	rx, ry := uf.find(x), uf.find(y)
	if rx == ry {
		return
	}
	if uf.rank[rx] < uf.rank[ry] {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
	uf.size[rx] += uf.size[ry]
	if uf.rank[rx] == uf.rank[ry] {
		uf.rank[rx]++
	}
}

// LargestComponent returns the node ids of the largest weakly connected
// component of g, treating directed edges as undirected.
func (g *Graph) LargestComponent() []model.NodeID {
	if len(g.adj) == 0 {
		return nil
	}

	nodes := make([]model.NodeID, 0, len(g.adj))
	for n := range g.adj {
		nodes = append(nodes, n)
	}

	uf := newUnionFind(nodes)
	for u, out := range g.adj {
		for v := range out {
			uf.union(u, v)
		}
	}

	bestRoot := nodes[0]
	bestSize := 0
	for _, n := range nodes {
		root := uf.find(n)
		if uf.size[root] > bestSize {
			bestRoot = root
			bestSize = uf.size[root]
		}
	}

	component := make([]model.NodeID, 0, bestSize)
	for _, n := range nodes {
		if uf.find(n) == bestRoot {
			component = append(component, n)
		}
	}
	return component
}

// Filter returns a new Graph containing only the edges whose endpoints are
// both in keep.
func (g *Graph) Filter(keep []model.NodeID) *Graph {
	keepSet := make(map[model.NodeID]bool, len(keep))
	for _, n := range keep {
		keepSet[n] = true
	}

	out := New()
	for u, edges := range g.adj {
		if !keepSet[u] {
			continue
		}
		for v, d := range edges {
			if keepSet[v] {
				out.AddEdgeOneWay(u, v, d)
			}
		}
	}
	return out
}
