// Package citymap provides the Map facade: a frozen (Buildings, Graph)
// pair plus the building-selection and shortest-path operations the
// assessment and planning workers consume. Grounded on
// original_source/include/map.hpp and src/map.cpp.
package citymap

import (
	"fmt"
	"math/rand"

	"github.com/azybler/graphs/internal/model"
	"github.com/azybler/graphs/internal/routegraph"
)

// Map owns its Buildings and Graph; downstream consumers only borrow them.
// Once constructed a Map is never mutated, so it is safe to share read-only
// across goroutines.
type Map struct {
	buildings []model.Building
	graph     *routegraph.Graph
}

// New freezes buildings and graph into a Map.
func New(buildings []model.Building, graph *routegraph.Graph) *Map {
	return &Map{buildings: buildings, graph: graph}
}

// Buildings returns a read-only borrow of every building in the map.
func (m *Map) Buildings() []model.Building { return m.buildings }

// Nodes returns a read-only borrow of the underlying adjacency map.
func (m *Map) Nodes() map[model.NodeID]map[model.NodeID]float64 { return m.graph.Nodes() }

// Graph returns the underlying routing graph.
func (m *Map) Graph() *routegraph.Graph { return m.graph }

// SelectBuildings returns every building for which pred reports true.
func (m *Map) SelectBuildings(pred func(model.Building) bool) []model.Building {
	var result []model.Building
	for _, b := range m.buildings {
		if pred(b) {
			result = append(result, b)
		}
	}
	return result
}

// SelectRandomBuildings uniformly samples up to n buildings without
// replacement from the subset matching pred. The sample is seeded
// nondeterministically, so repeated calls return different selections.
func (m *Map) SelectRandomBuildings(n int, pred func(model.Building) bool) []model.Building {
	pool := m.SelectBuildings(pred)
	if len(pool) == 0 {
		return nil
	}
	if n > len(pool) {
		n = len(pool)
	}

	rng := rand.New(rand.NewSource(rand.Int63()))
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool[:n]
}

// SelectRandomHouses samples up to n buildings classified House.
func (m *Map) SelectRandomHouses(n int) []model.Building {
	return m.SelectRandomBuildings(n, model.Building.IsHouse)
}

// SelectRandomFacilities samples up to n buildings classified Facility.
func (m *Map) SelectRandomFacilities(n int) []model.Building {
	return m.SelectRandomBuildings(n, model.Building.IsFacility)
}

// Path is a (from, to, distance) triple produced by ShortestPaths.
type Path struct {
	From     model.Building
	To       model.Building
	Distance float64
}

// TracedPath additionally carries the reconstructed route: from.Closest is
// its first element, to.Closest its last. Empty when the target is
// unreachable (Distance is +Inf in that case).
type TracedPath struct {
	Path
	Trace []model.NodeID
}

// ShortestPaths runs a single Dijkstra from from.Closest and reports the
// distance to every building in to.
func (m *Map) ShortestPaths(from model.Building, to []model.Building) []Path {
	distances, _ := m.graph.Dijkstra(from.Closest)

	result := make([]Path, len(to))
	for i, building := range to {
		result[i] = Path{From: from, To: building, Distance: distances[building.Closest]}
	}
	return result
}

// ShortestPathsWithTrace is ShortestPaths plus the reconstructed route for
// every reachable target.
func (m *Map) ShortestPathsWithTrace(from model.Building, to []model.Building) []TracedPath {
	distances, predecessors := m.graph.Dijkstra(from.Closest)

	result := make([]TracedPath, len(to))
	for i, building := range to {
		trace := routegraph.ReconstructPath(from.Closest, building.Closest, predecessors)
		result[i] = TracedPath{
			Path:  Path{From: from, To: building, Distance: distances[building.Closest]},
			Trace: trace,
		}
	}
	return result
}

// WeightsSum sums every edge weight in the map's graph. Two-way
// edges are double-counted; callers that want an undirected total must
// halve it themselves (see routegraph.Graph.WeightsSum).
func (m *Map) WeightsSum() float64 {
	return m.graph.WeightsSum()
}

// PathsToMap extracts the induced subgraph of paths: the set of endpoint
// buildings and the set of directed edges used by any traced path, with
// weights looked up in parent. A traced path referencing an edge absent
// from parent's graph is an invariant violation — a dangling edge can only
// occur if a TracedPath was built from a different Map — so this panics
// rather than silently dropping the edge, per the "fail loudly" error
// policy.
func PathsToMap(parent *Map, paths []TracedPath) *Map {
	seen := make(map[model.BuildingID]model.Building)
	routes := routegraph.New()

	for _, path := range paths {
		seen[path.From.ID] = path.From
		seen[path.To.ID] = path.To

		trace := path.Trace
		for i := 0; i+1 < len(trace); i++ {
			pred, curr := trace[i], trace[i+1]
			weight, ok := parent.Nodes()[pred][curr]
			if !ok {
				panic(fmt.Sprintf("citymap: PathsToMap: edge %d->%d absent from parent graph", pred, curr))
			}
			routes.AddEdgeOneWay(pred, curr, weight)
		}
	}

	buildings := make([]model.Building, 0, len(seen))
	for _, b := range seen {
		buildings = append(buildings, b)
	}

	return New(buildings, routes)
}
