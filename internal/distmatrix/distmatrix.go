// Package distmatrix builds an all-pairs distance matrix over a set of
// buildings via repeated Dijkstra. Grounded on
// original_source/src/distance_matrix.cpp.
package distmatrix

import (
	"math"

	"github.com/azybler/graphs/internal/citymap"
	"github.com/azybler/graphs/internal/model"
)

// key identifies an ordered (from, to) building pair.
type key struct {
	from model.BuildingID
	to   model.BuildingID
}

// Matrix maps ordered building pairs to road distance in meters. Missing
// entries imply +Inf (unreachable).
type Matrix struct {
	entries map[key]float64
}

// Get returns the stored distance for (from,to), or +Inf if absent.
func (m *Matrix) Get(from, to model.Building) float64 {
	if d, ok := m.entries[key{from.ID, to.ID}]; ok {
		return d
	}
	return math.Inf(1)
}

// Len reports the number of stored entries, including unreachable pairs
// that BuildForBuildings stored as +Inf.
func (m *Matrix) Len() int { return len(m.entries) }

// BuildForBuildings runs shortest_paths(b, buildings) for every b in
// buildings and inserts every (from,to)->distance pair into the resulting
// matrix. O(n) Dijkstra runs over the full graph.
func BuildForBuildings(m *citymap.Map, buildings []model.Building) *Matrix {
	dm := &Matrix{entries: make(map[key]float64, len(buildings)*len(buildings))}

	for _, from := range buildings {
		for _, path := range m.ShortestPaths(from, buildings) {
			dm.entries[key{path.From.ID, path.To.ID}] = path.Distance
		}
	}

	return dm
}
