package spatial

import (
	"math"

	"github.com/azybler/graphs/internal/geo"
	"github.com/azybler/graphs/internal/model"
	"github.com/azybler/graphs/internal/routegraph"
)

// NaiveNearest scans every located node in g and returns the closest one to
// loc by Haversine distance. It exists only as a reference for testing
// Index.Nearest against; production code should use Index.
func NaiveNearest(g *routegraph.Graph, locations map[model.NodeID]geo.Location, loc geo.Location) (model.NodeID, bool) {
	var best model.NodeID
	bestDist := math.Inf(1)
	found := false

	for n := range g.Nodes() {
		candidateLoc, ok := locations[n]
		if !ok {
			continue
		}
		d := geo.Haversine(loc, candidateLoc)
		if !found || d < bestDist || (d == bestDist && n < best) {
			bestDist = d
			best = n
			found = true
		}
	}

	return best, found
}
