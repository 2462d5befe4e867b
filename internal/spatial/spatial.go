// Package spatial answers nearest-routing-node queries during building
// attachment. It wraps an R-tree (github.com/tidwall/rtree) rather than
// the naive linear scan spec.md describes; naive.go carries that scan as a
// reference implementation the index is tested against for equivalence.
package spatial

import (
	"math"

	"github.com/tidwall/rtree"

	"github.com/azybler/graphs/internal/geo"
	"github.com/azybler/graphs/internal/model"
	"github.com/azybler/graphs/internal/routegraph"
)

const (
	metersPerDegreeLat         = 110_574.0
	metersPerDegreeLonEquator  = 111_320.0
	initialSearchRadiusMeters  = 200.0
	maximumSearchRadiusMeters  = 200_000.0
)

// Index answers nearest-routing-node-by-great-circle-distance queries over
// a fixed set of located routing nodes.
type Index struct {
	tr   rtree.RTreeG[model.NodeID]
	locs map[model.NodeID]geo.Location
}

// NewIndex builds a spatial index over every node in g that has a known
// location. Nodes absent from locations are omitted; callers with no
// located nodes get an index whose Nearest always reports ok=false.
func NewIndex(g *routegraph.Graph, locations map[model.NodeID]geo.Location) *Index {
	idx := &Index{locs: locations}
	for n := range g.Nodes() {
		loc, ok := locations[n]
		if !ok {
			continue
		}
		pt := [2]float64{loc.Lon, loc.Lat}
		idx.tr.Insert(pt, pt, n)
	}
	return idx
}

// Nearest returns the indexed node closest to loc by Haversine distance.
// It expands an R-tree search box outward in meters-equivalent degree
// steps until the best candidate found lies within the radius already
// searched, which guarantees no closer node could be missed outside it.
// The radius stops growing at 200 km: if no node lies in that final box,
// Nearest reports ok=false even when the index holds nodes farther away.
func (idx *Index) Nearest(loc geo.Location) (model.NodeID, bool) {
	radius := initialSearchRadiusMeters
	for {
		best, bestDist, found := idx.searchWithin(loc, radius)
		if found && bestDist <= radius {
			return best, true
		}
		if radius >= maximumSearchRadiusMeters {
			return best, found
		}
		radius *= 2
	}
}

func (idx *Index) searchWithin(loc geo.Location, radiusMeters float64) (best model.NodeID, bestDist float64, found bool) {
	latDelta := radiusMeters / metersPerDegreeLat

	lonScale := metersPerDegreeLonEquator * math.Cos(loc.Lat*math.Pi/180)
	if lonScale < 1 {
		lonScale = 1 // near the poles; fall back to a wide degree span
	}
	lonDelta := radiusMeters / lonScale

	min := [2]float64{loc.Lon - lonDelta, loc.Lat - latDelta}
	max := [2]float64{loc.Lon + lonDelta, loc.Lat + latDelta}

	bestDist = math.Inf(1)
	idx.tr.Search(min, max, func(_, _ [2]float64, data model.NodeID) bool {
		d := geo.Haversine(loc, idx.locs[data])
		if !found || d < bestDist || (d == bestDist && data < best) {
			bestDist = d
			best = data
			found = true
		}
		return true
	})

	return best, bestDist, found
}
