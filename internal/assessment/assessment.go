// Package assessment computes closest-pair assignments, within-range
// sets, minmax centers, and 1-median centers over sampled houses and
// facilities. original_source/src/assessment.cpp survives in the
// retrieved corpus only as an incomplete stub (a hardcoded nearest()
// placeholder); the actual algorithms here are built from spec.md §1's
// prose description plus the facility-location snippets under
// original_source/report/snippets (closest.cpp, minmax_1.cpp,
// minmax_2.cpp), which show the shape of the minmax search this package
// generalizes into MinmaxCenter.
package assessment

import (
	"math"

	"github.com/azybler/graphs/internal/citymap"
	"github.com/azybler/graphs/internal/model"
)

// Assignment pairs a house with a facility and the road distance between
// them.
type Assignment struct {
	House    model.Building
	Facility model.Building
	Distance float64
}

// ClosestPairs finds, for every house, the nearest reachable facility. A
// house with no reachable facility (every distance +Inf) is omitted.
func ClosestPairs(m *citymap.Map, houses, facilities []model.Building) []Assignment {
	var result []Assignment
	for _, house := range houses {
		paths := m.ShortestPaths(house, facilities)

		best, ok := nearestPath(paths)
		if !ok {
			continue
		}
		result = append(result, Assignment{House: house, Facility: best.To, Distance: best.Distance})
	}
	return result
}

func nearestPath(paths []citymap.Path) (citymap.Path, bool) {
	var best citymap.Path
	found := false
	for _, p := range paths {
		if math.IsInf(p.Distance, 1) {
			continue
		}
		if !found || p.Distance < best.Distance {
			best = p
			found = true
		}
	}
	return best, found
}

// WithinRange returns every (house, facility) pair whose road distance is
// at most maxDist, in house-major, facility-minor order.
func WithinRange(m *citymap.Map, houses, facilities []model.Building, maxDist float64) []Assignment {
	var result []Assignment
	for _, house := range houses {
		for _, p := range m.ShortestPaths(house, facilities) {
			if p.Distance <= maxDist {
				result = append(result, Assignment{House: house, Facility: p.To, Distance: p.Distance})
			}
		}
	}
	return result
}

// MinmaxCenter picks the candidate minimizing the worst-case (maximum)
// distance to any target, grounded on report/snippets/minmax_1.cpp and
// minmax_2.cpp's two-stage max-then-min search. Targets unreachable from a
// candidate count as +Inf, so a candidate that cannot reach every target
// loses to one that can. ok is false when candidates is empty.
func MinmaxCenter(m *citymap.Map, candidates, targets []model.Building) (center model.Building, worstCase float64, ok bool) {
	worstCase = math.Inf(1)
	for _, c := range candidates {
		furthest := 0.0
		for _, p := range m.ShortestPaths(c, targets) {
			if p.Distance > furthest {
				furthest = p.Distance
			}
		}
		if !ok || furthest < worstCase {
			center = c
			worstCase = furthest
			ok = true
		}
	}
	return center, worstCase, ok
}

// OneMedianCenter picks the candidate minimizing the sum of distances to
// all targets — the discrete 1-median facility-location problem.
// Unreachable targets contribute +Inf, so a partially-disconnected
// candidate never wins over one that reaches every target. ok is false
// when candidates is empty.
func OneMedianCenter(m *citymap.Map, candidates, targets []model.Building) (center model.Building, total float64, ok bool) {
	total = math.Inf(1)
	for _, c := range candidates {
		sum := 0.0
		for _, p := range m.ShortestPaths(c, targets) {
			sum += p.Distance
		}
		if !ok || sum < total {
			center = c
			total = sum
			ok = true
		}
	}
	return center, total, ok
}

// Result bundles every assessment artifact produced from one set of
// sampled houses and facilities.
type Result struct {
	Houses           []model.Building
	Facilities       []model.Building
	ClosestPairs     []Assignment
	WithinRange      []Assignment
	MinmaxCenter     model.Building
	MinmaxDistance   float64
	MinmaxOK         bool
	MedianCenter     model.Building
	MedianDistance   float64
	MedianOK         bool
}

// Run samples numHouses houses and numFacilities facilities from m and
// computes every assessment artifact over the sample. rangeMeters bounds
// WithinRange.
func Run(m *citymap.Map, numHouses, numFacilities int, rangeMeters float64) Result {
	houses := m.SelectRandomHouses(numHouses)
	facilities := m.SelectRandomFacilities(numFacilities)

	minmaxCenter, minmaxDist, minmaxOK := MinmaxCenter(m, facilities, houses)
	medianCenter, medianDist, medianOK := OneMedianCenter(m, facilities, houses)

	return Result{
		Houses:         houses,
		Facilities:     facilities,
		ClosestPairs:   ClosestPairs(m, houses, facilities),
		WithinRange:    WithinRange(m, houses, facilities, rangeMeters),
		MinmaxCenter:   minmaxCenter,
		MinmaxDistance: minmaxDist,
		MinmaxOK:       minmaxOK,
		MedianCenter:   medianCenter,
		MedianDistance: medianDist,
		MedianOK:       medianOK,
	}
}
