package cluster

import (
	"sort"
	"testing"

	"github.com/azybler/graphs/internal/citymap"
	"github.com/azybler/graphs/internal/distmatrix"
	"github.com/azybler/graphs/internal/geo"
	"github.com/azybler/graphs/internal/model"
	"github.com/azybler/graphs/internal/routegraph"
)

// squareMap builds a square of four buildings connected by a perimeter
// routing graph with 100m sides; there is no diagonal road, so opposite
// corners are 200 apart (via two sides).
func squareMap() (*citymap.Map, []model.Building) {
	g := routegraph.New()
	g.AddEdgeTwoWay(1, 2, 100) // A-B
	g.AddEdgeTwoWay(2, 3, 100) // B-C
	g.AddEdgeTwoWay(3, 4, 100) // C-D
	g.AddEdgeTwoWay(4, 1, 100) // D-A

	buildings := []model.Building{
		{ID: 1, Kind: model.House, Bary: geo.Location{Lat: 0, Lon: 0}, Closest: 1},
		{ID: 2, Kind: model.House, Bary: geo.Location{Lat: 0, Lon: 1}, Closest: 2},
		{ID: 3, Kind: model.House, Bary: geo.Location{Lat: 1, Lon: 1}, Closest: 3},
		{ID: 4, Kind: model.House, Bary: geo.Location{Lat: 1, Lon: 0}, Closest: 4},
	}
	m := citymap.New(buildings, g)
	return m, buildings
}

// S5: four-building cluster.
func TestGetKClustersPartition(t *testing.T) {
	m, buildings := squareMap()
	dm := distmatrix.BuildForBuildings(m, buildings)
	structure := Build(buildings, buildings, dm)

	for k := 1; k <= len(buildings); k++ {
		clusters := structure.GetKClusters(k)
		if len(clusters) != k {
			t.Fatalf("k=%d: got %d clusters, want %d", k, len(clusters), k)
		}

		seen := make(map[model.BuildingID]bool)
		var total int
		for _, c := range clusters {
			for _, b := range structure.GetElements(c.ID()) {
				if seen[b.ID] {
					t.Fatalf("k=%d: building %d appears in more than one cluster", k, b.ID)
				}
				seen[b.ID] = true
				total++
			}
		}
		if total != len(buildings) {
			t.Fatalf("k=%d: partition covers %d buildings, want %d", k, total, len(buildings))
		}
	}
}

func TestGetKClustersFour(t *testing.T) {
	m, buildings := squareMap()
	dm := distmatrix.BuildForBuildings(m, buildings)
	structure := Build(buildings, buildings, dm)

	clusters := structure.GetKClusters(4)
	for _, c := range clusters {
		if c.Size() != 1 {
			t.Errorf("k=4: cluster %d has size %d, want 1", c.ID(), c.Size())
		}
	}
}

func TestGetKClustersExceedsTotal(t *testing.T) {
	m, buildings := squareMap()
	dm := distmatrix.BuildForBuildings(m, buildings)
	structure := Build(buildings, buildings, dm)

	if got := structure.GetKClusters(2*len(buildings)); got != nil {
		t.Errorf("GetKClusters(2n) = %v, want nil", got)
	}
}

// Invariant 6: monotone agglomeration.
func TestMonotoneAgglomeration(t *testing.T) {
	m, buildings := squareMap()
	dm := distmatrix.BuildForBuildings(m, buildings)
	structure := Build(buildings, buildings, dm)

	clusters := structure.Clusters()
	ids := make([]int, len(clusters))
	for i, c := range clusters {
		ids[i] = c.ID()
	}
	if !sort.IntsAreSorted(ids) {
		t.Errorf("cluster ids not strictly increasing: %v", ids)
	}
	for i := 1; i < len(ids); i++ {
		if ids[i] <= ids[i-1] {
			t.Fatalf("cluster id %d did not strictly increase from %d", ids[i], ids[i-1])
		}
	}

	root := structure.Root()
	if root.ID() != ids[len(ids)-1] {
		t.Errorf("root id = %d, want %d (the largest)", root.ID(), ids[len(ids)-1])
	}
	if root.Size() != len(buildings) {
		t.Errorf("root size = %d, want %d", root.Size(), len(buildings))
	}
}

// Centroid search must cover every building in the owning Map, not just
// the subset being clustered: a building outside the clustered sample can
// legitimately be the nearest one to a merge's weighted-mean location.
func TestCentroidSearchesFullMapNotJustClusteredSubset(t *testing.T) {
	g := routegraph.New()
	g.AddEdgeTwoWay(1, 2, 100)
	g.AddEdgeTwoWay(2, 3, 100)

	a := model.Building{ID: 1, Kind: model.House, Bary: geo.Location{Lat: 0, Lon: 0}, Closest: 1}
	c := model.Building{ID: 2, Kind: model.House, Bary: geo.Location{Lat: 1, Lon: 1}, Closest: 2}
	// x sits exactly at the weighted-mean of a and c but is never part of
	// the clustered subset.
	x := model.Building{ID: 99, Kind: model.Facility, Bary: geo.Location{Lat: 0.5, Lon: 0.5}, Closest: 3}

	houses := []model.Building{a, c}
	allBuildings := []model.Building{a, c, x}

	m := citymap.New(allBuildings, g)
	dm := distmatrix.BuildForBuildings(m, houses)
	structure := Build(houses, allBuildings, dm)

	got := structure.Root().Centroid()
	if got.ID != x.ID {
		t.Errorf("Centroid().ID = %d, want %d (nearest building in the full Map, not the clustered subset)", got.ID, x.ID)
	}
}

func TestGetElementsOrderStableAcrossCalls(t *testing.T) {
	m, buildings := squareMap()
	dm := distmatrix.BuildForBuildings(m, buildings)
	structure := Build(buildings, buildings, dm)

	root := structure.Root()
	first := structure.GetElements(root.ID())
	second := structure.GetElements(root.ID())
	if len(first) != len(second) {
		t.Fatalf("GetElements length changed across calls: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("GetElements order changed at index %d: %d vs %d", i, first[i].ID, second[i].ID)
		}
	}
}
