package osmimport

import (
	"math"
	"testing"

	"github.com/paulmach/osm"

	"github.com/azybler/graphs/internal/geo"
	"github.com/azybler/graphs/internal/model"
	"github.com/azybler/graphs/internal/routegraph"
	"github.com/azybler/graphs/internal/spatial"
)

// routegraphTwoNodes builds a minimal two-node graph so both ids appear in
// routegraph.Graph.Nodes() for spatial.NewIndex to pick up.
func routegraphTwoNodes(locations map[model.NodeID]geo.Location) *routegraph.Graph {
	g := routegraph.New()
	var ids []model.NodeID
	for id := range locations {
		ids = append(ids, id)
	}
	g.AddEdgeOneWay(ids[0], ids[1], 1)
	return g
}

// routegraphOneNode builds a graph containing a single located node.
func routegraphOneNode(locations map[model.NodeID]geo.Location) *routegraph.Graph {
	g := routegraph.New()
	for id := range locations {
		g.AddEdgeOneWay(id, id+1_000_000, 1)
	}
	return g
}

// earthRadiusMeters mirrors internal/geo's unexported constant so fixtures
// can place nodes at an exact meter offset along a meridian.
const earthRadiusMeters = 6_371_000.0

// metersNorth returns the latitude, in degrees, reached by walking meters
// due north from latDeg. Points built this way share a longitude, so
// Haversine distance between them is exactly the latitude delta in radians
// times the earth's radius, making accumulated way length reproducible to
// floating-point tolerance.
func metersNorth(latDeg, meters float64) float64 {
	return latDeg + (meters/earthRadiusMeters)*(180/math.Pi)
}

func approxEqual(a, b, tolerance float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= tolerance
}

// S4: a way A-B-C shares its last node with a way C-D. B is a plain
// through node (referenced by only one way), so it must be elided and
// never appear in the resulting graph; C is referenced by both ways, so it
// must be marked and kept as an edge endpoint.
func wayCollapseFixture() (shapes []wayShape, locations map[model.NodeID]geo.Location) {
	const (
		a osm.NodeID = 1
		b osm.NodeID = 2
		c osm.NodeID = 3
		d osm.NodeID = 4
	)

	shapes = []wayShape{
		{nodeIDs: []osm.NodeID{a, b, c}},
		{nodeIDs: []osm.NodeID{c, d}},
	}

	latA := 0.0
	latB := metersNorth(latA, 10)
	latC := metersNorth(latB, 20)
	latD := metersNorth(latC, 30)

	locations = map[model.NodeID]geo.Location{
		model.NodeID(a): {Lat: latA, Lon: 0},
		model.NodeID(b): {Lat: latB, Lon: 0},
		model.NodeID(c): {Lat: latC, Lon: 0},
		model.NodeID(d): {Lat: latD, Lon: 0},
	}
	return shapes, locations
}

func TestMarkIntersectionsFlagsSharedNodeOnly(t *testing.T) {
	shapes, _ := wayCollapseFixture()
	marked := markIntersections(shapes)

	cases := []struct {
		id   osm.NodeID
		want bool
	}{
		{1, false},
		{2, false},
		{3, true},
		{4, false},
	}
	for _, c := range cases {
		if got := marked[c.id]; got != c.want {
			t.Errorf("marked[%d] = %v, want %v", c.id, got, c.want)
		}
	}
}

func TestBuildRouteGraphCollapsesThroughNode(t *testing.T) {
	shapes, locations := wayCollapseFixture()
	marked := markIntersections(shapes)

	g := buildRouteGraph(shapes, marked, locations)

	if g.HasNode(2) {
		t.Error("elided through node 2 (B) must not appear in the collapsed graph")
	}

	const tolerance = 1e-6
	wAC, ok := g.Nodes()[1][3]
	if !ok {
		t.Fatal("expected edge 1->3 (A->C)")
	}
	if !approxEqual(wAC, 30, tolerance) {
		t.Errorf("A->C weight = %v, want ~30 (10+20)", wAC)
	}

	wCD, ok := g.Nodes()[3][4]
	if !ok {
		t.Fatal("expected edge 3->4 (C->D)")
	}
	if !approxEqual(wCD, 30, tolerance) {
		t.Errorf("C->D weight = %v, want ~30", wCD)
	}

	// Two-way ways install both directions.
	if _, ok := g.Nodes()[3][1]; !ok {
		t.Error("expected reverse edge 3->1 (two-way way)")
	}
}

func TestBuildRouteGraphOneWayOmitsReverse(t *testing.T) {
	shapes := []wayShape{{nodeIDs: []osm.NodeID{1, 2}, oneWay: true}}
	locations := map[model.NodeID]geo.Location{
		1: {Lat: 0, Lon: 0},
		2: {Lat: metersNorth(0, 50), Lon: 0},
	}
	marked := markIntersections(shapes)

	g := buildRouteGraph(shapes, marked, locations)

	if _, ok := g.Nodes()[1][2]; !ok {
		t.Fatal("expected forward edge 1->2")
	}
	if _, ok := g.Nodes()[2][1]; ok {
		t.Error("one-way way must not install a reverse edge")
	}
}

func TestBuildRouteGraphBreaksAtDanglingReference(t *testing.T) {
	shapes := []wayShape{{nodeIDs: []osm.NodeID{1, 2, 3}}}
	locations := map[model.NodeID]geo.Location{
		1: {Lat: 0, Lon: 0},
		// node 2's location is missing, as if it belonged to an adjacent
		// block this extract excluded.
		3: {Lat: metersNorth(0, 50), Lon: 0},
	}
	marked := markIntersections(shapes)

	g := buildRouteGraph(shapes, marked, locations)

	if g.HasNode(1) {
		t.Error("node 1 must not appear: its only segment dangles on a missing location")
	}
	if g.HasNode(3) {
		t.Error("node 3 must not appear: its anchor segment dangles on a missing location")
	}
}

func TestAttachBuildingsClassifiesAndAttachesNearest(t *testing.T) {
	routeLocations := map[model.NodeID]geo.Location{
		10: {Lat: 0, Lon: 0},
		20: {Lat: 10, Lon: 10},
	}
	g := routegraphTwoNodes(routeLocations)
	index := spatial.NewIndex(g, routeLocations)

	footprint := map[osm.NodeID]geo.Location{
		101: {Lat: 0.0001, Lon: 0},
		102: {Lat: 0.0001, Lon: 0.0001},
		103: {Lat: 0, Lon: 0.0001},
		104: {Lat: 0, Lon: 0},
	}
	shapes := []buildingShape{
		{id: 1, tag: "house", nodeIDs: []osm.NodeID{101, 102, 103, 104}},
		{id: 2, tag: "hospital", nodeIDs: []osm.NodeID{101, 102, 103, 104}},
		{id: 3, tag: "shed", nodeIDs: []osm.NodeID{101, 102, 103, 104}},
	}

	buildings := attachBuildings(shapes, footprint, index)
	if len(buildings) != 3 {
		t.Fatalf("got %d buildings, want 3", len(buildings))
	}

	for _, b := range buildings {
		if b.Closest != 10 {
			t.Errorf("building %d: Closest = %d, want 10 (nearest routing node)", b.ID, b.Closest)
		}
	}
	if !buildings[0].IsHouse() {
		t.Errorf("building 1 (house) classified as %v", buildings[0].Kind)
	}
	if !buildings[1].IsFacility() {
		t.Errorf("building 2 (hospital) classified as %v", buildings[1].Kind)
	}
	if !buildings[2].IsOther() {
		t.Errorf("building 3 (shed) classified as %v", buildings[2].Kind)
	}
}

func TestAttachBuildingsSkipsEmptyFootprint(t *testing.T) {
	routeLocations := map[model.NodeID]geo.Location{10: {Lat: 0, Lon: 0}}
	g := routegraphOneNode(routeLocations)
	index := spatial.NewIndex(g, routeLocations)

	shapes := []buildingShape{
		{id: 1, tag: "house", nodeIDs: []osm.NodeID{999}}, // no resolvable location
	}

	buildings := attachBuildings(shapes, map[osm.NodeID]geo.Location{}, index)
	if len(buildings) != 0 {
		t.Fatalf("got %d buildings, want 0 (footprint unresolved)", len(buildings))
	}
}
