// Package planning builds per-cluster shortest-path trees over sampled
// houses, rooted at facility candidates chosen as cluster centroids.
// Grounded on original_source/src/planning.cpp's shortest_paths_tree,
// clusters, and planning functions; GeoJSON/color-palette emission is an
// out-of-scope external collaborator (spec.md §1) and is dropped, leaving
// the numeric core those report formatters would consume.
package planning

import (
	"github.com/azybler/graphs/internal/citymap"
	"github.com/azybler/graphs/internal/cluster"
	"github.com/azybler/graphs/internal/distmatrix"
	"github.com/azybler/graphs/internal/model"
)

// Tree is the induced shortest-path-tree subgraph rooted at a facility,
// plus the two weight totals original_source reports for it: the sum of
// the individual shortest-path distances, and the sum of the tree's own
// edge weights (which can differ when two paths share an edge).
type Tree struct {
	Facility         model.Building
	Map              *citymap.Map
	ShortestPathsSum float64
	TreeWeightsSum   float64
}

// ShortestPathsTree computes the shortest path from facility to every
// building in buildings, reduces the traced paths to their induced
// subgraph via citymap.PathsToMap, and reports both weight totals.
func ShortestPathsTree(m *citymap.Map, facility model.Building, buildings []model.Building) Tree {
	paths := m.ShortestPathsWithTrace(facility, buildings)

	var sum float64
	for _, p := range paths {
		sum += p.Distance
	}

	tree := citymap.PathsToMap(m, paths)

	return Tree{
		Facility:         facility,
		Map:              tree,
		ShortestPathsSum: sum,
		TreeWeightsSum:   tree.WeightsSum(),
	}
}

// ClusterTree bundles one k-cut cluster with its shortest-path tree, rooted at
// the cluster's centroid building.
type ClusterTree struct {
	ClusterID int
	Houses    []model.Building
	Tree      Tree
}

// Clusters partitions houses into k clusters by road distance, builds the
// dendrogram's GeoJSON-worthy structure (left to the external report
// formatter to serialize) and, for each of the k clusters, a shortest-path
// tree rooted at that cluster's centroid over its own houses.
func Clusters(m *citymap.Map, houses []model.Building, k int) (*cluster.Structure, []ClusterTree) {
	dm := distmatrix.BuildForBuildings(m, houses)
	structure := cluster.Build(houses, m.Buildings(), dm)

	cut := structure.GetKClusters(k)
	trees := make([]ClusterTree, len(cut))
	for i, c := range cut {
		elements := structure.GetElements(c.ID())
		trees[i] = ClusterTree{
			ClusterID: c.ID(),
			Houses:    elements,
			Tree:      ShortestPathsTree(m, c.Centroid(), elements),
		}
	}

	return structure, trees
}

// Result bundles every planning artifact for one run: the whole-sample
// shortest-path tree rooted at a single randomly chosen facility, the
// dendrogram built over the same houses, and the per-cluster trees cut
// from it.
type Result struct {
	Houses         []model.Building
	WholeTree      Tree
	Dendrogram     *cluster.Structure
	ClusterTrees   []ClusterTree
	SumOfPathsSums float64
	SumOfTreeSums  float64
}

// Run samples numHouses houses from m, builds the whole-sample shortest
// path tree from one random facility, then cuts the houses into
// numClusters clusters and builds a shortest-path tree per cluster rooted
// at its centroid.
func Run(m *citymap.Map, numHouses, numClusters int) Result {
	houses := m.SelectRandomHouses(numHouses)
	facility := m.SelectRandomFacilities(1)

	var wholeTree Tree
	if len(facility) > 0 {
		wholeTree = ShortestPathsTree(m, facility[0], houses)
	}

	dendrogram, clusterTrees := Clusters(m, houses, numClusters)

	var pathsSum, treeSum float64
	for _, ct := range clusterTrees {
		pathsSum += ct.Tree.ShortestPathsSum
		treeSum += ct.Tree.TreeWeightsSum
	}

	return Result{
		Houses:         houses,
		WholeTree:      wholeTree,
		Dendrogram:     dendrogram,
		ClusterTrees:   clusterTrees,
		SumOfPathsSums: pathsSum,
		SumOfTreeSums:  treeSum,
	}
}
