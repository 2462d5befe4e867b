// Package csvio implements the alternate adjacency-matrix ingress/egress
// format: first row and first column are node identifiers, cell (i,j) is
// the directed distance from row i to column j, and empty or negative
// cells mean no edge. Grounded on spec.md §6's CSV format description and
// original_source/src/main.cpp's import_map_from_csv/export_map_to_csv
// call sites (their bodies were not present in the retrieved corpus).
// Materializes no Buildings, per spec.md §9's Open Question: a
// CSV-imported Map answers Dijkstra queries but not building-level ones.
package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/azybler/graphs/internal/citymap"
	"github.com/azybler/graphs/internal/model"
	"github.com/azybler/graphs/internal/routegraph"
)

// Import reads an adjacency-matrix CSV from r and returns a Map with an
// empty building list and a graph populated from the non-empty,
// non-negative cells.
func Import(r io.Reader) (*citymap.Map, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csvio: import: %w", err)
	}
	if len(rows) == 0 {
		return citymap.New(nil, routegraph.New()), nil
	}

	header := rows[0]
	ids := make([]model.NodeID, len(header)-1)
	for i, cell := range header[1:] {
		id, err := parseNodeID(cell)
		if err != nil {
			return nil, fmt.Errorf("csvio: import: column header %q: %w", cell, err)
		}
		ids[i] = id
	}

	g := routegraph.New()
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		from, err := parseNodeID(row[0])
		if err != nil {
			return nil, fmt.Errorf("csvio: import: row header %q: %w", row[0], err)
		}

		for i, cell := range row[1:] {
			if i >= len(ids) {
				break
			}
			d, ok := parseDistance(cell)
			if !ok {
				continue
			}
			g.AddEdgeOneWay(from, ids[i], d)
		}
	}

	return citymap.New(nil, g), nil
}

func parseNodeID(s string) (model.NodeID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return model.NodeID(v), nil
}

// parseDistance parses a cell as a distance; empty or negative cells mean
// "no edge" and are reported via ok=false.
func parseDistance(s string) (d float64, ok bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// Export writes m's graph as an adjacency-matrix CSV to w. Node ids are
// sorted ascending for a deterministic header and row order. Missing
// edges are written as empty cells.
func Export(w io.Writer, m *citymap.Map) error {
	nodes := m.Nodes()

	ids := make([]model.NodeID, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	sortNodeIDs(ids)

	writer := csv.NewWriter(w)

	header := make([]string, len(ids)+1)
	header[0] = ""
	for i, id := range ids {
		header[i+1] = strconv.FormatUint(uint64(id), 10)
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("csvio: export: %w", err)
	}

	for _, from := range ids {
		row := make([]string, len(ids)+1)
		row[0] = strconv.FormatUint(uint64(from), 10)
		for i, to := range ids {
			if d, ok := nodes[from][to]; ok {
				row[i+1] = strconv.FormatFloat(d, 'f', -1, 64)
			}
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("csvio: export: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("csvio: export: %w", err)
	}
	return nil
}

func sortNodeIDs(ids []model.NodeID) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}
