package csvio

import (
	"strings"
	"testing"

	"github.com/azybler/graphs/internal/citymap"
	"github.com/azybler/graphs/internal/routegraph"
)

func TestImportBasicMatrix(t *testing.T) {
	const data = ",1,2,3\n1,,10,\n2,,,20\n3,,,\n"

	m, err := Import(strings.NewReader(data))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(m.Buildings()) != 0 {
		t.Errorf("Import materialized %d buildings, want 0", len(m.Buildings()))
	}

	nodes := m.Nodes()
	if d, ok := nodes[1][2]; !ok || d != 10 {
		t.Errorf("edge 1->2 = %v,%v want 10,true", d, ok)
	}
	if d, ok := nodes[2][3]; !ok || d != 20 {
		t.Errorf("edge 2->3 = %v,%v want 20,true", d, ok)
	}
	if _, ok := nodes[1][3]; ok {
		t.Errorf("edge 1->3 should be absent (empty cell)")
	}
}

func TestImportIgnoresNegativeCells(t *testing.T) {
	const data = ",1,2\n1,,-5\n2,,\n"

	m, err := Import(strings.NewReader(data))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if _, ok := m.Nodes()[1][2]; ok {
		t.Error("negative cell should not produce an edge")
	}
}

func TestExportRoundTripsThroughImport(t *testing.T) {
	g := routegraph.New()
	g.AddEdgeOneWay(1, 2, 10)
	g.AddEdgeOneWay(2, 3, 20)
	m := citymap.New(nil, g)

	var buf strings.Builder
	if err := Export(&buf, m); err != nil {
		t.Fatalf("Export: %v", err)
	}

	reimported, err := Import(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("Import of exported CSV: %v", err)
	}

	for from, out := range m.Nodes() {
		for to, d := range out {
			got, ok := reimported.Nodes()[from][to]
			if !ok || got != d {
				t.Errorf("edge %d->%d = %v,%v want %v,true", from, to, got, ok, d)
			}
		}
	}
}

func TestImportEmptyInput(t *testing.T) {
	m, err := Import(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(m.Nodes()) != 0 {
		t.Errorf("empty CSV produced %d nodes, want 0", len(m.Nodes()))
	}
}
