package graphstore

import (
	"testing"

	"github.com/0ximu/mu/internal/graph"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAddAndGetNode(t *testing.T) {
	s := openTestStore(t)

	n := graph.Node{
		ID:         "mod:a.py",
		Type:       graph.NodeModule,
		Name:       "a",
		Path:       "a.py",
		Language:   "python",
		Properties: map[string]any{"has_errors": false},
	}
	if err := s.AddNode(n); err != nil {
		t.Fatalf("add node: %v", err)
	}

	got, err := s.GetNode("mod:a.py")
	if err != nil {
		t.Fatalf("get node: %v", err)
	}
	if got == nil {
		t.Fatal("expected node, got nil")
	}
	if got.Name != "a" || got.Type != graph.NodeModule {
		t.Errorf("unexpected node: %+v", got)
	}
	if got.Properties["has_errors"] != false {
		t.Errorf("expected has_errors=false, got %v", got.Properties["has_errors"])
	}
}

func TestAddNodeUpsertReplacesInPlace(t *testing.T) {
	s := openTestStore(t)

	s.AddNode(graph.Node{ID: "fn:a.py:foo", Type: graph.NodeFunction, Name: "foo", Complexity: 1})
	s.AddNode(graph.Node{ID: "fn:a.py:foo", Type: graph.NodeFunction, Name: "foo", Complexity: 5})

	got, err := s.GetNode("fn:a.py:foo")
	if err != nil {
		t.Fatalf("get node: %v", err)
	}
	if got.Complexity != 5 {
		t.Errorf("expected complexity 5 after upsert, got %d", got.Complexity)
	}

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.NodeCount != 1 {
		t.Errorf("expected exactly one node row after upsert, got %d", stats.NodeCount)
	}
}

func TestRemoveNodeCascadesEdges(t *testing.T) {
	s := openTestStore(t)

	s.AddNode(graph.Node{ID: "mod:a.py", Type: graph.NodeModule, Name: "a", Path: "a.py"})
	s.AddNode(graph.Node{ID: "fn:a.py:foo", Type: graph.NodeFunction, Name: "foo", Path: "a.py"})
	s.AddEdge(graph.Edge{Source: "mod:a.py", Target: "fn:a.py:foo", Type: graph.EdgeContains})

	if err := s.RemoveNode("fn:a.py:foo"); err != nil {
		t.Fatalf("remove node: %v", err)
	}

	edges, err := s.GetEdgesFrom("mod:a.py", "")
	if err != nil {
		t.Fatalf("get edges: %v", err)
	}
	if len(edges) != 0 {
		t.Errorf("expected no dangling edges after node removal, got %d", len(edges))
	}
}

func TestRemoveNodesByPathCascades(t *testing.T) {
	s := openTestStore(t)

	s.AddNode(graph.Node{ID: "mod:a.py", Type: graph.NodeModule, Name: "a", Path: "a.py"})
	s.AddNode(graph.Node{ID: "fn:a.py:foo", Type: graph.NodeFunction, Name: "foo", Path: "a.py"})
	s.AddNode(graph.Node{ID: "mod:b.py", Type: graph.NodeModule, Name: "b", Path: "b.py"})
	s.AddEdge(graph.Edge{Source: "mod:a.py", Target: "fn:a.py:foo", Type: graph.EdgeContains})
	s.AddEdge(graph.Edge{Source: "mod:b.py", Target: "mod:a.py", Type: graph.EdgeImports})

	if err := s.RemoveNodesByPath("a.py"); err != nil {
		t.Fatalf("remove nodes by path: %v", err)
	}

	nodes, err := s.GetNodesByPath("a.py")
	if err != nil {
		t.Fatalf("get nodes by path: %v", err)
	}
	if len(nodes) != 0 {
		t.Errorf("expected no nodes left at a.py, got %d", len(nodes))
	}

	edges, err := s.GetEdgesFrom("mod:b.py", "")
	if err != nil {
		t.Fatalf("get edges: %v", err)
	}
	if len(edges) != 0 {
		t.Errorf("expected the IMPORTS edge into the deleted module to be gone, got %d", len(edges))
	}
}

func TestRebuildReplacesWholeGraph(t *testing.T) {
	s := openTestStore(t)

	s.AddNode(graph.Node{ID: "mod:old.py", Type: graph.NodeModule, Name: "old", Path: "old.py"})

	nodes := []graph.Node{
		{ID: "mod:a.py", Type: graph.NodeModule, Name: "a", Path: "a.py"},
	}
	edges := []graph.Edge{}
	if err := s.Rebuild(nodes, edges); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.NodeCount != 1 {
		t.Errorf("expected exactly one node after rebuild, got %d", stats.NodeCount)
	}
	got, err := s.GetNode("mod:old.py")
	if err != nil {
		t.Fatalf("get node: %v", err)
	}
	if got != nil {
		t.Error("expected old node to be gone after rebuild")
	}
}

func TestHasAuxTableDoesNotCreate(t *testing.T) {
	s := openTestStore(t)
	if s.HasAuxTable("patterns") {
		t.Error("expected patterns table to be absent before first write")
	}
}
