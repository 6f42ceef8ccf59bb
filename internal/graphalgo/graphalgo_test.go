package graphalgo

import (
	"reflect"
	"sort"
	"testing"

	"github.com/0ximu/mu/internal/graph"
)

func node(id string) graph.Node {
	return graph.Node{ID: id, Type: graph.NodeFunction, Name: id}
}

func edge(from, to string, t graph.EdgeType) graph.Edge {
	return graph.Edge{Source: from, Target: to, Type: t}
}

func TestImpactExcludesStartAndFiltersByType(t *testing.T) {
	nodes := []graph.Node{node("a"), node("b"), node("c"), node("d")}
	edges := []graph.Edge{
		edge("a", "b", graph.EdgeCalls),
		edge("b", "c", graph.EdgeCalls),
		edge("a", "d", graph.EdgeImports),
	}
	snap := build(nodes, edges)

	got, err := snap.Impact("a", graph.EdgeCalls)
	if err != nil {
		t.Fatalf("Impact: %v", err)
	}
	sort.Strings(got)
	want := []string{"b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Impact(a, CALLS) = %v, want %v", got, want)
	}
}

func TestImpactUnknownNode(t *testing.T) {
	snap := build(nil, nil)
	if _, err := snap.Impact("missing"); err == nil {
		t.Fatal("expected NotFoundError for unknown node")
	}
}

func TestAncestorsReverses(t *testing.T) {
	nodes := []graph.Node{node("a"), node("b"), node("c")}
	edges := []graph.Edge{
		edge("a", "b", graph.EdgeCalls),
		edge("b", "c", graph.EdgeCalls),
	}
	snap := build(nodes, edges)

	got, err := snap.Ancestors("c")
	if err != nil {
		t.Fatalf("Ancestors: %v", err)
	}
	sort.Strings(got)
	want := []string{"a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Ancestors(c) = %v, want %v", got, want)
	}
}

func TestShortestPathPrefersFewestHops(t *testing.T) {
	nodes := []graph.Node{node("a"), node("b"), node("c"), node("d")}
	edges := []graph.Edge{
		edge("a", "b", graph.EdgeCalls),
		edge("b", "d", graph.EdgeCalls),
		edge("a", "c", graph.EdgeCalls),
		edge("c", "d", graph.EdgeCalls),
	}
	snap := build(nodes, edges)

	path, err := snap.ShortestPath("a", "d", 5)
	if err != nil {
		t.Fatalf("ShortestPath: %v", err)
	}
	want := []string{"a", "b", "d"}
	if !reflect.DeepEqual(path, want) {
		t.Fatalf("ShortestPath(a, d) = %v, want %v", path, want)
	}
}

func TestShortestPathRespectsDepthCap(t *testing.T) {
	nodes := []graph.Node{node("a"), node("b"), node("c")}
	edges := []graph.Edge{
		edge("a", "b", graph.EdgeCalls),
		edge("b", "c", graph.EdgeCalls),
	}
	snap := build(nodes, edges)

	path, err := snap.ShortestPath("a", "c", 1)
	if err != nil {
		t.Fatalf("ShortestPath: %v", err)
	}
	if path != nil {
		t.Fatalf("ShortestPath with depth cap 1 should find no path, got %v", path)
	}
}

func TestShortestPathSameNode(t *testing.T) {
	snap := build([]graph.Node{node("a")}, nil)
	path, err := snap.ShortestPath("a", "a", 5)
	if err != nil {
		t.Fatalf("ShortestPath: %v", err)
	}
	if !reflect.DeepEqual(path, []string{"a"}) {
		t.Fatalf("ShortestPath(a, a) = %v, want [a]", path)
	}
}

func TestFindCyclesDetectsLoop(t *testing.T) {
	nodes := []graph.Node{node("a"), node("b"), node("c"), node("d")}
	edges := []graph.Edge{
		edge("a", "b", graph.EdgeCalls),
		edge("b", "c", graph.EdgeCalls),
		edge("c", "a", graph.EdgeCalls),
		edge("a", "d", graph.EdgeCalls),
	}
	snap := build(nodes, edges)

	cycles := snap.FindCycles(graph.EdgeCalls)
	if len(cycles) != 1 {
		t.Fatalf("FindCycles = %v, want exactly one cycle", cycles)
	}
	got := append([]string(nil), cycles[0]...)
	sort.Strings(got)
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("cycle members = %v, want %v", got, want)
	}
}

func TestFindCyclesIgnoresAcyclicGraph(t *testing.T) {
	nodes := []graph.Node{node("a"), node("b")}
	edges := []graph.Edge{edge("a", "b", graph.EdgeCalls)}
	snap := build(nodes, edges)

	if cycles := snap.FindCycles(); len(cycles) != 0 {
		t.Fatalf("FindCycles on acyclic graph = %v, want none", cycles)
	}
}

func TestFindCyclesSelfLoop(t *testing.T) {
	nodes := []graph.Node{node("a")}
	edges := []graph.Edge{edge("a", "a", graph.EdgeCalls)}
	snap := build(nodes, edges)

	cycles := snap.FindCycles()
	if len(cycles) != 1 || !reflect.DeepEqual(cycles[0], []string{"a"}) {
		t.Fatalf("FindCycles self-loop = %v, want [[a]]", cycles)
	}
}
