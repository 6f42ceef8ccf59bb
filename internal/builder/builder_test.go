package builder

import (
	"testing"

	"github.com/0ximu/mu/internal/ast"
	"github.com/0ximu/mu/internal/graph"
	"github.com/0ximu/mu/internal/lang"
)

func findEdge(edges []graph.Edge, source, target string, typ graph.EdgeType) bool {
	for _, e := range edges {
		if e.Source == source && e.Target == target && e.Type == typ {
			return true
		}
	}
	return false
}

func findNode(nodes []graph.Node, id string) *graph.Node {
	for i := range nodes {
		if nodes[i].ID == id {
			return &nodes[i]
		}
	}
	return nil
}

// TestBuildImportInheritContains mirrors spec scenario S3: A.py imports
// B, declares class X; B.py declares class Y(X).
func TestBuildImportInheritContains(t *testing.T) {
	a := &ast.Module{
		Name:     "A",
		Path:     "A.py",
		Language: lang.Python,
		Imports:  []ast.Import{{Module: "B", IsFrom: false, LineNumber: 1}},
		Classes:  []ast.Class{{Name: "X", StartLine: 2, EndLine: 3}},
	}
	b := &ast.Module{
		Name:     "B",
		Path:     "B.py",
		Language: lang.Python,
		Classes:  []ast.Class{{Name: "Y", Bases: []string{"X"}, StartLine: 1, EndLine: 2}},
	}

	result := Build([]*ast.Module{a, b})

	wantNodes := []string{"mod:A.py", "mod:B.py", "cls:A.py:X", "cls:B.py:Y"}
	for _, id := range wantNodes {
		if findNode(result.Nodes, id) == nil {
			t.Errorf("expected node %q, got nodes %+v", id, result.Nodes)
		}
	}

	if !findEdge(result.Edges, "mod:A.py", "mod:B.py", graph.EdgeImports) {
		t.Error("expected mod:A.py --IMPORTS--> mod:B.py")
	}
	if !findEdge(result.Edges, "cls:B.py:Y", "cls:A.py:X", graph.EdgeInherits) {
		t.Error("expected cls:B.py:Y --INHERITS--> cls:A.py:X")
	}
	if !findEdge(result.Edges, "mod:A.py", "cls:A.py:X", graph.EdgeContains) {
		t.Error("expected mod:A.py --CONTAINS--> cls:A.py:X")
	}
	if !findEdge(result.Edges, "mod:B.py", "cls:B.py:Y", graph.EdgeContains) {
		t.Error("expected mod:B.py --CONTAINS--> cls:B.py:Y")
	}
}

func TestBuildDistinctIDsAndPaths(t *testing.T) {
	m := &ast.Module{
		Name:     "pkg",
		Path:     "pkg/mod.py",
		Language: lang.Python,
		Functions: []ast.Function{
			{Name: "foo", StartLine: 1, EndLine: 2},
			{Name: "bar", StartLine: 3, EndLine: 4},
		},
	}
	result := Build([]*ast.Module{m})

	seen := map[string]bool{}
	for _, n := range result.Nodes {
		if seen[n.ID] {
			t.Errorf("duplicate node id %q", n.ID)
		}
		seen[n.ID] = true
		if n.Type != graph.NodeExternal && n.Path != "pkg/mod.py" {
			t.Errorf("node %q has path %q, want pkg/mod.py", n.ID, n.Path)
		}
	}
}

// TestBuildStdlibImportSuppressed verifies P7: a stdlib import never
// produces an EXTERNAL node or IMPORTS edge.
func TestBuildStdlibImportSuppressed(t *testing.T) {
	m := &ast.Module{
		Name:     "a",
		Path:     "a.py",
		Language: lang.Python,
		Imports: []ast.Import{
			{Module: "os", LineNumber: 1},
			{Module: "requests", LineNumber: 2},
		},
	}
	result := Build([]*ast.Module{m})

	if findNode(result.Nodes, "ext:os") != nil {
		t.Error("expected no EXTERNAL node for stdlib import os")
	}
	if findEdge(result.Edges, "mod:a.py", "ext:os", graph.EdgeImports) {
		t.Error("expected no IMPORTS edge for stdlib import os")
	}
	if findNode(result.Nodes, "ext:requests") == nil {
		t.Error("expected an EXTERNAL node for the unresolved third-party import requests")
	}
	if !findEdge(result.Edges, "mod:a.py", "ext:requests", graph.EdgeImports) {
		t.Error("expected an IMPORTS edge to ext:requests")
	}
}

func TestBuildFunctionComplexityFloor(t *testing.T) {
	m := &ast.Module{
		Name:     "a",
		Path:     "a.py",
		Language: lang.Python,
		Functions: []ast.Function{
			{Name: "trivial", BodyComplexity: 0, StartLine: 1, EndLine: 2},
		},
	}
	result := Build([]*ast.Module{m})
	n := findNode(result.Nodes, "fn:a.py:trivial")
	if n == nil {
		t.Fatal("expected fn:a.py:trivial node")
	}
	if n.Complexity != 1 {
		t.Errorf("expected complexity floor of 1, got %d", n.Complexity)
	}
}

func TestBuildCallResolutionDropsUnresolved(t *testing.T) {
	m := &ast.Module{
		Name:     "a",
		Path:     "a.py",
		Language: lang.Python,
		Functions: []ast.Function{
			{
				Name:      "caller",
				StartLine: 1,
				EndLine:   3,
				CallSites: []ast.CallSite{
					{Callee: "unknown_fn", Line: 2},
				},
			},
		},
	}
	result := Build([]*ast.Module{m})
	if result.DroppedCalls != 1 {
		t.Errorf("expected 1 dropped call, got %d", result.DroppedCalls)
	}
	if findNode(result.Nodes, "ext:unknown_fn") != nil {
		t.Error("unresolved calls must not materialize as EXTERNAL nodes")
	}
}

// TestBuildRelativeImportDotCount covers spec.md §4.C step 4's
// dot-count relative-import shape: "from . import foo" in a module
// nested under a package must resolve to the sibling package-index
// module (pkg/__init__.py), not an EXTERNAL node named "ext:.".
func TestBuildRelativeImportDotCount(t *testing.T) {
	sub := &ast.Module{
		Name:     "sub",
		Path:     "pkg/sub.py",
		Language: lang.Python,
		Imports:  []ast.Import{{Module: ".", IsFrom: true, Names: []string{"foo"}, LineNumber: 1}},
	}
	init := &ast.Module{
		Name:     "pkg",
		Path:     "pkg/__init__.py",
		Language: lang.Python,
	}

	result := Build([]*ast.Module{sub, init})

	if !findEdge(result.Edges, "mod:pkg/sub.py", "mod:pkg/__init__.py", graph.EdgeImports) {
		t.Error("expected mod:pkg/sub.py --IMPORTS--> mod:pkg/__init__.py")
	}
	if findNode(result.Nodes, "ext:.") != nil {
		t.Error("a resolved relative import must not fall back to the bogus ext:. node")
	}
}

// TestBuildRelativeImportSiblingName covers "from . import foo" when
// no package index exists but a sibling module named after the
// imported name does — pkg/foo.py rather than pkg/__init__.py.
func TestBuildRelativeImportSiblingName(t *testing.T) {
	sub := &ast.Module{
		Name:     "sub",
		Path:     "pkg/sub.py",
		Language: lang.Python,
		Imports:  []ast.Import{{Module: ".", IsFrom: true, Names: []string{"foo"}, LineNumber: 1}},
	}
	foo := &ast.Module{
		Name:     "foo",
		Path:     "pkg/foo.py",
		Language: lang.Python,
	}

	result := Build([]*ast.Module{sub, foo})

	if !findEdge(result.Edges, "mod:pkg/sub.py", "mod:pkg/foo.py", graph.EdgeImports) {
		t.Error("expected mod:pkg/sub.py --IMPORTS--> mod:pkg/foo.py")
	}
}

// TestBuildRelativeImportPathStyle covers the path-style relative
// shape ("./x", "../x/y") used by JS/TS-family imports, including
// walking up a parent directory.
func TestBuildRelativeImportPathStyle(t *testing.T) {
	consumer := &ast.Module{
		Name:     "consumer",
		Path:     "src/feature/consumer.js",
		Language: lang.JavaScript,
		Imports:  []ast.Import{{Module: "../util", IsFrom: true, Names: []string{"helper"}, LineNumber: 1}},
	}
	util := &ast.Module{
		Name:     "util",
		Path:     "src/util.js",
		Language: lang.JavaScript,
	}

	result := Build([]*ast.Module{consumer, util})

	if !findEdge(result.Edges, "mod:src/feature/consumer.js", "mod:src/util.js", graph.EdgeImports) {
		t.Error("expected mod:src/feature/consumer.js --IMPORTS--> mod:src/util.js")
	}
}

// TestBuildRelativeImportUnresolvedFallsBackToPathNamedExternal
// verifies that when a relative import cannot be resolved against any
// declared module, the EXTERNAL fallback node is named from the
// resolved relative path rather than the raw dotted/path text.
func TestBuildRelativeImportUnresolvedFallsBackToPathNamedExternal(t *testing.T) {
	m := &ast.Module{
		Name:     "sub",
		Path:     "pkg/sub.py",
		Language: lang.Python,
		Imports:  []ast.Import{{Module: ".", IsFrom: true, Names: []string{"missing"}, LineNumber: 1}},
	}

	result := Build([]*ast.Module{m})

	if findNode(result.Nodes, "ext:.") != nil {
		t.Error("unresolved relative import must not fall back to bogus ext:.")
	}
	if findNode(result.Nodes, "ext:./pkg") == nil {
		t.Errorf("expected a path-named EXTERNAL node for the unresolved relative import, got nodes %+v", result.Nodes)
	}
}

func TestBuildDeterministic(t *testing.T) {
	m := &ast.Module{
		Name:     "a",
		Path:     "a.py",
		Language: lang.Python,
		Classes:  []ast.Class{{Name: "X", StartLine: 1, EndLine: 5}},
		Functions: []ast.Function{
			{Name: "foo", StartLine: 6, EndLine: 7},
		},
	}
	first := Build([]*ast.Module{m})
	second := Build([]*ast.Module{m})

	if len(first.Nodes) != len(second.Nodes) || len(first.Edges) != len(second.Edges) {
		t.Fatal("expected identical node/edge counts across repeated builds")
	}
	for i := range first.Nodes {
		if first.Nodes[i].ID != second.Nodes[i].ID {
			t.Errorf("node order/id mismatch at %d: %q vs %q", i, first.Nodes[i].ID, second.Nodes[i].ID)
		}
	}
}
