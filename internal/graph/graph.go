// Package graph defines the node and edge shapes shared by the graph
// builder, the graph store, and the graph algorithms package. A Node's
// ID is a stable string — never a database rowid — so it stays valid
// across rebuilds and across processes.
package graph

// NodeType is one of the four kinds of node the graph builder emits.
type NodeType string

const (
	NodeModule   NodeType = "module"
	NodeClass    NodeType = "class"
	NodeFunction NodeType = "function"
	NodeExternal NodeType = "external"
)

// EdgeType is one of the five kinds of edge the graph builder emits.
type EdgeType string

const (
	EdgeContains EdgeType = "CONTAINS"
	EdgeImports  EdgeType = "IMPORTS"
	EdgeInherits EdgeType = "INHERITS"
	EdgeCalls    EdgeType = "CALLS"
	EdgeUses     EdgeType = "USES"
)

// Node is one vertex in the code graph.
type Node struct {
	ID         string
	Type       NodeType
	Name       string
	Path       string // workspace-relative source path; empty for external nodes
	Language   string
	StartLine  int
	EndLine    int
	Complexity int // 0 for module/class/external nodes
	Properties map[string]any
}

// Edge is one directed relationship between two nodes, identified by
// their stable IDs.
type Edge struct {
	Source     string
	Target     string
	Type       EdgeType
	Properties map[string]any
}

// ModuleID returns the stable id of the module at workspace-relative path.
func ModuleID(path string) string {
	return "mod:" + path
}

// ClassID returns the stable id of a class declared at path.
func ClassID(path, name string) string {
	return "cls:" + path + ":" + name
}

// FunctionID returns the stable id of a function or method declared at
// path. qualifiedName is either the bare function name for top-level
// functions or "Class.method" for methods.
func FunctionID(path, qualifiedName string) string {
	return "fn:" + path + ":" + qualifiedName
}

// ExternalID returns the stable id of an external (unresolved) symbol.
func ExternalID(name string) string {
	return "ext:" + name
}
