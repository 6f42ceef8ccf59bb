// Package ast holds the normalized, language-agnostic Module AST that
// the parser front-end produces and the graph builder consumes. A
// Module AST is owned by the parser call that produced it and is
// moved into the builder — it is never shared or mutated after
// construction, so these types carry no back-pointers to the graph.
package ast

import "github.com/0ximu/mu/internal/lang"

// Module is the normalized record for one parsed source file.
type Module struct {
	Name             string
	Path             string // workspace-relative, forward-slash
	Language         lang.Language
	ModuleDocstring  string
	Imports          []Import
	Classes          []Class
	Functions        []Function // top-level only
	TotalLines       int
	HasErrors        bool // true when the parse tree contained ERROR nodes
}

// Import is one import/use/using statement.
type Import struct {
	Module         string
	Names          []string
	Alias          string
	IsFrom         bool
	IsDynamic      bool
	DynamicPattern string
	DynamicSource  string
	LineNumber     int
}

// Class is a class/struct/interface/trait/enum declaration.
type Class struct {
	Name       string
	Bases      []string
	Decorators []string
	Docstring  string
	Methods    []Function
	Attributes []string
	StartLine  int
	EndLine    int
}

// Function is a function or method declaration.
type Function struct {
	Name           string
	Decorators     []string
	Parameters     []Parameter
	ReturnType     string
	IsAsync        bool
	IsStatic       bool
	IsClassMethod  bool
	IsProperty     bool
	IsMethod       bool
	Docstring      string
	BodyComplexity int
	BodySource     string
	CallSites      []CallSite
	StartLine      int
	EndLine        int
}

// Parameter is one function/method parameter.
type Parameter struct {
	Name           string
	TypeAnnotation string
	DefaultValue   string
	IsVariadic     bool
	IsKeyword      bool
}

// CallSite is one invocation recorded inside a function body.
type CallSite struct {
	Callee       string
	Line         int
	IsMethodCall bool
	Receiver     string
}
