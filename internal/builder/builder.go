// Package builder turns a set of parsed modules into a code graph: a
// flat list of nodes and edges with no database or filesystem access.
// Build is a pure function — call it again with the same modules and
// it produces the same graph.
package builder

import (
	"path"
	"sort"
	"strings"

	"github.com/0ximu/mu/internal/ast"
	"github.com/0ximu/mu/internal/graph"
	"github.com/0ximu/mu/internal/lang"
)

// Result is the output of one Build call.
type Result struct {
	Nodes []graph.Node
	Edges []graph.Edge
	// DroppedCalls counts call sites whose callee could not be resolved
	// to any function or class declared in the build and were therefore
	// dropped rather than turned into a CALLS edge.
	DroppedCalls int
}

// symbol is one entry in the cross-module registry used to resolve
// call sites and base-class references.
type symbol struct {
	id   string
	kind graph.NodeType
}

// Build derives a code graph from a set of parsed modules. Modules
// normally come from one workspace scan, but Build has no dependency
// on the scanner or on disk state beyond the Path/Name fields already
// present on each ast.Module.
func Build(modules []*ast.Module) Result {
	b := &builder{
		byName:      make(map[string][]symbol),
		byQualified: make(map[string]symbol),
		externals:   make(map[string]bool),
	}

	// Pass 1: emit module/class/function nodes and CONTAINS edges,
	// and register every declaration under its simple and qualified
	// names so pass 2 can resolve references against the whole set.
	for _, m := range modules {
		b.declareModule(m)
	}

	// Pass 2: imports, inheritance, calls, and type-use edges, now that
	// every module's declarations are visible.
	for _, m := range modules {
		b.linkModule(m)
	}

	sort.Slice(b.result.Nodes, func(i, j int) bool { return b.result.Nodes[i].ID < b.result.Nodes[j].ID })
	sort.Slice(b.result.Edges, func(i, j int) bool {
		a, c := b.result.Edges[i], b.result.Edges[j]
		if a.Source != c.Source {
			return a.Source < c.Source
		}
		if a.Target != c.Target {
			return a.Target < c.Target
		}
		return a.Type < c.Type
	})
	return b.result
}

type builder struct {
	result Result

	// byName maps a bare identifier to every declaration sharing that
	// name across the workspace — call and inheritance resolution walks
	// this list and prefers an unambiguous match.
	byName map[string][]symbol
	// byQualified maps "path:Class.method" and "path:name" to one entry,
	// used when a reference already carries a receiver or module path.
	byQualified map[string]symbol
	// externals dedups EXTERNAL node creation by import module name.
	externals map[string]bool
}

func (b *builder) addNode(n graph.Node) {
	b.result.Nodes = append(b.result.Nodes, n)
}

func (b *builder) addEdge(e graph.Edge) {
	b.result.Edges = append(b.result.Edges, e)
}

func (b *builder) register(name, qualified string, sym symbol) {
	b.byName[name] = append(b.byName[name], sym)
	b.byQualified[qualified] = sym
}

// declareModule emits the module node plus every class and function it
// contains, registering each for later resolution.
func (b *builder) declareModule(m *ast.Module) {
	modID := graph.ModuleID(m.Path)
	b.addNode(graph.Node{
		ID:       modID,
		Type:     graph.NodeModule,
		Name:     m.Name,
		Path:     m.Path,
		Language: string(m.Language),
		EndLine:  m.TotalLines,
		Properties: map[string]any{
			"has_errors": m.HasErrors,
			"docstring":  m.ModuleDocstring,
		},
	})

	for _, fn := range m.Functions {
		fnID := graph.FunctionID(m.Path, fn.Name)
		b.declareFunction(m, fnID, fn)
		b.addEdge(graph.Edge{Source: modID, Target: fnID, Type: graph.EdgeContains})
		b.register(fn.Name, m.Path+":"+fn.Name, symbol{id: fnID, kind: graph.NodeFunction})
	}

	for _, cls := range m.Classes {
		clsID := graph.ClassID(m.Path, cls.Name)
		b.addNode(graph.Node{
			ID:       clsID,
			Type:     graph.NodeClass,
			Name:     cls.Name,
			Path:     m.Path,
			Language: string(m.Language),
			StartLine: cls.StartLine,
			EndLine:   cls.EndLine,
			Properties: map[string]any{
				"docstring":  cls.Docstring,
				"decorators": cls.Decorators,
				"attributes": cls.Attributes,
			},
		})
		b.addEdge(graph.Edge{Source: modID, Target: clsID, Type: graph.EdgeContains})
		b.register(cls.Name, m.Path+":"+cls.Name, symbol{id: clsID, kind: graph.NodeClass})

		for _, method := range cls.Methods {
			qualified := cls.Name + "." + method.Name
			methodID := graph.FunctionID(m.Path, qualified)
			b.declareFunction(m, methodID, method)
			b.addEdge(graph.Edge{Source: clsID, Target: methodID, Type: graph.EdgeContains})
			b.register(method.Name, m.Path+":"+qualified, symbol{id: methodID, kind: graph.NodeFunction})
		}
	}
}

func (b *builder) declareFunction(m *ast.Module, id string, fn ast.Function) {
	complexity := fn.BodyComplexity
	if complexity < 1 {
		complexity = 1
	}
	b.addNode(graph.Node{
		ID:         id,
		Type:       graph.NodeFunction,
		Name:       fn.Name,
		Path:       m.Path,
		Language:   string(m.Language),
		StartLine:  fn.StartLine,
		EndLine:    fn.EndLine,
		Complexity: complexity,
		Properties: map[string]any{
			"docstring":       fn.Docstring,
			"decorators":      fn.Decorators,
			"is_async":        fn.IsAsync,
			"is_static":       fn.IsStatic,
			"is_class_method": fn.IsClassMethod,
			"is_property":     fn.IsProperty,
			"is_method":       fn.IsMethod,
			"return_type":     fn.ReturnType,
			"parameter_count": len(fn.Parameters),
		},
	})
}

// linkModule emits IMPORTS, INHERITS, CALLS, and USES edges for one
// module's declarations, resolving against the cross-module registry
// built in declareModule.
func (b *builder) linkModule(m *ast.Module) {
	modID := graph.ModuleID(m.Path)

	for _, imp := range m.Imports {
		if lang.IsStdlibImport(imp.Module, m.Language) {
			continue
		}
		target := b.resolveImportTarget(imp, m.Path, m.Language)
		b.addEdge(graph.Edge{
			Source: modID,
			Target: target,
			Type:   graph.EdgeImports,
			Properties: map[string]any{
				"alias":      imp.Alias,
				"is_from":    imp.IsFrom,
				"line":       imp.LineNumber,
				"names":      imp.Names,
				"is_dynamic": imp.IsDynamic,
			},
		})
	}

	for _, cls := range m.Classes {
		clsID := graph.ClassID(m.Path, cls.Name)
		for _, base := range cls.Bases {
			base = strings.TrimSpace(base)
			if base == "" || base == "object" {
				continue
			}
			target, ok := b.resolveName(base, m.Path, cls.Name)
			if !ok {
				target = b.externalNode(base)
			}
			b.addEdge(graph.Edge{Source: clsID, Target: target, Type: graph.EdgeInherits})
		}
		for _, method := range cls.Methods {
			b.linkFunction(m, graph.FunctionID(m.Path, cls.Name+"."+method.Name), method, cls.Name)
		}
	}

	for _, fn := range m.Functions {
		b.linkFunction(m, graph.FunctionID(m.Path, fn.Name), fn, "")
	}
}

// linkFunction emits CALLS edges for each call site in fn and a USES
// edge when its declared return type names a known class.
func (b *builder) linkFunction(m *ast.Module, fnID string, fn ast.Function, enclosingClass string) {
	for _, call := range fn.CallSites {
		callee := call.Callee
		if callee == "" || isSelfReceiver(call.Receiver) && callee == "__init__" {
			continue
		}
		target, ok := b.resolveCallee(call, m.Path, enclosingClass)
		if !ok {
			b.result.DroppedCalls++
			continue
		}
		b.addEdge(graph.Edge{
			Source: fnID,
			Target: target,
			Type:   graph.EdgeCalls,
			Properties: map[string]any{
				"line":           call.Line,
				"is_method_call": call.IsMethodCall,
			},
		})
	}

	if rt := baseTypeName(fn.ReturnType); rt != "" {
		if target, ok := b.resolveName(rt, m.Path, enclosingClass); ok {
			b.addEdge(graph.Edge{Source: fnID, Target: target, Type: graph.EdgeUses})
		}
	}
}

// resolveCallee resolves a call site to a node id. Resolution order:
// an exact "path:Class.method" match for method calls whose receiver
// is self/cls/this, an exact "path:name" match for plain calls, then
// resolveName across the workspace; ok is false (the call is dropped)
// when none of these finds a target.
func (b *builder) resolveCallee(call ast.CallSite, path, enclosingClass string) (string, bool) {
	if call.IsMethodCall && isSelfReceiver(call.Receiver) && enclosingClass != "" {
		if sym, ok := b.byQualified[path+":"+enclosingClass+"."+call.Callee]; ok {
			return sym.id, true
		}
	}
	if !call.IsMethodCall {
		if sym, ok := b.byQualified[path+":"+call.Callee]; ok {
			return sym.id, true
		}
	}
	return b.resolveName(call.Callee, path, enclosingClass)
}

// resolveName resolves a bare identifier against the workspace registry,
// preferring a declaration in the same file when the name is ambiguous.
func (b *builder) resolveName(name, path, _ string) (string, bool) {
	candidates := b.byName[name]
	switch len(candidates) {
	case 0:
		return "", false
	case 1:
		return candidates[0].id, true
	default:
		for _, c := range candidates {
			if strings.Contains(c.id, ":"+path+":") || strings.HasPrefix(c.id, "cls:"+path+":") || strings.HasPrefix(c.id, "fn:"+path+":") {
				return c.id, true
			}
		}
		return "", false
	}
}

// resolveImportTarget maps an import statement to a module node already
// declared in this build, falling back to an EXTERNAL node for anything
// outside the workspace (third-party packages, unresolved relative
// imports); stdlib imports are skipped by linkModule before this is
// called. fromPath is the workspace-relative path of the
// importing module and fromLang its language, needed to interpret a
// "." / ".." prefixed module name against the importing module's own
// package (spec.md §4.C step 4).
func (b *builder) resolveImportTarget(imp ast.Import, fromPath string, fromLang lang.Language) string {
	if target, ok := b.resolveRelativeImport(imp, fromPath, fromLang); ok {
		return target
	}

	modPath := strings.ReplaceAll(imp.Module, ".", "/")
	if n := b.moduleNodeByID(graph.ModuleID(modPath)); n != nil {
		return n.ID
	}
	if n := b.moduleNodeByStrippedPath(modPath); n != nil {
		return n.ID
	}
	return b.externalNode(imp.Module)
}

// resolveRelativeImport handles the two dot-prefixed relative-import
// shapes the source languages use: path-style ("./x", "../x/y", as in
// TS/JS/Go-style relative specifiers) and dot-count style (".", "..x",
// "...x.y", as in Python's "from . import x" / "from ..pkg import y").
// Both are resolved against the directory containing fromPath, walking
// up one parent per extra leading dot beyond the first. ok is false
// when imp.Module carries no relative prefix at all.
func (b *builder) resolveRelativeImport(imp ast.Import, fromPath string, fromLang lang.Language) (string, bool) {
	module := imp.Module
	dir := path.Dir(fromPath)

	switch {
	case strings.HasPrefix(module, "./") || strings.HasPrefix(module, "../"):
		joined := path.Clean(path.Join(dir, module))
		return b.resolveModulePathOrSiblingNames(joined, imp.Names, fromLang), true

	case strings.HasPrefix(module, "."):
		level := 0
		for level < len(module) && module[level] == '.' {
			level++
		}
		rest := module[level:]
		base := dir
		for i := 1; i < level; i++ {
			base = path.Dir(base)
		}
		if rest == "" {
			return b.resolveModulePathOrSiblingNames(base, imp.Names, fromLang), true
		}
		joined := path.Clean(path.Join(base, strings.ReplaceAll(rest, ".", "/")))
		return b.resolveModulePathOrSiblingNames(joined, imp.Names, fromLang), true

	default:
		return "", false
	}
}

// resolveModulePathOrSiblingNames resolves a relative import once its
// dots have been turned into a workspace directory: first against a
// declared module file living directly at that path (module-as-file,
// or module-as-package-index via fromLang's PackageIndicators), then —
// when the import instead named its targets via "from . import foo,
// bar" — against a sibling module file named after one of the imported
// names. Falling through both, it mints an EXTERNAL node named after
// the resolved relative path rather than the raw "."/".." text, so the
// fallback node stays meaningful instead of becoming an opaque "ext:.".
func (b *builder) resolveModulePathOrSiblingNames(dirOrPath string, names []string, fromLang lang.Language) string {
	if n := b.moduleNodeByStrippedPath(dirOrPath); n != nil {
		return n.ID
	}
	if spec := lang.ForLanguage(fromLang); spec != nil {
		for _, indicator := range spec.PackageIndicators {
			if n := b.moduleNodeByID(graph.ModuleID(path.Join(dirOrPath, indicator))); n != nil {
				return n.ID
			}
		}
	}
	for _, name := range names {
		if n := b.moduleNodeByStrippedPath(path.Join(dirOrPath, name)); n != nil {
			return n.ID
		}
	}
	return b.externalNode("./" + dirOrPath)
}

// moduleNodeByID returns the already-declared module node with this
// exact id, or nil.
func (b *builder) moduleNodeByID(id string) *graph.Node {
	for i := range b.result.Nodes {
		if b.result.Nodes[i].Type == graph.NodeModule && b.result.Nodes[i].ID == id {
			return &b.result.Nodes[i]
		}
	}
	return nil
}

// moduleNodeByStrippedPath returns a declared module node whose path,
// with its source-language extension stripped, equals want.
func (b *builder) moduleNodeByStrippedPath(want string) *graph.Node {
	want = path.Clean(want)
	for i := range b.result.Nodes {
		n := &b.result.Nodes[i]
		if n.Type != graph.NodeModule {
			continue
		}
		if stripKnownExt(n.Path) == want {
			return n
		}
	}
	return nil
}

// stripKnownExt removes a recognized source-language file extension
// from p, leaving it unchanged if its extension is not registered.
func stripKnownExt(p string) string {
	ext := path.Ext(p)
	if ext == "" {
		return p
	}
	if _, ok := lang.LanguageForExtension(ext); !ok {
		return p
	}
	return strings.TrimSuffix(p, ext)
}

func (b *builder) externalNode(name string) string {
	id := graph.ExternalID(name)
	if !b.externals[name] {
		b.externals[name] = true
		b.addNode(graph.Node{ID: id, Type: graph.NodeExternal, Name: name})
	}
	return id
}

func isSelfReceiver(receiver string) bool {
	switch receiver {
	case "self", "cls", "this":
		return true
	default:
		return false
	}
}

// baseTypeName strips generic/optional/pointer decoration from a return
// type annotation so "Optional[Foo]", "*Foo", "Foo | None" all resolve
// against the bare type name "Foo".
func baseTypeName(t string) string {
	t = strings.TrimSpace(t)
	t = strings.TrimPrefix(t, "*")
	t = strings.TrimPrefix(t, "->")
	t = strings.TrimSpace(t)
	if t == "" {
		return ""
	}
	for _, sep := range []string{"[", "<", "|", " "} {
		if i := strings.Index(t, sep); i >= 0 {
			t = t[:i]
		}
	}
	switch t {
	case "void", "None", "none", "unit", "()":
		return ""
	}
	return t
}
