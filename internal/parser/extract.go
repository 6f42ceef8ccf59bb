package parser

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/0ximu/mu/internal/ast"
	"github.com/0ximu/mu/internal/lang"
)

// ParsedFile is the result of parsing one source file.
type ParsedFile struct {
	Module *ast.Module
	Error  error
}

// ParseFile converts source bytes into a normalized Module AST.
// displayPath is used only for identification in the output; language
// is an explicit tag (aliases such as "py"/"ts"/"rs" are accepted).
// Invalid UTF-8 sequences in source are replaced, not rejected.
// Filesystem errors belong in ParsedFile.Error; a parse-tree error
// never fails the call — the caller inspects Module.HasErrors.
func ParseFile(source []byte, displayPath string, language string) ParsedFile {
	canonical, ok := lang.Canonical(language)
	if !ok {
		return ParsedFile{Error: &UnsupportedLanguageError{Language: language}}
	}

	clean := toValidUTF8(source)

	tree, err := parseTree(canonical, clean)
	if err != nil {
		return ParsedFile{Error: err}
	}
	defer tree.Close()

	spec := lang.ForLanguage(canonical)
	root := tree.RootNode()

	mod := &ast.Module{
		Name:       stemName(displayPath),
		Path:       displayPath,
		Language:   canonical,
		TotalLines: countLines(clean),
		HasErrors:  hasErrorNode(root),
	}

	e := &extractor{source: clean, spec: spec}
	e.collectTopLevel(root, mod)

	return ParsedFile{Module: mod}
}

// extractor holds the state shared across one module's extraction pass.
type extractor struct {
	source []byte
	spec   *lang.Spec
}

// collectTopLevel recursively descends from node, recording imports,
// classes, and top-level functions directly into mod. A node whose
// kind matches a class or function is extracted and NOT recursed into
// further at this level (its body is handled by extractClass /
// extractFunction); any other node (namespaces, export wrappers,
// decorated-definition wrappers, ...) is transparently descended into
// so declarations nested under language-specific wrapper nodes are
// still found.
func (e *extractor) collectTopLevel(node *tree_sitter.Node, mod *ast.Module) {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}
		kind := child.Kind()

		if decorated, inner := e.unwrapDecorated(child); inner != nil {
			child = inner
			kind = child.Kind()
			_ = decorated
		}

		switch {
		case contains(e.spec.ClassNodeTypes, kind):
			mod.Classes = append(mod.Classes, e.extractClass(child))
		case contains(e.spec.FunctionNodeTypes, kind):
			mod.Functions = append(mod.Functions, e.extractFunction(child, false))
		case contains(e.spec.ImportNodeTypes, kind) || contains(e.spec.ImportFromTypes, kind):
			mod.Imports = append(mod.Imports, e.extractImports(child)...)
		case kind == "expression_statement" && mod.ModuleDocstring == "" && i == 0:
			if doc := stringLiteralValue(child, e.source); doc != "" {
				mod.ModuleDocstring = doc
			}
		default:
			e.collectTopLevel(child, mod)
		}
	}
}

// unwrapDecorated handles wrapper nodes (Python's decorated_definition)
// whose last named child is the actual class/function definition and
// whose preceding named children are decorator nodes.
func (e *extractor) unwrapDecorated(node *tree_sitter.Node) ([]string, *tree_sitter.Node) {
	if node.Kind() != "decorated_definition" {
		return nil, nil
	}
	n := node.NamedChildCount()
	if n == 0 {
		return nil, nil
	}
	var decorators []string
	var inner *tree_sitter.Node
	for i := uint(0); i < n; i++ {
		c := node.NamedChild(i)
		if c == nil {
			continue
		}
		if contains(e.spec.DecoratorNodeTypes, c.Kind()) {
			decorators = append(decorators, NodeText(c, e.source))
			continue
		}
		inner = c
	}
	return decorators, inner
}

// leadingDecorators collects decorator/annotation/attribute nodes that
// are previous siblings of node within the same parent.
func (e *extractor) leadingDecorators(node *tree_sitter.Node) []string {
	parent := node.Parent()
	if parent == nil {
		return nil
	}
	var decorators []string
	for i := uint(0); i < parent.NamedChildCount(); i++ {
		c := parent.NamedChild(i)
		if c == nil {
			continue
		}
		if c.StartByte() == node.StartByte() && c.EndByte() == node.EndByte() {
			break
		}
		if contains(e.spec.DecoratorNodeTypes, c.Kind()) {
			decorators = append(decorators, NodeText(c, e.source))
		} else {
			decorators = nil // decorators must be contiguous immediately before
		}
	}
	return decorators
}

// extractClass builds a Class from a class/struct/interface/trait node.
func (e *extractor) extractClass(node *tree_sitter.Node) ast.Class {
	cls := ast.Class{
		Name:       declName(node, e.source),
		Bases:      e.extractBases(node),
		Decorators: e.leadingDecorators(node),
		StartLine:  int(node.StartPosition().Row) + 1,
		EndLine:    int(node.EndPosition().Row) + 1,
	}

	body := fieldOrSelf(node, "body")
	if body != nil {
		e.collectClassMembers(body, &cls)
		if doc := leadingDocstring(body, e.source); doc != "" {
			cls.Docstring = doc
		}
	}
	return cls
}

// collectClassMembers walks a class body collecting methods and
// attribute names, descending through wrapper nodes the same way
// collectTopLevel does for modules.
func (e *extractor) collectClassMembers(node *tree_sitter.Node, cls *ast.Class) {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}
		kind := child.Kind()

		if _, inner := e.unwrapDecorated(child); inner != nil {
			child = inner
			kind = child.Kind()
		}

		switch {
		case contains(e.spec.FunctionNodeTypes, kind):
			cls.Methods = append(cls.Methods, e.extractFunction(child, true))
		case contains(e.spec.FieldNodeTypes, kind):
			if name := fieldAttributeName(child, e.source); name != "" {
				cls.Attributes = append(cls.Attributes, name)
			}
		case contains(e.spec.ClassNodeTypes, kind):
			// nested type: skip recursing into its own body to avoid
			// attributing its members to the enclosing class.
		default:
			e.collectClassMembers(child, cls)
		}
	}
}

// extractFunction builds a Function from a function/method node.
func (e *extractor) extractFunction(node *tree_sitter.Node, isMethod bool) ast.Function {
	fn := ast.Function{
		Name:       declName(node, e.source),
		Decorators: e.leadingDecorators(node),
		Parameters: e.extractParameters(node),
		ReturnType: e.extractReturnType(node),
		IsMethod:   isMethod,
		StartLine:  int(node.StartPosition().Row) + 1,
		EndLine:    int(node.EndPosition().Row) + 1,
	}

	text := NodeText(node, e.source)
	fn.IsAsync = strings.Contains(firstLine(text), "async")
	for _, d := range fn.Decorators {
		switch {
		case strings.Contains(d, "staticmethod") || strings.Contains(d, "static"):
			fn.IsStatic = true
		case strings.Contains(d, "classmethod"):
			fn.IsClassMethod = true
		case strings.Contains(d, "property"):
			fn.IsProperty = true
		}
	}

	body := fieldOrSelf(node, "body")
	if body == nil {
		body = node
	}
	fn.BodyComplexity = e.countComplexity(body)
	fn.BodySource = text
	fn.CallSites = e.extractCallSites(body)
	if doc := leadingDocstring(body, e.source); doc != "" {
		fn.Docstring = doc
	}
	return fn
}

// countComplexity computes cyclomatic complexity (base 1) by counting
// DecisionNodeTypes nodes and short-circuit boolean operators among
// DecisionOperatorTypes nodes, walking the whole body subtree.
func (e *extractor) countComplexity(body *tree_sitter.Node) int {
	count := 1
	Walk(body, func(n *tree_sitter.Node) bool {
		kind := n.Kind()
		if contains(e.spec.DecisionNodeTypes, kind) {
			count++
		}
		if contains(e.spec.DecisionOperatorTypes, kind) {
			op := fieldOrSelf(n, "operator")
			opText := ""
			if op != nil && op.StartByte() != n.StartByte() {
				opText = NodeText(op, e.source)
			}
			if opText == "" {
				opText = operatorTextFallback(n, e.source)
			}
			for _, want := range e.spec.DecisionOperatorTexts {
				if opText == want {
					count++
					break
				}
			}
		}
		return true
	})
	return count
}

// operatorTextFallback scans direct children of a binary-expression-like
// node for a bare operator token matching a known decision operator text.
func operatorTextFallback(n *tree_sitter.Node, source []byte) string {
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c == nil || c.NamedChildCount() > 0 {
			continue
		}
		t := NodeText(c, source)
		switch t {
		case "&&", "||", "??", "and", "or":
			return t
		}
	}
	return ""
}

// extractCallSites records every invocation inside body, preserving
// receiver text verbatim for self/cls/this-qualified calls.
func (e *extractor) extractCallSites(body *tree_sitter.Node) []ast.CallSite {
	var sites []ast.CallSite
	Walk(body, func(n *tree_sitter.Node) bool {
		if !contains(e.spec.CallNodeTypes, n.Kind()) {
			return true
		}
		callee, receiver, isMethodCall := e.calleeOf(n)
		if callee == "" {
			return true
		}
		sites = append(sites, ast.CallSite{
			Callee:       callee,
			Line:         int(n.StartPosition().Row) + 1,
			IsMethodCall: isMethodCall,
			Receiver:     receiver,
		})
		return true
	})
	return sites
}

// calleeOf extracts the callee name, receiver (verbatim self/cls/this
// when present), and whether this is a method call, from a call-node.
func (e *extractor) calleeOf(n *tree_sitter.Node) (callee, receiver string, isMethodCall bool) {
	fn := fieldOrSelf(n, "function")
	if fn == nil {
		fn = fieldOrSelf(n, "name")
	}
	if fn == nil {
		// fall back to first named child (e.g. Rust macro_invocation "macro")
		if n.NamedChildCount() == 0 {
			return "", "", false
		}
		fn = n.NamedChild(0)
	}

	switch fn.Kind() {
	case "member_expression", "field_expression", "selector_expression", "attribute":
		obj := fieldOrSelf(fn, "object")
		if obj == nil {
			obj = fieldOrSelf(fn, "value")
		}
		prop := fieldOrSelf(fn, "property")
		if prop == nil {
			prop = fieldOrSelf(fn, "field")
		}
		if prop == nil {
			prop = fieldOrSelf(fn, "attribute")
		}
		if prop != nil {
			callee = NodeText(prop, e.source)
		}
		if obj != nil {
			receiver = NodeText(obj, e.source)
		}
		return callee, receiver, true
	default:
		return NodeText(fn, e.source), "", false
	}
}

// extractImports builds zero or more Import records from one
// import/use/using statement node. Multiple names imported from a
// single `from X import a, b` style statement share one Import record
// with Names populated.
func (e *extractor) extractImports(node *tree_sitter.Node) []ast.Import {
	line := int(node.StartPosition().Row) + 1
	isFrom := contains(e.spec.ImportFromTypes, node.Kind()) && node.Kind() != ""

	moduleNode := fieldOrSelf(node, "module_name")
	if moduleNode == nil {
		moduleNode = fieldOrSelf(node, "path")
	}
	if moduleNode == nil {
		moduleNode = fieldOrSelf(node, "source")
	}

	var names []string
	var alias string
	for i := uint(0); i < node.NamedChildCount(); i++ {
		c := node.NamedChild(i)
		if c == nil {
			continue
		}
		switch c.Kind() {
		case "dotted_name", "identifier", "scoped_identifier", "package_identifier",
			"qualified_identifier", "string", "string_literal", "interpreted_string_literal":
			if moduleNode == nil {
				moduleNode = c
			} else if isFrom && c.Kind() == "dotted_name" && c.StartByte() != moduleNode.StartByte() {
				names = append(names, NodeText(c, e.source))
			}
		case "aliased_import":
			if n := fieldOrSelf(c, "name"); n != nil {
				names = append(names, NodeText(n, e.source))
			}
			if a := fieldOrSelf(c, "alias"); a != nil {
				alias = NodeText(a, e.source)
			}
		case "import_specifier", "named_imports", "import_list":
			names = append(names, collectLeafIdentifiers(c, e.source)...)
		}
	}

	module := ""
	if moduleNode != nil {
		module = stripQuotes(NodeText(moduleNode, e.source))
	}
	if module == "" && len(names) > 0 {
		module = names[0]
	}
	if module == "" {
		return nil
	}

	return []ast.Import{{
		Module:     module,
		Names:      names,
		Alias:      alias,
		IsFrom:     isFrom,
		LineNumber: line,
	}}
}

// --- small tree/text helpers -------------------------------------------------

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// fieldOrSelf returns node's child for fieldName, or nil.
func fieldOrSelf(node *tree_sitter.Node, fieldName string) *tree_sitter.Node {
	if node == nil {
		return nil
	}
	return node.ChildByFieldName(fieldName)
}

// declName resolves the declared name of a class/function node via the
// conventional "name" field, falling back to an enclosing
// variable_declarator for anonymous function expressions assigned to a
// name (`const foo = () => {}`), and finally "<anonymous>".
func declName(node *tree_sitter.Node, source []byte) string {
	if n := fieldOrSelf(node, "name"); n != nil {
		return NodeText(n, source)
	}
	if parent := node.Parent(); parent != nil {
		if parent.Kind() == "variable_declarator" {
			if n := fieldOrSelf(parent, "name"); n != nil {
				return NodeText(n, source)
			}
		}
	}
	return "<anonymous>"
}

// extractBases reads the class's base/superclass/extends/implements list.
func (e *extractor) extractBases(node *tree_sitter.Node) []string {
	candidates := []string{"superclasses", "superclass", "interfaces", "bases", "type_parameters"}
	var bases []string
	for _, field := range candidates {
		n := fieldOrSelf(node, field)
		if n == nil {
			continue
		}
		bases = append(bases, collectLeafIdentifiers(n, e.source)...)
	}
	return bases
}

// extractParameters reads the function's parameter list.
func (e *extractor) extractParameters(node *tree_sitter.Node) []ast.Parameter {
	var paramsNode *tree_sitter.Node
	for _, field := range []string{"parameters", "parameter_list"} {
		if n := fieldOrSelf(node, field); n != nil {
			paramsNode = n
			break
		}
	}
	if paramsNode == nil {
		return nil
	}

	var params []ast.Parameter
	for i := uint(0); i < paramsNode.NamedChildCount(); i++ {
		c := paramsNode.NamedChild(i)
		if c == nil {
			continue
		}
		p := ast.Parameter{}
		switch c.Kind() {
		case "identifier", "self_parameter":
			p.Name = NodeText(c, e.source)
		case "list_splat_pattern", "rest_pattern", "variadic_parameter":
			p.IsVariadic = true
			p.Name = strings.TrimLeft(NodeText(c, e.source), "*.")
		case "dictionary_splat_pattern":
			p.IsKeyword = true
			p.Name = strings.TrimLeft(NodeText(c, e.source), "*")
		default:
			if n := fieldOrSelf(c, "name"); n != nil {
				p.Name = NodeText(n, e.source)
			} else if n := fieldOrSelf(c, "pattern"); n != nil {
				p.Name = NodeText(n, e.source)
			} else {
				p.Name = NodeText(c, e.source)
			}
			if t := fieldOrSelf(c, "type"); t != nil {
				p.TypeAnnotation = NodeText(t, e.source)
			}
			if d := fieldOrSelf(c, "value"); d != nil {
				p.DefaultValue = NodeText(d, e.source)
			} else if d := fieldOrSelf(c, "default_value"); d != nil {
				p.DefaultValue = NodeText(d, e.source)
			}
		}
		if p.Name != "" {
			params = append(params, p)
		}
	}
	return params
}

// extractReturnType reads the function's declared return type, trying
// the field names used across the supported grammars in turn.
func (e *extractor) extractReturnType(node *tree_sitter.Node) string {
	for _, field := range []string{"return_type", "result", "type"} {
		if n := fieldOrSelf(node, field); n != nil {
			return NodeText(n, e.source)
		}
	}
	return ""
}

// fieldAttributeName resolves the declared name of a field/property node.
func fieldAttributeName(node *tree_sitter.Node, source []byte) string {
	if n := fieldOrSelf(node, "name"); n != nil {
		return NodeText(n, source)
	}
	if n := fieldOrSelf(node, "declarator"); n != nil {
		if inner := fieldOrSelf(n, "name"); inner != nil {
			return NodeText(inner, source)
		}
		return NodeText(n, source)
	}
	return ""
}

// collectLeafIdentifiers gathers identifier-like leaf node text under node.
func collectLeafIdentifiers(node *tree_sitter.Node, source []byte) []string {
	var names []string
	Walk(node, func(n *tree_sitter.Node) bool {
		switch n.Kind() {
		case "identifier", "type_identifier", "property_identifier",
			"package_identifier", "shorthand_property_identifier":
			names = append(names, NodeText(n, source))
			return false
		}
		return true
	})
	return names
}

// stringLiteralValue returns the inner text of a bare string-literal
// expression statement, used for module/function docstrings in
// docstring-convention languages (Python).
func stringLiteralValue(node *tree_sitter.Node, source []byte) string {
	if node.NamedChildCount() == 0 {
		return ""
	}
	child := node.NamedChild(0)
	if child == nil {
		return ""
	}
	switch child.Kind() {
	case "string", "string_literal":
		return stripQuotes(NodeText(child, source))
	}
	return ""
}

// leadingDocstring returns the docstring of a body block whose first
// statement is a bare string literal (Python convention).
func leadingDocstring(body *tree_sitter.Node, source []byte) string {
	if body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first == nil || first.Kind() != "expression_statement" {
		return ""
	}
	return stringLiteralValue(first, source)
}

func stripQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') || (first == '`' && last == '`') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func stemName(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	base := path
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		base = path[i+1:]
	}
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	return base
}

func countLines(source []byte) int {
	if len(source) == 0 {
		return 0
	}
	n := 1
	for _, b := range source {
		if b == '\n' {
			n++
		}
	}
	return n
}

func toValidUTF8(source []byte) []byte {
	return []byte(strings.ToValidUTF8(string(source), "�"))
}
