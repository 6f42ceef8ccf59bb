package muql

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/0ximu/mu/internal/graph"
	"github.com/0ximu/mu/internal/graphalgo"
	"github.com/0ximu/mu/internal/graphstore"
)

const (
	defaultLimit   = 1000
	defaultDepth   = 5
	defaultTimeout = 30 * time.Second
)

// Engine executes MUQL queries against one graph store.
type Engine struct {
	Store *graphstore.Store
}

// New creates an Engine over an open graph store.
func New(store *graphstore.Store) *Engine {
	return &Engine{Store: store}
}

// Execute parses and runs one MUQL query, enforcing the default 30s
// deadline when ctx carries none.
func (eng *Engine) Execute(ctx context.Context, query string) (*Result, error) {
	start := time.Now()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
	}

	stmt, err := Parse(query)
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	var result *Result
	var execErr error
	go func() {
		result, execErr = eng.execute(ctx, stmt)
		close(done)
	}()

	select {
	case <-done:
		if execErr != nil {
			return nil, execErr
		}
		result.ExecutionTimeMs = float64(time.Since(start).Microseconds()) / 1000.0
		result.RowCount = len(result.Rows)
		return result, nil
	case <-ctx.Done():
		return nil, &QueryTimeout{Query: query}
	}
}

func (eng *Engine) execute(ctx context.Context, stmt Statement) (*Result, error) {
	switch s := stmt.(type) {
	case *SelectStmt:
		return eng.execSelect(s)
	case *ShowStmt:
		return eng.execShow(ctx, s)
	case *FindStmt:
		return eng.execFind(ctx, s)
	case *PathStmt:
		return eng.execPath(ctx, s)
	case *AnalyzeStmt:
		return eng.execAnalyze(ctx, s)
	case *DescribeStmt:
		return eng.execDescribe(s)
	default:
		return nil, fmt.Errorf("muql: unsupported statement %T", stmt)
	}
}

// ---- SELECT ----

func (eng *Engine) execSelect(s *SelectStmt) (*Result, error) {
	nodes, edges, err := eng.loadTable(s.Table)
	if err != nil {
		return nil, err
	}

	if len(s.Columns) == 1 && s.Columns[0].Func != "" {
		return eng.execAggregate(s, nodes, edges)
	}

	var rows []map[string]any
	if s.Table == "edges" {
		for _, e := range edges {
			row := edgeRow(e)
			if s.Where != nil && !matchRow(row, s.Where) {
				continue
			}
			rows = append(rows, row)
		}
	} else {
		for _, n := range nodes {
			row := nodeRow(n)
			if s.Where != nil && !matchRow(row, s.Where) {
				continue
			}
			rows = append(rows, row)
		}
	}

	cols := projectColumns(s.Columns, s.Table)
	rows = projectRows(rows, s.Columns, cols)

	if s.OrderBy != "" {
		sortRows(rows, s.OrderBy, s.OrderDesc)
	}

	limit := defaultLimit
	if s.HasLimit {
		limit = s.Limit
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	return &Result{Columns: cols, Rows: rows}, nil
}

func (eng *Engine) execAggregate(s *SelectStmt, nodes []graph.Node, edges []graph.Edge) (*Result, error) {
	col := s.Columns[0]
	colName := fmt.Sprintf("%s(%s)", col.Func, col.Name)

	var values []float64
	count := 0
	if s.Table == "edges" {
		for _, e := range edges {
			row := edgeRow(e)
			if s.Where != nil && !matchRow(row, s.Where) {
				continue
			}
			count++
			if col.Func != "COUNT" {
				if v, ok := numericValue(row[col.Name]); ok {
					values = append(values, v)
				}
			}
		}
	} else {
		for _, n := range nodes {
			row := nodeRow(n)
			if s.Where != nil && !matchRow(row, s.Where) {
				continue
			}
			count++
			if col.Func != "COUNT" {
				if v, ok := numericValue(row[col.Name]); ok {
					values = append(values, v)
				}
			}
		}
	}

	var value any
	switch col.Func {
	case "COUNT":
		value = count
	case "SUM":
		var sum float64
		for _, v := range values {
			sum += v
		}
		value = sum
	case "AVG":
		var sum float64
		for _, v := range values {
			sum += v
		}
		if len(values) > 0 {
			value = sum / float64(len(values))
		} else {
			value = 0.0
		}
	}

	return &Result{
		Columns: []string{colName},
		Rows:    []map[string]any{{colName: value}},
	}, nil
}

func (eng *Engine) loadTable(table string) ([]graph.Node, []graph.Edge, error) {
	if table == "edges" {
		edges, err := eng.Store.AllEdges()
		return nil, edges, err
	}
	nodes, err := eng.Store.AllNodes()
	if err != nil {
		return nil, nil, err
	}
	return filterByTable(nodes, table), nil, nil
}

func filterByTable(nodes []graph.Node, table string) []graph.Node {
	var want graph.NodeType
	switch table {
	case "modules":
		want = graph.NodeModule
	case "classes":
		want = graph.NodeClass
	case "functions":
		want = graph.NodeFunction
	default:
		return nodes // "nodes": no filter
	}
	var out []graph.Node
	for _, n := range nodes {
		if n.Type == want {
			out = append(out, n)
		}
	}
	return out
}

func nodeRow(n graph.Node) map[string]any {
	return map[string]any{
		"id": n.ID, "type": string(n.Type), "name": n.Name, "path": n.Path,
		"language": n.Language, "start_line": n.StartLine, "end_line": n.EndLine,
		"complexity": n.Complexity,
	}
}

func edgeRow(e graph.Edge) map[string]any {
	return map[string]any{"source": e.Source, "target": e.Target, "type": string(e.Type)}
}

func projectColumns(cols []SelectColumn, table string) []string {
	if len(cols) == 1 && cols[0].Name == "*" {
		if table == "edges" {
			return []string{"source", "target", "type"}
		}
		return []string{"id", "type", "name", "path", "language", "start_line", "end_line", "complexity"}
	}
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}

func projectRows(rows []map[string]any, cols []SelectColumn, colNames []string) []map[string]any {
	if len(cols) == 1 && cols[0].Name == "*" {
		return rows
	}
	out := make([]map[string]any, len(rows))
	for i, r := range rows {
		proj := make(map[string]any, len(colNames))
		for _, name := range colNames {
			proj[name] = r[name]
		}
		out[i] = proj
	}
	return out
}

// ---- WHERE evaluation ----

func matchRow(row map[string]any, where *WhereClause) bool {
	if where.Operator == "OR" {
		for _, c := range where.Conditions {
			if matchCondition(row, c) {
				return true
			}
		}
		return false
	}
	for _, c := range where.Conditions {
		if !matchCondition(row, c) {
			return false
		}
	}
	return true
}

func matchCondition(row map[string]any, c Condition) bool {
	actual, ok := row[c.Column]
	if !ok {
		return false
	}
	switch c.Operator {
	case "=":
		return fmt.Sprintf("%v", actual) == c.Value
	case "!=":
		return fmt.Sprintf("%v", actual) != c.Value
	case "LIKE":
		s, ok := actual.(string)
		if !ok {
			return false
		}
		return likeMatch(s, c.Value)
	case "IN":
		for _, v := range c.Values {
			if fmt.Sprintf("%v", actual) == v {
				return true
			}
		}
		return false
	case "NOT IN":
		for _, v := range c.Values {
			if fmt.Sprintf("%v", actual) == v {
				return false
			}
		}
		return true
	case "<", "<=", ">", ">=":
		av, aok := numericValue(actual)
		bv, err := strconv.ParseFloat(c.Value, 64)
		if !aok || err != nil {
			return false
		}
		switch c.Operator {
		case "<":
			return av < bv
		case "<=":
			return av <= bv
		case ">":
			return av > bv
		case ">=":
			return av >= bv
		}
	}
	return false
}

func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

// likeMatch implements SQL LIKE semantics: % matches any run of
// characters, _ matches exactly one.
func likeMatch(s, pattern string) bool {
	return likeMatchRunes([]rune(s), []rune(pattern))
}

func likeMatchRunes(s, p []rune) bool {
	if len(p) == 0 {
		return len(s) == 0
	}
	if p[0] == '%' {
		if likeMatchRunes(s, p[1:]) {
			return true
		}
		for i := range s {
			if likeMatchRunes(s[i+1:], p[1:]) {
				return true
			}
		}
		return false
	}
	if len(s) == 0 {
		return false
	}
	if p[0] == '_' || p[0] == s[0] {
		return likeMatchRunes(s[1:], p[1:])
	}
	return false
}

func sortRows(rows []map[string]any, col string, desc bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		cmp := compareAny(rows[i][col], rows[j][col])
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})
}

func compareAny(a, b any) int {
	if av, aok := numericValue(a); aok {
		if bv, bok := numericValue(b); bok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			default:
				return 0
			}
		}
	}
	as, bs := fmt.Sprintf("%v", a), fmt.Sprintf("%v", b)
	return strings.Compare(as, bs)
}

// ---- SHOW ----

func (eng *Engine) execShow(ctx context.Context, s *ShowStmt) (*Result, error) {
	node, err := resolveNodeRef(eng.Store, s.NodeRef)
	if err != nil {
		return nil, err
	}

	depth := s.Depth
	if depth <= 0 {
		depth = defaultDepth
	}

	snap, err := graphalgo.Load(ctx, eng.Store)
	if err != nil {
		return nil, err
	}

	var ids []string
	switch s.Kind {
	case "children":
		ids, err = snap.Impact(node.ID, graph.EdgeContains)
	case "callers":
		ids, err = snap.Ancestors(node.ID, graph.EdgeCalls)
	case "callees":
		ids, err = snap.Impact(node.ID, graph.EdgeCalls)
	case "dependencies", "impact":
		ids, err = snap.Impact(node.ID, edgeTypeFilter(s.Via)...)
	case "dependents", "ancestors":
		ids, err = snap.Ancestors(node.ID, edgeTypeFilter(s.Via)...)
	default:
		return nil, fmt.Errorf("muql: unsupported SHOW kind %q", s.Kind)
	}
	if err != nil {
		return nil, err
	}

	ids = capDepthResult(ids, depth)
	return idListResult(eng.Store, ids)
}

func edgeTypeFilter(via string) []graph.EdgeType {
	if via == "" {
		return nil
	}
	return []graph.EdgeType{graph.EdgeType(via)}
}

// capDepthResult is a coarse cap on result size proportional to depth,
// since Snapshot.Impact/Ancestors do not themselves take a depth limit.
func capDepthResult(ids []string, depth int) []string {
	limit := depth * 200
	if limit > 0 && len(ids) > limit {
		return ids[:limit]
	}
	return ids
}

func idListResult(store *graphstore.Store, ids []string) (*Result, error) {
	cols := []string{"id", "type", "name", "path", "language", "start_line", "end_line", "complexity"}
	rows := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		n, err := store.GetNode(id)
		if err != nil || n == nil {
			continue
		}
		rows = append(rows, nodeRow(*n))
	}
	return &Result{Columns: cols, Rows: rows}, nil
}

// ---- FIND ----

func (eng *Engine) execFind(ctx context.Context, s *FindStmt) (*Result, error) {
	if s.Cycles {
		return eng.execFindCycles(ctx, s)
	}

	nodes, err := eng.Store.AllNodes()
	if err != nil {
		return nil, err
	}
	nodes = filterByTable(nodes, s.Table)

	var out []graph.Node
	switch {
	case s.Matching != "":
		for _, n := range nodes {
			if likeMatch(n.Name, s.Matching) {
				out = append(out, n)
			}
		}
	case s.Calling != "":
		target, err := resolveNodeRef(eng.Store, s.Calling)
		if err != nil {
			return nil, err
		}
		callers, err := eng.Store.GetEdgesTo(target.ID, graph.EdgeCalls)
		if err != nil {
			return nil, err
		}
		out = filterNodesByIDs(nodes, edgeSources(callers))
	case s.Decorator != "":
		for _, n := range nodes {
			if hasDecorator(n, s.Decorator) {
				out = append(out, n)
			}
		}
	case s.Importing != "":
		target, err := resolveNodeRef(eng.Store, s.Importing)
		if err != nil {
			return nil, err
		}
		importers, err := eng.Store.GetEdgesTo(target.ID, graph.EdgeImports)
		if err != nil {
			return nil, err
		}
		out = filterNodesByIDs(nodes, edgeSources(importers))
	default:
		out = nodes
	}

	cols := []string{"id", "type", "name", "path", "language", "start_line", "end_line", "complexity"}
	rows := make([]map[string]any, len(out))
	for i, n := range out {
		rows[i] = nodeRow(n)
	}
	if len(rows) > defaultLimit {
		rows = rows[:defaultLimit]
	}
	return &Result{Columns: cols, Rows: rows}, nil
}

func (eng *Engine) execFindCycles(ctx context.Context, s *FindStmt) (*Result, error) {
	snap, err := graphalgo.Load(ctx, eng.Store)
	if err != nil {
		return nil, err
	}
	var filter []graph.EdgeType
	if s.EdgeType != "" {
		filter = []graph.EdgeType{graph.EdgeType(s.EdgeType)}
	}
	cycles := snap.FindCycles(filter...)

	rows := make([]map[string]any, len(cycles))
	for i, c := range cycles {
		rows[i] = map[string]any{"cycle": c, "size": len(c)}
	}
	return &Result{Columns: []string{"cycle", "size"}, Rows: rows}, nil
}

func edgeSources(edges []graph.Edge) map[string]bool {
	set := make(map[string]bool, len(edges))
	for _, e := range edges {
		set[e.Source] = true
	}
	return set
}

func filterNodesByIDs(nodes []graph.Node, ids map[string]bool) []graph.Node {
	var out []graph.Node
	for _, n := range nodes {
		if ids[n.ID] {
			out = append(out, n)
		}
	}
	return out
}

func hasDecorator(n graph.Node, name string) bool {
	raw, ok := n.Properties["decorators"]
	if !ok {
		return false
	}
	list, ok := raw.([]any)
	if !ok {
		if ls, ok := raw.([]string); ok {
			for _, d := range ls {
				if d == name {
					return true
				}
			}
		}
		return false
	}
	for _, d := range list {
		if s, ok := d.(string); ok && s == name {
			return true
		}
	}
	return false
}

// ---- PATH ----

func (eng *Engine) execPath(ctx context.Context, s *PathStmt) (*Result, error) {
	from, err := resolveNodeRef(eng.Store, s.From)
	if err != nil {
		return nil, err
	}
	to, err := resolveNodeRef(eng.Store, s.To)
	if err != nil {
		return nil, err
	}

	maxDepth := s.MaxDepth
	if maxDepth <= 0 {
		maxDepth = defaultDepth
	}

	snap, err := graphalgo.Load(ctx, eng.Store)
	if err != nil {
		return nil, err
	}

	path, err := snap.ShortestPath(from.ID, to.ID, maxDepth)
	if err != nil {
		return nil, err
	}
	if path == nil {
		return &Result{Columns: []string{"path"}, Rows: []map[string]any{}}, nil
	}
	return &Result{Columns: []string{"path"}, Rows: []map[string]any{{"path": path}}}, nil
}

// ---- ANALYZE ----

func (eng *Engine) execAnalyze(ctx context.Context, s *AnalyzeStmt) (*Result, error) {
	switch s.Kind {
	case "complexity":
		return eng.analyzeComplexity(s)
	case "hotspots":
		return eng.analyzeHotspots(ctx, s)
	case "circular":
		return eng.execFindCycles(ctx, &FindStmt{Cycles: true})
	case "impact":
		if s.NodeRef == "" {
			return nil, &SyntaxError{Expected: "FOR <node-ref>"}
		}
		return eng.execShow(ctx, &ShowStmt{Kind: "impact", NodeRef: s.NodeRef, Depth: defaultDepth})
	default:
		return nil, fmt.Errorf("muql: unsupported ANALYZE kind %q", s.Kind)
	}
}

func (eng *Engine) analyzeComplexity(s *AnalyzeStmt) (*Result, error) {
	nodes, err := eng.Store.AllNodes()
	if err != nil {
		return nil, err
	}
	functions := filterByTable(nodes, "functions")
	if s.NodeRef != "" {
		n, err := resolveNodeRef(eng.Store, s.NodeRef)
		if err != nil {
			return nil, err
		}
		functions = filterByPath(functions, n.Path)
	}
	sort.Slice(functions, func(i, j int) bool { return functions[i].Complexity > functions[j].Complexity })

	cols := []string{"id", "name", "path", "complexity"}
	rows := make([]map[string]any, len(functions))
	for i, n := range functions {
		rows[i] = map[string]any{"id": n.ID, "name": n.Name, "path": n.Path, "complexity": n.Complexity}
	}
	return &Result{Columns: cols, Rows: rows}, nil
}

func filterByPath(nodes []graph.Node, path string) []graph.Node {
	var out []graph.Node
	for _, n := range nodes {
		if n.Path == path {
			out = append(out, n)
		}
	}
	return out
}

// analyzeHotspots ranks functions by a risk score combining complexity
// and fan-in (CALLS edges into the node) — functions that are both
// complex and heavily depended on are the most expensive to change.
func (eng *Engine) analyzeHotspots(ctx context.Context, s *AnalyzeStmt) (*Result, error) {
	nodes, err := eng.Store.AllNodes()
	if err != nil {
		return nil, err
	}
	edges, err := eng.Store.AllEdges()
	if err != nil {
		return nil, err
	}

	fanIn := make(map[string]int)
	for _, e := range edges {
		if e.Type == graph.EdgeCalls {
			fanIn[e.Target]++
		}
	}

	type hotspot struct {
		node  graph.Node
		score int
	}
	var spots []hotspot
	for _, n := range filterByTable(nodes, "functions") {
		score := n.Complexity * (1 + fanIn[n.ID])
		if score > 0 {
			spots = append(spots, hotspot{node: n, score: score})
		}
	}
	sort.Slice(spots, func(i, j int) bool { return spots[i].score > spots[j].score })

	cols := []string{"id", "name", "path", "complexity", "fan_in", "score"}
	limit := defaultLimit
	if len(spots) < limit {
		limit = len(spots)
	}
	rows := make([]map[string]any, limit)
	for i := 0; i < limit; i++ {
		n := spots[i].node
		rows[i] = map[string]any{
			"id": n.ID, "name": n.Name, "path": n.Path,
			"complexity": n.Complexity, "fan_in": fanIn[n.ID], "score": spots[i].score,
		}
	}
	return &Result{Columns: cols, Rows: rows}, nil
}

// ---- DESCRIBE ----

func (eng *Engine) execDescribe(s *DescribeStmt) (*Result, error) {
	if s.Target == "tables" {
		rows := make([]map[string]any, 0, len(tables))
		for t := range tables {
			rows = append(rows, map[string]any{"table": t})
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i]["table"].(string) < rows[j]["table"].(string) })
		return &Result{Columns: []string{"table"}, Rows: rows}, nil
	}

	cols := nodeColumns
	if s.Target == "edges" {
		cols = edgeColumns
	}
	names := make([]string, 0, len(cols))
	for c := range cols {
		names = append(names, c)
	}
	sort.Strings(names)
	rows := make([]map[string]any, len(names))
	for i, c := range names {
		rows[i] = map[string]any{"column": c}
	}
	return &Result{Columns: []string{"column"}, Rows: rows}, nil
}
