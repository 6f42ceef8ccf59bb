package muql

import "strconv"

// tables is the closed set of names a SELECT/FIND/DESCRIBE may target.
var tables = map[string]bool{
	"nodes": true, "modules": true, "classes": true, "functions": true, "edges": true,
}

// nodeColumns are the columns exposed on nodes and its filtered views
// (modules, classes, functions).
var nodeColumns = map[string]bool{
	"id": true, "type": true, "name": true, "path": true, "language": true,
	"start_line": true, "end_line": true, "complexity": true,
}

var edgeColumns = map[string]bool{
	"source": true, "target": true, "type": true,
}

// Parse parses one MUQL statement.
func Parse(query string) (Statement, error) {
	tokens, err := lex(query)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if p.cur().Type != TokEOF {
		return nil, &SyntaxError{Offset: p.cur().Pos, Expected: "end of query"}
	}
	return stmt, nil
}

type parser struct {
	tokens []Token
	pos    int
}

func (p *parser) cur() Token  { return p.tokens[p.pos] }
func (p *parser) advance() Token {
	t := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func (p *parser) expect(t TokenType, desc string) (Token, error) {
	if p.cur().Type != t {
		return Token{}, &SyntaxError{Offset: p.cur().Pos, Expected: desc}
	}
	return p.advance(), nil
}

func (p *parser) parseStatement() (Statement, error) {
	switch p.cur().Type {
	case TokSelect:
		return p.parseSelect()
	case TokShow:
		return p.parseShow()
	case TokFind:
		return p.parseFind()
	case TokPath:
		return p.parsePath()
	case TokAnalyze:
		return p.parseAnalyze()
	case TokDescribe:
		return p.parseDescribe()
	default:
		return nil, &SyntaxError{Offset: p.cur().Pos, Expected: "SELECT, SHOW, FIND, PATH, ANALYZE, or DESCRIBE"}
	}
}

func (p *parser) parseSelect() (Statement, error) {
	p.advance() // SELECT
	cols, err := p.parseSelectColumns()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokFrom, "FROM"); err != nil {
		return nil, err
	}
	tableTok, err := p.expect(TokIdent, "table name")
	if err != nil {
		return nil, err
	}
	if !tables[tableTok.Value] {
		return nil, &UnknownTable{Name: tableTok.Value}
	}

	stmt := &SelectStmt{Columns: cols, Table: tableTok.Value}

	if p.cur().Type == TokWhere {
		p.advance()
		where, err := p.parseWhere(tableTok.Value)
		if err != nil {
			return nil, err
		}
		stmt.Where = where
	}

	if p.cur().Type == TokOrder {
		p.advance()
		if _, err := p.expect(TokBy, "BY"); err != nil {
			return nil, err
		}
		colTok, err := p.expect(TokIdent, "column name")
		if err != nil {
			return nil, err
		}
		if !validColumn(tableTok.Value, colTok.Value) {
			return nil, &UnknownColumn{Name: colTok.Value}
		}
		stmt.OrderBy = colTok.Value
		if p.cur().Type == TokDesc {
			p.advance()
			stmt.OrderDesc = true
		} else if p.cur().Type == TokAsc {
			p.advance()
		}
	}

	if p.cur().Type == TokLimit {
		p.advance()
		n, err := p.parseNumber()
		if err != nil {
			return nil, err
		}
		stmt.Limit = n
		stmt.HasLimit = true
	}

	return stmt, nil
}

func (p *parser) parseSelectColumns() ([]SelectColumn, error) {
	if p.cur().Type == TokStar {
		p.advance()
		return []SelectColumn{{Name: "*"}}, nil
	}

	var cols []SelectColumn
	for {
		fn := ""
		switch p.cur().Type {
		case TokCount:
			fn = "COUNT"
		case TokAvg:
			fn = "AVG"
		case TokSum:
			fn = "SUM"
		}
		if fn != "" {
			p.advance()
			if _, err := p.expect(TokLParen, "("); err != nil {
				return nil, err
			}
			name := "*"
			if p.cur().Type == TokStar {
				p.advance()
			} else {
				tok, err := p.expect(TokIdent, "column name or *")
				if err != nil {
					return nil, err
				}
				name = tok.Value
			}
			if _, err := p.expect(TokRParen, ")"); err != nil {
				return nil, err
			}
			cols = append(cols, SelectColumn{Name: name, Func: fn})
		} else {
			tok, err := p.expect(TokIdent, "column name")
			if err != nil {
				return nil, err
			}
			cols = append(cols, SelectColumn{Name: tok.Value})
		}

		if p.cur().Type == TokComma {
			p.advance()
			continue
		}
		break
	}
	return cols, nil
}

func (p *parser) parseWhere(table string) (*WhereClause, error) {
	where := &WhereClause{Operator: "AND"}
	for {
		cond, err := p.parseCondition(table)
		if err != nil {
			return nil, err
		}
		where.Conditions = append(where.Conditions, cond)

		switch p.cur().Type {
		case TokAnd:
			where.Operator = "AND"
			p.advance()
			continue
		case TokOr:
			where.Operator = "OR"
			p.advance()
			continue
		}
		break
	}
	return where, nil
}

func (p *parser) parseCondition(table string) (Condition, error) {
	colTok, err := p.expect(TokIdent, "column name")
	if err != nil {
		return Condition{}, err
	}
	if !validColumn(table, colTok.Value) {
		return Condition{}, &UnknownColumn{Name: colTok.Value}
	}

	negate := false
	if p.cur().Type == TokNot {
		negate = true
		p.advance()
	}

	switch p.cur().Type {
	case TokEQ:
		p.advance()
		v, err := p.parseValue()
		return Condition{Column: colTok.Value, Operator: "=", Value: v}, err
	case TokNEQ:
		p.advance()
		v, err := p.parseValue()
		return Condition{Column: colTok.Value, Operator: "!=", Value: v}, err
	case TokLT:
		p.advance()
		v, err := p.parseValue()
		return Condition{Column: colTok.Value, Operator: "<", Value: v}, err
	case TokLTE:
		p.advance()
		v, err := p.parseValue()
		return Condition{Column: colTok.Value, Operator: "<=", Value: v}, err
	case TokGT:
		p.advance()
		v, err := p.parseValue()
		return Condition{Column: colTok.Value, Operator: ">", Value: v}, err
	case TokGTE:
		p.advance()
		v, err := p.parseValue()
		return Condition{Column: colTok.Value, Operator: ">=", Value: v}, err
	case TokLike:
		p.advance()
		v, err := p.parseValue()
		return Condition{Column: colTok.Value, Operator: "LIKE", Value: v}, err
	case TokIn:
		p.advance()
		values, err := p.parseValueList()
		if err != nil {
			return Condition{}, err
		}
		op := "IN"
		if negate {
			op = "NOT IN"
		}
		return Condition{Column: colTok.Value, Operator: op, Values: values}, nil
	default:
		return Condition{}, &SyntaxError{Offset: p.cur().Pos, Expected: "comparison operator"}
	}
}

func (p *parser) parseValueList() ([]string, error) {
	if _, err := p.expect(TokLParen, "("); err != nil {
		return nil, err
	}
	var values []string
	for {
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		if p.cur().Type == TokComma {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(TokRParen, ")"); err != nil {
		return nil, err
	}
	return values, nil
}

func (p *parser) parseValue() (string, error) {
	switch p.cur().Type {
	case TokString, TokNumber, TokIdent:
		return p.advance().Value, nil
	default:
		return "", &SyntaxError{Offset: p.cur().Pos, Expected: "value"}
	}
}

func (p *parser) parseNumber() (int, error) {
	tok, err := p.expect(TokNumber, "number")
	if err != nil {
		return 0, err
	}
	n, parseErr := strconv.Atoi(tok.Value)
	if parseErr != nil {
		return 0, &SyntaxError{Offset: tok.Pos, Expected: "integer"}
	}
	return n, nil
}

var showKinds = map[string]bool{
	"dependencies": true, "dependents": true, "children": true,
	"callers": true, "callees": true, "impact": true, "ancestors": true,
}

func (p *parser) parseShow() (Statement, error) {
	p.advance() // SHOW
	kindTok, err := p.expect(TokIdent, "dependencies, dependents, children, callers, callees, impact, or ancestors")
	if err != nil {
		return nil, err
	}
	if !showKinds[kindTok.Value] {
		return nil, &SyntaxError{Offset: kindTok.Pos, Expected: "a SHOW kind"}
	}
	if _, err := p.expect(TokOf, "OF"); err != nil {
		return nil, err
	}
	ref, err := p.parseValue()
	if err != nil {
		return nil, err
	}

	stmt := &ShowStmt{Kind: kindTok.Value, NodeRef: ref, Depth: 5}
	if p.cur().Type == TokDepth {
		p.advance()
		n, err := p.parseNumber()
		if err != nil {
			return nil, err
		}
		stmt.Depth = n
	}
	if p.cur().Type == TokVia {
		p.advance()
		tok, err := p.expect(TokIdent, "edge type")
		if err != nil {
			return nil, err
		}
		stmt.Via = tok.Value
	}
	return stmt, nil
}

func (p *parser) parseFind() (Statement, error) {
	p.advance() // FIND

	if p.cur().Type == TokCycles {
		p.advance()
		stmt := &FindStmt{Cycles: true}
		if p.cur().Type == TokWhere {
			p.advance()
			colTok, err := p.expect(TokIdent, "edge_type")
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokEQ, "="); err != nil {
				return nil, err
			}
			v, err := p.parseValue()
			if err != nil {
				return nil, err
			}
			_ = colTok
			stmt.EdgeType = v
		}
		return stmt, nil
	}

	tableTok, err := p.expect(TokIdent, "table name")
	if err != nil {
		return nil, err
	}
	if !tables[tableTok.Value] {
		return nil, &UnknownTable{Name: tableTok.Value}
	}
	stmt := &FindStmt{Table: tableTok.Value}

	switch p.cur().Type {
	case TokMatching:
		p.advance()
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		stmt.Matching = v
	case TokCalling:
		p.advance()
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		stmt.Calling = v
	case TokWith:
		p.advance()
		if _, err := p.expect(TokDecorator, "DECORATOR"); err != nil {
			return nil, err
		}
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		stmt.Decorator = v
	case TokImporting:
		p.advance()
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		stmt.Importing = v
	default:
		return nil, &SyntaxError{Offset: p.cur().Pos, Expected: "MATCHING, CALLING, WITH DECORATOR, or IMPORTING"}
	}
	return stmt, nil
}

func (p *parser) parsePath() (Statement, error) {
	p.advance() // PATH
	if _, err := p.expect(TokFrom, "FROM"); err != nil {
		return nil, err
	}
	from, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokTo, "TO"); err != nil {
		return nil, err
	}
	to, err := p.parseValue()
	if err != nil {
		return nil, err
	}

	stmt := &PathStmt{From: from, To: to, MaxDepth: 5}
	if p.cur().Type == TokMax {
		p.advance()
		if _, err := p.expect(TokDepth, "DEPTH"); err != nil {
			return nil, err
		}
		n, err := p.parseNumber()
		if err != nil {
			return nil, err
		}
		stmt.MaxDepth = n
	}
	if p.cur().Type == TokVia {
		p.advance()
		tok, err := p.expect(TokIdent, "edge type")
		if err != nil {
			return nil, err
		}
		stmt.Via = tok.Value
	}
	return stmt, nil
}

var analyzeKinds = map[string]bool{"complexity": true, "hotspots": true, "circular": true, "impact": true}

func (p *parser) parseAnalyze() (Statement, error) {
	p.advance() // ANALYZE
	kindTok, err := p.expect(TokIdent, "complexity, hotspots, circular, or impact")
	if err != nil {
		return nil, err
	}
	if !analyzeKinds[kindTok.Value] {
		return nil, &SyntaxError{Offset: kindTok.Pos, Expected: "an ANALYZE kind"}
	}
	stmt := &AnalyzeStmt{Kind: kindTok.Value}
	if p.cur().Type == TokFor {
		p.advance()
		ref, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		stmt.NodeRef = ref
	}
	return stmt, nil
}

func (p *parser) parseDescribe() (Statement, error) {
	p.advance() // DESCRIBE
	if p.cur().Type == TokTables {
		p.advance()
		return &DescribeStmt{Target: "tables"}, nil
	}
	tok, err := p.expect(TokIdent, "tables or a table name")
	if err != nil {
		return nil, err
	}
	if !tables[tok.Value] {
		return nil, &UnknownTable{Name: tok.Value}
	}
	return &DescribeStmt{Target: tok.Value}, nil
}

func validColumn(table, col string) bool {
	if table == "edges" {
		return edgeColumns[col]
	}
	return nodeColumns[col]
}
