package graphstore

import (
	"database/sql"
	"fmt"

	"github.com/0ximu/mu/internal/graph"
)

// AddNode inserts or replaces a node, keyed by its stable id.
func (s *Store) AddNode(n graph.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO nodes (id, type, name, path, language, start_line, end_line, complexity, properties)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type=excluded.type, name=excluded.name, path=excluded.path, language=excluded.language,
			start_line=excluded.start_line, end_line=excluded.end_line,
			complexity=excluded.complexity, properties=excluded.properties`,
		n.ID, string(n.Type), n.Name, n.Path, n.Language, n.StartLine, n.EndLine, n.Complexity, marshalProps(n.Properties))
	if err != nil {
		return fmt.Errorf("add node %s: %w", n.ID, err)
	}
	return nil
}

// AddNodes upserts many nodes in one transaction.
func (s *Store) AddNodes(nodes []graph.Node) error {
	if len(nodes) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("add nodes: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO nodes (id, type, name, path, language, start_line, end_line, complexity, properties)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type=excluded.type, name=excluded.name, path=excluded.path, language=excluded.language,
			start_line=excluded.start_line, end_line=excluded.end_line,
			complexity=excluded.complexity, properties=excluded.properties`)
	if err != nil {
		return fmt.Errorf("add nodes: prepare: %w", err)
	}
	defer stmt.Close()

	for _, n := range nodes {
		if _, err := stmt.Exec(n.ID, string(n.Type), n.Name, n.Path, n.Language, n.StartLine, n.EndLine, n.Complexity, marshalProps(n.Properties)); err != nil {
			return fmt.Errorf("add node %s: %w", n.ID, err)
		}
	}
	return tx.Commit()
}

// GetNode looks up one node by its stable id.
func (s *Store) GetNode(id string) (*graph.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRow(`SELECT id, type, name, path, language, start_line, end_line, complexity, properties FROM nodes WHERE id=?`, id)
	return scanNode(row)
}

// GetNodesByPath returns every node declared at a given workspace path.
func (s *Store) GetNodesByPath(path string) ([]graph.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(`SELECT id, type, name, path, language, start_line, end_line, complexity, properties FROM nodes WHERE path=?`, path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNodes(rows)
}

// GetNodesByName returns every node whose bare name matches.
func (s *Store) GetNodesByName(name string) ([]graph.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(`SELECT id, type, name, path, language, start_line, end_line, complexity, properties FROM nodes WHERE name=?`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNodes(rows)
}

// RemoveNode deletes one node and every edge touching it.
func (s *Store) RemoveNode(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeNodeLocked(id)
}

func (s *Store) removeNodeLocked(id string) error {
	if _, err := s.db.Exec(`DELETE FROM edges WHERE source=? OR target=?`, id, id); err != nil {
		return fmt.Errorf("remove node %s edges: %w", id, err)
	}
	if _, err := s.db.Exec(`DELETE FROM nodes WHERE id=?`, id); err != nil {
		return fmt.Errorf("remove node %s: %w", id, err)
	}
	return nil
}

// RemoveNodesByPath deletes every node declared at path, along with
// their edges — used when a source file is deleted or about to be
// re-parsed wholesale.
func (s *Store) RemoveNodesByPath(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT id FROM nodes WHERE path=?`, path)
	if err != nil {
		return fmt.Errorf("remove nodes by path %s: %w", path, err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()

	for _, id := range ids {
		if err := s.removeNodeLocked(id); err != nil {
			return err
		}
	}
	return nil
}

// AddEdge inserts or replaces an edge, keyed by (source, target, type).
func (s *Store) AddEdge(e graph.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO edges (source, target, type, properties) VALUES (?, ?, ?, ?)
		ON CONFLICT(source, target, type) DO UPDATE SET properties=excluded.properties`,
		e.Source, e.Target, string(e.Type), marshalProps(e.Properties))
	if err != nil {
		return fmt.Errorf("add edge %s-%s->%s: %w", e.Source, e.Type, e.Target, err)
	}
	return nil
}

// AddEdges upserts many edges in one transaction.
func (s *Store) AddEdges(edges []graph.Edge) error {
	if len(edges) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("add edges: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO edges (source, target, type, properties) VALUES (?, ?, ?, ?)
		ON CONFLICT(source, target, type) DO UPDATE SET properties=excluded.properties`)
	if err != nil {
		return fmt.Errorf("add edges: prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range edges {
		if _, err := stmt.Exec(e.Source, e.Target, string(e.Type), marshalProps(e.Properties)); err != nil {
			return fmt.Errorf("add edge %s-%s->%s: %w", e.Source, e.Type, e.Target, err)
		}
	}
	return tx.Commit()
}

// RemoveEdgesForNode deletes every edge touching a node, in either
// direction — used before re-deriving a node's edges from a fresh
// parse without deleting the node itself.
func (s *Store) RemoveEdgesForNode(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM edges WHERE source=? OR target=?`, id, id)
	return err
}

// RemoveEdgesFromPath deletes every edge whose source node belongs to
// path — used when re-deriving edges for a changed file without
// touching edges that point INTO it from elsewhere.
func (s *Store) RemoveEdgesFromPath(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		DELETE FROM edges WHERE rowid IN (
			SELECT e.rowid FROM edges e JOIN nodes n ON e.source = n.id WHERE n.path=?
		)`, path)
	return err
}

// GetEdgesFrom returns every edge whose source is id, optionally
// filtered to one edge type ("" means any type).
func (s *Store) GetEdgesFrom(id string, edgeType graph.EdgeType) ([]graph.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if edgeType == "" {
		rows, err := s.db.Query(`SELECT source, target, type, properties FROM edges WHERE source=?`, id)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		return scanEdges(rows)
	}
	rows, err := s.db.Query(`SELECT source, target, type, properties FROM edges WHERE source=? AND type=?`, id, string(edgeType))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEdges(rows)
}

// GetEdgesTo returns every edge whose target is id, optionally filtered
// to one edge type ("" means any type).
func (s *Store) GetEdgesTo(id string, edgeType graph.EdgeType) ([]graph.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if edgeType == "" {
		rows, err := s.db.Query(`SELECT source, target, type, properties FROM edges WHERE target=?`, id)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		return scanEdges(rows)
	}
	rows, err := s.db.Query(`SELECT source, target, type, properties FROM edges WHERE target=? AND type=?`, id, string(edgeType))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEdges(rows)
}

// Rebuild atomically replaces the entire graph with nodes and edges,
// used after a full workspace scan. Incremental updates go through
// AddNode/AddEdge/RemoveNode instead.
func (s *Store) Rebuild(nodes []graph.Node, edges []graph.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("rebuild: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM edges`); err != nil {
		return fmt.Errorf("rebuild: clear edges: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM nodes`); err != nil {
		return fmt.Errorf("rebuild: clear nodes: %w", err)
	}

	nodeStmt, err := tx.Prepare(`INSERT INTO nodes (id, type, name, path, language, start_line, end_line, complexity, properties) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("rebuild: prepare nodes: %w", err)
	}
	defer nodeStmt.Close()
	for _, n := range nodes {
		if _, err := nodeStmt.Exec(n.ID, string(n.Type), n.Name, n.Path, n.Language, n.StartLine, n.EndLine, n.Complexity, marshalProps(n.Properties)); err != nil {
			return fmt.Errorf("rebuild: insert node %s: %w", n.ID, err)
		}
	}

	edgeStmt, err := tx.Prepare(`INSERT INTO edges (source, target, type, properties) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("rebuild: prepare edges: %w", err)
	}
	defer edgeStmt.Close()
	for _, e := range edges {
		if _, err := edgeStmt.Exec(e.Source, e.Target, string(e.Type), marshalProps(e.Properties)); err != nil {
			return fmt.Errorf("rebuild: insert edge %s-%s->%s: %w", e.Source, e.Type, e.Target, err)
		}
	}

	return tx.Commit()
}

func scanNode(row *sql.Row) (*graph.Node, error) {
	var n graph.Node
	var typ, props string
	if err := row.Scan(&n.ID, &typ, &n.Name, &n.Path, &n.Language, &n.StartLine, &n.EndLine, &n.Complexity, &props); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	n.Type = graph.NodeType(typ)
	n.Properties = unmarshalProps(props)
	return &n, nil
}

func scanNodes(rows *sql.Rows) ([]graph.Node, error) {
	var result []graph.Node
	for rows.Next() {
		var n graph.Node
		var typ, props string
		if err := rows.Scan(&n.ID, &typ, &n.Name, &n.Path, &n.Language, &n.StartLine, &n.EndLine, &n.Complexity, &props); err != nil {
			return nil, err
		}
		n.Type = graph.NodeType(typ)
		n.Properties = unmarshalProps(props)
		result = append(result, n)
	}
	return result, rows.Err()
}

func scanEdges(rows *sql.Rows) ([]graph.Edge, error) {
	var result []graph.Edge
	for rows.Next() {
		var e graph.Edge
		var typ, props string
		if err := rows.Scan(&e.Source, &e.Target, &typ, &props); err != nil {
			return nil, err
		}
		e.Type = graph.EdgeType(typ)
		e.Properties = unmarshalProps(props)
		result = append(result, e)
	}
	return result, rows.Err()
}
