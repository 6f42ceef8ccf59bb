// Package graphstore persists a code graph to a single-file SQLite
// database (a ".mubase" file). One Store owns one workspace: unlike a
// multi-tenant store keyed by project name, every node id here is
// already workspace-unique, so there is no project column.
//
// Node and edge identity is the stable string id from package graph,
// never the SQLite rowid — the rowid exists only to give the nodes and
// edges tables an efficient integer primary key for joins and indexes,
// and is never returned to callers outside this package.
package graphstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/0ximu/mu/internal/graph"
)

// SchemaVersion is written to the metadata table and checked on Open.
const SchemaVersion = "1.0.0"

// Store wraps a SQLite connection holding one workspace's code graph.
// All writes are serialized through mu: the daemon enforces a single
// writer per workspace, but Store itself does not assume that and
// takes the lock on every mutating call.
type Store struct {
	db     *sql.DB
	path   string
	mu     sync.RWMutex
	aux    map[string]bool // lazily-created auxiliary tables already ensured this session
	auxMu  sync.Mutex
}

// Open opens or creates a graph store at path. Passing ":memory:"
// opens an in-memory database, used by tests; it is opened with
// cache=shared, so every ":memory:" store open at once in the process
// sees the same database.
func Open(path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)"
	if path == ":memory:" {
		dsn = "file::memory:?cache=shared&_pragma=foreign_keys(ON)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mubase: %w", err)
	}
	s := &Store{db: db, path: path, aux: make(map[string]bool)}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate mubase: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the filesystem path this store was opened from.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS metadata (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS nodes (
		rowid      INTEGER PRIMARY KEY AUTOINCREMENT,
		id         TEXT NOT NULL UNIQUE,
		type       TEXT NOT NULL,
		name       TEXT NOT NULL,
		path       TEXT NOT NULL DEFAULT '',
		language   TEXT NOT NULL DEFAULT '',
		start_line INTEGER NOT NULL DEFAULT 0,
		end_line   INTEGER NOT NULL DEFAULT 0,
		complexity INTEGER NOT NULL DEFAULT 0,
		properties TEXT NOT NULL DEFAULT '{}'
	);
	CREATE INDEX IF NOT EXISTS idx_nodes_type ON nodes(type);
	CREATE INDEX IF NOT EXISTS idx_nodes_name ON nodes(name);
	CREATE INDEX IF NOT EXISTS idx_nodes_path ON nodes(path);

	CREATE TABLE IF NOT EXISTS edges (
		rowid      INTEGER PRIMARY KEY AUTOINCREMENT,
		source     TEXT NOT NULL,
		target     TEXT NOT NULL,
		type       TEXT NOT NULL,
		properties TEXT NOT NULL DEFAULT '{}',
		UNIQUE(source, target, type)
	);
	CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source, type);
	CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target, type);
	CREATE INDEX IF NOT EXISTS idx_edges_type ON edges(type);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	var version string
	err := s.db.QueryRow(`SELECT value FROM metadata WHERE key='schema_version'`).Scan(&version)
	switch {
	case err == sql.ErrNoRows:
		_, err = s.db.Exec(`INSERT INTO metadata(key, value) VALUES ('schema_version', ?)`, SchemaVersion)
		return err
	case err != nil:
		return err
	case version != SchemaVersion:
		// Forward-only schema: a mismatch here means a newer mu wrote this
		// file. Re-stamping would silently hide a real incompatibility, so
		// the caller learns about it instead of losing data underneath.
		return fmt.Errorf("mubase schema version %q is newer than this build (%q)", version, SchemaVersion)
	}
	return nil
}

// ensureAuxTable lazily creates one of the optional tables (patterns,
// memories, snapshots, node_history, edge_history) the first time it is
// needed. Callers that only read from an aux table must tolerate it
// being entirely absent — see HasAuxTable.
func (s *Store) ensureAuxTable(name, ddl string) error {
	s.auxMu.Lock()
	defer s.auxMu.Unlock()
	if s.aux[name] {
		return nil
	}
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("ensure table %s: %w", name, err)
	}
	s.aux[name] = true
	return nil
}

// HasAuxTable reports whether an optional table currently exists,
// without creating it.
func (s *Store) HasAuxTable(name string) bool {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	return err == nil && n > 0
}

func marshalProps(props map[string]any) string {
	if len(props) == 0 {
		return "{}"
	}
	b, err := json.Marshal(props)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func unmarshalProps(data string) map[string]any {
	if data == "" {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return map[string]any{}
	}
	return m
}

// Stats summarizes the current graph contents.
type Stats struct {
	NodeCount    int
	EdgeCount    int
	NodesByType  map[string]int
	EdgesByType  map[string]int
}

// Stats computes node/edge counts for the current graph.
func (s *Store) Stats() (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{NodesByType: map[string]int{}, EdgesByType: map[string]int{}}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM nodes`).Scan(&stats.NodeCount); err != nil {
		return stats, err
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM edges`).Scan(&stats.EdgeCount); err != nil {
		return stats, err
	}

	rows, err := s.db.Query(`SELECT type, COUNT(*) FROM nodes GROUP BY type`)
	if err != nil {
		return stats, err
	}
	for rows.Next() {
		var t string
		var c int
		if err := rows.Scan(&t, &c); err != nil {
			rows.Close()
			return stats, err
		}
		stats.NodesByType[t] = c
	}
	rows.Close()

	rows, err = s.db.Query(`SELECT type, COUNT(*) FROM edges GROUP BY type`)
	if err != nil {
		return stats, err
	}
	defer rows.Close()
	for rows.Next() {
		var t string
		var c int
		if err := rows.Scan(&t, &c); err != nil {
			return stats, err
		}
		stats.EdgesByType[t] = c
	}
	return stats, rows.Err()
}

// AllNodes returns every node currently stored, used by graphalgo to
// take an in-memory snapshot of the graph.
func (s *Store) AllNodes() ([]graph.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(`SELECT id, type, name, path, language, start_line, end_line, complexity, properties FROM nodes`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNodes(rows)
}

// AllEdges returns every edge currently stored.
func (s *Store) AllEdges() ([]graph.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(`SELECT source, target, type, properties FROM edges`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEdges(rows)
}
