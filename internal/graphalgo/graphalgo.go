// Package graphalgo computes reachability, cycle, and shortest-path
// queries over a code graph snapshot. Every algorithm here is pure: it
// loads a Snapshot once and never writes back to the store, matching
// the teacher's store.BFS except that hops are resolved against an
// in-memory index rather than one query per edge.
package graphalgo

import (
	"context"
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring"

	"github.com/0ximu/mu/internal/graph"
	"github.com/0ximu/mu/internal/graphstore"
)

// Snapshot is an immutable, in-memory view of a code graph taken at one
// point in time. It is cheap to build from a Store and safe to reuse
// across many algorithm calls until the caller decides to refresh it.
type Snapshot struct {
	nodes   []graph.Node
	indexOf map[string]uint32   // node id -> dense integer index, for roaring bitmaps
	idOf    []string            // index -> node id, inverse of indexOf
	out     []map[string][]uint32 // index -> edge type -> target indices
	in      []map[string][]uint32 // index -> edge type -> source indices
}

// Load takes a snapshot of the store's current graph.
func Load(ctx context.Context, store *graphstore.Store) (*Snapshot, error) {
	nodes, err := store.AllNodes()
	if err != nil {
		return nil, fmt.Errorf("graphalgo: load nodes: %w", err)
	}
	edges, err := store.AllEdges()
	if err != nil {
		return nil, fmt.Errorf("graphalgo: load edges: %w", err)
	}
	return build(nodes, edges), nil
}

func build(nodes []graph.Node, edges []graph.Edge) *Snapshot {
	s := &Snapshot{
		nodes:   nodes,
		indexOf: make(map[string]uint32, len(nodes)),
		idOf:    make([]string, len(nodes)),
	}
	for i, n := range nodes {
		s.indexOf[n.ID] = uint32(i)
		s.idOf[i] = n.ID
	}
	s.out = make([]map[string][]uint32, len(nodes))
	s.in = make([]map[string][]uint32, len(nodes))
	for i := range nodes {
		s.out[i] = make(map[string][]uint32)
		s.in[i] = make(map[string][]uint32)
	}
	for _, e := range edges {
		si, sok := s.indexOf[e.Source]
		ti, tok := s.indexOf[e.Target]
		if !sok || !tok {
			continue
		}
		et := string(e.Type)
		s.out[si][et] = append(s.out[si][et], ti)
		s.in[ti][et] = append(s.in[ti][et], si)
	}
	return s
}

// NodeCount returns the number of nodes in the snapshot.
func (s *Snapshot) NodeCount() int { return len(s.nodes) }

// neighbors returns the adjacency map to use for a traversal direction.
func (s *Snapshot) neighbors(reverse bool) []map[string][]uint32 {
	if reverse {
		return s.in
	}
	return s.out
}

// edgeFilter reports whether edgeType passes an (possibly empty) allow
// list. An empty list means "all edge types".
func edgeFilter(edgeType string, allow []string) bool {
	if len(allow) == 0 {
		return true
	}
	for _, t := range allow {
		if t == edgeType {
			return true
		}
	}
	return false
}

func asStrings(edgeTypes []graph.EdgeType) []string {
	out := make([]string, len(edgeTypes))
	for i, t := range edgeTypes {
		out[i] = string(t)
	}
	return out
}

// bfs performs a breadth-first walk from startID in the given direction,
// visiting nodes at most once (tracked in a roaring bitmap keyed by
// dense index) and returning every visited node id except the start,
// in the order discovered.
func (s *Snapshot) bfs(startID string, reverse bool, edgeTypes []string) ([]string, bool) {
	start, ok := s.indexOf[startID]
	if !ok {
		return nil, false
	}
	adj := s.neighbors(reverse)

	visited := roaring.New()
	visited.Add(start)

	queue := []uint32{start}
	var order []string

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for et, targets := range adj[cur] {
			if !edgeFilter(et, edgeTypes) {
				continue
			}
			for _, next := range targets {
				if visited.Contains(next) {
					continue
				}
				visited.Add(next)
				order = append(order, s.idOf[next])
				queue = append(queue, next)
			}
		}
	}

	return order, true
}

// Impact returns every node reachable from nodeID by forward BFS over
// the given edge types (all types if empty). The start node itself is
// never included.
func (s *Snapshot) Impact(nodeID string, edgeTypes ...graph.EdgeType) ([]string, error) {
	order, ok := s.bfs(nodeID, false, asStrings(edgeTypes))
	if !ok {
		return nil, &NotFoundError{NodeID: nodeID}
	}
	return order, nil
}

// Ancestors returns every node that can reach nodeID by reverse BFS
// over the given edge types (all types if empty).
func (s *Snapshot) Ancestors(nodeID string, edgeTypes ...graph.EdgeType) ([]string, error) {
	order, ok := s.bfs(nodeID, true, asStrings(edgeTypes))
	if !ok {
		return nil, &NotFoundError{NodeID: nodeID}
	}
	return order, nil
}

// ShortestPath finds the shortest path from fromID to toID, up to
// maxDepth hops, breaking ties between equally-short paths by
// preferring the lexicographically smaller next hop at each step so
// the result is deterministic. Returns (nil, nil) if no path exists
// within maxDepth.
func (s *Snapshot) ShortestPath(fromID, toID string, maxDepth int) ([]string, error) {
	from, ok := s.indexOf[fromID]
	if !ok {
		return nil, &NotFoundError{NodeID: fromID}
	}
	to, ok := s.indexOf[toID]
	if !ok {
		return nil, &NotFoundError{NodeID: toID}
	}
	if maxDepth <= 0 {
		maxDepth = 5
	}
	if from == to {
		return []string{s.idOf[from]}, nil
	}

	visited := roaring.New()
	visited.Add(from)
	prev := make(map[uint32]uint32)

	type frame struct {
		idx   uint32
		depth int
	}
	queue := []frame{{from, 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}

		nexts := sortedOutNeighbors(s.out[cur.idx], s.idOf)
		for _, next := range nexts {
			if visited.Contains(next) {
				continue
			}
			visited.Add(next)
			prev[next] = cur.idx
			if next == to {
				return reconstruct(prev, from, to, s.idOf), nil
			}
			queue = append(queue, frame{next, cur.depth + 1})
		}
	}

	return nil, nil
}

// sortedOutNeighbors flattens a node's per-type adjacency into a single
// deduplicated slice of target indices sorted lexicographically by node
// id, so BFS exploration order is reproducible regardless of map
// iteration.
func sortedOutNeighbors(byType map[string][]uint32, idOf []string) []uint32 {
	seen := make(map[uint32]bool)
	var out []uint32
	for _, targets := range byType {
		for _, t := range targets {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return idOf[out[i]] < idOf[out[j]] })
	return out
}

func reconstruct(prev map[uint32]uint32, from, to uint32, idOf []string) []string {
	var rev []uint32
	cur := to
	for cur != from {
		rev = append(rev, cur)
		cur = prev[cur]
	}
	rev = append(rev, from)

	path := make([]string, len(rev))
	for i, idx := range rev {
		path[len(rev)-1-i] = idOf[idx]
	}
	return path
}

// NotFoundError is returned when an algorithm is asked to start from a
// node id absent from the snapshot.
type NotFoundError struct {
	NodeID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("graphalgo: node not found: %s", e.NodeID)
}
