package graphalgo

import (
	"sort"

	"github.com/0ximu/mu/internal/graph"
)

// FindCycles enumerates nontrivial strongly connected components
// (Tarjan's algorithm) over the given edge types (all types if empty).
// A single self-loop node counts as a cycle of size one; an SCC of
// size one with no self-loop is not a cycle and is excluded. Each
// cycle is returned as its member node ids in canonical rotation
// (starting from the lexicographically smallest id), and the list of
// cycles itself is sorted by that rotated first id, so the same graph
// always serializes the same way.
func (s *Snapshot) FindCycles(edgeTypes ...graph.EdgeType) [][]string {
	allow := asStrings(edgeTypes)
	n := len(s.nodes)

	t := &tarjan{
		s:       s,
		allow:   allow,
		index:   make([]int, n),
		low:     make([]int, n),
		onStack: make([]bool, n),
		next:    0,
	}
	for i := range t.index {
		t.index[i] = -1
	}

	var sccs [][]uint32
	for v := uint32(0); int(v) < n; v++ {
		if t.index[v] == -1 {
			t.strongconnect(v, &sccs)
		}
	}

	var cycles [][]string
	for _, scc := range sccs {
		if len(scc) == 1 && !hasSelfLoop(s, scc[0], allow) {
			continue
		}
		ids := make([]string, len(scc))
		for i, idx := range scc {
			ids[i] = s.idOf[idx]
		}
		cycles = append(cycles, canonicalRotation(ids))
	}

	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	return cycles
}

func hasSelfLoop(s *Snapshot, idx uint32, allow []string) bool {
	for et, targets := range s.out[idx] {
		if !edgeFilter(et, allow) {
			continue
		}
		for _, t := range targets {
			if t == idx {
				return true
			}
		}
	}
	return false
}

// canonicalRotation rotates ids so the lexicographically smallest id
// is first, preserving relative order otherwise.
func canonicalRotation(ids []string) []string {
	minIdx := 0
	for i, id := range ids {
		if id < ids[minIdx] {
			minIdx = i
		}
	}
	rotated := make([]string, len(ids))
	for i := range ids {
		rotated[i] = ids[(minIdx+i)%len(ids)]
	}
	return rotated
}

// tarjan holds the working state for one Tarjan SCC run over a
// Snapshot, filtered to edges passing allow.
type tarjan struct {
	s       *Snapshot
	allow   []string
	index   []int
	low     []int
	onStack []bool
	stack   []uint32
	next    int
}

func (t *tarjan) strongconnect(v uint32, sccs *[][]uint32) {
	t.index[v] = t.next
	t.low[v] = t.next
	t.next++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for et, targets := range t.s.out[v] {
		if !edgeFilter(et, t.allow) {
			continue
		}
		for _, w := range targets {
			switch {
			case t.index[w] == -1:
				t.strongconnect(w, sccs)
				if t.low[w] < t.low[v] {
					t.low[v] = t.low[w]
				}
			case t.onStack[w]:
				if t.index[w] < t.low[v] {
					t.low[v] = t.index[w]
				}
			}
		}
	}

	if t.low[v] != t.index[v] {
		return
	}

	var scc []uint32
	for {
		n := len(t.stack) - 1
		w := t.stack[n]
		t.stack = t.stack[:n]
		t.onStack[w] = false
		scc = append(scc, w)
		if w == v {
			break
		}
	}
	*sccs = append(*sccs, scc)
}
