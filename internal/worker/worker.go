// Package worker consumes a stream of file changes and keeps a graph
// store in sync with them. All processing happens on a single
// goroutine — there is only ever one writer to the underlying store —
// so callers never see a torn graph mid-update.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/zeebo/xxh3"

	"github.com/0ximu/mu/internal/ast"
	"github.com/0ximu/mu/internal/builder"
	"github.com/0ximu/mu/internal/graph"
	"github.com/0ximu/mu/internal/graphstore"
	"github.com/0ximu/mu/internal/lang"
	"github.com/0ximu/mu/internal/parser"
	"github.com/0ximu/mu/internal/scanner"
	"github.com/0ximu/mu/internal/watcher"
)

// EventKind identifies the nature of a graph mutation the worker
// publishes after processing a change.
type EventKind string

const (
	NodeAdded    EventKind = "node_added"
	NodeModified EventKind = "node_modified"
	NodeRemoved  EventKind = "node_removed"
)

// Event is one graph mutation notification.
type Event struct {
	Kind     EventKind
	NodeID   string
	NodeType string
	FilePath string
	Version  uint64
}

// Worker owns the in-memory module cache and the graph store for one
// workspace, and is the only writer to either.
type Worker struct {
	root    string
	store   *graphstore.Store
	modules   map[string]*ast.Module // keyed by workspace-relative path
	fprints   map[string]uint64      // last-published fingerprint per node id
	prevNodes map[string]graph.Node  // last-published node shape per node id

	mu      sync.Mutex
	version uint64

	subs   []chan Event
	Errors chan error
}

// Version returns the most recently committed change-set's sequence
// number. It starts at 0 before any commit has happened.
func (w *Worker) Version() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.version
}

// New creates a Worker over an already-open store.
func New(root string, store *graphstore.Store) *Worker {
	return &Worker{
		root:      root,
		store:     store,
		modules:   make(map[string]*ast.Module),
		fprints:   make(map[string]uint64),
		prevNodes: make(map[string]graph.Node),
		Errors:    make(chan error, 16),
	}
}

// Subscribe returns a channel of Events. The channel is buffered; a
// slow subscriber that falls behind has its oldest event dropped
// rather than blocking the worker, and a warning is logged once per
// drop so the condition is observable without starving the pipeline.
func (w *Worker) Subscribe() <-chan Event {
	ch := make(chan Event, 256)
	w.subs = append(w.subs, ch)
	return ch
}

func (w *Worker) publish(ev Event) {
	for _, ch := range w.subs {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			slog.Warn("worker.subscriber_full", "event", ev.Kind, "node", ev.NodeID)
			select {
			case ch <- ev:
			default:
			}
		}
	}
}

// FullIndex scans the workspace, parses every file, builds the graph,
// and atomically replaces the store's contents.
func (w *Worker) FullIndex(ctx context.Context) error {
	sc, err := scanner.New(w.root)
	if err != nil {
		return fmt.Errorf("full index: %w", err)
	}
	files, scanErrs, err := sc.Scan(ctx)
	if err != nil {
		return fmt.Errorf("full index scan: %w", err)
	}
	for _, e := range scanErrs {
		slog.Warn("worker.scan_error", "path", e.Path, "err", e.Err)
	}

	w.modules = make(map[string]*ast.Module, len(files))
	for _, f := range files {
		mod, err := w.parseFile(f.Path, string(f.Language))
		if err != nil {
			slog.Warn("worker.parse_error", "path", f.Path, "err", err)
			continue
		}
		if mod != nil {
			w.modules[f.Path] = mod
		}
	}

	return w.rebuildAndDiff(ctx)
}

// ApplyChange incrementally updates the graph for one watcher.Change.
// It never raises a hard error for a single bad file — parse failures
// and read failures are logged and the file is dropped from the graph
// instead, leaving the rest of the workspace indexed.
func (w *Worker) ApplyChange(ctx context.Context, c watcher.Change) error {
	switch c.Kind {
	case watcher.Removed:
		delete(w.modules, c.Path)
	default:
		language, ok := languageFor(c.Path)
		if !ok {
			return nil
		}
		mod, err := w.parseFile(c.Path, language)
		if err != nil {
			slog.Warn("worker.parse_error", "path", c.Path, "err", err)
			delete(w.modules, c.Path)
			break
		}
		if mod == nil {
			delete(w.modules, c.Path)
			break
		}
		w.modules[c.Path] = mod
	}
	return w.rebuildAndDiff(ctx)
}

func (w *Worker) parseFile(relPath, language string) (*ast.Module, error) {
	abs := filepath.Join(w.root, filepath.FromSlash(relPath))
	source, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}
	result := parser.ParseFile(source, relPath, language)
	if result.Error != nil {
		return nil, result.Error
	}
	return result.Module, nil
}

// rebuildAndDiff re-derives the whole graph from the current module
// cache, diffs it against the store's previous contents by per-node
// fingerprint, publishes node_added/node_modified/node_removed events
// for whatever changed, and atomically replaces the store.
func (w *Worker) rebuildAndDiff(ctx context.Context) error {
	mods := make([]*ast.Module, 0, len(w.modules))
	for _, m := range w.modules {
		mods = append(mods, m)
	}
	sort.Slice(mods, func(i, j int) bool { return mods[i].Path < mods[j].Path })

	result := builder.Build(mods)
	if result.DroppedCalls > 0 {
		slog.Debug("worker.dropped_calls", "count", result.DroppedCalls)
	}

	next := make(map[string]uint64, len(result.Nodes))
	nextNodes := make(map[string]graph.Node, len(result.Nodes))
	for _, n := range result.Nodes {
		next[n.ID] = fingerprint(n)
		nextNodes[n.ID] = n
	}

	var changed []Event
	for id, fp := range next {
		n := nextNodes[id]
		prev, existed := w.fprints[id]
		switch {
		case !existed:
			changed = append(changed, Event{Kind: NodeAdded, NodeID: id, NodeType: string(n.Type), FilePath: n.Path})
		case prev != fp:
			changed = append(changed, Event{Kind: NodeModified, NodeID: id, NodeType: string(n.Type), FilePath: n.Path})
		}
	}
	for id, n := range w.prevNodes {
		if _, ok := next[id]; !ok {
			changed = append(changed, Event{Kind: NodeRemoved, NodeID: id, NodeType: string(n.Type), FilePath: n.Path})
		}
	}
	w.fprints = next
	w.prevNodes = nextNodes

	if err := w.store.Rebuild(result.Nodes, result.Edges); err != nil {
		return err
	}

	if len(changed) > 0 {
		w.mu.Lock()
		w.version++
		v := w.version
		w.mu.Unlock()
		for i := range changed {
			changed[i].Version = v
			w.publish(changed[i])
		}
	}
	return nil
}

// fingerprint hashes the fields of a node that matter for change
// detection: name, qualified position, complexity, and properties.
// Nodes are considered unchanged if and only if their fingerprint is
// unchanged, so anything the daemon might report about a node belongs
// in this hash.
func fingerprint(n graph.Node) uint64 {
	h := xxh3.New()
	fmt.Fprintf(h, "%s|%s|%s|%d|%d|%d|%v", n.Type, n.Name, n.Path, n.StartLine, n.EndLine, n.Complexity, n.Properties)
	return h.Sum64()
}

func languageFor(relPath string) (string, bool) {
	l, ok := lang.LanguageForExtension(filepath.Ext(relPath))
	return string(l), ok
}
