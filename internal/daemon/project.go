package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/0ximu/mu/internal/config"
	"github.com/0ximu/mu/internal/graphalgo"
	"github.com/0ximu/mu/internal/graphstore"
	"github.com/0ximu/mu/internal/muql"
	"github.com/0ximu/mu/internal/watcher"
	"github.com/0ximu/mu/internal/worker"
)

// project is one open workspace: its store, its single writer, its
// watcher, and the cached query surfaces layered on top of them.
type project struct {
	root   string
	store  *graphstore.Store
	worker *worker.Worker
	engine *muql.Engine
	cache  *algoCache

	failures int64 // consecutive pipeline failures, drives degraded status
}

func openProject(ctx context.Context, root string, cfg *config.Config) (*project, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("daemon: resolve root %s: %w", root, err)
	}

	mubase := filepath.Join(root, ".mu", "mubase")
	store, err := graphstore.Open(mubase)
	if err != nil {
		return nil, fmt.Errorf("daemon: open store: %w", err)
	}

	w := worker.New(root, store)
	p := &project{
		root:   root,
		store:  store,
		worker: w,
		engine: muql.New(store),
		cache:  newAlgoCache(1024, cfg.CacheTTL),
	}

	if err := w.FullIndex(ctx); err != nil {
		slog.Warn("daemon.full_index", "root", root, "err", err)
	}

	go p.watch()
	go p.drainErrors()

	return p, nil
}

// watch runs the filesystem watcher for the life of the project,
// feeding every debounced change through the single-writer worker and
// invalidating the algorithm cache on every committed change-set.
func (p *project) watch() {
	w, err := watcher.New(p.root)
	if err != nil {
		slog.Error("daemon.watcher_init", "root", p.root, "err", err)
		return
	}

	ctx := context.Background()
	go func() {
		if err := w.Run(ctx); err != nil {
			slog.Error("daemon.watcher_run", "root", p.root, "err", err)
		}
	}()

	for change := range w.Changes {
		if err := p.worker.ApplyChange(ctx, change); err != nil {
			atomic.AddInt64(&p.failures, 1)
			slog.Warn("daemon.apply_change", "path", change.Path, "err", err)
			continue
		}
		atomic.StoreInt64(&p.failures, 0)
		p.cache.invalidateAll()
	}
}

// drainErrors logs worker errors pushed on its Errors channel so a
// sustained failure rate is observable without the channel filling up
// and blocking the worker.
func (p *project) drainErrors() {
	for err := range p.worker.Errors {
		atomic.AddInt64(&p.failures, 1)
		slog.Warn("daemon.worker_error", "root", p.root, "err", err)
	}
}

// degraded reports whether this project has seen enough consecutive
// pipeline failures to flip /status into a degraded report.
func (p *project) degraded() bool {
	return atomic.LoadInt64(&p.failures) >= degradedThreshold
}

const degradedThreshold = 5

func (p *project) snapshot(ctx context.Context) (*graphalgo.Snapshot, error) {
	return graphalgo.Load(ctx, p.store)
}

// registry maps workspace roots to their open projects. The daemon
// resolves a request's optional cwd to the nearest registered root
// under a read lock, then works against that project's handle.
type registry struct {
	mu       sync.RWMutex
	projects map[string]*project
	cfg      *config.Config
}

func newRegistry(cfg *config.Config) *registry {
	return &registry{projects: make(map[string]*project), cfg: cfg}
}

func (r *registry) open(ctx context.Context, root string) (*project, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	if p, ok := r.projects[root]; ok {
		r.mu.RUnlock()
		return p, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.projects[root]; ok {
		return p, nil
	}
	p, err := openProject(ctx, root, r.cfg)
	if err != nil {
		return nil, err
	}
	r.projects[root] = p
	return p, nil
}

// resolve finds the project whose root is the nearest registered
// ancestor of cwd, or the single registered project if cwd is empty
// and exactly one project is open.
func (r *registry) resolve(cwd string) (*project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if cwd == "" {
		if len(r.projects) == 1 {
			for _, p := range r.projects {
				return p, nil
			}
		}
		return nil, fmt.Errorf("daemon: cwd required, %d projects registered", len(r.projects))
	}

	abs, err := filepath.Abs(cwd)
	if err != nil {
		return nil, err
	}
	for dir := abs; ; {
		if p, ok := r.projects[dir]; ok {
			return p, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return nil, fmt.Errorf("daemon: no project registered for %s", cwd)
}

func (r *registry) all() []*project {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*project, 0, len(r.projects))
	for _, p := range r.projects {
		out = append(out, p)
	}
	return out
}
