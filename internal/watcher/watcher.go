// Package watcher streams debounced filesystem change notifications for
// one workspace. It prefers the operating system's native notification
// API (via fsnotify) and falls back to adaptive polling when that
// cannot be established — a read-only network mount, a container
// without inotify, or simply too many watched directories.
package watcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/0ximu/mu/internal/scanner"
)

const debounce = 200 * time.Millisecond

// ChangeKind is the kind of filesystem event a Change represents.
type ChangeKind string

const (
	Added    ChangeKind = "added"
	Modified ChangeKind = "modified"
	Removed  ChangeKind = "removed"
)

// Change is one debounced, content-verified filesystem change.
type Change struct {
	Path string // workspace-relative, forward-slash
	Kind ChangeKind
}

// Watcher streams Change events for one workspace root.
type Watcher struct {
	root    string
	sc      *scanner.Scanner
	hashes  map[string]string // last-seen content hash per relative path
	Changes chan Change
}

// New creates a Watcher rooted at root.
func New(root string) (*Watcher, error) {
	sc, err := scanner.New(root)
	if err != nil {
		return nil, err
	}
	return &Watcher{
		root:    sc.Root(),
		sc:      sc,
		hashes:  make(map[string]string),
		Changes: make(chan Change, 64),
	}, nil
}

// Run blocks until ctx is cancelled, emitting Change events on w.Changes.
// It seeds w.hashes from an initial scan (no events for pre-existing
// files) before watching begins.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.Changes)

	files, _, err := w.sc.Scan(ctx)
	if err != nil {
		return err
	}
	for _, f := range files {
		w.hashes[f.Path] = f.Hash
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("watcher.fsnotify_unavailable", "err", err, "fallback", "poll")
		return w.runPolling(ctx)
	}
	defer fsw.Close()

	if err := w.addTreeRecursive(fsw); err != nil {
		slog.Warn("watcher.fsnotify_add_failed", "err", err, "fallback", "poll")
		fsw.Close()
		return w.runPolling(ctx)
	}

	return w.runNotify(ctx, fsw)
}

func (w *Watcher) addTreeRecursive(fsw *fsnotify.Watcher) error {
	return filepath.Walk(w.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if w.sc.Root() != path && shouldSkipWatch(path) {
				return filepath.SkipDir
			}
			return fsw.Add(path)
		}
		return nil
	})
}

func shouldSkipWatch(path string) bool {
	base := filepath.Base(path)
	switch base {
	case ".git", "node_modules", "vendor", ".venv", "__pycache__", ".mu":
		return true
	}
	return false
}

// runNotify drives the fsnotify event loop, debouncing bursts of events
// on the same path and confirming each one against a fresh content hash
// before emitting it — a touch that doesn't change content never
// produces a Change.
func (w *Watcher) runNotify(ctx context.Context, fsw *fsnotify.Watcher) error {
	pending := make(map[string]*time.Timer)
	fire := make(chan string, 64)

	for {
		select {
		case <-ctx.Done():
			for _, t := range pending {
				t.Stop()
			}
			return ctx.Err()

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			rel, relErr := filepath.Rel(w.root, ev.Name)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					_ = fsw.Add(ev.Name)
					continue
				}
			}

			if t, exists := pending[rel]; exists {
				t.Stop()
			}
			pending[rel] = time.AfterFunc(debounce, func() { fire <- rel })

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher.fsnotify_error", "err", err)

		case rel := <-fire:
			delete(pending, rel)
			if c, ok := w.checkChange(rel); ok {
				w.emit(ctx, c)
			}
		}
	}
}

// checkChange re-hashes path and compares against the last known hash,
// classifying the result and updating w.hashes.
func (w *Watcher) checkChange(rel string) (Change, bool) {
	abs := filepath.Join(w.root, filepath.FromSlash(rel))
	hash, err := hashFile(abs)
	if err != nil {
		if _, existed := w.hashes[rel]; existed {
			delete(w.hashes, rel)
			return Change{Path: rel, Kind: Removed}, true
		}
		return Change{}, false
	}

	prev, existed := w.hashes[rel]
	w.hashes[rel] = hash
	switch {
	case !existed:
		return Change{Path: rel, Kind: Added}, true
	case prev != hash:
		return Change{Path: rel, Kind: Modified}, true
	default:
		return Change{}, false
	}
}

func (w *Watcher) emit(ctx context.Context, c Change) {
	select {
	case w.Changes <- c:
	case <-ctx.Done():
	}
}

// runPolling is the fallback path when fsnotify cannot be established:
// it rescans the workspace on an adaptive interval and diffs content
// hashes against the last scan.
func (w *Watcher) runPolling(ctx context.Context) error {
	interval := pollInterval(len(w.hashes))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			files, _, err := w.sc.Scan(ctx)
			if err != nil {
				continue
			}
			seen := make(map[string]bool, len(files))
			for _, f := range files {
				seen[f.Path] = true
				prev, existed := w.hashes[f.Path]
				w.hashes[f.Path] = f.Hash
				switch {
				case !existed:
					w.emit(ctx, Change{Path: f.Path, Kind: Added})
				case prev != f.Hash:
					w.emit(ctx, Change{Path: f.Path, Kind: Modified})
				}
			}
			for path := range w.hashes {
				if !seen[path] {
					delete(w.hashes, path)
					w.emit(ctx, Change{Path: path, Kind: Removed})
				}
			}

			next := pollInterval(len(w.hashes))
			if next != interval {
				interval = next
				ticker.Reset(interval)
			}
		}
	}
}

// pollInterval computes the adaptive poll interval from file count:
// 1s base plus 1s per 500 files, capped at 60s.
func pollInterval(fileCount int) time.Duration {
	ms := 1000 + (fileCount/500)*1000
	if ms > 60000 {
		ms = 60000
	}
	return time.Duration(ms) * time.Millisecond
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
