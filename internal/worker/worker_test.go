package worker

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/0ximu/mu/internal/graphstore"
	"github.com/0ximu/mu/internal/watcher"
)

func newTestWorker(t *testing.T) (*Worker, string) {
	t.Helper()
	root := t.TempDir()
	store, err := graphstore.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return New(root, store), root
}

func TestFullIndexBuildsGraph(t *testing.T) {
	w, root := newTestWorker(t)
	if err := os.WriteFile(filepath.Join(root, "a.py"), []byte("def hello():\n    pass\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	sub := w.Subscribe()
	if err := w.FullIndex(context.Background()); err != nil {
		t.Fatalf("FullIndex: %v", err)
	}

	stats, err := w.store.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.NodeCount == 0 {
		t.Error("expected nodes after full index")
	}

	var sawAdded bool
	for {
		select {
		case ev := <-sub:
			if ev.Kind == NodeAdded {
				sawAdded = true
			}
		default:
			goto done
		}
	}
done:
	if !sawAdded {
		t.Error("expected at least one node_added event after the initial index")
	}
	if w.Version() != 1 {
		t.Errorf("expected version 1 after first commit, got %d", w.Version())
	}
}

func TestApplyChangeAddedThenRemoved(t *testing.T) {
	w, root := newTestWorker(t)
	path := filepath.Join(root, "a.py")
	if err := os.WriteFile(path, []byte("def hello():\n    pass\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := w.ApplyChange(context.Background(), watcher.Change{Path: "a.py", Kind: watcher.Added}); err != nil {
		t.Fatalf("apply add: %v", err)
	}
	node, err := w.store.GetNode("mod:a.py")
	if err != nil {
		t.Fatalf("get node: %v", err)
	}
	if node == nil {
		t.Fatal("expected mod:a.py to exist after add")
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if err := w.ApplyChange(context.Background(), watcher.Change{Path: "a.py", Kind: watcher.Removed}); err != nil {
		t.Fatalf("apply remove: %v", err)
	}
	node, err = w.store.GetNode("mod:a.py")
	if err != nil {
		t.Fatalf("get node: %v", err)
	}
	if node != nil {
		t.Error("expected mod:a.py to be gone after removal")
	}
}

// TestApplyChangeIdempotent covers P6: replaying a modified event for a
// file whose content did not change emits no event and leaves the
// version unchanged.
func TestApplyChangeIdempotent(t *testing.T) {
	w, root := newTestWorker(t)
	if err := os.WriteFile(filepath.Join(root, "a.py"), []byte("def hello():\n    pass\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := w.FullIndex(context.Background()); err != nil {
		t.Fatalf("FullIndex: %v", err)
	}
	firstVersion := w.Version()

	sub := w.Subscribe()
	if err := w.ApplyChange(context.Background(), watcher.Change{Path: "a.py", Kind: watcher.Modified}); err != nil {
		t.Fatalf("apply unchanged modify: %v", err)
	}

	if w.Version() != firstVersion {
		t.Errorf("expected version to stay at %d for a no-op replay, got %d", firstVersion, w.Version())
	}
	select {
	case ev := <-sub:
		t.Errorf("expected no event for a content-unchanged replay, got %+v", ev)
	default:
	}
}

func TestParseErrorDropsFileNodesNotRaise(t *testing.T) {
	w, root := newTestWorker(t)
	if err := os.WriteFile(filepath.Join(root, "a.py"), []byte("def hello():\n    pass\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := w.FullIndex(context.Background()); err != nil {
		t.Fatalf("FullIndex: %v", err)
	}

	if err := os.Remove(filepath.Join(root, "a.py")); err != nil {
		t.Fatal(err)
	}
	if err := w.ApplyChange(context.Background(), watcher.Change{Path: "a.py", Kind: watcher.Modified}); err != nil {
		t.Fatalf("apply change for unreadable file: %v", err)
	}
	node, err := w.store.GetNode("mod:a.py")
	if err != nil {
		t.Fatalf("get node: %v", err)
	}
	if node != nil {
		t.Error("expected the node to drop out once its file could not be read")
	}
}
