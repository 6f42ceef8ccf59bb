package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPollIntervalScalesWithFileCount(t *testing.T) {
	cases := []struct {
		files int
		want  time.Duration
	}{
		{0, time.Second},
		{499, time.Second},
		{500, 2 * time.Second},
		{1500, 4 * time.Second},
	}
	for _, c := range cases {
		if got := pollInterval(c.files); got != c.want {
			t.Errorf("pollInterval(%d) = %v, want %v", c.files, got, c.want)
		}
	}
}

func TestPollIntervalCapped(t *testing.T) {
	if got := pollInterval(1_000_000); got != 60*time.Second {
		t.Errorf("pollInterval(huge) = %v, want 60s cap", got)
	}
}

func TestCheckChangeClassifiesAddedModifiedUnchanged(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.py")
	if err := os.WriteFile(path, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := &Watcher{root: dir, hashes: make(map[string]string)}

	c, ok := w.checkChange("a.py")
	if !ok || c.Kind != Added {
		t.Fatalf("expected Added on first sight, got %+v ok=%v", c, ok)
	}

	if _, ok := w.checkChange("a.py"); ok {
		t.Error("expected no change on unchanged content")
	}

	if err := os.WriteFile(path, []byte("v2"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, ok = w.checkChange("a.py")
	if !ok || c.Kind != Modified {
		t.Fatalf("expected Modified after content change, got %+v ok=%v", c, ok)
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	c, ok = w.checkChange("a.py")
	if !ok || c.Kind != Removed {
		t.Fatalf("expected Removed after deletion, got %+v ok=%v", c, ok)
	}
}

func TestRunPollingEmitsChanges(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.runPolling(ctx) }()

	// The first tick fires after the 1s base interval; a file created
	// before it is reported as Added by that tick.
	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "new.py"), []byte("pass"), 0o644); err != nil {
		t.Fatal(err)
	}

	var got *Change
	timeout := time.After(2 * time.Second)
loop:
	for {
		select {
		case c, ok := <-w.Changes:
			if !ok {
				break loop
			}
			if c.Path == "new.py" {
				cc := c
				got = &cc
				break loop
			}
		case <-timeout:
			break loop
		}
	}

	if got == nil || got.Kind != Added {
		t.Fatalf("expected an Added change for new.py, got %+v", got)
	}
}
