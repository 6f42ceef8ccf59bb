// Package lockfile implements the advisory write lock a CLI process
// takes on a graph store when no daemon is mediating access. A crash
// leaves the lock file behind; the next opener reclaims it once it
// confirms the recorded PID is no longer alive.
package lockfile

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// ErrHeld is returned by Acquire when another live process holds the lock.
type ErrHeld struct {
	Path string
	PID  int
}

func (e *ErrHeld) Error() string {
	return fmt.Sprintf("lockfile: %s held by pid %d", e.Path, e.PID)
}

// Lock is a held advisory lock. Callers must call Release when done.
type Lock struct {
	path string
}

// Acquire takes the advisory lock at path, which conventionally sits
// next to the store's database file (the daemon uses ".mu/daemon.pid"
// beside ".mu/mubase"). If the file
// already exists and records a PID that is still alive, Acquire fails
// with *ErrHeld. If the recorded process is gone, the stale lock is
// reclaimed and overwritten.
func Acquire(path string) (*Lock, error) {
	if pid, ok := readPID(path); ok {
		if alive(pid) {
			return nil, &ErrHeld{Path: path, PID: pid}
		}
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o600); err != nil {
		return nil, fmt.Errorf("lockfile: write %s: %w", path, err)
	}
	return &Lock{path: path}, nil
}

// Release removes the lock file. It is a no-op if the file is already gone.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("lockfile: remove %s: %w", l.path, err)
	}
	return nil
}

func readPID(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

// alive reports whether pid names a live process, using signal 0 to
// probe without actually delivering a signal.
func alive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
