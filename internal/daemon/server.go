// Package daemon runs the long-lived local process that holds a
// workspace's graph store open and serves the HTTP query surface over
// it. It owns the watcher and update worker for every project it has
// opened and serializes all writes through their single-writer workers.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/0ximu/mu/internal/config"
	"github.com/0ximu/mu/internal/lockfile"
)

// Server is the daemon process: one HTTP surface in front of a
// registry of open projects.
type Server struct {
	cfg       *config.Config
	registry  *registry
	hub       *hub
	httpSrv   *http.Server
	startedAt time.Time
	pid       int

	lockMu sync.Mutex
	lock   *lockfile.Lock

	idleMu    sync.Mutex
	idleTimer *time.Timer
}

// New builds a Server bound to cfg.ListenAddr and opens the project at
// root. Requests are routed by their cwd among the registered projects;
// no request registers a new one.
func New(ctx context.Context, root string, cfg *config.Config) (*Server, error) {
	reg := newRegistry(cfg)
	if _, err := reg.open(ctx, root); err != nil {
		return nil, err
	}

	s := &Server{
		cfg:       cfg,
		registry:  reg,
		hub:       newHub(),
		startedAt: time.Now(),
		pid:       os.Getpid(),
	}

	for _, p := range reg.all() {
		go s.hub.watch(p.worker)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /query", s.handleQuery)
	mux.HandleFunc("POST /context", s.handleContext)
	mux.HandleFunc("POST /impact", s.handleImpact)
	mux.HandleFunc("POST /ancestors", s.handleAncestors)
	mux.HandleFunc("POST /cycles", s.handleCycles)
	mux.HandleFunc("POST /deps", s.handleDeps)
	mux.HandleFunc("GET /events", s.handleEvents)

	s.httpSrv = &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: s.withActivity(mux),
	}
	s.resetIdleTimer()

	return s, nil
}

func (s *Server) uptime() time.Duration {
	return time.Since(s.startedAt)
}

// withActivity resets the idle-shutdown timer on every request, so the
// daemon only shuts itself down after cfg.IdleShutdown of total silence.
func (s *Server) withActivity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.resetIdleTimer()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) resetIdleTimer() {
	if s.cfg.IdleShutdown <= 0 {
		return
	}
	s.idleMu.Lock()
	defer s.idleMu.Unlock()
	if s.idleTimer != nil {
		s.idleTimer.Stop()
	}
	s.idleTimer = time.AfterFunc(s.cfg.IdleShutdown, func() {
		slog.Info("daemon.idle_shutdown", "after", s.cfg.IdleShutdown)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
}

// Acquire takes the advisory lock file for this daemon's lock directory,
// reclaiming a stale one left by a crashed process.
func (s *Server) Acquire(lockPath string) error {
	lock, err := lockfile.Acquire(lockPath)
	if err != nil {
		return err
	}
	s.lockMu.Lock()
	s.lock = lock
	s.lockMu.Unlock()
	return nil
}

// ListenAndServe blocks, serving HTTP until the context is cancelled or
// Shutdown is called.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server and releases the advisory
// lock, if one was acquired.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpSrv.Shutdown(ctx)

	s.lockMu.Lock()
	lock := s.lock
	s.lockMu.Unlock()
	if lock != nil {
		if rerr := lock.Release(); rerr != nil && err == nil {
			err = fmt.Errorf("daemon: release lock: %w", rerr)
		}
	}
	return err
}
