package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/0ximu/mu/internal/config"
	"github.com/0ximu/mu/internal/daemon"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the graph daemon in the foreground",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(rootDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	srv, err := daemon.New(ctx, rootDir, cfg)
	if err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	path := lockPath(rootDir, cfg.LockDir)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("prepare lock dir: %w", err)
	}
	if err := srv.Acquire(path); err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}

	fmt.Printf("mu daemon listening on %s (root %s)\n", cfg.ListenAddr, rootDir)
	return srv.ListenAndServe(ctx)
}
