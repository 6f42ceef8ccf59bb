package main

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/0ximu/mu/internal/config"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running graph daemon",
	RunE:  runStop,
}

const shutdownTimeout = 5 * time.Second

func runStop(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(rootDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	path := lockPath(rootDir, cfg.LockDir)
	pid, running := readPID(path)
	if !running {
		fmt.Println("daemon not running")
		return nil
	}

	fmt.Printf("stopping daemon (pid %d)\n", pid)
	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("send SIGTERM to %d: %w", pid, err)
	}

	deadline := time.Now().Add(shutdownTimeout)
	for time.Now().Before(deadline) {
		if _, stillRunning := readPID(path); !stillRunning {
			fmt.Println("daemon stopped")
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	fmt.Println("daemon did not exit in time, sending SIGKILL")
	if err := proc.Signal(syscall.SIGKILL); err != nil {
		return fmt.Errorf("send SIGKILL to %d: %w", pid, err)
	}
	_ = os.Remove(path)
	return nil
}
