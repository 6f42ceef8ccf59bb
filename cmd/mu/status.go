package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/0ximu/mu/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether the graph daemon is running",
	RunE:  runStatus,
}

const statusTimeout = 2 * time.Second

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(rootDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pid, running := readPID(lockPath(rootDir, cfg.LockDir))

	client := http.Client{Timeout: statusTimeout}
	resp, httpErr := client.Get("http://" + cfg.ListenAddr + "/status")
	httpAvailable := httpErr == nil && resp.StatusCode == http.StatusOK

	switch {
	case httpAvailable:
		defer resp.Body.Close()
		var body map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
			body["pid"] = pid
			body["healthy"] = true
			enc, _ := json.MarshalIndent(body, "", "  ")
			fmt.Println(string(enc))
			return nil
		}
		fmt.Println("daemon running, status response unreadable")
	case running:
		fmt.Printf("daemon process present (pid %d) but not responding on %s\n", pid, cfg.ListenAddr)
	default:
		fmt.Println("daemon not running")
	}
	return nil
}

// readPID reads the PID recorded in the lock file at path, reporting
// whether it names a still-live process.
func readPID(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return pid, false
	}
	return pid, proc.Signal(syscall.Signal(0)) == nil
}
