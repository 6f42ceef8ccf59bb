// Command mu is the CLI front end for the graph daemon: it starts and
// stops the long-lived process, reports its status, and otherwise
// hands off to subcommands that talk to it over HTTP.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var version = "dev"

var rootDir string

var rootCmd = &cobra.Command{
	Use:     "mu",
	Short:   "Multi-language code graph engine",
	Long:    "mu indexes a codebase into a queryable graph and keeps it current as files change.",
	Version: version,
}

func init() {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", cwd, "workspace root")
	rootCmd.AddCommand(serveCmd, statusCmd, stopCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "mu: %v\n", err)
		os.Exit(1)
	}
}

func lockPath(root, lockDir string) string {
	return filepath.Join(root, lockDir, "daemon.pid")
}
