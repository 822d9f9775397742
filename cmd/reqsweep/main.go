// Package main is the entry point for the reqsweep CLI.
//
// Reqsweep reads HTTP requests from stdin, sends them concurrently, and
// reports response metadata in plain, JSONL, or CSV form. It can also
// run as an MCP tool server so agents can drive the same pipeline.
//
// Usage:
//
//	cat urls.txt | reqsweep run            # Probe a list of targets
//	cat urls.txt | reqsweep run -f jsonl   # Machine-readable output
//	reqsweep serve                         # Start the MCP tool server
//	reqsweep version                       # Show version info
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "reqsweep",
	Short: "A concurrent HTTP request prober",
	Long: `Reqsweep sends HTTP requests read from stdin and reports what came back.

Each input line is either a bare URL or "METHOD URL BODY". Scheme-less
targets get https:// (or http:// when the port is 80). Results stream
out as colored plain text, JSONL, or CSV.

Quick start:
  1. Put one target per line in a file (urls.txt)
  2. Run: cat urls.txt | reqsweep run
  3. Filter, e.g.: cat urls.txt | reqsweep run --filter-status 200

Options can also come from a YAML file:
  reqsweep run -c reqsweep.yaml`,
	// No Run/RunE means this just shows help when called without subcommands
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// newLogger creates a JSON logger for CLI use. Logs go to stderr so
// they never mix with result output on stdout.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this reqsweep binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("reqsweep %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Register subcommands with root
	rootCmd.AddCommand(versionCmd)
}
