// Package main is the entry point for the standalone replay CLI.
// It renders session log files directly, without loading any config.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/researchfleet/deepagent/internal/replay"
	"github.com/researchfleet/deepagent/internal/session"
)

// Build-time variables
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	args := os.Args[1:]

	verbosity := 0
	var paths []string

	for _, arg := range args {
		switch {
		case arg == "-v" || arg == "--verbose":
			verbosity = 1
		case arg == "--version":
			fmt.Printf("replay version %s (commit: %s, built: %s)\n", version, commit, buildTime)
			os.Exit(0)
		case arg == "-h" || arg == "--help":
			printUsage()
			os.Exit(0)
		case !strings.HasPrefix(arg, "-"):
			paths = append(paths, arg)
		default:
			fmt.Fprintf(os.Stderr, "unknown flag: %s\n", arg)
			os.Exit(1)
		}
	}

	if len(paths) == 0 {
		printUsage()
		os.Exit(1)
	}

	files, err := expandPaths(paths)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "error: no session files found")
		os.Exit(1)
	}

	r := replay.New(os.Stdout, verbosity)
	for _, file := range files {
		sess, err := loadSession(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		if err := r.Replay(sess); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}
}

func printUsage() {
	fmt.Println(`replay - render session logs as transcripts

Usage:
  replay [options] <session.json>...
  replay [options] <directory>

Options:
  -v, --verbose     Show full event content
  --version         Show version
  -h, --help        Show this help

Examples:
  replay session.json
  replay -v ~/.local/deepagent/sessions/`)
}

// loadSession reads a session JSON file.
func loadSession(path string) (*session.Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	var sess session.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("cannot parse %s: %w", path, err)
	}
	return &sess, nil
}

// expandPaths takes file paths and directories and returns all session JSON files.
func expandPaths(paths []string) ([]string, error) {
	var files []string

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", p, err)
		}

		if info.IsDir() {
			entries, err := os.ReadDir(p)
			if err != nil {
				return nil, fmt.Errorf("cannot read directory %s: %w", p, err)
			}
			for _, entry := range entries {
				if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
					files = append(files, filepath.Join(p, entry.Name()))
				}
			}
		} else {
			files = append(files, p)
		}
	}

	return files, nil
}
