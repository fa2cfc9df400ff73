// memtool - offline inspection of the long-term memory store
//
// Commands:
//   memtool list <storage-path>
//   memtool show <file> <storage-path>
//   memtool stats <storage-path>
//   memtool trim [--max=N] [--dry-run] <storage-path>
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/researchfleet/deepagent/internal/store"
	"github.com/researchfleet/deepagent/internal/trim"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "list":
		cmdList(args)
	case "show":
		cmdShow(args)
	case "stats":
		cmdStats(args)
	case "trim":
		cmdTrim(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`memtool - offline inspection of the long-term memory store

Usage:
  memtool <command> [options] <storage-path>

Commands:
  list   List memory files with bullet counts
  show   Print one memory file
  stats  Show store statistics
  trim   Drop oldest bullets over the cap, without an LLM

Examples:
  memtool list ~/.local/deepagent
  memtool show /memories/research_lessons.txt ~/.local/deepagent
  memtool stats ~/.local/deepagent
  memtool trim --max=30 --dry-run ~/.local/deepagent`)
}

// cmdList lists memory files with bullet counts and timestamps.
func cmdList(args []string) {
	storagePath := positionalArg(args)
	db := mustOpen(storagePath)
	defer db.Close()

	ctx := context.Background()
	paths, err := db.List(ctx, store.MemoryDir)
	if err != nil {
		fatal("listing memory files: %v", err)
	}
	if len(paths) == 0 {
		fmt.Println("No memory files found.")
		return
	}

	for _, path := range paths {
		rec, ok, err := db.Get(ctx, path)
		if err != nil || !ok {
			continue
		}
		fmt.Printf("%-35s %3d bullets  created %s  modified %s\n",
			path,
			trim.CountBullets(rec.Content),
			rec.CreatedAt.Local().Format("2006-01-02"),
			rec.ModifiedAt.Local().Format("2006-01-02 15:04"))
	}
}

// cmdShow prints one memory file.
func cmdShow(args []string) {
	var file, storagePath string
	for _, arg := range args {
		if strings.HasPrefix(arg, "-") {
			continue
		}
		if file == "" {
			file = arg
		} else {
			storagePath = arg
		}
	}
	if file == "" || storagePath == "" {
		fmt.Fprintln(os.Stderr, "Error: file and storage path required")
		fmt.Fprintln(os.Stderr, "Usage: memtool show <file> <storage-path>")
		os.Exit(1)
	}

	db := mustOpen(storagePath)
	defer db.Close()

	rec, ok, err := db.Get(context.Background(), store.NormalizePath(file))
	if err != nil {
		fatal("reading %s: %v", file, err)
	}
	if !ok {
		fatal("no memory file %q", file)
	}
	fmt.Print(rec.Content)
	if !strings.HasSuffix(rec.Content, "\n") {
		fmt.Println()
	}
}

// cmdStats shows store statistics.
func cmdStats(args []string) {
	storagePath := positionalArg(args)

	dbPath := filepath.Join(storagePath, "memory.db")
	if info, err := os.Stat(dbPath); err == nil {
		fmt.Printf("Store: %s (%s)\n\n", dbPath, formatBytes(info.Size()))
	} else {
		fatal("no memory store at %s", dbPath)
	}

	db := mustOpen(storagePath)
	defer db.Close()

	ctx := context.Background()
	paths, err := db.List(ctx, "/")
	if err != nil {
		fatal("listing store: %v", err)
	}

	var memoryFiles, totalBullets int
	for _, path := range paths {
		if !strings.HasPrefix(path, store.MemoryDir) {
			continue
		}
		rec, ok, err := db.Get(ctx, path)
		if err != nil || !ok {
			continue
		}
		memoryFiles++
		totalBullets += trim.CountBullets(rec.Content)
	}

	fmt.Printf("Files:   %d total, %d under %s\n", len(paths), memoryFiles, store.MemoryDir)
	fmt.Printf("Bullets: %d\n", totalBullets)
}

// cmdTrim drops the oldest bullets of oversized files. Bullets are appended
// over time, so oldest means topmost.
func cmdTrim(args []string) {
	max := trim.DefaultMaxMemories
	dryRun := false
	var storagePath string

	for _, arg := range args {
		switch {
		case strings.HasPrefix(arg, "--max="):
			fmt.Sscanf(strings.TrimPrefix(arg, "--max="), "%d", &max)
		case arg == "--dry-run":
			dryRun = true
		case !strings.HasPrefix(arg, "-"):
			storagePath = arg
		}
	}
	if storagePath == "" {
		fatal("storage path required")
	}
	if max <= 0 {
		fatal("--max must be positive")
	}

	db := mustOpen(storagePath)
	defer db.Close()

	ctx := context.Background()
	paths, err := db.List(ctx, store.MemoryDir)
	if err != nil {
		fatal("listing memory files: %v", err)
	}

	for _, path := range paths {
		if !strings.HasSuffix(path, ".txt") {
			continue
		}
		rec, ok, err := db.Get(ctx, path)
		if err != nil || !ok {
			continue
		}
		count := trim.CountBullets(rec.Content)
		if count <= max {
			continue
		}

		trimmed, dropped := dropOldestBullets(rec.Content, max)
		fmt.Printf("%s: %d bullets, dropping oldest %d\n", path, count, dropped)
		if dryRun {
			continue
		}

		rec.Content = trimmed
		if err := db.Put(ctx, path, rec); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", path, err)
		}
	}
}

// dropOldestBullets keeps the preamble and the newest max bullet blocks. A
// block is a "- " line plus any continuation lines up to the next bullet.
func dropOldestBullets(content string, max int) (string, int) {
	lines := strings.Split(content, "\n")

	var preamble []string
	var blocks [][]string
	for _, line := range lines {
		if strings.HasPrefix(line, "- ") {
			blocks = append(blocks, []string{line})
			continue
		}
		if len(blocks) == 0 {
			preamble = append(preamble, line)
		} else {
			last := len(blocks) - 1
			blocks[last] = append(blocks[last], line)
		}
	}

	if len(blocks) <= max {
		return content, 0
	}
	dropped := len(blocks) - max
	kept := blocks[dropped:]

	out := append([]string{}, preamble...)
	for _, block := range kept {
		out = append(out, block...)
	}
	return strings.Join(out, "\n"), dropped
}

// positionalArg returns the first non-flag argument, or exits.
func positionalArg(args []string) string {
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") {
			return arg
		}
	}
	fmt.Fprintln(os.Stderr, "Error: storage path required")
	os.Exit(1)
	return ""
}

// mustOpen opens the SQLite store under the storage path.
func mustOpen(storagePath string) *store.SQLiteStore {
	db, err := store.OpenSQLite(filepath.Join(storagePath, "memory.db"))
	if err != nil {
		fatal("opening store: %v", err)
	}
	return db
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
