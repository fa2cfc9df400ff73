// Package store provides the virtual filesystem exposed to agents.
//
// Files are addressed by slash-separated paths and stored as opaque text
// records. A Composite store routes paths by prefix so that long-term memory
// (under /memories/) survives across runs while everything else is scratch
// space scoped to a single run.
package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
)

// ErrNotFound is returned by operations that require an existing file.
var ErrNotFound = errors.New("file not found")

// FileRecord is the stored value for a single path.
type FileRecord struct {
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Store is a path-keyed file store. Implementations must be safe for
// concurrent use.
type Store interface {
	// List returns all paths with the given prefix, sorted. An empty prefix
	// lists everything.
	List(ctx context.Context, prefix string) ([]string, error)
	// Get returns the record at path. The bool reports whether it exists.
	Get(ctx context.Context, path string) (FileRecord, bool, error)
	// Put stores the record at path, overwriting any existing record.
	Put(ctx context.Context, path string, rec FileRecord) error
	// Delete removes the record at path. Deleting a missing path is not an
	// error.
	Delete(ctx context.Context, path string) error
}

// MemoryDir is the prefix under which files persist across runs.
const MemoryDir = "/memories/"

// DefaultMemoryFiles are created empty on startup so agents always find the
// same long-term memory layout.
var DefaultMemoryFiles = []string{
	MemoryDir + "website_quality.txt",
	MemoryDir + "research_lessons.txt",
	MemoryDir + "source_notes.txt",
	MemoryDir + "coding.txt",
}

// Seed creates each path with an empty record if it does not exist yet.
func Seed(ctx context.Context, s Store, paths []string) error {
	now := time.Now().UTC()
	for _, p := range paths {
		_, ok, err := s.Get(ctx, p)
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		if err := s.Put(ctx, p, FileRecord{CreatedAt: now, ModifiedAt: now}); err != nil {
			return err
		}
	}
	return nil
}

// NormalizePath collapses repeated slashes and guarantees a leading slash.
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func sortedUnique(paths []string) []string {
	sort.Strings(paths)
	out := paths[:0]
	var prev string
	for i, p := range paths {
		if i > 0 && p == prev {
			continue
		}
		out = append(out, p)
		prev = p
	}
	return out
}
