// Package tools defines the first-party tools handed to agents: the virtual
// filesystem surface, the todo list, web search, and sandboxed code
// execution. Every tool is a typed aigo tool; the agent loop dispatches them
// by JSON schema.
package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/leofalp/aigo/providers/tool"

	"github.com/researchfleet/deepagent/internal/store"
)

const maxReadLines = 2000

// LsInput lists files under a path prefix.
type LsInput struct {
	Prefix string `json:"prefix,omitempty" jsonschema:"description=Path prefix to list; defaults to the whole filesystem"`
}

// LsOutput is the listing result.
type LsOutput struct {
	Paths []string `json:"paths" jsonschema:"description=Matching file paths"`
}

// NewLsTool returns a tool that lists files in the research filesystem.
func NewLsTool(st store.Store) *tool.Tool[LsInput, LsOutput] {
	return tool.NewTool[LsInput, LsOutput](
		"ls",
		func(ctx context.Context, in LsInput) (LsOutput, error) {
			paths, err := st.List(ctx, in.Prefix)
			if err != nil {
				return LsOutput{}, err
			}
			return LsOutput{Paths: paths}, nil
		},
		tool.WithDescription("List files in the research filesystem. Long-term memory lives under /memories/, scratch space under /scratchpad/."),
	)
}

// ReadFileInput reads a file, optionally a line window of it.
type ReadFileInput struct {
	Path   string `json:"path" jsonschema:"description=File path to read,required"`
	Offset int    `json:"offset,omitempty" jsonschema:"description=Line number to start from (0-based)"`
	Limit  int    `json:"limit,omitempty" jsonschema:"description=Maximum number of lines to return"`
}

// ReadFileOutput is the numbered file content.
type ReadFileOutput struct {
	Content string `json:"content" jsonschema:"description=File content with line numbers"`
}

// NewReadFileTool returns a tool that reads files with cat -n style line
// numbers, so edits can reference exact lines.
func NewReadFileTool(st store.Store) *tool.Tool[ReadFileInput, ReadFileOutput] {
	return tool.NewTool[ReadFileInput, ReadFileOutput](
		"read_file",
		func(ctx context.Context, in ReadFileInput) (ReadFileOutput, error) {
			rec, ok, err := st.Get(ctx, in.Path)
			if err != nil {
				return ReadFileOutput{}, err
			}
			if !ok {
				return ReadFileOutput{}, fmt.Errorf("%s: %w", in.Path, store.ErrNotFound)
			}
			if rec.Content == "" {
				return ReadFileOutput{Content: "(empty file)"}, nil
			}

			lines := strings.Split(rec.Content, "\n")
			offset := in.Offset
			if offset < 0 || offset >= len(lines) {
				offset = 0
			}
			limit := in.Limit
			if limit <= 0 || limit > maxReadLines {
				limit = maxReadLines
			}
			end := offset + limit
			if end > len(lines) {
				end = len(lines)
			}

			var b strings.Builder
			for i := offset; i < end; i++ {
				fmt.Fprintf(&b, "%6d\t%s\n", i+1, lines[i])
			}
			return ReadFileOutput{Content: b.String()}, nil
		},
		tool.WithDescription("Read a file from the research filesystem. Returns numbered lines; use offset/limit for large files."),
	)
}

// WriteFileInput creates or overwrites a file.
type WriteFileInput struct {
	Path    string `json:"path" jsonschema:"description=File path to write,required"`
	Content string `json:"content" jsonschema:"description=Full file content,required"`
}

// WriteFileOutput confirms the write.
type WriteFileOutput struct {
	Path  string `json:"path"`
	Bytes int    `json:"bytes"`
}

// NewWriteFileTool returns a tool that writes a whole file.
func NewWriteFileTool(st store.Store) *tool.Tool[WriteFileInput, WriteFileOutput] {
	return tool.NewTool[WriteFileInput, WriteFileOutput](
		"write_file",
		func(ctx context.Context, in WriteFileInput) (WriteFileOutput, error) {
			now := time.Now().UTC()
			rec, ok, err := st.Get(ctx, in.Path)
			if err != nil {
				return WriteFileOutput{}, err
			}
			created := now
			if ok {
				created = rec.CreatedAt
			}
			err = st.Put(ctx, in.Path, store.FileRecord{
				Content:    in.Content,
				CreatedAt:  created,
				ModifiedAt: now,
			})
			if err != nil {
				return WriteFileOutput{}, err
			}
			return WriteFileOutput{Path: store.NormalizePath(in.Path), Bytes: len(in.Content)}, nil
		},
		tool.WithDescription("Create or overwrite a file in the research filesystem. Writes under /memories/ persist across runs."),
	)
}

// EditFileInput performs an exact string replacement in a file.
type EditFileInput struct {
	Path       string `json:"path" jsonschema:"description=File path to edit,required"`
	OldString  string `json:"old_string" jsonschema:"description=Exact text to replace,required"`
	NewString  string `json:"new_string" jsonschema:"description=Replacement text,required"`
	ReplaceAll bool   `json:"replace_all,omitempty" jsonschema:"description=Replace every occurrence instead of requiring a unique match"`
}

// EditFileOutput reports how many replacements were made.
type EditFileOutput struct {
	Path         string `json:"path"`
	Replacements int    `json:"replacements"`
}

// NewEditFileTool returns a tool that edits files by exact string match.
// The target must exist and, unless replace_all is set, be unique.
func NewEditFileTool(st store.Store) *tool.Tool[EditFileInput, EditFileOutput] {
	return tool.NewTool[EditFileInput, EditFileOutput](
		"edit_file",
		func(ctx context.Context, in EditFileInput) (EditFileOutput, error) {
			rec, ok, err := st.Get(ctx, in.Path)
			if err != nil {
				return EditFileOutput{}, err
			}
			if !ok {
				return EditFileOutput{}, fmt.Errorf("%s: %w", in.Path, store.ErrNotFound)
			}

			count := strings.Count(rec.Content, in.OldString)
			switch {
			case in.OldString == "":
				return EditFileOutput{}, fmt.Errorf("old_string must not be empty")
			case count == 0:
				return EditFileOutput{}, fmt.Errorf("old_string not found in %s", in.Path)
			case count > 1 && !in.ReplaceAll:
				return EditFileOutput{}, fmt.Errorf("old_string appears %d times in %s; pass replace_all or make it unique", count, in.Path)
			}

			replaced := count
			if !in.ReplaceAll {
				replaced = 1
				rec.Content = strings.Replace(rec.Content, in.OldString, in.NewString, 1)
			} else {
				rec.Content = strings.ReplaceAll(rec.Content, in.OldString, in.NewString)
			}
			rec.ModifiedAt = time.Now().UTC()

			if err := st.Put(ctx, in.Path, rec); err != nil {
				return EditFileOutput{}, err
			}
			return EditFileOutput{Path: store.NormalizePath(in.Path), Replacements: replaced}, nil
		},
		tool.WithDescription("Replace an exact string in a file. Fails if the string is missing or ambiguous unless replace_all is set."),
	)
}
