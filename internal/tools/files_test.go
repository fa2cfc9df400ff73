package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/researchfleet/deepagent/internal/store"
)

func TestWriteThenReadFile(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()

	write := NewWriteFileTool(st)
	read := NewReadFileTool(st)

	out, err := write.Function(ctx, WriteFileInput{Path: "/scratchpad/report.md", Content: "line one\nline two"})
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if out.Bytes != len("line one\nline two") {
		t.Errorf("bytes = %d", out.Bytes)
	}

	got, err := read.Function(ctx, ReadFileInput{Path: "/scratchpad/report.md"})
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !strings.Contains(got.Content, "1\tline one") || !strings.Contains(got.Content, "2\tline two") {
		t.Errorf("numbered content wrong:\n%s", got.Content)
	}
}

func TestReadFileWindow(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	st.Put(ctx, "/scratchpad/big.txt", store.FileRecord{Content: "a\nb\nc\nd\ne"})

	read := NewReadFileTool(st)
	got, err := read.Function(ctx, ReadFileInput{Path: "/scratchpad/big.txt", Offset: 2, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got.Content, "b") || !strings.Contains(got.Content, "3\tc") || !strings.Contains(got.Content, "4\td") || strings.Contains(got.Content, "e") {
		t.Errorf("window wrong:\n%s", got.Content)
	}
}

func TestReadMissingFile(t *testing.T) {
	read := NewReadFileTool(store.NewMemStore())
	_, err := read.Function(context.Background(), ReadFileInput{Path: "/nope.txt"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestEditFile(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	st.Put(ctx, "/scratchpad/draft.md", store.FileRecord{Content: "alpha beta alpha"})
	edit := NewEditFileTool(st)

	// Ambiguous match must fail without replace_all.
	if _, err := edit.Function(ctx, EditFileInput{Path: "/scratchpad/draft.md", OldString: "alpha", NewString: "gamma"}); err == nil {
		t.Error("ambiguous edit did not fail")
	}

	out, err := edit.Function(ctx, EditFileInput{Path: "/scratchpad/draft.md", OldString: "alpha", NewString: "gamma", ReplaceAll: true})
	if err != nil {
		t.Fatalf("replace_all edit failed: %v", err)
	}
	if out.Replacements != 2 {
		t.Errorf("replacements = %d", out.Replacements)
	}
	rec, _, _ := st.Get(ctx, "/scratchpad/draft.md")
	if rec.Content != "gamma beta gamma" {
		t.Errorf("content = %q", rec.Content)
	}

	if _, err := edit.Function(ctx, EditFileInput{Path: "/scratchpad/draft.md", OldString: "missing", NewString: "x"}); err == nil {
		t.Error("edit with absent target did not fail")
	}
}

func TestLsTool(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	st.Put(ctx, "/memories/a.txt", store.FileRecord{})
	st.Put(ctx, "/scratchpad/b.txt", store.FileRecord{})

	ls := NewLsTool(st)
	out, err := ls.Function(ctx, LsInput{Prefix: "/memories/"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Paths) != 1 || out.Paths[0] != "/memories/a.txt" {
		t.Errorf("paths = %v", out.Paths)
	}
}

func TestWriteTodos(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	todos := NewWriteTodosTool(st)

	out, err := todos.Function(ctx, WriteTodosInput{Todos: []TodoItem{
		{Content: "research sources", Status: "completed"},
		{Content: "run analysis", Status: "in_progress"},
		{Content: "write report", Status: "pending"},
	}})
	if err != nil {
		t.Fatal(err)
	}
	want := "- [x] research sources\n- [~] run analysis\n- [ ] write report\n"
	if out.Rendered != want {
		t.Errorf("rendered = %q", out.Rendered)
	}

	rec, ok, _ := st.Get(ctx, TodoPath)
	if !ok || rec.Content != want {
		t.Errorf("stored todo list wrong: ok=%v content=%q", ok, rec.Content)
	}
}

func TestNormalizeSearchInput(t *testing.T) {
	tests := []struct {
		name      string
		in        WebSearchInput
		wantMax   int
		wantTopic string
	}{
		{"defaults", WebSearchInput{Query: "q"}, 5, "general"},
		{"explicit", WebSearchInput{Query: "q", MaxResults: 8, Topic: "finance"}, 8, "finance"},
		{"clamped high", WebSearchInput{Query: "q", MaxResults: 50}, 20, "general"},
		{"clamped low", WebSearchInput{Query: "q", MaxResults: -1, Topic: "news"}, 5, "news"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeSearchInput(tt.in)
			if got.MaxResults != tt.wantMax || got.Topic != tt.wantTopic || got.Query != "q" {
				t.Errorf("normalizeSearchInput(%+v) = %+v", tt.in, got)
			}
		})
	}
}
