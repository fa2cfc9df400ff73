package store

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestMemStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	now := time.Now().UTC()
	rec := FileRecord{Content: "- note one\n", CreatedAt: now, ModifiedAt: now}
	if err := s.Put(ctx, "/scratchpad/notes.txt", rec); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok, err := s.Get(ctx, "/scratchpad/notes.txt")
	if err != nil || !ok {
		t.Fatalf("Get failed: ok=%v err=%v", ok, err)
	}
	if got.Content != rec.Content {
		t.Errorf("content mismatch: got %q", got.Content)
	}

	if err := s.Delete(ctx, "/scratchpad/notes.txt"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "/scratchpad/notes.txt"); ok {
		t.Error("file still present after delete")
	}
}

func TestMemStoreNormalizesPaths(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	if err := s.Put(ctx, "scratchpad//a.txt", FileRecord{Content: "x"}); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.Get(ctx, "/scratchpad/a.txt"); !ok {
		t.Error("normalized path not found")
	}
}

func TestCompositeRouting(t *testing.T) {
	ctx := context.Background()
	scratch := NewMemStore()
	persistent := NewMemStore()
	c := NewComposite(scratch, map[string]Store{MemoryDir: persistent})

	if err := c.Put(ctx, "/memories/coding.txt", FileRecord{Content: "- lesson"}); err != nil {
		t.Fatal(err)
	}
	if err := c.Put(ctx, "/scratchpad/tmp.txt", FileRecord{Content: "tmp"}); err != nil {
		t.Fatal(err)
	}

	// Routed writes land in the routed store, not the default.
	if _, ok, _ := persistent.Get(ctx, "/memories/coding.txt"); !ok {
		t.Error("memory file not routed to persistent store")
	}
	if _, ok, _ := scratch.Get(ctx, "/memories/coding.txt"); ok {
		t.Error("memory file leaked into scratch store")
	}

	// Reads and deletes route the same way.
	if _, ok, _ := c.Get(ctx, "/memories/coding.txt"); !ok {
		t.Error("routed Get missed")
	}
	if err := c.Delete(ctx, "/memories/coding.txt"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := persistent.Get(ctx, "/memories/coding.txt"); ok {
		t.Error("routed Delete missed")
	}
}

func TestCompositeListUnions(t *testing.T) {
	ctx := context.Background()
	scratch := NewMemStore()
	persistent := NewMemStore()
	c := NewComposite(scratch, map[string]Store{MemoryDir: persistent})

	c.Put(ctx, "/memories/a.txt", FileRecord{})
	c.Put(ctx, "/scratchpad/b.txt", FileRecord{})

	all, err := c.List(ctx, "/")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"/memories/a.txt", "/scratchpad/b.txt"}
	if !reflect.DeepEqual(all, want) {
		t.Errorf("List(/) = %v, want %v", all, want)
	}

	mem, err := c.List(ctx, "/memories/")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(mem, []string{"/memories/a.txt"}) {
		t.Errorf("List(/memories/) = %v", mem)
	}
}

func TestSeedCreatesMissingOnly(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	existing := FileRecord{Content: "- keep me", CreatedAt: time.Now().UTC()}
	s.Put(ctx, DefaultMemoryFiles[0], existing)

	if err := Seed(ctx, s, DefaultMemoryFiles); err != nil {
		t.Fatal(err)
	}

	got, _, _ := s.Get(ctx, DefaultMemoryFiles[0])
	if got.Content != existing.Content {
		t.Error("Seed overwrote an existing file")
	}
	for _, p := range DefaultMemoryFiles[1:] {
		if _, ok, _ := s.Get(ctx, p); !ok {
			t.Errorf("Seed did not create %s", p)
		}
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "memory.db"))
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	defer s.Close()

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := FileRecord{Content: "- fact\n- another\n", CreatedAt: created, ModifiedAt: created}
	if err := s.Put(ctx, "/memories/source_notes.txt", rec); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok, err := s.Get(ctx, "/memories/source_notes.txt")
	if err != nil || !ok {
		t.Fatalf("Get failed: ok=%v err=%v", ok, err)
	}
	if got.Content != rec.Content {
		t.Errorf("content mismatch: got %q", got.Content)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("created_at not preserved: %v", got.CreatedAt)
	}

	// Overwrite keeps created_at, moves modified_at.
	later := created.Add(time.Hour)
	rec.Content = "- trimmed\n"
	rec.ModifiedAt = later
	if err := s.Put(ctx, "/memories/source_notes.txt", rec); err != nil {
		t.Fatal(err)
	}
	got, _, _ = s.Get(ctx, "/memories/source_notes.txt")
	if !got.CreatedAt.Equal(created) || !got.ModifiedAt.Equal(later) {
		t.Errorf("timestamps wrong after overwrite: %+v", got)
	}

	paths, err := s.List(ctx, "/memories/")
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 1 || paths[0] != "/memories/source_notes.txt" {
		t.Errorf("List = %v", paths)
	}

	if err := s.Delete(ctx, "/memories/source_notes.txt"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.Get(ctx, "/memories/source_notes.txt"); ok {
		t.Error("file still present after delete")
	}
}
