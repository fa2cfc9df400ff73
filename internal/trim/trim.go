// Package trim implements the post-run memory cleanup hook.
//
// After a run completes, every long-term memory file is checked against a
// soft cap on bullet count. Files over the cap are rewritten by a small LLM
// that consolidates overlapping entries and drops stale ones. The hook is
// best-effort: a failure on one file is logged and the rest proceed.
package trim

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/leofalp/aigo/providers/ai"

	"github.com/researchfleet/deepagent/internal/store"
)

// DefaultMaxMemories is the bullet cap above which a file gets trimmed.
const DefaultMaxMemories = 30

// Trimmer rewrites oversized memory files using a small model.
type Trimmer struct {
	provider  ai.Provider
	model     string
	store     store.Store
	log       *slog.Logger
	max       int
	maxTokens int
}

// Option configures a Trimmer.
type Option func(*Trimmer)

// WithMaxMemories overrides the bullet cap.
func WithMaxMemories(n int) Option {
	return func(t *Trimmer) {
		if n > 0 {
			t.max = n
		}
	}
}

// WithMaxTokens caps the rewrite response size.
func WithMaxTokens(n int) Option {
	return func(t *Trimmer) {
		if n > 0 {
			t.maxTokens = n
		}
	}
}

// New returns a Trimmer that rewrites files in st using the given provider
// and model. The model should be a cheap one; trimming is housekeeping, not
// research.
func New(provider ai.Provider, model string, st store.Store, log *slog.Logger, opts ...Option) *Trimmer {
	t := &Trimmer{
		provider: provider,
		model:    model,
		store:    st,
		log:      log,
		max:      DefaultMaxMemories,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run scans /memories/ and trims every .txt file over the cap. It never
// returns an error for per-file failures; the run that triggered it must not
// fail because housekeeping did.
func (t *Trimmer) Run(ctx context.Context) {
	paths, err := t.store.List(ctx, store.MemoryDir)
	if err != nil {
		t.log.Warn("memory cleanup: listing store failed", "error", err)
		return
	}

	for _, path := range paths {
		if !strings.HasSuffix(path, ".txt") {
			continue
		}
		if err := t.trimFile(ctx, path); err != nil {
			t.log.Warn("memory cleanup: skipping file", "path", path, "error", err)
		}
	}
}

func (t *Trimmer) trimFile(ctx context.Context, path string) error {
	rec, ok, err := t.store.Get(ctx, path)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	count := CountBullets(rec.Content)
	if count <= t.max {
		return nil
	}

	t.log.Info("memory cleanup: trimming", "path", path, "bullets", count, "cap", t.max)

	resp, err := t.provider.SendMessage(ctx, ai.ChatRequest{
		Model:        t.model,
		SystemPrompt: renderTrimPrompt(t.max, path, rec.Content),
		Messages: []ai.Message{
			{Role: ai.RoleUser, Content: "Trim the memory file now. Reply with the full new file content only."},
		},
		GenerationConfig: &ai.GenerationConfig{Temperature: 0, MaxTokens: t.maxTokens},
	})
	if err != nil {
		return err
	}

	trimmed := StripCodeFences(resp.Content)
	return t.store.Put(ctx, path, store.FileRecord{
		Content:    trimmed,
		CreatedAt:  rec.CreatedAt,
		ModifiedAt: time.Now().UTC(),
	})
}

// CountBullets counts top-level markdown bullets, i.e. lines starting
// with "- ".
func CountBullets(content string) int {
	return strings.Count("\n"+content, "\n- ")
}

// StripCodeFences removes a surrounding markdown code fence, if the reply is
// entirely fenced. Partial fences are left alone.
func StripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") || !strings.HasSuffix(trimmed, "```") {
		return s
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return s
	}
	return strings.TrimSpace(strings.Join(lines[1:len(lines)-1], "\n"))
}
