package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := New()
	if cfg.Limits.MaxIterations != 1000 {
		t.Errorf("MaxIterations = %d", cfg.Limits.MaxIterations)
	}
	if cfg.Limits.SubagentToolCalls != 15 {
		t.Errorf("SubagentToolCalls = %d", cfg.Limits.SubagentToolCalls)
	}
	if cfg.Limits.MaxMemories != 30 {
		t.Errorf("MaxMemories = %d", cfg.Limits.MaxMemories)
	}
	if !cfg.Storage.PersistMemory {
		t.Error("memory persistence should default on")
	}
	if cfg.SmallLLM.Model == "" {
		t.Error("small model default missing")
	}
}

func TestLoadFileLayersOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deepagent.toml")
	content := `
[llm]
provider = "anthropic"
model = "claude-sonnet-4-5"

[limits]
subagent_tool_calls = 7

[profiles.fast]
model = "claude-haiku-4-5"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.LLM.Provider != "anthropic" {
		t.Errorf("provider = %q", cfg.LLM.Provider)
	}
	if cfg.Limits.SubagentToolCalls != 7 {
		t.Errorf("subagent_tool_calls = %d", cfg.Limits.SubagentToolCalls)
	}
	// Untouched sections keep defaults.
	if cfg.Limits.MaxIterations != 1000 {
		t.Errorf("max_iterations lost its default: %d", cfg.Limits.MaxIterations)
	}
}

func TestLoadFileRejectsBadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	os.WriteFile(path, []byte("[llm\nprovider="), 0o644)
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestGetProfileFallbacks(t *testing.T) {
	cfg := New()
	cfg.LLM = LLMConfig{Provider: "openai", Model: "gpt-4o", APIKeyEnv: "CUSTOM_KEY", MaxTokens: 2048}
	cfg.Profiles = map[string]Profile{
		"analysis": {Model: "o4-mini"},
		"remote":   {Provider: "anthropic", Model: "claude-sonnet-4-5", APIKeyEnv: "WORK_KEY"},
	}

	got := cfg.GetProfile("analysis")
	if got.Provider != "openai" || got.Model != "o4-mini" || got.APIKeyEnv != "CUSTOM_KEY" || got.MaxTokens != 2048 {
		t.Errorf("analysis profile = %+v", got)
	}

	got = cfg.GetProfile("remote")
	if got.Provider != "anthropic" || got.APIKeyEnv != "WORK_KEY" {
		t.Errorf("remote profile = %+v", got)
	}

	if got := cfg.GetProfile("unknown"); got.Model != "gpt-4o" {
		t.Errorf("unknown profile should fall back: %+v", got)
	}
	if got := cfg.GetProfile(""); got.Model != "gpt-4o" {
		t.Errorf("empty profile should fall back: %+v", got)
	}
}

func TestGetAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "from-default")
	t.Setenv("MY_KEY", "from-custom")

	l := LLMConfig{Provider: "openai"}
	if got := l.GetAPIKey(); got != "from-default" {
		t.Errorf("default env key = %q", got)
	}

	l.APIKeyEnv = "MY_KEY"
	if got := l.GetAPIKey(); got != "from-custom" {
		t.Errorf("custom env key = %q", got)
	}

	if got := (LLMConfig{Provider: "unknown"}).GetAPIKey(); got != "" {
		t.Errorf("unknown provider key = %q", got)
	}
}
