package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"

	"github.com/researchfleet/deepagent/internal/config"
	"github.com/researchfleet/deepagent/internal/pipeline"
)

func TestRenderReport(t *testing.T) {
	r := &pipeline.Report{
		Title:   "Widget Market",
		Summary: "It is big.",
		Body:    "## Findings\nDetails here.",
		Sources: []string{"https://example.com/a", "https://example.com/b"},
	}
	out := renderReport(r)

	if !strings.HasPrefix(out, "# Widget Market\n") {
		t.Errorf("output = %q", out)
	}
	for _, want := range []string{"It is big.", "## Findings", "## Sources", "- https://example.com/a"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestRenderReportNoSources(t *testing.T) {
	out := renderReport(&pipeline.Report{Title: "T", Summary: "S", Body: "B"})
	if strings.Contains(out, "## Sources") {
		t.Error("empty source list should not render a sources section")
	}
}

func TestStarterConfigParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deepagent.toml")
	if err := os.WriteFile(path, []byte(starterConfig), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Fatalf("starter config does not parse: %v", err)
	}
	if cfg.LLM.Model != "gpt-4o" || cfg.SmallLLM.Model != "gpt-4o-mini" {
		t.Errorf("models = %q / %q", cfg.LLM.Model, cfg.SmallLLM.Model)
	}
	if !cfg.Storage.PersistMemory {
		t.Error("starter config should persist memory")
	}
	if cfg.Limits.SubagentToolCalls != 15 {
		t.Errorf("subagent budget = %d", cfg.Limits.SubagentToolCalls)
	}
}

func TestInitCmdRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deepagent.toml")
	app := &appEnv{ctx: context.Background(), cli: &CLI{}}

	cmd := &InitCmd{Path: path}
	if err := cmd.Run(app); err != nil {
		t.Fatalf("first init failed: %v", err)
	}
	if err := cmd.Run(app); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("second init err = %v", err)
	}

	cmd.Force = true
	if err := cmd.Run(app); err != nil {
		t.Errorf("forced init failed: %v", err)
	}
}

func TestConfigureSearchKey(t *testing.T) {
	t.Setenv("TAVILY_API_KEY", "")
	t.Setenv("CUSTOM_SEARCH_KEY", "secret")

	if err := configureSearchKey(config.SearchConfig{APIKeyEnv: "CUSTOM_SEARCH_KEY"}); err != nil {
		t.Fatalf("configureSearchKey failed: %v", err)
	}
	if got := os.Getenv("TAVILY_API_KEY"); got != "secret" {
		t.Errorf("TAVILY_API_KEY = %q, custom key not exported", got)
	}

	if err := configureSearchKey(config.SearchConfig{APIKeyEnv: "DEEPAGENT_TEST_UNSET_KEY"}); err == nil {
		t.Error("expected error when the configured variable is unset")
	}

	t.Setenv("TAVILY_API_KEY", "direct")
	if err := configureSearchKey(config.SearchConfig{}); err != nil {
		t.Errorf("default search config should be a no-op: %v", err)
	}
	if os.Getenv("TAVILY_API_KEY") != "direct" {
		t.Error("default search config must not touch TAVILY_API_KEY")
	}
}

func TestVersionHelpInterpolated(t *testing.T) {
	var cli CLI
	parser, err := kong.New(&cli, kongVars())
	if err != nil {
		t.Fatalf("kong.New failed: %v", err)
	}
	for _, node := range parser.Model.Children {
		if node.Name == "version" {
			if !strings.Contains(node.Help, version) {
				t.Errorf("version help = %q, build version not interpolated", node.Help)
			}
			return
		}
	}
	t.Fatal("version command not found in CLI model")
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate short = %q", got)
	}
	got := truncate("a much longer line\nwith a newline", 15)
	if len(got) != 15 || !strings.HasSuffix(got, "...") || strings.Contains(got, "\n") {
		t.Errorf("truncate long = %q", got)
	}
}
