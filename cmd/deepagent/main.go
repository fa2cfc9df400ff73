// Package main is the entry point for the deepagent CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/researchfleet/deepagent/internal/config"
	"github.com/researchfleet/deepagent/internal/pipeline"
	"github.com/researchfleet/deepagent/internal/replay"
	"github.com/researchfleet/deepagent/internal/session"
	"github.com/researchfleet/deepagent/internal/store"
	"github.com/researchfleet/deepagent/internal/trim"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func init() {
	// Load .env so API keys can live next to the project.
	_ = godotenv.Load()
}

// appEnv carries the parsed CLI and the run context into command handlers.
type appEnv struct {
	ctx context.Context
	cli *CLI
}

func main() {
	var cli CLI
	parser := kong.Parse(&cli,
		kong.Name("deepagent"),
		kong.Description("Multi-agent research assistant"),
		kong.UsageOnError(),
		kongVars(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := parser.Run(&appEnv{ctx: ctx, cli: &cli})
	parser.FatalIfErrorf(err)
}

// Run executes a task with the free-form orchestrator.
func (c *RunCmd) Run(app *appEnv) error {
	rt, err := newRuntime(app.cli)
	if err != nil {
		return err
	}
	defer rt.cleanup()

	if err := rt.startRun(c.Task, "orchestrator", c.Agents); err != nil {
		return err
	}

	report, runErr := rt.builder.RunOrchestrator(app.ctx, c.Task)
	rt.finish(report, runErr)
	if runErr != nil {
		return runErr
	}

	fmt.Println(report)
	if !c.NoTrim {
		rt.trimMemories(app.ctx)
	}
	return nil
}

// Run executes a task with the deterministic research graph.
func (c *PipelineCmd) Run(app *appEnv) error {
	rt, err := newRuntime(app.cli)
	if err != nil {
		return err
	}
	defer rt.cleanup()

	if err := rt.startRun(c.Task, "pipeline", c.Agents); err != nil {
		return err
	}

	opts := []pipeline.Option{}
	if c.State != "" {
		sp, err := pipeline.NewFileStateProvider(c.State)
		if err != nil {
			return err
		}
		opts = append(opts, pipeline.WithStateProvider(sp))
	}

	report, runErr := pipeline.New(rt.builder, rt.log, opts...).Run(app.ctx, c.Task)
	var rendered string
	if runErr == nil {
		rendered = renderReport(report)
	}
	rt.finish(rendered, runErr)
	if runErr != nil {
		return runErr
	}

	fmt.Println(rendered)
	if !c.NoTrim {
		rt.trimMemories(app.ctx)
	}
	return nil
}

// renderReport assembles the structured report into markdown.
func renderReport(r *pipeline.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n%s\n\n%s\n", r.Title, r.Summary, r.Body)
	if len(r.Sources) > 0 {
		b.WriteString("\n## Sources\n")
		for _, src := range r.Sources {
			fmt.Fprintf(&b, "- %s\n", src)
		}
	}
	return b.String()
}

// Run lists recorded sessions, newest first.
func (c *SessionsListCmd) Run(app *appEnv) error {
	mgr, err := openSessionManager(app.cli)
	if err != nil {
		return err
	}
	ids, err := mgr.List()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Println("no sessions recorded yet")
		return nil
	}

	for _, id := range ids {
		sess, err := mgr.Load(id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: skipping unreadable session %s: %v\n", id, err)
			continue
		}
		fmt.Printf("%-10s %-12s %-9s %-17s %s\n",
			id[:8], sess.Status, sess.Mode,
			sess.CreatedAt.Local().Format("2006-01-02 15:04"),
			truncate(sess.Task, 60))
	}
	return nil
}

// Run renders one session transcript.
func (c *SessionsShowCmd) Run(app *appEnv) error {
	mgr, err := openSessionManager(app.cli)
	if err != nil {
		return err
	}

	var sess *session.Session
	if c.ID == "" {
		sess, err = mgr.Latest()
	} else {
		sess, err = mgr.Load(c.ID)
	}
	if err != nil {
		return err
	}
	return replay.New(os.Stdout, c.Verbose).Replay(sess)
}

// Run prints the long-term memory files.
func (c *MemoriesCmd) Run(app *appEnv) error {
	cfg, err := loadConfig(app.cli)
	if err != nil {
		return err
	}
	if !cfg.Storage.PersistMemory {
		return fmt.Errorf("memory persistence is disabled in config; nothing survives between runs")
	}

	db, err := store.OpenSQLite(filepath.Join(cfg.Storage.Path, "memory.db"))
	if err != nil {
		return err
	}
	defer db.Close()

	if c.File != "" {
		rec, ok, err := db.Get(app.ctx, store.NormalizePath(c.File))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no memory file %q", c.File)
		}
		fmt.Print(rec.Content)
		if !strings.HasSuffix(rec.Content, "\n") {
			fmt.Println()
		}
		return nil
	}

	paths, err := db.List(app.ctx, store.MemoryDir)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Println("no memory files yet")
		return nil
	}
	for _, path := range paths {
		rec, ok, err := db.Get(app.ctx, path)
		if err != nil || !ok {
			continue
		}
		fmt.Printf("%-35s %3d bullets  modified %s\n",
			path, trim.CountBullets(rec.Content),
			rec.ModifiedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

// Run writes a starter config file.
func (c *InitCmd) Run(app *appEnv) error {
	if _, err := os.Stat(c.Path); err == nil && !c.Force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", c.Path)
	}
	if err := os.WriteFile(c.Path, []byte(starterConfig), 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", c.Path)
	return nil
}

// Run prints version information.
func (c *VersionCmd) Run(app *appEnv) error {
	fmt.Printf("deepagent version %s (commit: %s, built: %s)\n", version, commit, buildTime)
	return nil
}

// loadConfig loads the config file named on the command line, or the default.
func loadConfig(cli *CLI) (*config.Config, error) {
	if cli.Config != "" {
		return config.LoadFile(cli.Config)
	}
	return config.LoadDefault()
}

// openSessionManager opens the session directory without the full runtime.
func openSessionManager(cli *CLI) (*session.Manager, error) {
	cfg, err := loadConfig(cli)
	if err != nil {
		return nil, err
	}
	return session.NewManager(filepath.Join(cfg.Storage.Path, "sessions"))
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

const starterConfig = `# deepagent configuration.
# API keys are read from environment variables, never from this file.

[llm]
provider = "openai"
model = "gpt-4o"
# api_key_env = "OPENAI_API_KEY"
# base_url = ""

[small_llm]
provider = "openai"
model = "gpt-4o-mini"

[search]
# api_key_env = "TAVILY_API_KEY"

[sandbox]
# base_url = "https://sandbox.example.com/api"
# api_key_env = "SANDBOX_API_KEY"
# timeout = 300

[storage]
# path = "~/.local/deepagent"
persist_memory = true

[limits]
max_iterations = 1000
subagent_tool_calls = 15
max_memories = 30

[telemetry]
enabled = false
# path = "traces.json"

# Named profiles let agent definitions pick a different model.
# [profiles.fast]
# model = "gpt-4o-mini"
`
