// Package main provides runtime wiring for research runs.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/researchfleet/deepagent/internal/agents"
	"github.com/researchfleet/deepagent/internal/config"
	"github.com/researchfleet/deepagent/internal/sandbox"
	"github.com/researchfleet/deepagent/internal/session"
	"github.com/researchfleet/deepagent/internal/store"
	"github.com/researchfleet/deepagent/internal/telemetry"
	"github.com/researchfleet/deepagent/internal/trim"
)

// runtime assembles and owns the components of one CLI invocation.
type runtime struct {
	cfg      *config.Config
	log      *slog.Logger
	observer *telemetry.Exporter

	store      store.Store
	sandbox    *sandbox.Client
	sessionMgr *session.Manager
	sess       *session.Session
	builder    *agents.Builder
	trimmer    *trim.Trimmer

	// Cleanup
	closers []func()
}

// newRuntime loads config and sets up the components every command needs:
// logger, telemetry, the file store and the session manager.
func newRuntime(cli *CLI) (*runtime, error) {
	rt := &runtime{}

	var err error
	if cli.Config != "" {
		rt.cfg, err = config.LoadFile(cli.Config)
	} else {
		rt.cfg, err = config.LoadDefault()
	}
	if err != nil {
		return nil, err
	}

	level := slog.LevelInfo
	if cli.Debug {
		level = slog.LevelDebug
	}
	rt.log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := os.MkdirAll(rt.cfg.Storage.Path, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	if err := rt.setupTelemetry(); err != nil {
		return nil, err
	}
	if err := rt.setupStore(); err != nil {
		rt.cleanup()
		return nil, err
	}

	rt.sessionMgr, err = session.NewManager(filepath.Join(rt.cfg.Storage.Path, "sessions"))
	if err != nil {
		rt.cleanup()
		return nil, err
	}
	return rt, nil
}

// setupTelemetry creates the trace exporter, which doubles as the framework
// observer.
func (rt *runtime) setupTelemetry() error {
	var err error
	rt.observer, err = telemetry.New(rt.cfg.Telemetry.Enabled, rt.cfg.Telemetry.Path, rt.log)
	if err != nil {
		return fmt.Errorf("creating telemetry exporter: %w", err)
	}
	rt.addCloser(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rt.observer.Close(ctx); err != nil {
			rt.log.Warn("telemetry shutdown failed", "error", err)
		}
	})
	return nil
}

// setupStore builds the agent-visible filesystem. Scratchpad paths live in
// memory for the run; /memories/ goes to SQLite when persistence is on.
func (rt *runtime) setupStore() error {
	base := store.NewMemStore()

	if rt.cfg.Storage.PersistMemory {
		dbPath := filepath.Join(rt.cfg.Storage.Path, "memory.db")
		db, err := store.OpenSQLite(dbPath)
		if err != nil {
			return fmt.Errorf("opening memory store: %w", err)
		}
		rt.addCloser(func() {
			if err := db.Close(); err != nil {
				rt.log.Warn("closing memory store failed", "error", err)
			}
		})
		rt.store = store.NewComposite(base, map[string]store.Store{
			store.MemoryDir: db,
		})
		fmt.Fprintf(os.Stderr, "Memory: persistent (%s)\n", dbPath)
	} else {
		rt.store = base
		fmt.Fprintln(os.Stderr, "Memory: ephemeral")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Seed(ctx, rt.store, store.DefaultMemoryFiles); err != nil {
		return fmt.Errorf("seeding memory files: %w", err)
	}
	return nil
}

// startRun sets up the components a research run needs on top of the base
// runtime: the sandbox, the roster, the session record, the agent builder and
// the memory trimmer.
func (rt *runtime) startRun(task, mode, rosterPath string) error {
	if err := configureSearchKey(rt.cfg.Search); err != nil {
		return err
	}

	roster := agents.DefaultRoster()
	if rosterPath != "" {
		var err error
		roster, err = agents.LoadRoster(rosterPath)
		if err != nil {
			return fmt.Errorf("loading roster: %w", err)
		}
	}

	opts := []agents.Option{}
	if rt.cfg.Sandbox.BaseURL != "" {
		sb, err := sandbox.New(sandbox.Config{
			BaseURL:   rt.cfg.Sandbox.BaseURL,
			APIKeyEnv: rt.cfg.Sandbox.APIKeyEnv,
			Timeout:   time.Duration(rt.cfg.Sandbox.TimeoutS) * time.Second,
		})
		if err != nil {
			return fmt.Errorf("configuring sandbox: %w", err)
		}
		rt.sandbox = sb
		opts = append(opts, agents.WithSandbox(sb))
	} else {
		fmt.Fprintln(os.Stderr, "Sandbox: not configured; code execution disabled")
	}

	rt.sess = session.New(task, mode)
	opts = append(opts, agents.WithSessionSink(rt.sess))

	rt.builder = agents.NewBuilder(rt.cfg, rt.store, roster, rt.observer, rt.log, opts...)

	if rt.cfg.SmallLLM.Model != "" {
		provider, err := agents.NewProvider(rt.cfg.SmallLLM)
		if err != nil {
			return fmt.Errorf("configuring memory trimmer: %w", err)
		}
		rt.trimmer = trim.New(provider, rt.cfg.SmallLLM.Model, rt.store, rt.log,
			trim.WithMaxMemories(rt.cfg.Limits.MaxMemories),
			trim.WithMaxTokens(rt.cfg.SmallLLM.MaxTokens))
	}

	fmt.Fprintf(os.Stderr, "Session: %s\n\n", rt.sess.ID)
	return nil
}

// finish records the run outcome and saves the session.
func (rt *runtime) finish(report string, runErr error) {
	if runErr != nil {
		rt.sess.Fail(runErr)
	} else {
		rt.sess.Complete(report)
	}
	if err := rt.sessionMgr.Save(rt.sess); err != nil {
		rt.log.Warn("saving session failed", "error", err)
	}
}

// trimMemories runs the post-run memory cleanup hook and records it in the
// session. It never fails the run.
func (rt *runtime) trimMemories(ctx context.Context) {
	if rt.trimmer == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "Running memory cleanup...")
	rt.trimmer.Run(ctx)
	rt.sess.Append(session.EventMemoryCleanup, "", "memory files checked against bullet cap")
	if err := rt.sessionMgr.Save(rt.sess); err != nil {
		rt.log.Warn("saving session failed", "error", err)
	}
}

// configureSearchKey exports a custom search API key under the variable the
// search provider reads. The Tavily provider only looks at TAVILY_API_KEY.
func configureSearchKey(cfg config.SearchConfig) error {
	env := cfg.APIKeyEnv
	if env == "" || env == "TAVILY_API_KEY" {
		return nil
	}
	key := os.Getenv(env)
	if key == "" {
		return fmt.Errorf("%s environment variable is not set", env)
	}
	return os.Setenv("TAVILY_API_KEY", key)
}

// cleanup runs all registered cleanup functions.
func (rt *runtime) cleanup() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

// addCloser registers a cleanup function.
func (rt *runtime) addCloser(fn func()) {
	rt.closers = append(rt.closers, fn)
}
