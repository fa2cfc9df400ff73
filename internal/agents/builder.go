package agents

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/leofalp/aigo/core/client"
	"github.com/leofalp/aigo/core/client/middleware"
	"github.com/leofalp/aigo/patterns/react"
	"github.com/leofalp/aigo/providers/ai"
	"github.com/leofalp/aigo/providers/ai/anthropic"
	"github.com/leofalp/aigo/providers/ai/gemini"
	"github.com/leofalp/aigo/providers/ai/openai"
	"github.com/leofalp/aigo/providers/memory/inmemory"
	"github.com/leofalp/aigo/providers/observability"
	"github.com/leofalp/aigo/providers/tool"

	"github.com/researchfleet/deepagent/internal/config"
	"github.com/researchfleet/deepagent/internal/sandbox"
	"github.com/researchfleet/deepagent/internal/session"
	"github.com/researchfleet/deepagent/internal/store"
	"github.com/researchfleet/deepagent/internal/tools"
)

// OrchestratorName is the reserved name of the main agent.
const OrchestratorName = "orchestrator"

const defaultRequestTimeout = 5 * time.Minute

// ProviderFactory builds an ai.Provider for an LLM config. Swappable in
// tests.
type ProviderFactory func(config.LLMConfig) (ai.Provider, error)

// Builder assembles runnable agents from the roster, the store and the
// configured services.
type Builder struct {
	cfg      *config.Config
	store    store.Store
	sandbox  *sandbox.Client
	roster   *Roster
	observer observability.Provider
	log      *slog.Logger
	factory  ProviderFactory
	events   session.Sink
}

// Option configures a Builder.
type Option func(*Builder)

// WithSandbox enables the execute_python tool.
func WithSandbox(sb *sandbox.Client) Option {
	return func(b *Builder) { b.sandbox = sb }
}

// WithProviderFactory replaces the default provider construction.
func WithProviderFactory(f ProviderFactory) Option {
	return func(b *Builder) { b.factory = f }
}

// WithSessionSink records delegation events into the run's session log.
func WithSessionSink(sink session.Sink) Option {
	return func(b *Builder) { b.events = sink }
}

// NewBuilder wires a Builder. The observer receives all framework events;
// the logger is for the builder's own messages.
func NewBuilder(cfg *config.Config, st store.Store, roster *Roster, observer observability.Provider, log *slog.Logger, opts ...Option) *Builder {
	b := &Builder{
		cfg:      cfg,
		store:    st,
		roster:   roster,
		observer: observer,
		log:      log,
		factory:  NewProvider,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewProvider constructs the ai.Provider for an LLM config.
func NewProvider(llm config.LLMConfig) (ai.Provider, error) {
	var p ai.Provider
	switch llm.Provider {
	case "openai", "":
		p = openai.New()
	case "anthropic":
		p = anthropic.New()
	case "gemini", "google":
		p = gemini.New()
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", llm.Provider)
	}
	if key := llm.GetAPIKey(); key != "" {
		p = p.WithAPIKey(key)
	}
	if llm.BaseURL != "" {
		p = p.WithBaseURL(llm.BaseURL)
	}
	return p, nil
}

// toolbox resolves a definition's tool names. File tools and the todo list
// are always available; web search and code execution are opt-in per agent.
func (b *Builder) toolbox(names []string) ([]tool.GenericTool, error) {
	box := []tool.GenericTool{
		tools.NewLsTool(b.store),
		tools.NewReadFileTool(b.store),
		tools.NewWriteFileTool(b.store),
		tools.NewEditFileTool(b.store),
		tools.NewWriteTodosTool(b.store),
	}
	for _, name := range names {
		switch name {
		case ToolWebSearch:
			box = append(box, tools.NewWebSearchTool())
		case ToolExecutePython:
			if b.sandbox == nil {
				return nil, fmt.Errorf("agent requests %s but no sandbox is configured", ToolExecutePython)
			}
			box = append(box, tools.NewExecutePythonTool(b.sandbox, b.store, b.log))
		default:
			return nil, fmt.Errorf("unknown tool %q", name)
		}
	}
	return box, nil
}

func (b *Builder) newClient(def Definition, extra ...tool.GenericTool) (*client.Client, error) {
	llm := b.cfg.GetProfile(def.Profile)
	provider, err := b.factory(llm)
	if err != nil {
		return nil, err
	}
	box, err := b.toolbox(def.Tools)
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", def.Name, err)
	}
	box = append(box, extra...)

	return client.New(provider,
		client.WithMemory(inmemory.New()),
		client.WithSystemPrompt(def.Prompt),
		client.WithDefaultModel(llm.Model),
		client.WithTools(box...),
		client.WithObserver(b.observer),
		client.WithMiddleware(
			middleware.NewRetryMiddleware(middleware.RetryConfig{}),
			middleware.NewTimeoutMiddleware(defaultRequestTimeout),
		),
	)
}

// AgentClient builds the configured LLM client for a definition, with its
// toolbox attached. The pipeline uses this to give each graph node its own
// specialist client.
func (b *Builder) AgentClient(def Definition, extra ...tool.GenericTool) (*client.Client, error) {
	return b.newClient(def, extra...)
}

// Roster returns the subagent roster the builder was wired with.
func (b *Builder) Roster() *Roster {
	return b.roster
}

// RunSubagent executes one delegation on a fresh history and returns the
// subagent's final answer.
func (b *Builder) RunSubagent(ctx context.Context, name, task string) (string, error) {
	def, ok := b.roster.Get(name)
	if !ok {
		return "", fmt.Errorf("unknown agent %q; available: %v", name, b.roster.Names())
	}

	c, err := b.newClient(def)
	if err != nil {
		return "", err
	}

	budget := def.MaxToolCalls
	if budget <= 0 {
		budget = b.cfg.Limits.SubagentToolCalls
	}
	pattern, err := react.New[string](c, react.WithMaxIterations(budget))
	if err != nil {
		return "", fmt.Errorf("building %s: %w", name, err)
	}

	b.log.Info("subagent start", "agent", name)
	if b.events != nil {
		b.events.Append(session.EventSubAgentStart, name, task)
	}
	started := time.Now()
	overview, err := pattern.Execute(ctx, task)
	if err != nil {
		if b.events != nil {
			b.events.Append(session.EventSubAgentEnd, name, "error: "+err.Error())
		}
		return "", fmt.Errorf("%s failed: %w", name, err)
	}
	b.log.Info("subagent done", "agent", name, "duration", time.Since(started))

	if overview == nil || overview.LastResponse == nil {
		return "", fmt.Errorf("%s produced no response", name)
	}
	if b.events != nil {
		b.events.Append(session.EventSubAgentEnd, name, overview.LastResponse.Content)
	}
	return overview.LastResponse.Content, nil
}

// RunOrchestrator executes the main agent over the full roster and returns
// the final report text.
func (b *Builder) RunOrchestrator(ctx context.Context, task string) (string, error) {
	def := Definition{
		Name:   OrchestratorName,
		Prompt: orchestratorPrompt,
		Tools:  b.orchestratorTools(),
	}

	c, err := b.newClient(def, NewTaskTool(b))
	if err != nil {
		return "", err
	}

	iterations := b.cfg.Limits.MaxIterations
	if iterations <= 0 {
		iterations = 1000
	}
	pattern, err := react.New[string](c, react.WithMaxIterations(iterations))
	if err != nil {
		return "", fmt.Errorf("building orchestrator: %w", err)
	}

	overview, err := pattern.Execute(ctx, task)
	if err != nil {
		return "", fmt.Errorf("orchestrator failed: %w", err)
	}
	if overview == nil || overview.LastResponse == nil {
		return "", fmt.Errorf("orchestrator produced no response")
	}
	return overview.LastResponse.Content, nil
}

// orchestratorTools grants the main agent the union of its subagents'
// external tools, so it can do quick lookups without a delegation.
func (b *Builder) orchestratorTools() []string {
	seen := map[string]bool{}
	var names []string
	for _, d := range b.roster.Agents {
		for _, t := range d.Tools {
			if t == ToolExecutePython {
				// Heavy work goes through the analysis subagent.
				continue
			}
			if !seen[t] {
				seen[t] = true
				names = append(names, t)
			}
		}
	}
	return names
}
