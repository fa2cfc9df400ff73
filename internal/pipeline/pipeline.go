// Package pipeline provides the deterministic alternative to free-form
// orchestration: a fixed research graph (research -> credibility -> analysis
// -> synthesize) executed by the framework's graph engine. The credibility
// stage is best-effort; losing it degrades the report instead of failing the
// run.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leofalp/aigo/core/client"
	"github.com/leofalp/aigo/patterns/graph"

	"github.com/researchfleet/deepagent/internal/agents"
)

// Node IDs of the research graph.
const (
	nodeResearch    = "research"
	nodeCredibility = "credibility"
	nodeAnalysis    = "analysis"
	nodeSynthesize  = "synthesize"
)

// Report is the typed output of the pipeline.
type Report struct {
	Title   string   `json:"title" jsonschema:"description=Report title"`
	Summary string   `json:"summary" jsonschema:"description=Executive summary"`
	Body    string   `json:"body" jsonschema:"description=Full report body in markdown with inline source links"`
	Sources []string `json:"sources" jsonschema:"description=Every URL used in the report"`
}

// Pipeline runs the fixed research graph for a task.
type Pipeline struct {
	builder *agents.Builder
	log     *slog.Logger
	state   graph.StateProvider
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithStateProvider persists graph state so interrupted runs can resume.
func WithStateProvider(sp graph.StateProvider) Option {
	return func(p *Pipeline) { p.state = sp }
}

// New wires a Pipeline over the same builder the orchestrator uses.
func New(b *agents.Builder, log *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{builder: b, log: log}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the graph for the task and returns the assembled report.
func (p *Pipeline) Run(ctx context.Context, task string) (*Report, error) {
	g, err := p.build(task)
	if err != nil {
		return nil, err
	}

	overview, err := g.Execute(ctx, map[string]any{"task": task})
	if err != nil {
		return nil, fmt.Errorf("pipeline failed: %w", err)
	}
	if overview == nil || overview.Data == nil {
		return nil, fmt.Errorf("pipeline produced no report")
	}
	return overview.Data, nil
}

func (p *Pipeline) build(task string) (*graph.Graph[Report], error) {
	roster := p.builder.Roster()

	researchClient, err := p.stageClient(roster, "research-agent")
	if err != nil {
		return nil, err
	}
	credibilityClient, err := p.stageClient(roster, "credibility-agent")
	if err != nil {
		return nil, err
	}
	analysisClient, err := p.stageClient(roster, "analysis-agent")
	if err != nil {
		return nil, err
	}
	synthesisClient, err := p.builder.AgentClient(agents.Definition{
		Name:   "synthesizer",
		Prompt: synthesisPrompt,
	})
	if err != nil {
		return nil, err
	}

	opts := []graph.Option{
		graph.WithErrorStrategy(graph.ErrorStrategyContinueOnError),
		graph.WithOutputNode(nodeSynthesize),
	}
	if p.state != nil {
		opts = append(opts, graph.WithStateProvider(p.state))
	}

	builder := graph.NewGraphBuilder[Report](synthesisClient, opts...)

	builder.AddNode(nodeResearch, stageExecutor(
		"Research this task thoroughly. Report findings with a URL for every fact.\n\nTask: "+task),
		graph.WithNodeClient(researchClient),
	)
	builder.AddNode(nodeCredibility, upstreamExecutor(nodeResearch,
		"Review these research findings. Rate each source and flag weak or conflicting claims.\n\nFindings:\n"),
		graph.WithNodeClient(credibilityClient),
	)
	builder.AddNode(nodeAnalysis, upstreamExecutor(nodeResearch,
		"Produce any quantitative analysis or charts this task calls for, based on the findings. Task: "+task+"\n\nFindings:\n"),
		graph.WithNodeClient(analysisClient),
	)
	builder.AddNode(nodeSynthesize, synthesizeExecutor())

	builder.AddEdge(nodeResearch, nodeCredibility,
		graph.WithEdgeCondition(func(ctx context.Context, result *graph.NodeResult, state graph.StateProvider) bool {
			// No sources, nothing to vet.
			text, _ := result.Output.(string)
			return strings.Contains(text, "http")
		}),
	)
	builder.AddEdge(nodeResearch, nodeAnalysis)
	builder.AddEdge(nodeResearch, nodeSynthesize)
	builder.AddEdge(nodeCredibility, nodeSynthesize)
	builder.AddEdge(nodeAnalysis, nodeSynthesize)

	return builder.Build()
}

func (p *Pipeline) stageClient(roster *agents.Roster, name string) (*client.Client, error) {
	def, ok := roster.Get(name)
	if !ok {
		return nil, fmt.Errorf("pipeline requires agent %q in the roster", name)
	}
	return p.builder.AgentClient(def)
}

// stageExecutor sends a fixed prompt to the node's client.
func stageExecutor(prompt string) graph.NodeExecutorFunc {
	return func(ctx context.Context, input *graph.NodeInput) (*graph.NodeResult, error) {
		resp, err := input.Client.SendMessage(ctx, prompt)
		if err != nil {
			return nil, err
		}
		return &graph.NodeResult{Output: resp.Content}, nil
	}
}

// upstreamExecutor appends one upstream node's output to the prompt.
func upstreamExecutor(upstream, prompt string) graph.NodeExecutorFunc {
	return func(ctx context.Context, input *graph.NodeInput) (*graph.NodeResult, error) {
		var findings string
		if up, ok := input.UpstreamResults[upstream]; ok {
			findings, _ = up.Output.(string)
		}
		resp, err := input.Client.SendMessage(ctx, prompt+findings)
		if err != nil {
			return nil, err
		}
		return &graph.NodeResult{Output: resp.Content}, nil
	}
}

const synthesisPrompt = `You assemble final research reports. You receive research findings, an optional credibility review, and an optional analysis section. Produce the complete report: keep only claims that survive the credibility review, link every claim to its source URL, and include chart URLs from the analysis where available.`

// synthesizeExecutor combines all upstream output into the typed report.
func synthesizeExecutor() graph.NodeExecutorFunc {
	return func(ctx context.Context, input *graph.NodeInput) (*graph.NodeResult, error) {
		var b strings.Builder
		for _, stage := range []string{nodeResearch, nodeCredibility, nodeAnalysis} {
			if up, ok := input.UpstreamResults[stage]; ok && up.Error == nil {
				text, _ := up.Output.(string)
				fmt.Fprintf(&b, "## %s\n%s\n\n", stage, text)
			}
		}
		task, _, _ := input.SharedState.Get(ctx, "task")
		taskText, _ := task.(string)

		structured := client.FromBaseClient[Report](input.Client)
		resp, err := structured.SendMessage(ctx,
			fmt.Sprintf("Task: %s\n\nMaterial:\n%s\nWrite the final report.", taskText, b.String()))
		if err != nil {
			return nil, err
		}
		if resp.Data == nil {
			return nil, fmt.Errorf("synthesis returned no structured report")
		}
		return &graph.NodeResult{Output: *resp.Data}, nil
	}
}
