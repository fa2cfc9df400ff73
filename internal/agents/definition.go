// Package agents defines the agent roster and builds runnable agents on top
// of the framework's ReAct pattern. The orchestrator delegates to named
// subagents through the task tool; each delegation runs on a fresh message
// history with its own tool budget.
package agents

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Known tool names an agent definition may reference.
const (
	ToolWebSearch     = "web_search"
	ToolExecutePython = "execute_python"
)

// Definition describes one agent: what it is for, how it is prompted, and
// what it may call.
type Definition struct {
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	Prompt       string   `yaml:"prompt,omitempty"`
	PromptFile   string   `yaml:"prompt_file,omitempty"`
	Profile      string   `yaml:"profile,omitempty"`
	Tools        []string `yaml:"tools,omitempty"`
	MaxToolCalls int      `yaml:"max_tool_calls,omitempty"`
}

// Roster is the set of subagents available for delegation.
type Roster struct {
	Agents []Definition `yaml:"agents"`
}

// Get returns the named definition.
func (r *Roster) Get(name string) (Definition, bool) {
	for _, d := range r.Agents {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}

// Names lists the roster in declaration order.
func (r *Roster) Names() []string {
	names := make([]string, 0, len(r.Agents))
	for _, d := range r.Agents {
		names = append(names, d.Name)
	}
	return names
}

// LoadRoster reads a roster from a YAML file and resolves prompt files
// relative to the working directory.
func LoadRoster(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster: %w", err)
	}
	var r Roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse roster: %w", err)
	}
	for i := range r.Agents {
		if r.Agents[i].PromptFile == "" {
			continue
		}
		prompt, err := os.ReadFile(r.Agents[i].PromptFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read prompt for %s: %w", r.Agents[i].Name, err)
		}
		r.Agents[i].Prompt = string(prompt)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Validate checks the roster for structural problems.
func (r *Roster) Validate() error {
	seen := map[string]bool{}
	for _, d := range r.Agents {
		if d.Name == "" {
			return fmt.Errorf("agent with empty name")
		}
		if seen[d.Name] {
			return fmt.Errorf("duplicate agent name %q", d.Name)
		}
		seen[d.Name] = true
		if d.Description == "" {
			return fmt.Errorf("agent %q has no description; the orchestrator needs it to route work", d.Name)
		}
		if d.Prompt == "" {
			return fmt.Errorf("agent %q has no prompt", d.Name)
		}
		for _, tl := range d.Tools {
			switch tl {
			case ToolWebSearch, ToolExecutePython:
			default:
				return fmt.Errorf("agent %q references unknown tool %q", d.Name, tl)
			}
		}
	}
	return nil
}

// DefaultRoster returns the built-in three-subagent roster.
func DefaultRoster() *Roster {
	return &Roster{Agents: []Definition{
		{
			Name:        "research-agent",
			Description: "Deep web research on a topic. Finds sources, extracts facts, records URLs for citations. Give it one focused research question at a time.",
			Prompt:      researchPrompt,
			Tools:       []string{ToolWebSearch},
		},
		{
			Name:        "analysis-agent",
			Description: "Quantitative analysis and chart generation. Runs Python over collected data and saves plots; returns public URLs for generated figures.",
			Prompt:      analysisPrompt,
			Tools:       []string{ToolExecutePython},
		},
		{
			Name:        "credibility-agent",
			Description: "Evaluates source credibility. Cross-checks claims, rates outlets, and flags weak or conflicting sourcing before it reaches the report.",
			Prompt:      credibilityPrompt,
			Tools:       []string{ToolWebSearch},
		},
	}}
}
