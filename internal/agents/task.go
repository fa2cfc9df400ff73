package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/leofalp/aigo/providers/tool"
)

// TaskInput is a delegation request from the orchestrator.
type TaskInput struct {
	Agent string `json:"agent" jsonschema:"description=Name of the subagent to delegate to,required"`
	Task  string `json:"task" jsonschema:"description=The full task for the subagent; include all context it needs since it shares no state with you,required"`
}

// TaskOutput is the subagent's final answer.
type TaskOutput struct {
	Agent  string `json:"agent"`
	Result string `json:"result"`
}

// NewTaskTool returns the delegation tool. Each call runs the named
// subagent's full loop on a fresh message history.
func NewTaskTool(b *Builder) *tool.Tool[TaskInput, TaskOutput] {
	return tool.NewTool[TaskInput, TaskOutput](
		"task",
		func(ctx context.Context, in TaskInput) (TaskOutput, error) {
			result, err := b.RunSubagent(ctx, in.Agent, in.Task)
			if err != nil {
				return TaskOutput{}, err
			}
			return TaskOutput{Agent: in.Agent, Result: result}, nil
		},
		tool.WithDescription("Delegate a focused task to a specialist subagent. Available agents:\n"+describeRoster(b.roster)),
	)
}

func describeRoster(r *Roster) string {
	var b strings.Builder
	for _, d := range r.Agents {
		fmt.Fprintf(&b, "- %s: %s\n", d.Name, d.Description)
	}
	return b.String()
}
