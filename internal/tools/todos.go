package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/leofalp/aigo/providers/tool"

	"github.com/researchfleet/deepagent/internal/store"
)

// TodoPath is where the orchestrator's task list lives for the run.
const TodoPath = "/scratchpad/todos.md"

// TodoItem is one entry in the plan.
type TodoItem struct {
	Content string `json:"content" jsonschema:"description=The task to perform,required"`
	Status  string `json:"status" jsonschema:"description=Task status,enum=pending,enum=in_progress,enum=completed,required"`
}

// WriteTodosInput replaces the entire todo list.
type WriteTodosInput struct {
	Todos []TodoItem `json:"todos" jsonschema:"description=The full new todo list,required"`
}

// WriteTodosOutput echoes the rendered list.
type WriteTodosOutput struct {
	Rendered string `json:"rendered"`
}

// NewWriteTodosTool returns the planning tool. The list is replaced
// wholesale on every call; partial updates are the model's job.
func NewWriteTodosTool(st store.Store) *tool.Tool[WriteTodosInput, WriteTodosOutput] {
	return tool.NewTool[WriteTodosInput, WriteTodosOutput](
		"write_todos",
		func(ctx context.Context, in WriteTodosInput) (WriteTodosOutput, error) {
			rendered := RenderTodos(in.Todos)
			now := time.Now().UTC()
			rec, ok, err := st.Get(ctx, TodoPath)
			if err != nil {
				return WriteTodosOutput{}, err
			}
			created := now
			if ok {
				created = rec.CreatedAt
			}
			err = st.Put(ctx, TodoPath, store.FileRecord{
				Content:    rendered,
				CreatedAt:  created,
				ModifiedAt: now,
			})
			if err != nil {
				return WriteTodosOutput{}, err
			}
			return WriteTodosOutput{Rendered: rendered}, nil
		},
		tool.WithDescription("Replace the run's todo list. Use it to plan multi-step work and mark progress; keep exactly one task in_progress."),
	)
}

// RenderTodos formats the list as markdown checkboxes.
func RenderTodos(todos []TodoItem) string {
	if len(todos) == 0 {
		return "(no todos)\n"
	}
	var b strings.Builder
	for _, td := range todos {
		mark := " "
		switch td.Status {
		case "completed":
			mark = "x"
		case "in_progress":
			mark = "~"
		}
		fmt.Fprintf(&b, "- [%s] %s\n", mark, td.Content)
	}
	return b.String()
}
