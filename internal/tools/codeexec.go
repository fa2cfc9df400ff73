package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/leofalp/aigo/providers/tool"

	"github.com/researchfleet/deepagent/internal/sandbox"
	"github.com/researchfleet/deepagent/internal/store"
)

// OutputsPrefix is where downloaded sandbox artifacts land in the run store.
const OutputsPrefix = "/scratchpad/outputs/"

// bootstrapCode runs before user code so the usual analysis stack is loaded
// and plots render headless into the outputs directory.
const bootstrapCode = `import os
os.makedirs("` + sandbox.OutputsDir + `", exist_ok=True)
import pandas as pd
import numpy as np
import matplotlib
matplotlib.use("Agg")
import matplotlib.pyplot as plt
import seaborn as sns
`

// ExecutePythonInput carries the code to run.
type ExecutePythonInput struct {
	Code string `json:"code" jsonschema:"description=Python code to execute in the sandbox,required"`
}

// OutputFile describes one artifact produced by the code.
type OutputFile struct {
	Path string `json:"path" jsonschema:"description=Path of the artifact in the research filesystem"`
	URL  string `json:"url,omitempty" jsonschema:"description=Public URL for the artifact; use this in reports"`
}

// ExecutePythonOutput is the execution outcome.
type ExecutePythonOutput struct {
	Output   string       `json:"output" jsonschema:"description=Combined stdout/stderr of the code"`
	ExitCode int          `json:"exit_code"`
	Files    []OutputFile `json:"files,omitempty" jsonschema:"description=Artifacts written to the outputs directory"`
}

// NewExecutePythonTool returns the execute_python tool. Each call provisions
// a fresh sandbox, runs the code with the analysis stack preloaded, collects
// anything written to the outputs directory, and always tears the sandbox
// down again.
func NewExecutePythonTool(sb *sandbox.Client, st store.Store, log *slog.Logger) *tool.Tool[ExecutePythonInput, ExecutePythonOutput] {
	return tool.NewTool[ExecutePythonInput, ExecutePythonOutput](
		"execute_python",
		func(ctx context.Context, in ExecutePythonInput) (ExecutePythonOutput, error) {
			return executePython(ctx, sb, st, log, in)
		},
		tool.WithDescription("Run Python in a sandboxed environment with pandas, numpy, matplotlib (Agg) and seaborn preloaded. Save plots and data files to "+sandbox.OutputsDir+"; they are collected automatically and returned with public URLs."),
	)
}

func executePython(ctx context.Context, sb *sandbox.Client, st store.Store, log *slog.Logger, in ExecutePythonInput) (ExecutePythonOutput, error) {
	box, err := sb.Create(ctx)
	if err != nil {
		return ExecutePythonOutput{}, err
	}
	defer func() {
		// Teardown must survive a canceled request context.
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if err := sb.Delete(cleanupCtx, box.ID); err != nil {
			log.Warn("sandbox teardown failed", "sandbox", box.ID, "error", err)
		}
	}()

	if res, err := sb.Run(ctx, box.ID, bootstrapCode); err != nil {
		return ExecutePythonOutput{}, fmt.Errorf("sandbox bootstrap failed: %w", err)
	} else if res.ExitCode != 0 {
		return ExecutePythonOutput{}, fmt.Errorf("sandbox bootstrap exited %d: %s", res.ExitCode, res.Output)
	}

	res, err := sb.Run(ctx, box.ID, in.Code)
	if err != nil {
		return ExecutePythonOutput{}, err
	}
	out := ExecutePythonOutput{Output: res.Output, ExitCode: res.ExitCode}

	files, err := sb.ListFiles(ctx, box.ID, sandbox.OutputsDir)
	if err != nil {
		// Code ran; losing the artifact listing degrades the answer but
		// should not discard the output.
		log.Warn("listing sandbox outputs failed", "sandbox", box.ID, "error", err)
		return out, nil
	}

	now := time.Now().UTC()
	for _, f := range files {
		if f.IsDir {
			continue
		}
		remote := sandbox.OutputsDir + "/" + f.Name
		data, err := sb.Download(ctx, box.ID, remote)
		if err != nil {
			log.Warn("downloading sandbox artifact failed", "file", remote, "error", err)
			continue
		}
		local := OutputsPrefix + f.Name
		if err := st.Put(ctx, local, store.FileRecord{Content: string(data), CreatedAt: now, ModifiedAt: now}); err != nil {
			log.Warn("storing sandbox artifact failed", "file", local, "error", err)
			continue
		}
		url, err := sb.PreviewLink(ctx, box.ID, remote)
		if err != nil {
			log.Warn("resolving artifact link failed", "file", remote, "error", err)
		}
		out.Files = append(out.Files, OutputFile{Path: local, URL: url})
	}
	return out, nil
}
