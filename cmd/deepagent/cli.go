// Package main defines the CLI structure using kong.
package main

import "github.com/alecthomas/kong"

// CLI defines the command-line interface.
type CLI struct {
	Run      RunCmd      `cmd:"" help:"Run a research task through the orchestrator"`
	Pipeline PipelineCmd `cmd:"" help:"Run a research task through the fixed research graph"`
	Sessions SessionsCmd `cmd:"" help:"Inspect recorded sessions"`
	Memories MemoriesCmd `cmd:"" help:"Show long-term memory files"`
	Init     InitCmd     `cmd:"" help:"Write a starter config file"`
	Version  VersionCmd  `cmd:"" help:"Show version information (${version})"`

	Config string `help:"Config file path (default: ./deepagent.toml)" type:"path"`
	Debug  bool   `help:"Enable debug logging"`
}

// RunCmd executes a research task with the free-form orchestrator.
type RunCmd struct {
	Task   string `arg:"" help:"Research task to execute"`
	Agents string `help:"Roster YAML path (default: built-in roster)" type:"path"`
	NoTrim bool   `help:"Skip the post-run memory cleanup"`
}

// PipelineCmd executes a research task with the deterministic graph.
type PipelineCmd struct {
	Task   string `arg:"" help:"Research task to execute"`
	Agents string `help:"Roster YAML path (default: built-in roster)" type:"path"`
	State  string `help:"State file for resuming an interrupted run" type:"path"`
	NoTrim bool   `help:"Skip the post-run memory cleanup"`
}

// SessionsCmd groups session inspection commands.
type SessionsCmd struct {
	List SessionsListCmd `cmd:"" default:"1" help:"List recorded sessions"`
	Show SessionsShowCmd `cmd:"" help:"Render a session transcript"`
}

// SessionsListCmd lists recorded sessions, newest first.
type SessionsListCmd struct{}

// SessionsShowCmd renders one session as a transcript.
type SessionsShowCmd struct {
	ID      string `arg:"" optional:"" help:"Session ID or prefix (latest when omitted)"`
	Verbose int    `short:"v" type:"counter" help:"Show full event content"`
}

// MemoriesCmd shows long-term memory files.
type MemoriesCmd struct {
	File string `arg:"" optional:"" help:"Memory file path to print (lists all when omitted)"`
}

// InitCmd writes a starter config file.
type InitCmd struct {
	Path  string `arg:"" optional:"" default:"deepagent.toml" help:"Where to write the config"`
	Force bool   `help:"Overwrite an existing file"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

// kongVars returns variables for kong (version info).
func kongVars() kong.Vars {
	return kong.Vars{
		"version": version,
	}
}
