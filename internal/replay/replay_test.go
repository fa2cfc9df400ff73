package replay

import (
	"errors"
	"strings"
	"testing"

	"github.com/researchfleet/deepagent/internal/session"
)

func sampleSession() *session.Session {
	s := session.New("research the widget market", "orchestrator")
	s.Append(session.EventSubAgentStart, "research-agent", "find market size")
	s.Append(session.EventSubAgentEnd, "research-agent", "the market is $10B")
	s.Append(session.EventSubAgentStart, "research-agent", "find competitors")
	s.Append(session.EventSubAgentEnd, "research-agent", "error: rate limited")
	s.Append(session.EventMemoryCleanup, "", "trimmed /memories/research_lessons.txt")
	s.Complete("# Widget Market\nThe market is $10B.")
	return s
}

func TestReplayTimeline(t *testing.T) {
	var buf strings.Builder
	if err := New(&buf, 0).Replay(sampleSession()); err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"SESSION",
		"RUN START",
		"SUBAGENT START:",
		"research-agent",
		"MEMORY CLEANUP:",
		"COMPLETED",
		"# Widget Market",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestReplayVerboseShowsTask(t *testing.T) {
	sess := sampleSession()

	var quiet strings.Builder
	New(&quiet, 0).Replay(sess)
	var verbose strings.Builder
	New(&verbose, 1).Replay(sess)

	if len(verbose.String()) <= len(quiet.String()) {
		t.Error("verbose output should include event content")
	}
	if !strings.Contains(verbose.String(), "research the widget market") {
		t.Error("verbose output missing the user task")
	}
}

func TestReplayFailedSession(t *testing.T) {
	s := session.New("t", "pipeline")
	s.Fail(errors.New("provider down"))

	var buf strings.Builder
	New(&buf, 0).Replay(s)
	if !strings.Contains(buf.String(), "FAILED:") || !strings.Contains(buf.String(), "provider down") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestComputeStats(t *testing.T) {
	stats := ComputeStats(sampleSession())
	if stats.Delegations["research-agent"] != 2 {
		t.Errorf("delegations = %v", stats.Delegations)
	}
	if stats.MemoryCleanups != 1 {
		t.Errorf("cleanups = %d", stats.MemoryCleanups)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{500, "500ms"},
		{1500, "1.50s"},
		{90000, "1m30s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.ms); got != tt.want {
			t.Errorf("formatDuration(%d) = %q, want %q", tt.ms, got, tt.want)
		}
	}
}
