package replay

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/researchfleet/deepagent/internal/session"
)

const contentWidth = 80

// Replayer formats recorded sessions for forensic reading.
type Replayer struct {
	output    io.Writer
	verbosity int // 0=normal, 1=verbose (-v)
}

// New creates a Replayer writing to output.
func New(output io.Writer, verbosity int) *Replayer {
	return &Replayer{output: output, verbosity: verbosity}
}

// Replay outputs a formatted timeline of session events.
func (r *Replayer) Replay(sess *session.Session) error {
	r.printHeader(sess)
	r.printTimeline(sess)
	r.printSummary(sess)
	return nil
}

func (r *Replayer) printHeader(sess *session.Session) {
	fmt.Fprintln(r.output)
	fmt.Fprintf(r.output, "%s %s\n", titleStyle.Render("SESSION"), valueStyle.Render(sess.ID))
	fmt.Fprintln(r.output, divider)
	fmt.Fprintf(r.output, "%s %s\n", labelStyle.Render("Mode:   "), valueStyle.Render(sess.Mode))
	fmt.Fprintf(r.output, "%s %s\n", labelStyle.Render("Status: "), statusStyle(sess.Status).Render(sess.Status))
	fmt.Fprintf(r.output, "%s %s\n", labelStyle.Render("Created:"), valueStyle.Render(sess.CreatedAt.Format(time.RFC3339)))
	fmt.Fprintf(r.output, "%s %s\n", labelStyle.Render("Task:   "), valueStyle.Render(truncateContent(sess.Task, 120)))
	fmt.Fprintln(r.output)
}

func (r *Replayer) printTimeline(sess *session.Session) {
	fmt.Fprintf(r.output, "%s %s\n", titleStyle.Render("TIMELINE"), dimStyle.Render(fmt.Sprintf("(%d events)", len(sess.Events))))
	fmt.Fprintln(r.output, divider)

	for i := range sess.Events {
		r.formatEvent(&sess.Events[i])
	}
}

func (r *Replayer) printSummary(sess *session.Session) {
	fmt.Fprintln(r.output)
	fmt.Fprintln(r.output, divider)

	switch sess.Status {
	case session.StatusComplete:
		fmt.Fprintln(r.output, successStyle.Render("COMPLETED"))
		if sess.Report != "" {
			fmt.Fprintln(r.output)
			fmt.Fprintln(r.output, wordwrap.String(sess.Report, contentWidth))
		}
	case session.StatusFailed:
		fmt.Fprintf(r.output, "%s %s\n", errorStyle.Render("FAILED:"), valueStyle.Render(sess.Error))
	default:
		fmt.Fprintln(r.output, warnStyle.Render("RUNNING"))
	}

	PrintStats(r.output, ComputeStats(sess))
}

func (r *Replayer) formatEvent(event *session.Event) {
	ts := timeStyle.Render(event.Timestamp.Format("15:04:05"))
	seqNum := seqStyle.Render(fmt.Sprintf("%d", event.Seq))

	switch event.Type {
	case session.EventRunStart:
		fmt.Fprintf(r.output, "%s │ %s │ %s\n", seqNum, ts, flowStyle.Render("RUN START"))
	case session.EventRunEnd:
		if event.Error != "" {
			fmt.Fprintf(r.output, "%s │ %s │ %s %s\n", seqNum, ts,
				flowStyle.Render("RUN END"), errorStyle.Render(event.Error))
		} else {
			fmt.Fprintf(r.output, "%s │ %s │ %s\n", seqNum, ts, flowStyle.Render("RUN END"))
		}
	case session.EventUser:
		fmt.Fprintf(r.output, "%s │ %s │ %s\n", seqNum, ts, flowStyle.Render("USER"))
		if r.verbosity >= 1 && event.Content != "" {
			r.printContent(event.Content)
		}
	case session.EventAssistant:
		fmt.Fprintf(r.output, "%s │ %s │ %s\n", seqNum, ts, flowStyle.Render("ASSISTANT"))
		if r.verbosity >= 1 && event.Content != "" {
			r.printContent(event.Content)
		}
	case session.EventSubAgentStart:
		fmt.Fprintf(r.output, "%s │ %s │ %s %s\n", seqNum, ts,
			subagentStyle.Render("SUBAGENT START:"),
			valueStyle.Render(event.Agent))
		if event.Content != "" {
			fmt.Fprintf(r.output, "      │          │   %s %s\n",
				dimStyle.Render("task:"),
				dimStyle.Render(truncateContent(event.Content, 100)))
		}
	case session.EventSubAgentEnd:
		r.fmtSubAgentEnd(seqNum, ts, event)
	case session.EventMemoryCleanup:
		fmt.Fprintf(r.output, "%s │ %s │ %s %s\n", seqNum, ts,
			memoryStyle.Render("MEMORY CLEANUP:"),
			valueStyle.Render(event.Content))
	default:
		fmt.Fprintf(r.output, "%s │ %s │ %s\n", seqNum, ts, dimStyle.Render(event.Type))
	}
}

func (r *Replayer) fmtSubAgentEnd(seqNum, ts string, event *session.Event) {
	status := successStyle.Render("complete")
	if strings.HasPrefix(event.Content, "error:") {
		status = errorStyle.Render("failed")
	}
	fmt.Fprintf(r.output, "%s │ %s │ %s %s %s\n", seqNum, ts,
		subagentStyle.Render("SUBAGENT END:"),
		valueStyle.Render(event.Agent),
		status)
	if event.Content != "" {
		r.printSubAgentOutput(event.Content)
	}
}

// printContent prints verbose content with timeline indentation.
func (r *Replayer) printContent(content string) {
	wrapped := wordwrap.String(content, contentWidth)
	for _, line := range strings.Split(wrapped, "\n") {
		fmt.Fprintf(r.output, "      │          │   %s\n", line)
	}
}

// printSubAgentOutput prints sub-agent output, truncated unless verbose.
func (r *Replayer) printSubAgentOutput(content string) {
	lines := strings.Split(wordwrap.String(content, contentWidth), "\n")
	maxLines := 10
	if r.verbosity >= 1 {
		maxLines = 50
	}

	for i, line := range lines {
		if i >= maxLines {
			remaining := len(lines) - maxLines
			fmt.Fprintf(r.output, "      │          │     %s\n",
				subagentDimStyle.Render(fmt.Sprintf("... (%d more lines)", remaining)))
			break
		}
		fmt.Fprintf(r.output, "      │          │     %s\n", subagentDimStyle.Render(line))
	}
}

func statusStyle(status string) lipgloss.Style {
	switch status {
	case session.StatusComplete:
		return successStyle
	case session.StatusFailed:
		return errorStyle
	default:
		return warnStyle
	}
}

// truncateContent truncates a string for single-line display.
func truncateContent(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
