package replay

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/researchfleet/deepagent/internal/session"
)

// Stats holds aggregate statistics for a session.
type Stats struct {
	TotalDurationMs int64

	// Delegations per subagent
	Delegations map[string]int

	MemoryCleanups int
}

// ComputeStats calculates aggregate statistics from session events.
func ComputeStats(sess *session.Session) *Stats {
	stats := &Stats{
		Delegations: make(map[string]int),
	}

	var firstEvent, lastEvent time.Time
	for _, event := range sess.Events {
		if firstEvent.IsZero() || event.Timestamp.Before(firstEvent) {
			firstEvent = event.Timestamp
		}
		if lastEvent.IsZero() || event.Timestamp.After(lastEvent) {
			lastEvent = event.Timestamp
		}

		switch event.Type {
		case session.EventSubAgentStart:
			stats.Delegations[event.Agent]++
		case session.EventMemoryCleanup:
			stats.MemoryCleanups++
		}
	}

	if !firstEvent.IsZero() && !lastEvent.IsZero() {
		stats.TotalDurationMs = lastEvent.Sub(firstEvent).Milliseconds()
	}
	return stats
}

// PrintStats outputs the statistics to the writer.
func PrintStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s\n",
		labelStyle.Render("Duration:"),
		valueStyle.Render(formatDuration(stats.TotalDurationMs)))

	if len(stats.Delegations) > 0 {
		fmt.Fprintln(w, titleStyle.Render("Delegations:"))
		var agents []string
		for a := range stats.Delegations {
			agents = append(agents, a)
		}
		sort.Strings(agents)
		for _, a := range agents {
			fmt.Fprintf(w, "  %s %s\n",
				labelStyle.Render(a+":"),
				valueStyle.Render(fmt.Sprintf("%d", stats.Delegations[a])))
		}
	}

	if stats.MemoryCleanups > 0 {
		fmt.Fprintf(w, "%s %s\n",
			labelStyle.Render("Memory cleanups:"),
			valueStyle.Render(fmt.Sprintf("%d", stats.MemoryCleanups)))
	}
}

// formatDuration formats milliseconds as human-readable duration.
func formatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	if ms < 60000 {
		return fmt.Sprintf("%.2fs", float64(ms)/1000)
	}
	mins := ms / 60000
	secs := (ms % 60000) / 1000
	return fmt.Sprintf("%dm%ds", mins, secs)
}
