// Package session provides run persistence and forensics. Every run writes a
// JSON session file recording the task, the event stream, and the outcome;
// the sessions CLI renders these transcripts after the fact.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status constants for sessions.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// Event types for the session log.
const (
	EventRunStart      = "run_start"
	EventRunEnd        = "run_end"
	EventUser          = "user"
	EventAssistant     = "assistant"
	EventSubAgentStart = "subagent_start"
	EventSubAgentEnd   = "subagent_end"
	EventMemoryCleanup = "memory_cleanup"
)

// Event is a single entry in the session log.
type Event struct {
	Seq        uint64    `json:"seq"`
	Type       string    `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	Agent      string    `json:"agent,omitempty"`
	Content    string    `json:"content,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms,omitempty"`
}

// Session represents one research run.
type Session struct {
	ID        string    `json:"id"`
	Task      string    `json:"task"`
	Mode      string    `json:"mode"` // orchestrator or pipeline
	Status    string    `json:"status"`
	Report    string    `json:"report,omitempty"`
	Error     string    `json:"error,omitempty"`
	Events    []Event   `json:"events"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	mu  sync.Mutex
	seq uint64
}

// Sink receives events as a run progresses.
type Sink interface {
	Append(eventType, agent, content string)
}

// New creates a running session for a task.
func New(task, mode string) *Session {
	now := time.Now().UTC()
	s := &Session{
		ID:        uuid.NewString(),
		Task:      task,
		Mode:      mode,
		Status:    StatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.Append(EventRunStart, "", "")
	s.Append(EventUser, "", task)
	return s
}

// Append records an event. Safe for concurrent use.
func (s *Session) Append(eventType, agent, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.Events = append(s.Events, Event{
		Seq:       s.seq,
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Agent:     agent,
		Content:   content,
	})
	s.UpdatedAt = time.Now().UTC()
}

// Complete marks the session successful with its final report. The report is
// also recorded as the closing assistant event so the timeline stands alone.
func (s *Session) Complete(report string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if report != "" {
		s.seq++
		s.Events = append(s.Events, Event{Seq: s.seq, Type: EventAssistant, Timestamp: now, Content: report})
	}
	s.seq++
	s.Events = append(s.Events, Event{Seq: s.seq, Type: EventRunEnd, Timestamp: now})
	s.Status = StatusComplete
	s.Report = report
	s.UpdatedAt = now
}

// Fail marks the session failed.
func (s *Session) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.Events = append(s.Events, Event{Seq: s.seq, Type: EventRunEnd, Timestamp: time.Now().UTC(), Error: err.Error()})
	s.Status = StatusFailed
	s.Error = err.Error()
	s.UpdatedAt = time.Now().UTC()
}

// Manager persists sessions as JSON files in a directory.
type Manager struct {
	dir string
}

// NewManager ensures the session directory exists.
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &Manager{dir: dir}, nil
}

// Save writes the session atomically (temp file + rename).
func (m *Manager) Save(s *Session) error {
	s.mu.Lock()
	data, err := json.MarshalIndent(s, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	final := filepath.Join(m.dir, s.ID+".json")
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to commit session: %w", err)
	}
	return nil
}

// Load reads a session by ID. Partial IDs are accepted when unambiguous.
func (m *Manager) Load(id string) (*Session, error) {
	path := filepath.Join(m.dir, id+".json")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		resolved, rerr := m.resolvePrefix(id)
		if rerr != nil {
			return nil, rerr
		}
		path = filepath.Join(m.dir, resolved+".json")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse session: %w", err)
	}
	s.seq = uint64(len(s.Events))
	return &s, nil
}

func (m *Manager) resolvePrefix(prefix string) (string, error) {
	ids, err := m.List()
	if err != nil {
		return "", err
	}
	var matches []string
	for _, id := range ids {
		if strings.HasPrefix(id, prefix) {
			matches = append(matches, id)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no session matching %q", prefix)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("session prefix %q is ambiguous (%d matches)", prefix, len(matches))
	}
}

// List returns all session IDs, newest first.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	type stamped struct {
		id  string
		mod time.Time
	}
	var all []stamped
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		all = append(all, stamped{id: strings.TrimSuffix(name, ".json"), mod: info.ModTime()})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].mod.After(all[j].mod) })

	ids := make([]string, len(all))
	for i, s := range all {
		ids[i] = s.id
	}
	return ids, nil
}

// Latest returns the most recently written session.
func (m *Manager) Latest() (*Session, error) {
	ids, err := m.List()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no sessions recorded yet")
	}
	return m.Load(ids[0])
}
