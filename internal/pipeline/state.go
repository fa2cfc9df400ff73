package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/leofalp/aigo/patterns/graph"
)

// FileStateProvider is a graph.StateProvider persisted to a JSON file, so a
// pipeline run interrupted mid-graph can resume with completed nodes intact.
// Every mutation rewrites the file (temp file + rename); pipeline graphs are
// four nodes, so the cost is irrelevant.
type FileStateProvider struct {
	path string

	mu    sync.RWMutex
	state fileState
}

type fileState struct {
	Shared   map[string]any              `json:"shared"`
	Statuses map[string]graph.NodeStatus `json:"statuses"`
	Results  map[string]*storedResult    `json:"results"`
}

// storedResult is the JSON shape of a graph.NodeResult. Output survives the
// round trip as generic JSON; Error collapses to its message.
type storedResult struct {
	Output     any            `json:"output,omitempty"`
	Error      string         `json:"error,omitempty"`
	DurationMs int64          `json:"duration_ms,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type storedError struct{ msg string }

func (e *storedError) Error() string { return e.msg }

// NewFileStateProvider loads existing state from path, or starts empty if the
// file does not exist yet.
func NewFileStateProvider(path string) (*FileStateProvider, error) {
	p := &FileStateProvider{
		path: path,
		state: fileState{
			Shared:   map[string]any{},
			Statuses: map[string]graph.NodeStatus{},
			Results:  map[string]*storedResult{},
		},
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline state: %w", err)
	}
	if err := json.Unmarshal(data, &p.state); err != nil {
		return nil, fmt.Errorf("failed to parse pipeline state %s: %w", path, err)
	}
	return p, nil
}

// Get retrieves a shared-state value.
func (p *FileStateProvider) Get(ctx context.Context, key string) (any, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.state.Shared[key]
	return v, ok, nil
}

// Set writes a shared-state value and persists.
func (p *FileStateProvider) Set(ctx context.Context, key string, value any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Shared[key] = value
	return p.flush()
}

// GetAll returns a copy of the shared state.
func (p *FileStateProvider) GetAll(ctx context.Context) (map[string]any, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]any, len(p.state.Shared))
	for k, v := range p.state.Shared {
		out[k] = v
	}
	return out, nil
}

// GetNodeStatus returns a node's status, NodePending if never set.
func (p *FileStateProvider) GetNodeStatus(ctx context.Context, nodeID string) (graph.NodeStatus, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if s, ok := p.state.Statuses[nodeID]; ok {
		return s, nil
	}
	return graph.NodePending, nil
}

// SetNodeStatus records a node's status and persists.
func (p *FileStateProvider) SetNodeStatus(ctx context.Context, nodeID string, status graph.NodeStatus) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Statuses[nodeID] = status
	return p.flush()
}

// GetNodeResult returns a node's stored result, nil if none.
func (p *FileStateProvider) GetNodeResult(ctx context.Context, nodeID string) (*graph.NodeResult, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	sr, ok := p.state.Results[nodeID]
	if !ok || sr == nil {
		return nil, nil
	}
	result := &graph.NodeResult{
		Output:   sr.Output,
		Duration: time.Duration(sr.DurationMs) * time.Millisecond,
		Metadata: sr.Metadata,
	}
	if sr.Error != "" {
		result.Error = &storedError{msg: sr.Error}
	}
	return result, nil
}

// SetNodeResult stores a node's result and persists.
func (p *FileStateProvider) SetNodeResult(ctx context.Context, nodeID string, result *graph.NodeResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if result == nil {
		delete(p.state.Results, nodeID)
		return p.flush()
	}
	sr := &storedResult{
		Output:     result.Output,
		DurationMs: result.Duration.Milliseconds(),
		Metadata:   result.Metadata,
	}
	if result.Error != nil {
		sr.Error = result.Error.Error()
	}
	p.state.Results[nodeID] = sr
	return p.flush()
}

// flush writes the state file. Callers hold the write lock.
func (p *FileStateProvider) flush() error {
	data, err := json.MarshalIndent(&p.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal pipeline state: %w", err)
	}
	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write pipeline state: %w", err)
	}
	if err := os.Rename(tmp, p.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to commit pipeline state: %w", err)
	}
	return nil
}
