// Package sandbox is a minimal REST client for the remote code-execution
// service. It covers exactly the lifecycle the analysis tooling needs:
// create a sandbox, run code in it, enumerate and fetch produced files,
// resolve a public preview link, and delete the sandbox.
//
// Provisioning concerns (images, warm pools, quotas) belong to the service
// and are not modeled here.
package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

const (
	envAPIKey = "SANDBOX_API_KEY"

	// OutputsDir is where executed code is told to write artifacts.
	OutputsDir = "/home/daytona/outputs"
)

// Client talks to the sandbox service.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// Config configures a sandbox Client.
type Config struct {
	BaseURL string
	// APIKeyEnv names the environment variable holding the API key.
	// Defaults to SANDBOX_API_KEY.
	APIKeyEnv string
	Timeout   time.Duration
}

// New builds a Client from cfg. The API key is read from the environment,
// never from config values.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("sandbox base URL is required")
	}
	keyEnv := cfg.APIKeyEnv
	if keyEnv == "" {
		keyEnv = envAPIKey
	}
	apiKey := os.Getenv(keyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("%s environment variable is not set", keyEnv)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Minute
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// Sandbox identifies a provisioned sandbox instance.
type Sandbox struct {
	ID string `json:"id"`
}

// ExecResult is the outcome of running code in a sandbox.
type ExecResult struct {
	ExitCode int    `json:"exit_code"`
	Output   string `json:"output"`
}

// FileInfo describes a file inside the sandbox filesystem.
type FileInfo struct {
	Name  string `json:"name"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size"`
}

// Create provisions a new sandbox.
func (c *Client) Create(ctx context.Context) (*Sandbox, error) {
	var sb Sandbox
	if err := c.do(ctx, http.MethodPost, "/sandboxes", nil, &sb); err != nil {
		return nil, fmt.Errorf("failed to create sandbox: %w", err)
	}
	if sb.ID == "" {
		return nil, fmt.Errorf("sandbox service returned an empty id")
	}
	return &sb, nil
}

// Run executes code in the sandbox and returns its combined output.
func (c *Client) Run(ctx context.Context, id, code string) (*ExecResult, error) {
	req := map[string]string{"code": code}
	var res ExecResult
	if err := c.do(ctx, http.MethodPost, "/sandboxes/"+id+"/exec", req, &res); err != nil {
		return nil, fmt.Errorf("failed to run code in sandbox %s: %w", id, err)
	}
	return &res, nil
}

// ListFiles enumerates a directory in the sandbox. A missing directory is
// reported as an empty listing by the service.
func (c *Client) ListFiles(ctx context.Context, id, dir string) ([]FileInfo, error) {
	path := "/sandboxes/" + id + "/files?path=" + url.QueryEscape(dir)
	var files []FileInfo
	if err := c.do(ctx, http.MethodGet, path, nil, &files); err != nil {
		return nil, fmt.Errorf("failed to list %s in sandbox %s: %w", dir, id, err)
	}
	return files, nil
}

// Download fetches a file's bytes from the sandbox.
func (c *Client) Download(ctx context.Context, id, path string) ([]byte, error) {
	u := c.baseURL + "/sandboxes/" + id + "/files/download?path=" + url.QueryEscape(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status %d downloading %s: %s", resp.StatusCode, path, string(body))
	}
	return io.ReadAll(resp.Body)
}

// PreviewLink resolves a public URL for a file in the sandbox, suitable for
// embedding in reports.
func (c *Client) PreviewLink(ctx context.Context, id, path string) (string, error) {
	p := "/sandboxes/" + id + "/files/link?path=" + url.QueryEscape(path)
	var out struct {
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodGet, p, nil, &out); err != nil {
		return "", fmt.Errorf("failed to resolve link for %s: %w", path, err)
	}
	return out.URL, nil
}

// Delete tears the sandbox down. Callers run this in all paths, including
// failed bootstraps.
func (c *Client) Delete(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/sandboxes/"+id, nil, nil); err != nil {
		return fmt.Errorf("failed to delete sandbox %s: %w", id, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("error marshaling request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(raw))
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("error parsing response: %w", err)
	}
	return nil
}
