// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config represents the runner configuration.
type Config struct {
	LLM       LLMConfig          `toml:"llm"`       // Default LLM settings (orchestrator and subagents)
	SmallLLM  LLMConfig          `toml:"small_llm"` // Fast/cheap model for memory trimming
	Profiles  map[string]Profile `toml:"profiles"`  // Named LLM profiles for per-agent overrides
	Search    SearchConfig       `toml:"search"`
	Sandbox   SandboxConfig      `toml:"sandbox"`
	Storage   StorageConfig      `toml:"storage"`
	Limits    LimitsConfig       `toml:"limits"`
	Telemetry TelemetryConfig    `toml:"telemetry"`
}

// LLMConfig contains LLM provider settings.
type LLMConfig struct {
	Provider  string `toml:"provider"`
	Model     string `toml:"model"`
	APIKeyEnv string `toml:"api_key_env"`
	MaxTokens int    `toml:"max_tokens"`
	BaseURL   string `toml:"base_url"` // Custom API endpoint (OpenRouter, LiteLLM, Ollama)
}

// Profile represents a named LLM configuration an agent definition can
// reference.
type Profile struct {
	Provider  string `toml:"provider"`
	Model     string `toml:"model"`
	APIKeyEnv string `toml:"api_key_env"`
	MaxTokens int    `toml:"max_tokens"`
	BaseURL   string `toml:"base_url"`
}

// SearchConfig contains web search settings.
type SearchConfig struct {
	APIKeyEnv string `toml:"api_key_env"` // Defaults to TAVILY_API_KEY
}

// SandboxConfig contains code-execution service settings.
type SandboxConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKeyEnv string `toml:"api_key_env"` // Defaults to SANDBOX_API_KEY
	TimeoutS  int    `toml:"timeout"`     // Per-request timeout in seconds
}

// StorageConfig contains persistent storage settings.
type StorageConfig struct {
	Path          string `toml:"path"`           // Base directory for sessions and memory
	PersistMemory bool   `toml:"persist_memory"` // false = memory files live only for the run
}

// LimitsConfig contains the agent loop budgets.
type LimitsConfig struct {
	MaxIterations     int `toml:"max_iterations"`      // Orchestrator loop budget (default 1000)
	SubagentToolCalls int `toml:"subagent_tool_calls"` // Per-delegation tool budget (default 15)
	MaxMemories       int `toml:"max_memories"`        // Bullet cap per memory file (default 30)
}

// TelemetryConfig contains tracing settings.
type TelemetryConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"` // Span output file; empty = stderr
}

// New creates a new config with defaults.
func New() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:  "openai",
			Model:     "gpt-4o",
			MaxTokens: 4096,
		},
		SmallLLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
		},
		Storage: StorageConfig{
			Path:          defaultStoragePath(),
			PersistMemory: true,
		},
		Limits: LimitsConfig{
			MaxIterations:     1000,
			SubagentToolCalls: 15,
			MaxMemories:       30,
		},
	}
}

func defaultStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".deepagent"
	}
	return filepath.Join(home, ".local", "deepagent")
}

// LoadFile loads configuration from a TOML file, layered over defaults.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Storage.Path = expandHome(cfg.Storage.Path)
	return cfg, nil
}

// expandHome resolves a leading ~ against the user's home directory.
func expandHome(p string) string {
	if !strings.HasPrefix(p, "~") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// LoadDefault loads configuration from deepagent.toml in the current
// directory, falling back to pure defaults when the file is absent.
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}
	path := filepath.Join(cwd, "deepagent.toml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return New(), nil
	}
	return LoadFile(path)
}

// DefaultAPIKeyEnv returns the default environment variable name for a
// provider.
func DefaultAPIKeyEnv(provider string) string {
	switch provider {
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	case "gemini", "google":
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}

// GetAPIKey returns the API key for an LLM config from the environment.
func (l LLMConfig) GetAPIKey() string {
	envVar := l.APIKeyEnv
	if envVar == "" {
		envVar = DefaultAPIKeyEnv(l.Provider)
	}
	if envVar == "" {
		return ""
	}
	return os.Getenv(envVar)
}

// GetProfile returns the LLM config for a named profile. Missing fields fall
// back to the default LLM config; an unknown name returns the default.
func (c *Config) GetProfile(name string) LLMConfig {
	if name == "" {
		return c.LLM
	}
	profile, ok := c.Profiles[name]
	if !ok {
		return c.LLM
	}
	result := LLMConfig{
		Provider:  profile.Provider,
		Model:     profile.Model,
		APIKeyEnv: profile.APIKeyEnv,
		MaxTokens: profile.MaxTokens,
		BaseURL:   profile.BaseURL,
	}
	if result.Provider == "" {
		result.Provider = c.LLM.Provider
	}
	if result.Model == "" {
		result.Model = c.LLM.Model
	}
	if result.APIKeyEnv == "" {
		result.APIKeyEnv = c.LLM.APIKeyEnv
	}
	if result.MaxTokens == 0 {
		result.MaxTokens = c.LLM.MaxTokens
	}
	return result
}
