// Package config loads and validates the agent configuration file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration.
type Config struct {
	MaxIterations int               `yaml:"max_iterations"`
	Provider      ProviderConfig    `yaml:"provider"`
	History       HistoryConfig     `yaml:"history"`
	Tools         ToolsConfig       `yaml:"tools"`
	Retrieval     RetrievalConfig   `yaml:"retrieval"`
	Prompt        PromptConfig      `yaml:"prompt"`
	Visualization VisualizationCfg  `yaml:"visualization"`
	Markers       []string          `yaml:"completion_markers"`
	Logging       LoggingConfig     `yaml:"logging"`
}

type ProviderConfig struct {
	Name       string  `yaml:"name"`
	APIKeyEnv  string  `yaml:"api_key_env"`
	APIBase    string  `yaml:"api_base"`
	Model      string  `yaml:"model"`
	TimeoutSec int     `yaml:"timeout_sec"`
	RatePerSec float64 `yaml:"rate_per_sec"`
	RateBurst  int     `yaml:"rate_burst"`
}

type HistoryConfig struct {
	Backend string `yaml:"backend"` // "memory" or "sqlite"
	Path    string `yaml:"path"`
}

type ToolsConfig struct {
	RatePerSec float64 `yaml:"rate_per_sec"` // <= 0 disables rate limiting
	RateBurst  int     `yaml:"rate_burst"`
}

type RetrievalConfig struct {
	Enabled bool `yaml:"enabled"`
	TopK    int  `yaml:"top_k"`
}

type PromptConfig struct {
	TokenBudget int `yaml:"token_budget"`
}

type VisualizationCfg struct {
	Enabled      bool     `yaml:"enabled"`
	TriggerWords []string `yaml:"trigger_words"`
	Tool         string   `yaml:"tool"`
	Width        int      `yaml:"width"`
	Height       int      `yaml:"height"`
	Text         string   `yaml:"text"`
}

type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		MaxIterations: 5,
		Provider: ProviderConfig{
			Name:       "openai",
			APIKeyEnv:  "SPINDLE_API_KEY",
			Model:      "gpt-4o-mini",
			TimeoutSec: 60,
		},
		History:   HistoryConfig{Backend: "memory"},
		Retrieval: RetrievalConfig{Enabled: true, TopK: 3},
		Prompt:    PromptConfig{TokenBudget: 4000},
		Visualization: VisualizationCfg{
			Enabled:      true,
			TriggerWords: []string{"draw", "visual"},
			Tool:         "draw_rectangle",
			Width:        300,
			Height:       150,
			Text:         "TSAI",
		},
		Markers: []string{"e31", "e32", "e33"},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads a YAML config file on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the loop cannot run with.
func (c *Config) Validate() error {
	if c.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be >= 1, got %d", c.MaxIterations)
	}
	switch c.History.Backend {
	case "memory":
	case "sqlite":
		if c.History.Path == "" {
			return fmt.Errorf("history backend sqlite requires a path")
		}
	default:
		return fmt.Errorf("unknown history backend %q", c.History.Backend)
	}
	if c.Retrieval.TopK < 0 {
		return fmt.Errorf("retrieval top_k must be >= 0, got %d", c.Retrieval.TopK)
	}
	if c.Visualization.Enabled && c.Visualization.Tool == "" {
		return fmt.Errorf("visualization enabled but no tool named")
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	return nil
}

// APIKey resolves the provider key from the configured environment
// variable. Empty when unset.
func (c *Config) APIKey() string {
	if c.Provider.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.Provider.APIKeyEnv)
}
