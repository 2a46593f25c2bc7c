// Package config loads layered configuration: built-in defaults, an
// optional YAML file, then COPILOT_* environment overrides.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Config is the full application configuration.
type Config struct {
	Store     StoreConfig   `koanf:"store"`
	HTTP      HTTPConfig    `koanf:"http"`
	Planner   PlannerConfig `koanf:"planner"`
	Memory    MemoryConfig  `koanf:"memory"`
	Logs      LogsConfig    `koanf:"logs"`
	Logging   LoggingConfig `koanf:"logging"`
	Anomaly   AnomalyConfig `koanf:"anomaly"`
	Engine    EngineConfig  `koanf:"engine"`
	Workspace string        `koanf:"workspace"`
}

// StoreConfig selects the session persistence backend.
type StoreConfig struct {
	// Driver is "sqlite" or "file".
	Driver string `koanf:"driver"`
	Path   string `koanf:"path"`
}

type HTTPConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

type PlannerConfig struct {
	// Provider is "openai" or "googleai". Empty disables the remote
	// planner and falls back to the built-in demo plan.
	Provider   string `koanf:"provider"`
	Model      string `koanf:"model"`
	APIKey     string `koanf:"api_key"`
	MaxRetries int    `koanf:"max_retries"`
}

type MemoryConfig struct {
	Path       string `koanf:"path"`
	Collection string `koanf:"collection"`
}

type LogsConfig struct {
	Path string `koanf:"path"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type AnomalyConfig struct {
	ErrorRateThreshold float64 `koanf:"error_rate_threshold"`
	WindowSeconds      int     `koanf:"window_seconds"`
	MinLogVolume       int     `koanf:"min_log_volume"`
	MTTDCeilingSeconds int     `koanf:"mttd_ceiling_seconds"`
}

type EngineConfig struct {
	StepBudget    int `koanf:"step_budget"`
	HistoryWindow int `koanf:"history_window"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Store:     StoreConfig{Driver: "sqlite", Path: "copilot_state.db"},
		HTTP:      HTTPConfig{Host: "0.0.0.0", Port: 8000},
		Planner:   PlannerConfig{Provider: "openai", Model: "gpt-4o-mini", MaxRetries: 3},
		Memory:    MemoryConfig{Path: "copilot_memory", Collection: "agent_memory"},
		Logs:      LogsConfig{Path: "copilot_logs.db"},
		Logging:   LoggingConfig{Level: "info", Format: "console"},
		Anomaly:   AnomalyConfig{ErrorRateThreshold: 0.10, WindowSeconds: 300, MinLogVolume: 5, MTTDCeilingSeconds: 600},
		Engine:    EngineConfig{StepBudget: 5, HistoryWindow: 6},
		Workspace: "workspace",
	}
}

// Load merges defaults, the YAML file at path (if any), and environment
// variables. Sections are separated by double underscores, so
// COPILOT_HTTP__PORT=9090 maps to http.port and
// COPILOT_PLANNER__API_KEY sets planner.api_key.
func Load(path string) (Config, error) {
	cfg := Default()
	k := koanf.New(".")

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return cfg, fmt.Errorf("parsing config file: %w", err)
		}
	}

	err := k.Load(env.Provider("COPILOT_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "COPILOT_")), "__", ".")
	}), nil)
	if err != nil {
		return cfg, fmt.Errorf("loading environment overrides: %w", err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshaling config: %w", err)
	}

	// API keys come from the conventional provider variables when not
	// set explicitly.
	if cfg.Planner.APIKey == "" {
		switch cfg.Planner.Provider {
		case "openai":
			cfg.Planner.APIKey = os.Getenv("OPENAI_API_KEY")
		case "googleai":
			cfg.Planner.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}
	return cfg, nil
}
