// Package config loads the CLI configuration file. Library packages take
// explicit parameters; configuration stays at the edge.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the pipeboard.yaml file.
type Config struct {
	ServerURL string `yaml:"server_url"`
	CanvasID  string `yaml:"canvas_id"`
	APIToken  string `yaml:"api_token"`
	RedisAddr string `yaml:"redis_addr"`
	LogLevel  string `yaml:"log_level"`
}

func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// LoadOrDefault falls back to a usable local default when the file is
// missing.
func LoadOrDefault(path string) Config {
	cfg, err := Load(path)
	if err != nil {
		return Config{
			ServerURL: "http://localhost:8080",
			LogLevel:  "info",
		}
	}

	return cfg
}

// WebSocketURL derives the stream base URL from the server URL.
func (c Config) WebSocketURL() string {
	switch {
	case strings.HasPrefix(c.ServerURL, "https://"):
		return "wss://" + strings.TrimPrefix(c.ServerURL, "https://")
	case strings.HasPrefix(c.ServerURL, "http://"):
		return "ws://" + strings.TrimPrefix(c.ServerURL, "http://")
	default:
		return c.ServerURL
	}
}
