package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type ServerConfig struct {
	Port         int    `toml:"port"`
	TemplatesDir string `toml:"templates_dir"`
	AssetsDir    string `toml:"assets_dir"`
	LocalesDir   string `toml:"locales_dir"`
	SessionTTL   string `toml:"session_ttl"` // e.g. "12h"
	LogLevel     string `toml:"log_level"`
	LogFormat    string `toml:"log_format"` // "text" or "json"
	ReloadViews  bool   `toml:"reload_views"`
}

type LLMConfig struct {
	Provider      string  `toml:"provider"` // "ollama" or "bedrock"
	Endpoint      string  `toml:"endpoint"` // Ollama base URL
	Model         string  `toml:"model"`
	Region        string  `toml:"region"` // Bedrock only
	Timeout       string  `toml:"timeout"`
	MaxConcurrent int     `toml:"max_concurrent"`
	Temperature   float64 `toml:"temperature"`
	MaxTokens     int     `toml:"max_tokens"`
}

type AssistantConfig struct {
	EmailFile         string `toml:"email_file"` // optional TOML file with the mock email
	SuggestionCount   int    `toml:"suggestion_count"`
	SystemInstruction string `toml:"system_instruction"`
	MaxBodyChars      int    `toml:"max_body_chars"`
}

type RateLimitConfig struct {
	Requests int    `toml:"requests"`
	Window   string `toml:"window"`
}

type Config struct {
	Server    ServerConfig    `toml:"server"`
	LLM       LLMConfig       `toml:"llm"`
	Assistant AssistantConfig `toml:"assistant"`
	RateLimit RateLimitConfig `toml:"ratelimit"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         3000,
			TemplatesDir: "./templates",
			AssetsDir:    "./assets",
			LocalesDir:   "./locales",
			SessionTTL:   "12h",
			LogLevel:     "info",
			LogFormat:    "text",
		},
		LLM: LLMConfig{
			Provider:      "ollama",
			Endpoint:      "http://localhost:11434",
			Model:         "llama3.2",
			Timeout:       "60s",
			MaxConcurrent: 4,
			Temperature:   0.4,
			MaxTokens:     1024,
		},
		Assistant: AssistantConfig{
			SuggestionCount: 3,
			MaxBodyChars:    8000,
		},
		RateLimit: RateLimitConfig{
			Requests: 100,
			Window:   "1m",
		},
	}
}

// LoadConfig decodes the TOML file at path over the defaults. A missing
// file is not an error; the returned bool reports whether it was found.
func LoadConfig(path string) (*Config, bool, error) {
	cfg := Default()

	found := true
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, false, fmt.Errorf("decode %s: %w", path, err)
		}
		found = false
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, found, err
	}
	return cfg, found, nil
}

// applyEnv lets a deployment override the most common settings
func (c *Config) applyEnv() {
	if v := os.Getenv("MAILASSIST_LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("MAILASSIST_LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("MAILASSIST_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
}

// Validate checks values the server cannot start without
func (c *Config) Validate() error {
	switch strings.ToLower(c.LLM.Provider) {
	case "ollama", "bedrock":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return fmt.Errorf("llm model is required")
	}
	if c.Assistant.SuggestionCount < 1 || c.Assistant.SuggestionCount > 5 {
		return fmt.Errorf("assistant suggestion_count must be between 1 and 5, got %d", c.Assistant.SuggestionCount)
	}
	if c.LLM.MaxConcurrent < 1 {
		return fmt.Errorf("llm max_concurrent must be positive")
	}
	for name, d := range map[string]string{
		"server.session_ttl": c.Server.SessionTTL,
		"llm.timeout":        c.LLM.Timeout,
		"ratelimit.window":   c.RateLimit.Window,
	} {
		if _, err := time.ParseDuration(d); err != nil {
			return fmt.Errorf("invalid duration for %s: %w", name, err)
		}
	}
	return nil
}

// LLMTimeout returns the parsed provider timeout
func (c *Config) LLMTimeout() time.Duration {
	return mustDuration(c.LLM.Timeout, 60*time.Second)
}

// SessionTTL returns how long an idle panel session is kept
func (c *Config) SessionTTL() time.Duration {
	return mustDuration(c.Server.SessionTTL, 12*time.Hour)
}

// RateWindow returns the rate limiter window
func (c *Config) RateWindow() time.Duration {
	return mustDuration(c.RateLimit.Window, time.Minute)
}

func mustDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
