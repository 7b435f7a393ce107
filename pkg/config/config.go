// Package config loads the gateway configuration from an optional YAML file
// with environment-variable overrides. Configuration is read once at startup
// and treated as immutable afterwards.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level gateway configuration.
type Config struct {
	// Host and Port for the HTTP API surface.
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// Headless controls whether browser sessions run without a visible window.
	Headless bool `yaml:"headless"`

	// AllowedDomains is a comma-separated list of hosts the goto command may
	// navigate to. Empty means unrestricted; that is the intended default
	// posture, not an accident.
	AllowedDomains string `yaml:"allowed_domains"`

	// DataDir holds the persistent browser profile.
	DataDir string `yaml:"data_dir"`

	// ScreenshotDir receives per-head state captures.
	ScreenshotDir string `yaml:"screenshot_dir"`

	OpenAI    OpenAIConfig    `yaml:"openai"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	Ollama    OllamaConfig    `yaml:"ollama"`
	Watsonx   WatsonxConfig   `yaml:"watsonx"`
}

// OpenAIConfig configures the OpenAI API head and catalog queries.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// AnthropicConfig configures the Claude API head and catalog queries.
type AnthropicConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	Version string `yaml:"version"`
}

// GeminiConfig configures the Gemini API head.
type GeminiConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// OllamaConfig configures the local Ollama head.
type OllamaConfig struct {
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// WatsonxConfig configures the watsonx API head and catalog queries.
type WatsonxConfig struct {
	APIKey    string `yaml:"api_key"`
	ProjectID string `yaml:"project_id"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
}

// Defaults returns a Config populated with the built-in defaults.
func Defaults() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Host:          "127.0.0.1",
		Port:          8000,
		Headless:      false,
		DataDir:       filepath.Join(home, ".hydra"),
		ScreenshotDir: filepath.Join(home, ".hydra", "screenshots"),
		OpenAI: OpenAIConfig{
			BaseURL: "https://api.openai.com",
			Model:   "gpt-4o",
		},
		Anthropic: AnthropicConfig{
			BaseURL: "https://api.anthropic.com",
			Model:   "claude-3-5-sonnet-20241022",
			Version: "2023-06-01",
		},
		Gemini: GeminiConfig{
			BaseURL: "https://generativelanguage.googleapis.com",
			Model:   "gemini-2.0-flash-exp",
		},
		Ollama: OllamaConfig{
			BaseURL:        "http://localhost:11434",
			Model:          "llama3.2:latest",
			TimeoutSeconds: 120,
		},
		Watsonx: WatsonxConfig{
			BaseURL: "https://us-south.ml.cloud.ibm.com",
			Model:   "ibm/granite-3-8b-instruct",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file at path,
// and environment overrides, in that order. A missing file is not an error;
// a malformed one is.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err != nil && os.IsNotExist(err):
			// Optional file, fall through to env overrides.
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()

	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", cfg.Port)
	}

	return cfg, nil
}

// applyEnv layers environment variables over the current values. Empty
// variables leave the existing value untouched.
func (c *Config) applyEnv() {
	setString(&c.Host, "HYDRA_HOST")
	setInt(&c.Port, "HYDRA_PORT")
	setBool(&c.Headless, "HYDRA_HEADLESS")
	setString(&c.AllowedDomains, "HYDRA_ALLOWED_DOMAINS")
	setString(&c.DataDir, "HYDRA_DATA_DIR")
	setString(&c.ScreenshotDir, "HYDRA_SCREENSHOT_DIR")

	setString(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&c.OpenAI.BaseURL, "OPENAI_BASE_URL")
	setString(&c.OpenAI.Model, "OPENAI_MODEL")

	setString(&c.Anthropic.APIKey, "ANTHROPIC_API_KEY")
	setString(&c.Anthropic.BaseURL, "ANTHROPIC_BASE_URL")
	setString(&c.Anthropic.Model, "ANTHROPIC_MODEL")
	setString(&c.Anthropic.Version, "ANTHROPIC_VERSION")

	setString(&c.Gemini.APIKey, "GEMINI_API_KEY")
	if c.Gemini.APIKey == "" {
		setString(&c.Gemini.APIKey, "GOOGLE_API_KEY")
	}
	setString(&c.Gemini.BaseURL, "GEMINI_BASE_URL")
	setString(&c.Gemini.Model, "GEMINI_MODEL")

	setString(&c.Ollama.BaseURL, "OLLAMA_BASE_URL")
	setString(&c.Ollama.Model, "OLLAMA_MODEL")
	setInt(&c.Ollama.TimeoutSeconds, "OLLAMA_TIMEOUT_SECONDS")

	setString(&c.Watsonx.APIKey, "WATSONX_API_KEY")
	if c.Watsonx.APIKey == "" {
		setString(&c.Watsonx.APIKey, "IBM_API_KEY")
	}
	setString(&c.Watsonx.ProjectID, "WATSONX_PROJECT_ID")
	setString(&c.Watsonx.BaseURL, "WATSONX_URL")
	setString(&c.Watsonx.Model, "WATSONX_MODEL")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = strings.EqualFold(v, "true") || v == "1"
	}
}

// Addr returns the host:port the HTTP server binds to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
