package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 8000, cfg.Port)
	assert.False(t, cfg.Headless)
	assert.Empty(t, cfg.AllowedDomains, "default posture is allow-all")
	assert.Equal(t, "https://api.openai.com", cfg.OpenAI.BaseURL)
	assert.Equal(t, "http://localhost:11434", cfg.Ollama.BaseURL)
	assert.Equal(t, 120, cfg.Ollama.TimeoutSeconds)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Port)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hydra.yaml")
	data := `
host: 0.0.0.0
port: 9090
headless: true
allowed_domains: "chatgpt.com,example.com"
ollama:
  model: "deepseek-r1:latest"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 9090, cfg.Port)
	assert.True(t, cfg.Headless)
	assert.Equal(t, "chatgpt.com,example.com", cfg.AllowedDomains)
	assert.Equal(t, "deepseek-r1:latest", cfg.Ollama.Model)
	// Untouched sections keep their defaults.
	assert.Equal(t, "https://api.anthropic.com", cfg.Anthropic.BaseURL)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("host: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HYDRA_PORT", "8081")
	t.Setenv("HYDRA_HEADLESS", "true")
	t.Setenv("HYDRA_ALLOWED_DOMAINS", "chatgpt.com")
	t.Setenv("OLLAMA_MODEL", "gemma:2b")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Port)
	assert.True(t, cfg.Headless)
	assert.Equal(t, "chatgpt.com", cfg.AllowedDomains)
	assert.Equal(t, "gemma:2b", cfg.Ollama.Model)
}

func TestLoad_WatsonxEnv(t *testing.T) {
	t.Setenv("WATSONX_API_KEY", "")
	t.Setenv("IBM_API_KEY", "ibm-key")
	t.Setenv("WATSONX_PROJECT_ID", "proj-1")
	t.Setenv("WATSONX_URL", "https://eu-de.ml.cloud.ibm.com")

	cfg, err := Load("")
	require.NoError(t, err)

	// IBM_API_KEY is the fallback credential variable.
	assert.Equal(t, "ibm-key", cfg.Watsonx.APIKey)
	assert.Equal(t, "proj-1", cfg.Watsonx.ProjectID)
	assert.Equal(t, "https://eu-de.ml.cloud.ibm.com", cfg.Watsonx.BaseURL)
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("HYDRA_PORT", "70000")

	_, err := Load("")
	assert.Error(t, err)
}

func TestAddr(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, "127.0.0.1:8000", cfg.Addr())
}
