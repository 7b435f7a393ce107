package heads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/entrhq/hydra/pkg/browser"
	"github.com/entrhq/hydra/pkg/config"
	"github.com/entrhq/hydra/pkg/head"
)

// Ollama is the sessionless local head. No credential, no browser; a good
// default for the first slot in the registration order.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllama constructs the Ollama head from configuration.
func NewOllama(cfg config.OllamaConfig) (head.Head, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("ollama: base URL not configured")
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Ollama{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (h *Ollama) Name() string         { return "ollama" }
func (h *Ollama) StartURL() string     { return "" }
func (h *Ollama) SupportsVision() bool { return false }
func (h *Ollama) SupportsTools() bool  { return false }

// GenerateText posts a non-streaming generate request.
func (h *Ollama) GenerateText(ctx context.Context, _ *browser.Session, prompt string) (string, error) {
	payload := map[string]any{
		"model":  h.model,
		"prompt": prompt,
		"stream": false,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("ollama: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ollama: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama: status %d", resp.StatusCode)
	}

	var out struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("ollama: decode response: %w", err)
	}

	text := strings.TrimSpace(out.Response)
	if text == "" {
		return "No response.", nil
	}
	return text, nil
}

// GenerateWithImage is not implemented for this head.
func (h *Ollama) GenerateWithImage(ctx context.Context, _ *browser.Session, prompt, imagePath string) (string, error) {
	return "", head.ErrVisionNotSupported
}
