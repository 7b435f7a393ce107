package heads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/entrhq/hydra/pkg/browser"
	"github.com/entrhq/hydra/pkg/config"
	"github.com/entrhq/hydra/pkg/head"
)

const claudeMaxTokens = 4096

// Claude is the sessionless head for the Anthropic messages API, spoken
// over raw HTTP.
type Claude struct {
	apiKey  string
	baseURL string
	model   string
	version string
	client  *http.Client
}

// NewClaude constructs the Claude head. A missing API key is a skip.
func NewClaude(cfg config.AnthropicConfig) (head.Head, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("claude: ANTHROPIC_API_KEY not set")
	}
	return &Claude{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		version: cfg.Version,
		client:  &http.Client{Timeout: 120 * time.Second},
	}, nil
}

func (h *Claude) Name() string         { return "claude" }
func (h *Claude) StartURL() string     { return "" }
func (h *Claude) SupportsVision() bool { return true }
func (h *Claude) SupportsTools() bool  { return false }

// GenerateText sends a single-turn message.
func (h *Claude) GenerateText(ctx context.Context, _ *browser.Session, prompt string) (string, error) {
	return h.send(ctx, []map[string]any{
		{"role": "user", "content": prompt},
	})
}

// GenerateWithImage sends the prompt with a base64 image source block.
func (h *Claude) GenerateWithImage(ctx context.Context, _ *browser.Session, prompt, imagePath string) (string, error) {
	b64, mediaType, err := readImage(imagePath)
	if err != nil {
		return "", fmt.Errorf("claude: %w", err)
	}

	content := []map[string]any{
		{
			"type": "image",
			"source": map[string]any{
				"type":       "base64",
				"media_type": mediaType,
				"data":       b64,
			},
		},
		{"type": "text", "text": prompt},
	}
	return h.send(ctx, []map[string]any{
		{"role": "user", "content": content},
	})
}

func (h *Claude) send(ctx context.Context, messages []map[string]any) (string, error) {
	payload := map[string]any{
		"model":      h.model,
		"max_tokens": claudeMaxTokens,
		"messages":   messages,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("claude: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("claude: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", h.apiKey)
	req.Header.Set("anthropic-version", h.version)

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("claude: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("claude: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var out struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("claude: decode response: %w", err)
	}

	for _, block := range out.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "No response.", nil
}
