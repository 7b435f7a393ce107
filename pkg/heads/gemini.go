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

// Gemini is the sessionless head for the Google generative language API.
type Gemini struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewGemini constructs the Gemini head. A missing API key is a skip.
func NewGemini(cfg config.GeminiConfig) (head.Head, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: GEMINI_API_KEY or GOOGLE_API_KEY not set")
	}
	return &Gemini{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		client:  &http.Client{Timeout: 120 * time.Second},
	}, nil
}

func (h *Gemini) Name() string         { return "gemini" }
func (h *Gemini) StartURL() string     { return "" }
func (h *Gemini) SupportsVision() bool { return true }
func (h *Gemini) SupportsTools() bool  { return false }

// GenerateText sends a single-part generateContent request.
func (h *Gemini) GenerateText(ctx context.Context, _ *browser.Session, prompt string) (string, error) {
	return h.send(ctx, []map[string]any{
		{"text": prompt},
	})
}

// GenerateWithImage sends the prompt alongside inline image data.
func (h *Gemini) GenerateWithImage(ctx context.Context, _ *browser.Session, prompt, imagePath string) (string, error) {
	b64, mediaType, err := readImage(imagePath)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}

	return h.send(ctx, []map[string]any{
		{"text": prompt},
		{"inline_data": map[string]any{
			"mime_type": mediaType,
			"data":      b64,
		}},
	})
}

func (h *Gemini) send(ctx context.Context, parts []map[string]any) (string, error) {
	payload := map[string]any{
		"contents": []map[string]any{
			{"role": "user", "parts": parts},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("gemini: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", h.baseURL, h.model, h.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("gemini: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("gemini: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var out struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("gemini: decode response: %w", err)
	}

	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "No response.", nil
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}
