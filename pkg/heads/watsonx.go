package heads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/entrhq/hydra/pkg/browser"
	"github.com/entrhq/hydra/pkg/config"
	"github.com/entrhq/hydra/pkg/head"
)

const (
	watsonxIAMTokenURL  = "https://iam.cloud.ibm.com/identity/token"
	watsonxGenPath      = "/ml/v1/text/generation"
	watsonxGenVersion   = "2024-09-16"
	watsonxMaxNewTokens = 2048

	// Tokens are refreshed this long before their reported expiry.
	watsonxTokenSlack = 60 * time.Second
)

// Watsonx is the sessionless head for IBM watsonx.ai text generation. API
// keys are exchanged for short-lived IAM bearer tokens, cached until close
// to expiry.
type Watsonx struct {
	apiKey    string
	projectID string
	baseURL   string
	model     string
	client    *http.Client

	tokenURL string

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewWatsonx constructs the watsonx head. Missing credentials are a skip.
func NewWatsonx(cfg config.WatsonxConfig) (head.Head, error) {
	if cfg.APIKey == "" || cfg.ProjectID == "" {
		return nil, fmt.Errorf("watsonx: WATSONX_API_KEY and WATSONX_PROJECT_ID not set")
	}
	return &Watsonx{
		apiKey:    cfg.APIKey,
		projectID: cfg.ProjectID,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		model:     cfg.Model,
		client:    &http.Client{Timeout: 120 * time.Second},
		tokenURL:  watsonxIAMTokenURL,
	}, nil
}

func (h *Watsonx) Name() string         { return "watsonx" }
func (h *Watsonx) StartURL() string     { return "" }
func (h *Watsonx) SupportsVision() bool { return false }
func (h *Watsonx) SupportsTools() bool  { return false }

// GenerateText sends a single greedy-decoded generation request.
func (h *Watsonx) GenerateText(ctx context.Context, _ *browser.Session, prompt string) (string, error) {
	token, err := h.bearerToken(ctx)
	if err != nil {
		return "", err
	}

	payload := map[string]any{
		"model_id":   h.model,
		"input":      prompt,
		"project_id": h.projectID,
		"parameters": map[string]any{
			"decoding_method": "greedy",
			"max_new_tokens":  watsonxMaxNewTokens,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("watsonx: marshal request: %w", err)
	}

	genURL := fmt.Sprintf("%s%s?version=%s", h.baseURL, watsonxGenPath, watsonxGenVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, genURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("watsonx: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("watsonx: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("watsonx: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var out struct {
		Results []struct {
			GeneratedText string `json:"generated_text"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("watsonx: decode response: %w", err)
	}

	if len(out.Results) == 0 || strings.TrimSpace(out.Results[0].GeneratedText) == "" {
		return "No response.", nil
	}
	return strings.TrimSpace(out.Results[0].GeneratedText), nil
}

// GenerateWithImage is unsupported; watsonx.ai has no multimodal endpoint
// this head targets.
func (h *Watsonx) GenerateWithImage(context.Context, *browser.Session, string, string) (string, error) {
	return "", fmt.Errorf("%w: watsonx", head.ErrVisionNotSupported)
}

// bearerToken exchanges the API key for an IAM access token, reusing the
// cached one until it nears expiry.
func (h *Watsonx) bearerToken(ctx context.Context) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.token != "" && time.Now().Before(h.tokenExpiry.Add(-watsonxTokenSlack)) {
		return h.token, nil
	}

	form := url.Values{
		"grant_type": {"urn:ibm:params:oauth:grant-type:apikey"},
		"apikey":     {h.apiKey},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("watsonx: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("watsonx: token exchange: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("watsonx: token exchange status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("watsonx: decode token response: %w", err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("watsonx: token exchange returned no access token")
	}

	h.token = out.AccessToken
	h.tokenExpiry = time.Now().Add(time.Duration(out.ExpiresIn) * time.Second)
	return h.token, nil
}
