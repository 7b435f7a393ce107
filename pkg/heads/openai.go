package heads

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/entrhq/hydra/pkg/browser"
	"github.com/entrhq/hydra/pkg/config"
	"github.com/entrhq/hydra/pkg/head"
)

// OpenAI is the sessionless head for the OpenAI chat completions API.
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI constructs the OpenAI head. A missing API key is a skip, not a
// startup failure.
func NewOpenAI(cfg config.OpenAIConfig) (head.Head, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: OPENAI_API_KEY not set")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		base := strings.TrimRight(cfg.BaseURL, "/")
		if !strings.HasSuffix(base, "/v1") {
			base += "/v1"
		}
		opts = append(opts, option.WithBaseURL(base))
	}

	return &OpenAI{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
	}, nil
}

func (h *OpenAI) Name() string         { return "openai" }
func (h *OpenAI) StartURL() string     { return "" }
func (h *OpenAI) SupportsVision() bool { return true }
func (h *OpenAI) SupportsTools() bool  { return false }

// GenerateText sends a single-turn chat completion.
func (h *OpenAI) GenerateText(ctx context.Context, _ *browser.Session, prompt string) (string, error) {
	resp, err := h.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(h.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "No response.", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateWithImage sends the prompt alongside the image as a data URL.
func (h *OpenAI) GenerateWithImage(ctx context.Context, _ *browser.Session, prompt, imagePath string) (string, error) {
	b64, mediaType, err := readImage(imagePath)
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}

	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(prompt),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: fmt.Sprintf("data:%s;base64,%s", mediaType, b64),
		}),
	}

	resp, err := h.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(h.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(parts),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "No response.", nil
	}
	return resp.Choices[0].Message.Content, nil
}
