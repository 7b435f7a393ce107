package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkoukk/tiktoken-go"
)

// chatRequest is the OpenAI-compatible completions body. Only the fields the
// gateway needs are decoded.
type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatChoice struct {
	Index   int `json:"index"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	prompt := lastUserMessage(req)
	if prompt == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no user message in request"})
		return
	}

	headName := s.resolveHead(req.Model)
	if headName == "" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no heads available"})
		return
	}

	text, err := s.gw.Process(r.Context(), headName, prompt, "")
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := chatResponse{
		ID:      "chatcmpl-" + uuid.NewString(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   headName,
		Usage: chatUsage{
			PromptTokens:     estimateTokens(prompt),
			CompletionTokens: estimateTokens(text),
		},
	}
	resp.Usage.TotalTokens = resp.Usage.PromptTokens + resp.Usage.CompletionTokens

	choice := chatChoice{FinishReason: "stop"}
	choice.Message.Role = "assistant"
	choice.Message.Content = text
	resp.Choices = []chatChoice{choice}

	writeJSON(w, http.StatusOK, resp)
}

func lastUserMessage(req chatRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" && req.Messages[i].Content != "" {
			return req.Messages[i].Content
		}
	}
	return ""
}

// resolveHead maps a requested model name to a registered head. Unknown
// names fall back to ollama when it is up, otherwise to the first head, so
// generic OpenAI clients work without knowing the head names.
func (s *Server) resolveHead(model string) string {
	reg := s.gw.Registry()
	if _, err := reg.Get(model); err == nil {
		return model
	}
	if _, err := reg.Get("ollama"); err == nil {
		return "ollama"
	}
	if reg.Len() > 0 {
		return reg.At(0).Name()
	}
	return ""
}

var (
	tokenizerOnce sync.Once
	tokenizer     *tiktoken.Tiktoken
)

// estimateTokens counts tokens with the cl100k_base encoding. The count is
// advisory: heads do not report real usage, and a tokenizer that fails to
// initialize (offline environments) yields zero rather than an error.
func estimateTokens(text string) int {
	tokenizerOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return
		}
		tokenizer = enc
	})
	if tokenizer == nil {
		return 0
	}
	return len(tokenizer.Encode(text, nil, nil))
}
