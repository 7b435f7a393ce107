package heads

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/hydra/pkg/browser"
	"github.com/entrhq/hydra/pkg/head"
)

// Selectors for the ChatGPT web app. These track the live DOM and are the
// part of this head most likely to need maintenance.
const (
	chatgptStartURL   = "https://chatgpt.com"
	chatgptTextArea   = "#prompt-textarea"
	chatgptSendBtn    = "button[data-testid='send-button']"
	chatgptFileInput  = "input[type='file']"
	chatgptResponse   = "div.markdown"
	chatgptSettleMs   = 2500
	chatgptUploadWait = 1500
)

// ChatGPT drives the ChatGPT web app through an interactive session. It has
// no API credential; the session's persistent profile carries the login.
type ChatGPT struct{}

// NewChatGPT constructs the browser-driven ChatGPT head.
func NewChatGPT() (head.Head, error) {
	return &ChatGPT{}, nil
}

func (h *ChatGPT) Name() string         { return "chatgpt" }
func (h *ChatGPT) StartURL() string     { return chatgptStartURL }
func (h *ChatGPT) SupportsVision() bool { return true }
func (h *ChatGPT) SupportsTools() bool  { return false }

// GenerateText submits the prompt through the page and scrapes the last
// response block after the stream settles.
func (h *ChatGPT) GenerateText(ctx context.Context, session *browser.Session, prompt string) (string, error) {
	if session == nil {
		return "", fmt.Errorf("chatgpt head requires a session")
	}

	if _, err := browser.Type(session, chatgptTextArea, prompt, true); err != nil {
		return "", err
	}
	if _, err := browser.Click(session, chatgptSendBtn, 0); err != nil {
		return "", err
	}

	// Wait for the response stream to finish, then give the DOM a moment
	// to render the final markdown block.
	if err := session.Page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State: playwright.LoadStateNetworkidle,
	}); err != nil {
		return "", fmt.Errorf("wait for response: %w", err)
	}
	if _, err := browser.Wait(session, chatgptSettleMs); err != nil {
		return "", err
	}

	texts, err := session.Page.Locator(chatgptResponse).AllTextContents()
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if len(texts) == 0 {
		return "No response.", nil
	}
	return texts[len(texts)-1], nil
}

// GenerateWithImage attaches the image through the hidden file input and
// then runs the normal text flow.
func (h *ChatGPT) GenerateWithImage(ctx context.Context, session *browser.Session, prompt, imagePath string) (string, error) {
	if session == nil {
		return "", fmt.Errorf("chatgpt head requires a session")
	}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if err := session.Page.SetInputFiles(chatgptFileInput, []playwright.InputFile{{
		Name:   filepath.Base(imagePath),
		Buffer: data,
	}}); err != nil {
		return "", fmt.Errorf("attach image: %w", err)
	}
	if _, err := browser.Wait(session, chatgptUploadWait); err != nil {
		return "", err
	}

	return h.GenerateText(ctx, session, prompt)
}
