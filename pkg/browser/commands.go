package browser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"
)

// Command defaults. Element waits are bounded; everything else is a single
// synchronous attempt with no queueing or retries.
const (
	DefaultClickTimeoutMs = 20000
	DefaultTypeDelayMs    = 10
	DefaultScrollDy       = 800
	DefaultWaitMs         = 1000
)

var (
	// ErrDomainBlocked rejects a navigation before any session mutation.
	ErrDomainBlocked = errors.New("blocked by domain allowlist")

	// ErrElementTimeout reports a selector that never became actionable
	// within the command's wait budget.
	ErrElementTimeout = errors.New("element wait timed out")
)

// Result is the uniform outcome record for one command invocation.
type Result struct {
	OK      bool           `json:"ok"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// Goto navigates the session to url. The allowlist is checked first; a
// blocked destination never reaches the page.
func Goto(s *Session, rawURL string, allow Allowlist) (Result, error) {
	if !allow.Permits(rawURL) {
		return Result{}, fmt.Errorf("%w: %s", ErrDomainBlocked, rawURL)
	}

	s.UpdateLastUsed()
	if _, err := s.Page.Goto(rawURL); err != nil {
		return Result{}, fmt.Errorf("goto %s: %w", rawURL, err)
	}
	s.CurrentURL = s.Page.URL()

	return Result{OK: true, Message: "Navigated", Data: map[string]any{"url": rawURL}}, nil
}

// Click waits up to timeoutMs for selector to appear, then clicks it.
func Click(s *Session, selector string, timeoutMs float64) (Result, error) {
	if timeoutMs <= 0 {
		timeoutMs = DefaultClickTimeoutMs
	}

	s.UpdateLastUsed()
	if _, err := s.Page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(timeoutMs),
	}); err != nil {
		return Result{}, fmt.Errorf("%w: %s", ErrElementTimeout, selector)
	}
	if err := s.Page.Click(selector); err != nil {
		return Result{}, fmt.Errorf("click %s: %w", selector, err)
	}
	s.CurrentURL = s.Page.URL()

	return Result{OK: true, Message: "Clicked", Data: map[string]any{"selector": selector}}, nil
}

// Type enters text into the element matching selector, clearing it first
// when clear is set. Text is entered character-by-character with a small
// delay; batch-setting the value trips automation detection on the targets
// these sessions drive.
func Type(s *Session, selector, text string, clear bool) (Result, error) {
	s.UpdateLastUsed()
	if _, err := s.Page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(DefaultClickTimeoutMs),
	}); err != nil {
		return Result{}, fmt.Errorf("%w: %s", ErrElementTimeout, selector)
	}

	if clear {
		if err := s.Page.Fill(selector, ""); err != nil {
			return Result{}, fmt.Errorf("clear %s: %w", selector, err)
		}
	}
	if err := s.Page.Type(selector, text, playwright.PageTypeOptions{
		Delay: playwright.Float(DefaultTypeDelayMs),
	}); err != nil {
		return Result{}, fmt.Errorf("type into %s: %w", selector, err)
	}

	return Result{OK: true, Message: "Typed", Data: map[string]any{
		"selector": selector,
		"chars":    len(text),
	}}, nil
}

// Scroll issues a vertical scroll delta. It has no defined failure mode.
func Scroll(s *Session, dy int) (Result, error) {
	if dy == 0 {
		dy = DefaultScrollDy
	}

	s.UpdateLastUsed()
	if err := s.Page.Mouse().Wheel(0, float64(dy)); err != nil {
		return Result{}, fmt.Errorf("scroll: %w", err)
	}

	return Result{OK: true, Message: "Scrolled", Data: map[string]any{"dy": dy}}, nil
}

// Wait blocks the command stream for ms milliseconds without touching the
// session state.
func Wait(s *Session, ms int) (Result, error) {
	if ms <= 0 {
		ms = DefaultWaitMs
	}

	s.UpdateLastUsed()
	s.Page.WaitForTimeout(float64(ms))

	return Result{OK: true, Message: "Waited", Data: map[string]any{"ms": ms}}, nil
}

// Dispatch executes a named command against the session with a loose argument
// mapping, folding typed failures into the uniform Result record. This is the
// invocation surface exposed to external callers; in-process callers use the
// typed functions directly.
func Dispatch(s *Session, name string, args map[string]any, allow Allowlist) Result {
	var (
		res Result
		err error
	)

	switch strings.ToLower(strings.TrimSpace(name)) {
	case "goto":
		res, err = Goto(s, argString(args, "url"), allow)
	case "click":
		res, err = Click(s, argString(args, "selector"), argFloat(args, "timeout", 0))
	case "type":
		res, err = Type(s, argString(args, "selector"), argString(args, "text"), argBool(args, "clear", true))
	case "scroll":
		res, err = Scroll(s, argInt(args, "dy", 0))
	case "wait":
		res, err = Wait(s, argInt(args, "ms", 0))
	default:
		return Result{OK: false, Message: fmt.Sprintf("Unknown command: %s", name)}
	}

	if err != nil {
		return Result{OK: false, Message: err.Error()}
	}
	return res
}

// Schema describes one command for discovery surfaces.
type Schema struct {
	Name string            `json:"name"`
	Args map[string]string `json:"args"`
	Desc string            `json:"desc"`
}

// Schemas returns the command descriptions exposed on the status endpoint.
func Schemas() []Schema {
	return []Schema{
		{Name: "goto", Args: map[string]string{"url": "string"}, Desc: "Navigate session to URL (optionally domain-restricted)."},
		{Name: "click", Args: map[string]string{"selector": "string"}, Desc: "Click an element via CSS selector."},
		{Name: "type", Args: map[string]string{"selector": "string", "text": "string", "clear": "bool"}, Desc: "Type into an input or textarea."},
		{Name: "scroll", Args: map[string]string{"dy": "int"}, Desc: "Scroll page by dy pixels."},
		{Name: "wait", Args: map[string]string{"ms": "int"}, Desc: "Wait for ms milliseconds."},
	}
}

func argString(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func argBool(args map[string]any, key string, def bool) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return def
}

func argInt(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return def
}

func argFloat(args map[string]any, key string, def float64) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}
