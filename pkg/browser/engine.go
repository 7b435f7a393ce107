// Package browser owns the interactive session layer: a Playwright-backed
// engine with one persistent profile, per-head sessions, and the gated
// command primitives (goto, click, type, scroll, wait) that drive them.
package browser

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Default viewport for new sessions.
const (
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 800
)

// stealthScript masks the most common automation fingerprint before any page
// script runs. Browser-backed heads are rejected by their targets without it.
const stealthScript = `Object.defineProperty(navigator, 'webdriver', { get: () => undefined });`

// Options configures the shared browser engine.
type Options struct {
	// DataDir is the persistent profile directory. Sessions launched from the
	// same profile keep cookies and logins across restarts.
	DataDir string

	// Headless runs the browser without a visible window.
	Headless bool
}

// Engine wraps the Playwright runtime and a single persistent browser
// context. All sessions are pages inside that context.
type Engine struct {
	pw      *playwright.Playwright
	context playwright.BrowserContext
}

// StartEngine installs driver binaries if needed and launches the persistent
// context. The caller decides whether a start failure is fatal; heads without
// sessions do not need an engine at all.
func StartEngine(opts Options) (*Engine, error) {
	if opts.DataDir != "" {
		if err := os.MkdirAll(opts.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if err := playwright.Install(runOpts); err != nil {
		return nil, fmt.Errorf("install playwright: %w", err)
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	context, err := pw.Chromium.LaunchPersistentContext(opts.DataDir,
		playwright.BrowserTypeLaunchPersistentContextOptions{
			Headless: playwright.Bool(opts.Headless),
			Args:     []string{"--disable-blink-features=AutomationControlled"},
			Viewport: &playwright.Size{
				Width:  DefaultViewportWidth,
				Height: DefaultViewportHeight,
			},
		})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch persistent context: %w", err)
	}

	return &Engine{pw: pw, context: context}, nil
}

// NewSession opens a fresh page bound to the named head and navigates it to
// the head's entry point when one is given.
func (e *Engine) NewSession(name, startURL string) (*Session, error) {
	page, err := e.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("open page for %s: %w", name, err)
	}

	if err := page.AddInitScript(playwright.Script{
		Content: playwright.String(stealthScript),
	}); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("apply init script for %s: %w", name, err)
	}

	now := time.Now()
	session := &Session{
		Name:       name,
		Page:       page,
		CreatedAt:  now,
		LastUsedAt: now,
		CurrentURL: "about:blank",
	}

	if startURL != "" {
		if _, err := page.Goto(startURL); err != nil {
			_ = page.Close()
			return nil, fmt.Errorf("open %s for %s: %w", startURL, name, err)
		}
		session.CurrentURL = page.URL()
	}

	return session, nil
}

// Close tears down the context and stops the Playwright runtime.
func (e *Engine) Close() error {
	var errs []error
	if err := e.context.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := e.pw.Stop(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("engine shutdown: %v", errs)
	}
	return nil
}
