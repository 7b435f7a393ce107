// Package gateway is the single entry point for driving heads: it owns the
// per-head locks, the lazy session pool, and the command surface, and it
// routes generation requests to the registered adapters.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/entrhq/hydra/pkg/browser"
	"github.com/entrhq/hydra/pkg/head"
)

// Options configures a Gateway.
type Options struct {
	// Allowlist gates every goto command issued through the gateway.
	Allowlist browser.Allowlist

	// ScreenshotDir receives state captures. Empty disables file output;
	// captures then report errors per head.
	ScreenshotDir string
}

// entry is one slot in the head arena, index-aligned with the registry.
// mu is the Head Lock: at most one in-flight operation per head. sessMu
// only guards the session pointer so snapshot readers never contend with a
// long-running generation.
type entry struct {
	mu      sync.Mutex
	sessMu  sync.Mutex
	session *browser.Session
}

// Gateway exposes heterogeneous heads behind one uniform request interface.
// Construct one per process and share it by reference.
type Gateway struct {
	registry *head.Registry
	engine   *browser.Engine
	opts     Options
	log      *zap.Logger
	entries  []entry
}

// New builds a gateway over the given registry. engine may be nil when the
// browser infrastructure failed to start: API-only heads keep working and
// session heads fail at request time with ErrBrowserUnavailable.
func New(registry *head.Registry, engine *browser.Engine, opts Options, logger *zap.Logger) *Gateway {
	return &Gateway{
		registry: registry,
		engine:   engine,
		opts:     opts,
		log:      logger,
		entries:  make([]entry, registry.Len()),
	}
}

// Registry returns the head registry backing this gateway.
func (g *Gateway) Registry() *head.Registry {
	return g.registry
}

// Process routes one generation request to the named head. The head's lock
// is held for the full call, so session creation, command execution, and the
// response form one atomic unit per head; calls against different heads run
// in parallel.
func (g *Gateway) Process(ctx context.Context, headName, prompt, imagePath string) (string, error) {
	h, err := g.registry.Get(headName)
	if err != nil {
		return "", err
	}
	idx, _ := g.registry.Index(headName)

	e := &g.entries[idx]
	e.mu.Lock()
	defer e.mu.Unlock()

	var session *browser.Session
	if head.HasSession(h) {
		session, err = g.sessionLocked(e, h)
		if err != nil {
			return "", err
		}
		if err := session.BringToFront(); err != nil {
			return "", fmt.Errorf("foreground session %s: %w", headName, err)
		}
	}

	return g.generate(ctx, h, session, prompt, imagePath)
}

// generate delegates to the adapter, converting panics and untyped errors
// into a *GenerationError attributed to the head. Contract errors pass
// through unchanged.
func (g *Gateway) generate(ctx context.Context, h head.Head, session *browser.Session, prompt, imagePath string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			g.log.Error("adapter panic", zap.String("head", h.Name()), zap.Any("panic", r))
			text, err = "", &GenerationError{Head: h.Name(), Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if imagePath != "" {
		text, err = h.GenerateWithImage(ctx, session, prompt, imagePath)
	} else {
		text, err = h.GenerateText(ctx, session, prompt)
	}

	if err != nil {
		if errors.Is(err, head.ErrVisionNotSupported) {
			return "", err
		}
		var genErr *GenerationError
		if errors.As(err, &genErr) {
			return "", err
		}
		return "", &GenerationError{Head: h.Name(), Err: err}
	}
	return text, nil
}

// Command executes one gated session command against the named head's
// session, serialized under the same head lock as Process.
func (g *Gateway) Command(ctx context.Context, headName, command string, args map[string]any) (browser.Result, error) {
	h, err := g.registry.Get(headName)
	if err != nil {
		return browser.Result{}, err
	}
	idx, _ := g.registry.Index(headName)

	e := &g.entries[idx]
	e.mu.Lock()
	defer e.mu.Unlock()

	session, err := g.sessionLocked(e, h)
	if err != nil {
		return browser.Result{}, err
	}

	return browser.Dispatch(session, command, args, g.opts.Allowlist), nil
}

// Spawn eagerly establishes the named head's session. Used by callers that
// want a session warmed up (login flows) before the first generation.
func (g *Gateway) Spawn(headName string) error {
	h, err := g.registry.Get(headName)
	if err != nil {
		return err
	}
	idx, _ := g.registry.Index(headName)

	e := &g.entries[idx]
	e.mu.Lock()
	defer e.mu.Unlock()

	_, err = g.sessionLocked(e, h)
	return err
}

// sessionLocked returns the head's live session, creating or recreating it
// as needed. The caller must hold the head lock, which is what keeps the
// Creating state from ever being entered concurrently for one head.
func (g *Gateway) sessionLocked(e *entry, h head.Head) (*browser.Session, error) {
	if !head.HasSession(h) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotSupported, h.Name())
	}

	e.sessMu.Lock()
	cached := e.session
	e.sessMu.Unlock()

	// A dead session is not an error: it just means we create a new one.
	if cached.Alive() {
		return cached, nil
	}

	if g.engine == nil {
		return nil, fmt.Errorf("%w: cannot create session for %s", ErrBrowserUnavailable, h.Name())
	}

	g.log.Info("spawning session", zap.String("head", h.Name()), zap.String("url", h.StartURL()))
	session, err := g.engine.NewSession(h.Name(), h.StartURL())
	if err != nil {
		return nil, fmt.Errorf("create session for %s: %w", h.Name(), err)
	}

	e.sessMu.Lock()
	e.session = session
	e.sessMu.Unlock()
	return session, nil
}

// liveSession returns the head's current session without creating one.
func (g *Gateway) liveSession(idx int) *browser.Session {
	e := &g.entries[idx]
	e.sessMu.Lock()
	defer e.sessMu.Unlock()
	if e.session.Alive() {
		return e.session
	}
	return nil
}

// Close releases every live session and the engine.
func (g *Gateway) Close() error {
	for i := range g.entries {
		e := &g.entries[i]
		e.sessMu.Lock()
		if e.session != nil {
			_ = e.session.Close()
			e.session = nil
		}
		e.sessMu.Unlock()
	}
	if g.engine != nil {
		return g.engine.Close()
	}
	return nil
}
