package gateway

import (
	"errors"
	"fmt"

	"github.com/entrhq/hydra/pkg/head"
)

var (
	// ErrUnknownHead reports a process call naming a head that was never
	// registered.
	ErrUnknownHead = head.ErrNotFound

	// ErrSessionNotSupported reports a session request against a head that
	// is purely network-API-driven.
	ErrSessionNotSupported = errors.New("head does not use a browser session")

	// ErrBrowserUnavailable reports that the browser engine failed to start;
	// session heads are unavailable but API heads keep working.
	ErrBrowserUnavailable = errors.New("browser engine not available")
)

// GenerationError wraps an adapter failure and attributes it to the head
// that produced it. Adapter errors never escape the facade untyped.
type GenerationError struct {
	Head string
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("head %s: generation failed: %v", e.Head, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
