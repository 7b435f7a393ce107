// Package head defines the backend adapter contract and the registry that
// holds the set of adapters for the process lifetime.
package head

import (
	"context"
	"errors"

	"github.com/entrhq/hydra/pkg/browser"
)

var (
	// ErrDuplicateName rejects registering two heads under one name.
	ErrDuplicateName = errors.New("head name already registered")

	// ErrNotFound reports a head name absent from the registry.
	ErrNotFound = errors.New("head not found")

	// ErrVisionNotSupported is returned by heads without image input.
	ErrVisionNotSupported = errors.New("head does not support image input")
)

// Head is a named backend adapter capable of producing text responses,
// optionally backed by an interactive browser session.
//
// StartURL returning "" means the head is purely network-API-driven and
// never receives a session; such heads are called with session == nil.
// Heads with a start URL are always handed a live session owned and
// serialized by the gateway.
type Head interface {
	// Name is the unique registry key.
	Name() string

	// StartURL is the address opened when the head's session is created.
	// Empty means no interactive session.
	StartURL() string

	// SupportsVision reports whether GenerateWithImage is implemented.
	SupportsVision() bool

	// SupportsTools reports whether the head accepts structured tool
	// results.
	SupportsTools() bool

	// GenerateText turns a prompt into a text response, driving the
	// session if one is provided.
	GenerateText(ctx context.Context, session *browser.Session, prompt string) (string, error)

	// GenerateWithImage is GenerateText with an image on disk. Heads
	// without vision return ErrVisionNotSupported.
	GenerateWithImage(ctx context.Context, session *browser.Session, prompt, imagePath string) (string, error)
}

// HasSession reports whether h is backed by an interactive session.
func HasSession(h Head) bool {
	return h.StartURL() != ""
}
