package head

import (
	"fmt"

	"go.uber.org/zap"
)

// Registry holds the registered heads in registration order. Registration
// happens once at startup; afterwards the registry is read-only, so lookups
// need no locking. Registration order is significant: the first head is the
// fallback when a caller names an unknown one.
//
// Heads are stored in a fixed slice and addressed by index on hot paths;
// the name lookup map is built once at registration time.
type Registry struct {
	heads []Head
	index map[string]int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register adds h to the registry. Names are unique.
func (r *Registry) Register(h Head) error {
	name := h.Name()
	if name == "" {
		return fmt.Errorf("register head: empty name")
	}
	if _, exists := r.index[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}

	r.index[name] = len(r.heads)
	r.heads = append(r.heads, h)
	return nil
}

// Get returns the head registered under name.
func (r *Registry) Get(name string) (Head, error) {
	i, ok := r.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return r.heads[i], nil
}

// Index returns the registration index for name.
func (r *Registry) Index(name string) (int, bool) {
	i, ok := r.index[name]
	return i, ok
}

// At returns the head at registration index i.
func (r *Registry) At(i int) Head {
	return r.heads[i]
}

// List returns all heads in registration order. The returned slice is a
// copy; the registry itself stays immutable.
func (r *Registry) List() []Head {
	out := make([]Head, len(r.heads))
	copy(out, r.heads)
	return out
}

// Len returns the number of registered heads.
func (r *Registry) Len() int {
	return len(r.heads)
}

// Names returns the registered head names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.heads))
	for _, h := range r.heads {
		names = append(names, h.Name())
	}
	return names
}

// HasSessionHeads reports whether any registered head needs a browser
// session. The engine is only started when one does.
func (r *Registry) HasSessionHeads() bool {
	for _, h := range r.heads {
		if HasSession(h) {
			return true
		}
	}
	return false
}

// Constructor builds one head. Returning an error (missing credential,
// unreachable backend) skips the head without failing startup.
type Constructor func() (Head, error)

// Load runs each constructor and registers the heads that come up. A failed
// constructor is logged and skipped; partial availability is expected. Only
// a duplicate name aborts loading, since that is a programming error rather
// than an environment one.
func Load(logger *zap.Logger, constructors []Constructor) (*Registry, error) {
	r := NewRegistry()
	for _, build := range constructors {
		h, err := build()
		if err != nil {
			logger.Warn("head skipped", zap.Error(err))
			continue
		}
		if err := r.Register(h); err != nil {
			return nil, err
		}
		logger.Info("head loaded",
			zap.String("head", h.Name()),
			zap.Bool("session", HasSession(h)),
			zap.Bool("vision", h.SupportsVision()),
		)
	}
	return r, nil
}
