package browser

import (
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Session is one live interactive browsing context bound to exactly one head.
// It is owned by the gateway's pool entry for that head and is never shared
// across heads.
type Session struct {
	// Name is the owning head's name.
	Name string

	// Page is the Playwright page driven by commands.
	Page playwright.Page

	// CreatedAt is when the session was established.
	CreatedAt time.Time

	// LastUsedAt is the timestamp of the last operation on this session.
	LastUsedAt time.Time

	// CurrentURL tracks the page address after the last navigation.
	CurrentURL string
}

// UpdateLastUsed stamps the session with the current time.
func (s *Session) UpdateLastUsed() {
	s.LastUsedAt = time.Now()
}

// Alive reports whether the underlying page is still usable. Death is
// detected lazily here; a dead session is recreated by the pool, not
// reported as an error.
func (s *Session) Alive() bool {
	return s != nil && s.Page != nil && !s.Page.IsClosed()
}

// BringToFront marks the session as the active one being driven. Harmless
// for surfaces that do not distinguish foreground pages.
func (s *Session) BringToFront() error {
	s.UpdateLastUsed()
	return s.Page.BringToFront()
}

// Screenshot writes a PNG capture of the current page to path.
func (s *Session) Screenshot(path string) error {
	_, err := s.Page.Screenshot(playwright.PageScreenshotOptions{
		Path: playwright.String(path),
		Type: playwright.ScreenshotTypePng,
	})
	if err != nil {
		return fmt.Errorf("screenshot %s: %w", s.Name, err)
	}
	return nil
}

// Close releases the underlying page. Used on shutdown; during normal
// operation sessions die externally and are detected via Alive.
func (s *Session) Close() error {
	if s == nil || s.Page == nil {
		return nil
	}
	return s.Page.Close()
}
