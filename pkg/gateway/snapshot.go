package gateway

import (
	"fmt"
	"os"
	"path/filepath"
)

// SessionStatus is one head's entry in a state capture.
type SessionStatus struct {
	Name       string `json:"name"`
	Status     string `json:"status"` // "active" or "error"
	Screenshot string `json:"screenshot,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CaptureAll produces a point-in-time capture of every live session. Each
// head is captured independently; one failure never aborts the rest. Heads
// without a live session are omitted.
func (g *Gateway) CaptureAll() []SessionStatus {
	if g.opts.ScreenshotDir != "" {
		if err := os.MkdirAll(g.opts.ScreenshotDir, 0o755); err != nil {
			g.log.Warn("screenshot dir unavailable")
		}
	}

	var statuses []SessionStatus
	for i := 0; i < g.registry.Len(); i++ {
		session := g.liveSession(i)
		if session == nil {
			continue
		}

		name := g.registry.At(i).Name()
		if g.opts.ScreenshotDir == "" {
			statuses = append(statuses, SessionStatus{
				Name:   name,
				Status: "error",
				Error:  "screenshot directory not configured",
			})
			continue
		}

		path := filepath.Join(g.opts.ScreenshotDir, fmt.Sprintf("%s.png", name))
		if err := session.Screenshot(path); err != nil {
			statuses = append(statuses, SessionStatus{
				Name:   name,
				Status: "error",
				Error:  err.Error(),
			})
			continue
		}
		statuses = append(statuses, SessionStatus{
			Name:       name,
			Status:     "active",
			Screenshot: path,
		})
	}
	return statuses
}
