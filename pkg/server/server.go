// Package server exposes the gateway over HTTP: an OpenAI-compatible chat
// completions endpoint plus management routes for sessions, vision uploads,
// and gated session commands.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/entrhq/hydra/pkg/browser"
	"github.com/entrhq/hydra/pkg/catalog"
	"github.com/entrhq/hydra/pkg/config"
	"github.com/entrhq/hydra/pkg/gateway"
	"github.com/entrhq/hydra/pkg/head"
)

// Server wires the gateway and catalog into an HTTP handler.
type Server struct {
	gw  *gateway.Gateway
	cat *catalog.Catalog
	cfg *config.Config
	log *zap.Logger
}

// New builds a server over the given gateway.
func New(gw *gateway.Gateway, cat *catalog.Catalog, cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{gw: gw, cat: cat, cfg: cfg, log: logger}
}

// Router returns the HTTP routing table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/status", s.handleStatus)
	r.Get("/api/models", s.handleModels)
	r.Post("/api/spawn/{model}", s.handleSpawn)
	r.Post("/api/computer/{model}/tool", s.handleCommand)
	r.Post("/api/vision", s.handleVision)
	r.Post("/v1/chat/completions", s.handleChatCompletions)

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"heads":  s.gw.Registry().Names(),
	})
}

// headInfo is one head's row in the status response.
type headInfo struct {
	Name    string `json:"name"`
	Session bool   `json:"session"`
	Vision  bool   `json:"vision"`
	Tools   bool   `json:"tools"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	heads := make([]headInfo, 0, s.gw.Registry().Len())
	for _, h := range s.gw.Registry().List() {
		heads = append(heads, headInfo{
			Name:    h.Name(),
			Session: head.HasSession(h),
			Vision:  h.SupportsVision(),
			Tools:   h.SupportsTools(),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"heads":    heads,
		"sessions": s.gw.CaptureAll(),
		"commands": browser.Schemas(),
	})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"providers":   s.cat.ListAll(r.Context()),
		"recommended": catalog.RecommendedByTask(),
	})
}

func (s *Server) handleSpawn(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "model")
	if err := s.gw.Spawn(name); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "spawned",
		"model":  name,
	})
}

// commandRequest is the body of a session command call.
type commandRequest struct {
	Command string         `json:"command"`
	Args    map[string]any `json:"args"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "model")

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Command == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "command is required"})
		return
	}

	result, err := s.gw.Command(r.Context(), name, req.Command, req.Args)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// writeError maps the gateway's error taxonomy onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, gateway.ErrUnknownHead):
		status = http.StatusNotFound
	case errors.Is(err, gateway.ErrSessionNotSupported):
		status = http.StatusBadRequest
	case errors.Is(err, head.ErrVisionNotSupported):
		status = http.StatusBadRequest
	case errors.Is(err, gateway.ErrBrowserUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, browser.ErrDomainBlocked):
		status = http.StatusForbidden
	default:
		var genErr *gateway.GenerationError
		if errors.As(err, &genErr) {
			status = http.StatusBadGateway
		}
	}

	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
