// Package server exposes the supervisor over HTTP: POST /process for
// requests, GET /status and GET /health for introspection.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"taskforge/internal/provider"
	"taskforge/internal/supervisor"
)

// Server wraps the supervisor with an HTTP surface.
type Server struct {
	supervisor *supervisor.Supervisor
	demo       *provider.Demo
	addr       string
}

// New creates a Server listening on addr once Start is called.
func New(sup *supervisor.Supervisor, addr string) *Server {
	return &Server{supervisor: sup, addr: addr}
}

// SetDemo installs a demo gate on /process. While the gate is set,
// requests are answered by the capped demo provider instead of the
// supervisor, and an exhausted cap returns 403.
func (s *Server) SetDemo(d *provider.Demo) {
	s.demo = d
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/process", s.handleProcess)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// Start runs the HTTP server until the context is canceled.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	}
}

type processRequest struct {
	Request string `json:"request"`
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if req.Request == "" {
		writeError(w, http.StatusBadRequest, "request field is required")
		return
	}

	if s.demo != nil {
		res := s.demo.ProcessText(r.Context(), req.Request)
		status := http.StatusOK
		if !res.Success {
			status = http.StatusForbidden
		}
		writeJSON(w, status, res)
		return
	}

	result := s.supervisor.ProcessRequest(r.Context(), req.Request)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, s.supervisor.Status())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	health := s.supervisor.HealthCheck(r.Context())
	healthy := true
	for _, ok := range health {
		if !ok {
			healthy = false
			break
		}
	}
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"healthy": healthy,
		"agents":  health,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
