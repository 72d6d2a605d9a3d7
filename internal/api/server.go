// Package api provides the HTTP control surface of the AVRemote daemon.
// The CLI and any local tooling drive connected peers through it.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avremote-network/avremote/internal/domain"
	"github.com/avremote-network/avremote/internal/session"
)

// Version is the daemon version reported by /api/version.
const Version = "0.1.0"

// Server is the AVRemote HTTP API server.
type Server struct {
	sup            *session.Supervisor
	metricsEnabled bool
}

// NewServer creates a new API server over the session supervisor.
func NewServer(sup *session.Supervisor) *Server {
	return &Server{sup: sup}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"version": Version})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/peers", s.handleListPeers)
		r.Route("/peers/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetPeer)
			r.Post("/key", s.handleSendKey)
			r.Post("/volume", s.handleSetVolume)
			r.Get("/media", s.handleGetMedia)
			r.Get("/events/supported", s.handleSupportedEvents)
			r.Post("/vendor", s.handleRawVendor)
			r.Get("/events", s.handleEventsSSE)
		})
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// commandTimeout bounds every single controller exchange issued on behalf
// of an HTTP request. SSE streams are exempt.
const commandTimeout = 10 * time.Second

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// writeCommandError maps a controller error onto an HTTP status.
func writeCommandError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrRemoteNotFound):
		writeError(w, http.StatusNotFound, "peer has no active connection")
	case errors.Is(err, domain.ErrCommandNotSupported):
		writeError(w, http.StatusNotImplemented, err.Error())
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

// corsMiddleware adds CORS headers for local tooling.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
