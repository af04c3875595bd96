package gateway

import (
	"encoding/json"
	"net/http"
	"time"
)

// registerRoutes wires up all HTTP endpoints.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/honeypot", s.handleHoneypot)
	mux.HandleFunc("/api/honeypot/ping", s.handlePing)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWebSocket)
}

// handleHoneypot dispatches on method: POST processes a message, GET
// returns service info.
func (s *Server) handleHoneypot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.processMessage(w, r)
	case http.MethodGet:
		s.handleInfo(w, r)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{
			Status:  "error",
			Message: "method not allowed",
		})
	}
}

// handleInfo describes the service. No auth: this is the route scanners
// hit first, and there is nothing sensitive in it.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "tarpit",
		"status":  "active",
		"version": serviceVersion(),
		"message": "agentic honeypot for scam engagement",
		"endpoints": map[string]string{
			"process": "POST /api/honeypot",
			"ping":    "GET /api/honeypot/ping",
			"health":  "GET /health",
			"events":  "GET /ws",
		},
	})
}

// handlePing is the liveness probe. Accepts GET and POST, parses nothing.
func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "tarpit",
		"ts":      time.Now().UTC().Format(time.RFC3339),
	})
}

// handleHealth reports process health and a few counters.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	activeSessions := 0
	if s.eng != nil {
		activeSessions = len(s.eng.Sessions().List())
	}
	subscribers := 0
	if s.hub != nil {
		subscribers = s.hub.Subscribers()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "healthy",
		"version":       serviceVersion(),
		"uptimeSeconds": int(s.uptime().Seconds()),
		"sessions":      activeSessions,
		"subscribers":   subscribers,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
