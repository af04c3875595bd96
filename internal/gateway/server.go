// Package gateway exposes the honeypot over HTTP and WebSocket: the
// message-handling endpoint, liveness probes, and a live event feed.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tarpitlabs/tarpit/internal/config"
	"github.com/tarpitlabs/tarpit/internal/engine"
	"github.com/tarpitlabs/tarpit/internal/logging"
	"github.com/tarpitlabs/tarpit/internal/version"
)

// Server is the tarpit HTTP + WebSocket server.
type Server struct {
	cfg  config.Config
	eng  *engine.Engine
	hub  *Hub
	auth ResolvedAuth
	log  *logging.Logger

	startedAt  time.Time
	httpServer *http.Server
	upgrader   websocket.Upgrader
}

// New creates a gateway server. The hub may be nil when the live feed is
// not wanted (tests).
func New(cfg config.Config, eng *engine.Engine, hub *Hub, log *logging.Logger) *Server {
	return &Server{
		cfg:  cfg,
		eng:  eng,
		hub:  hub,
		auth: ResolveAuth(cfg.Server.Auth),
		log:  log.Sub("gateway"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkWebSocketOrigin(cfg.Server.AllowedOrigins),
		},
	}
}

// checkWebSocketOrigin returns a function that validates WebSocket Origin
// headers. With no configured origins only same-origin (no Origin header)
// or non-browser clients are allowed.
func checkWebSocketOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// resolveBindAddr computes the listen address from config.
func resolveBindAddr(cfg config.ServerConfig) string {
	switch cfg.Bind {
	case "lan":
		return fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	case "custom":
		host := cfg.CustomBindHost
		if host == "" {
			host = "0.0.0.0"
		}
		return fmt.Sprintf("%s:%d", host, cfg.Port)
	default:
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	}
}

// Start begins listening for HTTP and WebSocket connections. It blocks
// until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	addr := resolveBindAddr(s.cfg.Server)

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	handler := withMiddleware(mux, s.log, s.cfg.Server.AllowedOrigins)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(l net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	if !s.auth.Enabled() && s.cfg.Server.Bind != "loopback" && s.cfg.Server.Bind != "" {
		s.log.Warn().Msg("no API key configured on a non-loopback bind")
	}

	s.startedAt = time.Now()

	s.log.Info().
		Str("addr", ln.Addr().String()).
		Str("bind", s.cfg.Server.Bind).
		Bool("auth", s.auth.Enabled()).
		Msg("server starting")

	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down server")
		if s.hub != nil {
			s.hub.CloseAll()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the server's listen address, or empty string if not started.
func (s *Server) Addr() string {
	if s.httpServer != nil {
		return s.httpServer.Addr
	}
	return ""
}

// handleWebSocket upgrades to WebSocket and attaches the client to the
// event feed.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "event feed disabled", http.StatusNotFound)
		return
	}
	if !s.auth.Authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	conn.SetReadLimit(64 * 1024)

	s.hub.ServeConn(conn)
}

func (s *Server) uptime() time.Duration {
	if s.startedAt.IsZero() {
		return 0
	}
	return time.Since(s.startedAt)
}

// serviceVersion is what the info endpoints report.
func serviceVersion() string {
	return version.Version
}
