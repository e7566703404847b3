package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Server wraps an *http.Server to provide start/shutdown lifecycle.
type Server struct {
	mu         sync.Mutex
	httpServer *http.Server
}

// No WriteTimeout: /ws connections stay open for as long as the client listens,
// and the websocket handler sets its own per-write deadlines.
const (
	maxHeaderBytes    = 1 << 20 // 1 MB
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 60 * time.Second
	defaultPort       = "8080"
)

func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		MaxHeaderBytes:    maxHeaderBytes,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}
}

// normalizeAddr accepts "8080", ":8080" or "host:8080"; empty means the default port.
func normalizeAddr(port string) string {
	port = strings.TrimSpace(port)
	if port == "" {
		port = defaultPort
	}
	if strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}

// Run starts the HTTP server on the given port using the provided handler.
// A clean Shutdown is not reported as an error.
func (s *Server) Run(port string, handler http.Handler) error {
	srv := newHTTPServer(normalizeAddr(port), handler)
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server, allowing in-flight requests to complete.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
