package node

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/leefowlercu/servicecontainer/internal/servicecontainer"
)

// ServerConfig holds configuration for the admin HTTP server.
type ServerConfig struct {
	Port int
	Bind string
}

// StatusFunc returns a snapshot of the installed services.
type StatusFunc func() []servicecontainer.ServiceStatus

// Server is the admin HTTP server exposing health, service status and
// metrics. It is safe for concurrent use.
type Server struct {
	mu             sync.RWMutex
	health         *HealthManager
	config         ServerConfig
	server         *http.Server
	listener       net.Listener
	router         *chi.Mux
	statusFunc     StatusFunc
	metricsHandler http.Handler
}

// ServerOption configures the Server.
type ServerOption func(*Server)

// WithStatusFunc serves the result of fn at /services.
func WithStatusFunc(fn StatusFunc) ServerOption {
	return func(s *Server) {
		s.statusFunc = fn
	}
}

// WithMetricsHandler mounts handler at /metrics.
func WithMetricsHandler(handler http.Handler) ServerOption {
	return func(s *Server) {
		s.metricsHandler = handler
	}
}

// NewServer creates an admin server.
func NewServer(health *HealthManager, config ServerConfig, opts ...ServerOption) *Server {
	s := &Server{
		health: health,
		config: config,
		router: chi.NewRouter(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)
	s.router.Get("/services", s.handleServices)

	if s.metricsHandler != nil {
		s.router.Handle("/metrics", s.metricsHandler)
	}
}

// Handler returns the HTTP handler for testing purposes.
func (s *Server) Handler() http.Handler {
	return s.router
}

// LivezResponse is the response format for /healthz.
type LivezResponse struct {
	Status string `json:"status"`
}

// handleHealthz returns 200 while the process is alive.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LivezResponse{Status: "alive"})
}

// handleReadyz returns 200 once every manifest service runs, 503 otherwise.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	status := s.health.Status()

	code := http.StatusOK
	if !status.Ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

func (s *Server) handleServices(w http.ResponseWriter, r *http.Request) {
	if s.statusFunc == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "service status not available"})
		return
	}
	writeJSON(w, http.StatusOK, s.statusFunc())
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// Listen binds the configured address. It is separate from Serve so callers
// learn about bind errors and the chosen port before serving.
func (s *Server) Listen(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Bind, fmt.Sprint(s.config.Port))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s; %w", addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
	s.mu.Unlock()

	return nil
}

// Addr returns the bound address, or "" before Listen.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Serve serves on the listener bound by Listen and blocks until Shutdown.
func (s *Server) Serve() error {
	s.mu.RLock()
	server, ln := s.server, s.listener
	s.mu.RUnlock()

	if server == nil {
		return fmt.Errorf("server is not listening")
	}

	if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error; %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	server := s.server
	s.mu.RUnlock()

	if server == nil {
		return nil
	}

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown http server; %w", err)
	}

	return nil
}
