package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/leefowlercu/servicecontainer/internal/servicecontainer"
)

// KindHTTP serves a small JSON endpoint describing the service, its
// dependency values and the members of the groups it references. Options:
// addr (default 127.0.0.1:0). Its value is the bound address.
const KindHTTP = "http"

const httpShutdownTimeout = 5 * time.Second

type httpService struct {
	name    servicecontainer.ServiceName
	addr    string
	deps    []servicecontainer.ServiceName
	members *servicecontainer.ReferenceCollection[any]
	logger  *slog.Logger

	mu        sync.RWMutex
	server    *http.Server
	bound     string
	depValues map[string]any
	served    chan struct{}
}

// InfoResponse is the body served at / by an http service.
type InfoResponse struct {
	Service      string         `json:"service"`
	Dependencies map[string]any `json:"dependencies"`
	Members      map[string]any `json:"members"`
}

func newHTTP(def Definition) (servicecontainer.Service, error) {
	return &httpService{
		name:    def.Entry.Identity(),
		addr:    def.Entry.Option("addr", "127.0.0.1:0"),
		deps:    def.Dependencies,
		members: def.Members,
		logger:  def.Logger,
	}, nil
}

func (s *httpService) Start(ctx *servicecontainer.StartContext) error {
	depValues := make(map[string]any, len(s.deps))
	for _, dep := range s.deps {
		v, err := ctx.Service(dep)
		if err != nil {
			return err
		}
		depValues[dep.String()] = v
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s; %w", s.addr, err)
	}

	r := chi.NewRouter()
	r.Get("/", s.handleInfo)

	lifetime := ctx.Context()
	server := &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return lifetime
		},
	}
	served := make(chan struct{})

	s.mu.Lock()
	s.server = server
	s.bound = ln.Addr().String()
	s.depValues = depValues
	s.served = served
	s.mu.Unlock()

	go func() {
		defer close(served)
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http service stopped serving", "service", s.name, "error", err)
		}
	}()

	s.logger.Info("http service listening", "service", s.name, "addr", s.bound)
	return nil
}

func (s *httpService) Stop(ctx *servicecontainer.StopContext) error {
	s.mu.RLock()
	server, served := s.server, s.served
	s.mu.RUnlock()

	if server == nil {
		return nil
	}

	ctx.Run(func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown http service; %w", err)
		}
		<-served
		return nil
	})
	return nil
}

func (s *httpService) Get() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bound
}

func (s *httpService) handleInfo(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	resp := InfoResponse{
		Service:      s.name.String(),
		Dependencies: s.depValues,
		Members:      make(map[string]any),
	}
	s.mu.RUnlock()

	for _, name := range s.members.Names() {
		if v, ok := s.members.Get(name); ok {
			resp.Members[name.String()] = v
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}
