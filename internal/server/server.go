package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotsync/internal/shared"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler is an http.Handler that knows the path patterns it serves.
type Handler interface {
	http.Handler
	Routes() []string
}

// Router registers handlers and applies middleware.
type Router interface {
	Use(middleware ...Middleware)
	Handle(method, path string, handler http.Handler)
	Handler(handler Handler)
	ServeHTTP(w http.ResponseWriter, r *http.Request)
}

// Server is a short-lived HTTP listener.
type Server struct {
	http     *http.Server
	handler  atomic.Pointer[http.Handler]
	listener net.Listener
	logger   *log.Logger
	errs     chan error
}

// New creates a server for addr. Use port 0 to pick a free port. A nil handler answers 404
// until [Server.SetHandler] is called.
func New(addr string, handler http.Handler, logger *log.Logger) *Server {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	s := &Server{logger: logger, errs: make(chan error, 1)}
	s.http = &http.Server{Addr: addr, Handler: http.HandlerFunc(s.serve), ReadHeaderTimeout: 10 * time.Second}
	if handler != nil {
		s.SetHandler(handler)
	}
	return s
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	h := s.handler.Load()
	if h == nil {
		http.NotFound(w, r)
		return
	}
	(*h).ServeHTTP(w, r)
}

// SetHandler replaces the handler. Requests already being served keep the old one.
func (s *Server) SetHandler(h http.Handler) {
	s.handler.Store(&h)
}

// Start binds the address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.logger.Info("callback server listening", "addr", ln.Addr().String())

	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errs <- err
		}
		close(s.errs)
	}()
	return nil
}

// Addr is the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.http.Addr
	}
	return s.listener.Addr().String()
}

// Errors reports a serve failure; it is closed when the server stops.
func (s *Server) Errors() <-chan error { return s.errs }

// Shutdown stops accepting connections and waits for active ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.listener == nil {
		return nil
	}
	s.logger.Debug("callback server stopping", "addr", s.Addr())
	return s.http.Shutdown(ctx)
}
