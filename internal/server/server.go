// Package server exposes a snapshot engine over HTTP and a websocket channel.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zeusync/savestate/internal/core/observability/log"
	"github.com/zeusync/savestate/internal/core/snapshot"
	"github.com/zeusync/savestate/internal/core/storage"
)

const defaultMaxBody = 32 << 20

// Server serves save, load and reset of one engine's graph.
type Server struct {
	engine  *snapshot.Engine
	logger  log.Log
	token   string
	maxBody int64
	store   storage.Storage

	mu       sync.Mutex
	http     *http.Server
	listener net.Listener
	done     chan struct{}
}

type Option func(*Server)

func WithLogger(l log.Log) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithToken requires clients to present token as a bearer token or a
// `token` query parameter.
func WithToken(token string) Option {
	return func(s *Server) { s.token = token }
}

// WithMaxBody limits the size of uploaded documents.
func WithMaxBody(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// WithStorage enables named save slots under /slots.
func WithStorage(st storage.Storage) Option {
	return func(s *Server) { s.store = st }
}

func New(engine *snapshot.Engine, opts ...Option) *Server {
	s := &Server{engine: engine, logger: log.NewNop(), maxBody: defaultMaxBody}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routes of the server wrapped in its middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer, s.logRequests, s.authenticate)

	r.Get("/healthz", s.handleHealth)
	r.Route("/snapshot", func(r chi.Router) {
		r.Get("/", s.handleSave)
		r.Put("/", s.handleLoad)
		r.Delete("/", s.handleReset)
	})
	r.Get("/ws", s.handleWebSocket)
	if s.store != nil {
		r.Route("/slots", func(r chi.Router) {
			r.Get("/", s.handleListSlots)
			r.Put("/{name}", s.handleSaveSlot)
			r.Post("/{name}/load", s.handleLoadSlot)
			r.Delete("/{name}", s.handleDeleteSlot)
		})
	}
	return r
}

// Start listens on addr and serves in the background until Stop.
func (s *Server) Start(_ context.Context, addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.http != nil {
		return ErrServerAlreadyRunning
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.http = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	s.done = make(chan struct{})

	srv, done := s.http, s.done
	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server stopped", log.Error(err))
		}
	}()
	s.logger.Info("server started", log.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address, or "" when not running.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down gracefully, waiting at most until ctx is done.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, done := s.http, s.done
	s.http, s.listener, s.done = nil, nil, nil
	s.mu.Unlock()
	if srv == nil {
		return ErrServerNotRunning
	}
	err := srv.Shutdown(ctx)
	select {
	case <-done:
	case <-ctx.Done():
	}
	s.logger.Info("server stopped")
	return err
}
