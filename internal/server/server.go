// Package server exposes the metadata index as a read-only HTTP API
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/conduit-lang/edmxtools/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// DefaultServiceName addresses the default service in URLs
const DefaultServiceName = "default"

// shutdownTimeout bounds graceful shutdown once the serving context ends
const shutdownTimeout = 5 * time.Second

// Options configures a Server
type Options struct {
	Host   string
	Port   int
	Logger *zap.Logger
}

// Server serves lookups over a metadata service
type Server struct {
	service *service.Service
	opts    Options
	logger  *zap.Logger
	router  chi.Router
}

// New creates a server over svc and registers its routes
func New(svc *service.Service, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		service: svc,
		opts:    opts,
		logger:  logger.Named("http"),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID, s.logging, s.recovery)

	r.Get("/healthz", s.handleHealth)
	r.Route("/services", func(r chi.Router) {
		r.Get("/", s.handleListServices)
		r.Route("/{key}", func(r chi.Router) {
			r.Get("/namespaces", s.handleNamespaces)
			r.Get("/roots", s.handleRoots)
			r.Get("/element", s.handleElement)
			r.Get("/locations", s.handleLocations)
			r.Get("/target-kinds", s.handleTargetKinds)
		})
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, http.StatusNotFound, "NOT_FOUND", "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", r.Method+" is not allowed")
	})
	return r
}

// Handler returns the HTTP handler of the API
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the host:port the server listens on
func (s *Server) Addr() string {
	return net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
}

// ListenAndServe serves until ctx ends, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", httpServer.Addr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	}
}
