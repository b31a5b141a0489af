// Package api exposes election execution over REST. Runs are executed by
// the engine, persisted in a Badger-backed run store under a fresh UUID, and
// can be re-fetched or explained later by id.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// Server is the HTTP front end.
type Server struct {
	addr     string
	log      *zap.Logger
	handlers *Handlers
	router   *mux.Router
	http     *http.Server
}

// NewServer builds the router, CORS layer and timeouts around the handlers.
func NewServer(addr string, handlers *Handlers, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		addr:     addr,
		log:      log,
		handlers: handlers,
		router:   mux.NewRouter(),
	}
	s.setupRoutes()

	corsLayer := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	s.http = &http.Server{
		Addr:         addr,
		Handler:      corsLayer.Handler(s.router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/elections/run", s.handlers.RunElection).Methods(http.MethodPost)
	s.router.HandleFunc("/elections/{id}/results", s.handlers.GetResults).Methods(http.MethodGet)
	s.router.HandleFunc("/elections/{id}/diagnostics", s.handlers.GetDiagnostics).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.handlers.Health).Methods(http.MethodGet)
	s.router.Handle("/metrics", s.handlers.metrics.Handler()).Methods(http.MethodGet)
}

// Start blocks serving requests until Shutdown is called or the listener
// fails.
func (s *Server) Start() error {
	s.log.Info("API server listening",
		zap.String("addr", s.addr),
		zap.Strings("routes", []string{
			"POST /elections/run",
			"GET  /elections/{id}/results",
			"GET  /elections/{id}/diagnostics",
			"GET  /health",
			"GET  /metrics",
		}))
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Router exposes the handler chain, used by tests to drive requests without
// a listener.
func (s *Server) Router() http.Handler {
	return s.http.Handler
}
