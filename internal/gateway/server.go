// Package gateway exposes the HTTP surface of the trading gateway: thin
// handlers that validate input, call the upstream broker client, and map
// results into the uniform response envelope.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/angel_gateway/internal/broker"
	"github.com/eddiefleurent/angel_gateway/internal/session"
)

// Server is the gateway HTTP server.
type Server struct {
	router     *chi.Mux
	server     *http.Server
	broker     broker.Broker
	sessions   session.Store
	tokens     broker.InstrumentTable
	logger     *logrus.Logger
	port       int
	corsOrigin string
	production bool
}

// Config carries the server settings.
type Config struct {
	Port       int
	CORSOrigin string
	Production bool
}

// NewServer wires the router, middleware and handlers.
func NewServer(cfg Config, b broker.Broker, sessions session.Store, tokens broker.InstrumentTable, logger *logrus.Logger) *Server {
	s := &Server{
		router:     chi.NewRouter(),
		broker:     b,
		sessions:   sessions,
		tokens:     tokens,
		logger:     logger,
		port:       cfg.Port,
		corsOrigin: cfg.CORSOrigin,
		production: cfg.Production,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(s.requestLogger)
	s.router.Use(s.recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	if s.corsOrigin != "" {
		c := cors.New(cors.Options{
			AllowedOrigins:   []string{s.corsOrigin},
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
		})
		s.router.Use(c.Handler)
	}

	s.router.Get("/api/health", s.handleHealth)
	s.router.Post("/api/auth/angel-one", s.handleAuth)
	s.router.Post("/api/ltp", s.handleLTP)
	s.router.Get("/api/options/{symbol}", s.handleOptionsChain)
	s.router.Post("/api/refresh-token", s.handleRefreshToken)
	s.router.Post("/api/logout", s.handleLogout)

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, http.StatusNotFound, "Route not found", "")
	})
}

// requestLogger logs one structured line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start).String(),
			"request_id": middleware.GetReqID(r.Context()),
		}).Info("request handled")
	})
}

// recoverer converts panics into the generic 500 envelope. Panic details are
// only exposed outside production mode.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.logger.WithField("panic", rec).Error("handler panicked")

				message := "Internal server error"
				if !s.production {
					message = fmt.Sprintf("Internal server error: %v", rec)
				}
				s.writeError(w, http.StatusInternalServerError, message, "")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Start begins serving and blocks until the listener closes.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.logger.Infof("Starting gateway server on port %d", s.port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
