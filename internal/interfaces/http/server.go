package http

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/baccarun/internal/combine"
	"github.com/sawpanic/baccarun/internal/config"
	"github.com/sawpanic/baccarun/internal/session"
)

type contextKey string

const requestIDKey contextKey = "request_id"

const requestTimeout = 5 * time.Second

// RequestID returns the id assigned to the request, or "unknown"
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return "unknown"
}

// Server is the session API server
type Server struct {
	router   *mux.Router
	server   *http.Server
	handlers *Handlers
	health   *HealthHandler
	metrics  *MetricsRegistry
	hub      *Hub
	limiter  *clientLimiter
	config   config.ServerConfig
}

// NewServer wires the routes; hub may be nil to disable the stream endpoint
func NewServer(cfg config.AppConfig, manager *session.Manager, engine *combine.Engine, metrics *MetricsRegistry, hub *Hub) *Server {
	if metrics == nil {
		metrics = NewMetricsRegistry()
	}
	s := &Server{
		router:   mux.NewRouter(),
		handlers: NewHandlers(manager, engine, metrics, cfg.Engine.Mode()),
		health:   NewHealthHandler(manager, hub, Version),
		metrics:  metrics,
		hub:      hub,
		config:   cfg.Server,
	}
	if cfg.RateLimit.RPS > 0 {
		s.limiter = newClientLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	}
	s.setupRoutes()

	origins := cfg.Server.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
	})

	s.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      c.Handler(s.router),
		ReadTimeout:  cfg.Server.GetReadTimeout(),
		WriteTimeout: cfg.Server.GetWriteTimeout(),
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.requestLoggingMiddleware)
	s.router.Use(s.rateLimitMiddleware)

	// the stream and scrape endpoints skip the JSON and timeout middlewares
	s.router.Handle("/metrics", s.metrics.MetricsHandler()).Methods("GET")
	if s.hub != nil {
		s.router.Handle("/ws", s.hub)
	}

	api := s.router.PathPrefix("/").Subrouter()
	api.Use(s.timeoutMiddleware)
	api.Use(s.jsonContentTypeMiddleware)

	h := s.handlers
	api.Handle("/health", s.health).Methods("GET")
	api.HandleFunc("/weights", h.Weights).Methods("GET")

	api.HandleFunc("/sessions", h.CreateSession).Methods("POST")
	api.HandleFunc("/sessions", h.ListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", h.DeleteSession).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/outcomes", h.RecordOutcome).Methods("POST")
	api.HandleFunc("/sessions/{id}/outcomes/last", h.UndoOutcome).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/reset", h.ResetSession).Methods("POST")
	api.HandleFunc("/sessions/{id}/prediction", h.Prediction).Methods("GET")
	api.HandleFunc("/sessions/{id}/explain", h.Explain).Methods("GET")
	api.HandleFunc("/sessions/{id}/advice", h.Advice).Methods("GET")
	api.HandleFunc("/sessions/{id}/stats", h.Stats).Methods("GET")
	api.HandleFunc("/sessions/{id}/roads", h.Roads).Methods("GET")
	api.HandleFunc("/sessions/{id}/export", h.Export).Methods("GET")
	api.HandleFunc("/sessions/{id}/import", h.Import).Methods("POST")

	// mux skips router middlewares for unmatched routes
	s.router.NotFoundHandler = s.requestIDMiddleware(s.requestLoggingMiddleware(http.HandlerFunc(h.NotFound)))
}

// requestIDMiddleware adds unique request ID to each request
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()[:8]
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLoggingMiddleware logs and counts every request
func (s *Server) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		s.metrics.Requests.WithLabelValues(route, fmt.Sprintf("%d", wrapper.statusCode)).Inc()

		log.Debug().
			Str("request_id", RequestID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapper.statusCode).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("REQ")
	})
}

// rateLimitMiddleware throttles each remote host
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow(remoteHost(r)) {
			s.handlers.writeError(w, r, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// timeoutMiddleware enforces request timeouts
func (s *Server) timeoutMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// jsonContentTypeMiddleware sets JSON content type for API responses
func (s *Server) jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Handler returns the root handler including CORS
func (s *Server) Handler() http.Handler { return s.server.Handler }

// Router exposes the mux for tests
func (s *Server) Router() *mux.Router { return s.router }

// Start serves until Shutdown; it returns nil after a graceful shutdown
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// GetAddress returns the server address
func (s *Server) GetAddress() string { return s.server.Addr }

// responseWrapper captures HTTP status codes for logging
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection
func (rw *responseWrapper) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

// Health exposes the health handler so callers can register dependency checks
func (s *Server) Health() *HealthHandler { return s.health }
