package api

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/td2048/pkg/engine"
)

// RequestIDHeader carries the request id in requests and responses.
const RequestIDHeader = "X-Request-ID"

// ServerConfig holds the server configuration.
type ServerConfig struct {
	Host           string        // Host to bind to (default "localhost")
	Port           int           // Port to listen on (default 8080)
	ReadTimeout    time.Duration // Read timeout (default 30s)
	WriteTimeout   time.Duration // Write timeout (default 60s; bounds evaluations)
	IdleTimeout    time.Duration // Idle timeout (default 60s)
	MaxFastWorkers int           // Max concurrent fast operations (default 100)
	MaxSlowWorkers int           // Max concurrent slow operations (default 4)
}

// DefaultConfig returns a ServerConfig with sensible defaults.
func DefaultConfig() ServerConfig {
	return ServerConfig{
		Host:           "localhost",
		Port:           8080,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   60 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxFastWorkers: 100,
		MaxSlowWorkers: 4,
	}
}

// Server is the HTTP API server. It holds the process-lifetime agent handle
// created at startup.
type Server struct {
	config   ServerConfig
	handlers *Handlers
	server   *http.Server
	pool     *WorkerPool
	version  string
	log      logrus.FieldLogger
}

// NewServer creates a new API server around agent.
func NewServer(agent *engine.Agent, config ServerConfig, version string, log logrus.FieldLogger) *Server {
	pool := NewWorkerPool(PoolConfig{
		MaxFastWorkers: config.MaxFastWorkers,
		MaxSlowWorkers: config.MaxSlowWorkers,
	})
	handlers := NewHandlersWithPool(agent, version, pool)
	if log == nil {
		log = logrus.StandardLogger()
	}
	handlers.SetLogger(log)

	return &Server{
		config:   config,
		handlers: handlers,
		pool:     pool,
		version:  version,
		log:      log,
	}
}

// Pool returns the worker pool for monitoring.
func (s *Server) Pool() *WorkerPool {
	return s.pool
}

// Handlers returns the server's handlers.
func (s *Server) Handlers() *Handlers {
	return s.handlers
}

type ctxKey int

const requestIDKey ctxKey = iota

// RequestID returns the id assigned to the request by the server, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// requestLogger returns log annotated with the request's id.
func requestLogger(log logrus.FieldLogger, r *http.Request) logrus.FieldLogger {
	if id := RequestID(r.Context()); id != "" {
		return log.WithField("request_id", id)
	}
	return log
}

// corsMiddleware adds CORS headers for browser access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+RequestIDHeader)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requestIDMiddleware keeps a valid incoming X-Request-ID or assigns a new one.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE streaming working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack hands the connection to the websocket upgrader.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// loggingMiddleware logs all requests.
func loggingMiddleware(log logrus.FieldLogger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		requestLogger(log, r).WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start),
		}).Info("request")
	})
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handlers.Health)
	mux.HandleFunc("POST /api/predict", s.handlers.Predict)
	mux.HandleFunc("POST /api/analyze", s.handlers.Analyze)
	mux.HandleFunc("POST /api/evaluate", s.handlers.Evaluate)
	mux.HandleFunc("GET /api/evaluate/stream", s.handlers.EvaluateSSE)
	mux.HandleFunc("GET /api/play/stream", s.handlers.PlaySSE)
	mux.HandleFunc("/api/ws", s.handlers.WebSocket)

	return corsMiddleware(requestIDMiddleware(loggingMiddleware(s.log, mux)))
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	s.log.WithFields(logrus.Fields{
		"version": s.version,
		"addr":    addr,
	}).Info("starting td2048 API server")
	s.log.Info("endpoints: GET /api/health, POST /api/predict, POST /api/analyze, POST /api/evaluate, " +
		"GET /api/evaluate/stream, GET /api/play/stream, WS /api/ws")

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// ListenAndServeWithGracefulShutdown starts the server and stops it on
// SIGINT/SIGTERM.
func (s *Server) ListenAndServeWithGracefulShutdown() error {
	errChan := make(chan error, 1)

	go func() {
		if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errChan:
		return err
	case sig := <-quit:
		s.log.WithField("signal", sig.String()).Info("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.log.Info("server stopped gracefully")
	return nil
}
