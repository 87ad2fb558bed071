package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/policywatch/internal/core/ports/driving"
	"github.com/custodia-labs/policywatch/internal/logger"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8000"

// maxUploadBytes caps multipart memory for uploads; larger files spill to disk.
const maxUploadBytes = 32 << 20

// Ports aggregates the driving ports served over HTTP.
type Ports struct {
	// Summary serves uploads and persisted summaries.
	Summary driving.SummaryService

	// Query answers search requests.
	Query driving.QueryService

	// Monitor reports loop state and history. Optional.
	Monitor driving.MonitorService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Summary == nil {
		return ErrMissingSummaryService
	}
	if p.Query == nil {
		return ErrMissingQueryService
	}
	return nil
}

// Option configures a Server.
type Option func(*Server)

// WithMetricsHandler exposes h at GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithShutdownTimeout bounds graceful shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// Server is the REST API for uploads, summaries and search.
type Server struct {
	addr            string
	ports           *Ports
	engine          *gin.Engine
	metrics         http.Handler
	shutdownTimeout time.Duration
}

// NewServer creates a server listening on addr. An empty addr selects DefaultAddr.
func NewServer(addr string, ports *Ports, opts ...Option) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}
	if addr == "" {
		addr = DefaultAddr
	}

	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		addr:            addr,
		ports:           ports,
		engine:          gin.New(),
		shutdownTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.engine.MaxMultipartMemory = maxUploadBytes
	s.engine.Use(gin.Recovery(), requestLogger(), allowAllOrigins())
	s.registerRoutes()

	return s, nil
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) registerRoutes() {
	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not Found"})
	})

	s.engine.GET("/health", s.handleHealth)
	s.engine.POST("/upload-document", s.handleUpload)
	s.engine.GET("/summary", s.handleSummary)
	s.engine.GET("/search", s.handleSearch)
	s.engine.GET("/status", s.handleStatus)

	if s.metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.metrics))
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http: listening on %s", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return <-errCh
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		zl := logger.Zerolog()
		event := zl.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = zl.Error()
		} else if !logger.IsVerbose() {
			return
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

func allowAllOrigins() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
