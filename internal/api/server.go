// Package api exposes the triage engine over HTTP with gin. Routing,
// serialization and request validation live here; the decision logic stays in
// the service and history packages.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/anemia-triage-server/internal/config"
	"github.com/anemia-triage-server/internal/domain"
	"github.com/anemia-triage-server/internal/history"
	"github.com/anemia-triage-server/internal/service"
)

// Server is the HTTP front of the triage service.
type Server struct {
	cfg    *config.Config
	logger *logrus.Logger
	engine *service.DiagnosisEngine
	store  domain.HistoryStore
	query  *history.QueryService
	router *gin.Engine
	server *http.Server
}

// NewServer wires the router, middleware and handlers.
func NewServer(
	cfg *config.Config,
	logger *logrus.Logger,
	engine *service.DiagnosisEngine,
	store domain.HistoryStore,
	query *history.QueryService,
) *Server {
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(cfg.Server.OriginAllowList()))
	router.Use(requestIDMiddleware())
	router.Use(rateLimitMiddleware(cfg.RateLimit))

	s := &Server{
		cfg:    cfg,
		logger: logger,
		engine: engine,
		store:  store,
		query:  query,
		router: router,
	}
	s.setupRoutes()
	return s
}

// Router exposes the configured gin engine, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start runs the HTTP server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  parseTimeout(s.cfg.Server.ReadTimeout, 30*time.Second),
		WriteTimeout: parseTimeout(s.cfg.Server.WriteTimeout, 30*time.Second),
		IdleTimeout:  parseTimeout(s.cfg.Server.IdleTimeout, 120*time.Second),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleLiveness)
	s.router.GET("/health", s.handleLiveness)
	s.router.POST("/predict", s.handlePredict)
	s.router.GET("/history", s.handleHistory)
}

func parseTimeout(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// corsMiddleware applies the configured origin allow-list. A single "*"
// entry allows any origin.
func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowAll := len(allowedOrigins) == 0
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case allowAll:
			c.Header("Access-Control-Allow-Origin", "*")
		case allowed[origin]:
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", strings.Join([]string{
			"Origin", "Content-Type", "Content-Length", "Accept-Encoding", "X-Request-ID",
		}, ", "))

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// requestIDMiddleware attaches a unique request ID to each request.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}

// rateLimitMiddleware bounds request throughput with a shared token bucket.
func rateLimitMiddleware(cfg config.RateLimitConfig) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests",
			})
			return
		}
		c.Next()
	}
}
