// Package httpapi exposes solving and validation over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jakechorley/duty-roster/internal/config"
	"github.com/jakechorley/duty-roster/pkg/core/model"
	"github.com/jakechorley/duty-roster/pkg/core/services"
	"github.com/jakechorley/duty-roster/pkg/core/solver"
)

// ValidateRequest carries a solution and the roster it claims to solve
type ValidateRequest struct {
	Input       solver.Input       `json:"input"`
	Assignments []model.Assignment `json:"assignments"`
}

// Server wires the gin router to the solve use cases
type Server struct {
	cfg    *config.Config
	store  services.SolveRosterStore
	deps   services.Collaborators
	logger *zap.Logger
	router *gin.Engine
}

// NewServer builds the router. store may be nil, in which case store-backed routes answer 503.
func NewServer(cfg *config.Config, store services.SolveRosterStore, deps services.Collaborators) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{cfg: cfg, store: store, deps: deps, logger: logger, router: gin.New()}
	s.router.Use(gin.Recovery(), s.requestLogger(), s.requestMetrics())

	s.router.GET("/healthz", s.health)
	s.router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	v1 := s.router.Group("/v1")
	v1.POST("/solve", s.solve)
	v1.POST("/rosters/:id/solve", s.solveRoster)
	v1.POST("/validate", s.validate)

	return s
}

// Handler returns the router as an http.Handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on the configured address until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.HTTP.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("HTTP server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) solve(c *gin.Context) {
	var input solver.Input
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, CodeBadRequest, fmt.Sprintf("invalid solve input: %v", err))
		return
	}

	result, err := services.SolveInput(c.Request.Context(), input, s.cfg, s.deps)
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

func (s *Server) solveRoster(c *gin.Context) {
	if s.store == nil {
		respondError(c, http.StatusServiceUnavailable, CodeUnavailable, "roster store is not configured")
		return
	}

	dryRun := false
	if raw := c.Query("dryRun"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, CodeBadRequest, fmt.Sprintf("invalid dryRun value %q", raw))
			return
		}
		dryRun = parsed
	}

	result, err := services.SolveRoster(c.Request.Context(), s.store, s.cfg, s.deps, c.Param("id"), dryRun)
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

func (s *Server) validate(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeBadRequest, fmt.Sprintf("invalid validate request: %v", err))
		return
	}

	result, err := services.ValidateSolution(req.Input, req.Assignments, s.cfg, s.logger)
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

func (s *Server) fail(c *gin.Context, err error) {
	status, code := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.String("code", code), zap.Error(err))
	} else {
		s.logger.Warn("Request rejected", zap.String("path", c.FullPath()), zap.String("code", code), zap.Error(err))
	}
	respondError(c, status, code, err.Error())
}

// requestLogger logs every request once it completes
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Info("http_request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()))
	}
}

// requestMetrics records request counts and latency by route
func (s *Server) requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		s.deps.Metrics.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
