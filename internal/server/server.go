package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"intervoice/internal/core"
	"intervoice/internal/repository"
	"intervoice/pkg/schema"
)

const shutdownTimeout = 10 * time.Second

// FeedbackService is the feedback operations the server exposes.
type FeedbackService interface {
	CreateFeedback(ctx context.Context, req *schema.FeedbackRequest) (*schema.FeedbackResponse, error)
	GetFeedback(ctx context.Context, id string) (*schema.Feedback, error)
	FindFeedback(ctx context.Context, interviewID, userID string) (*schema.Feedback, error)
}

// Server is the HTTP front end of the feedback service.
type Server struct {
	service FeedbackService
	metrics *Metrics
	logger  core.Logger
	engine  *gin.Engine
}

// New builds the router. metrics may be nil.
func New(service FeedbackService, metrics *Metrics, logger core.Logger) *Server {
	if logger == nil {
		logger = core.NopLogger()
	}
	s := &Server{
		service: service,
		metrics: metrics,
		logger:  logger,
		engine:  gin.New(),
	}

	s.engine.Use(gin.Recovery(), s.observe())

	s.engine.GET("/healthz", s.health)
	s.engine.POST("/api/feedback", s.createFeedback)
	s.engine.GET("/api/feedback/:id", s.getFeedback)
	s.engine.GET("/api/interviews/:id/feedback", s.findFeedback)
	if metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	return s
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("feedback server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("feedback server stopped")
	return nil
}

// observe logs each request and records its metrics.
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		duration := time.Since(start)
		status := c.Writer.Status()

		if s.metrics != nil {
			s.metrics.RecordRequest(c.Request.Method, route, status, duration)
		}
		if route != "/metrics" && route != "/healthz" {
			s.logger.Debug("request",
				"method", c.Request.Method,
				"route", route,
				"status", status,
				"duration", duration,
			)
		}
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) createFeedback(c *gin.Context) {
	var req schema.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body: " + err.Error()})
		return
	}

	start := time.Now()
	resp, err := s.service.CreateFeedback(c.Request.Context(), &req)
	duration := time.Since(start)

	if err != nil {
		status := errorStatus(err)
		if s.metrics != nil {
			s.metrics.RecordFeedback(outcomeFor(status), 0, duration)
		}
		if status >= http.StatusInternalServerError {
			s.logger.Error("create feedback failed",
				"interview_id", req.InterviewID,
				"user_id", req.UserID,
				"error", err,
			)
		}
		c.JSON(status, gin.H{"success": false, "error": err.Error()})
		return
	}

	if s.metrics != nil {
		score := 0
		if fb, err := s.service.GetFeedback(c.Request.Context(), resp.FeedbackID); err == nil {
			score = fb.TotalScore
		}
		s.metrics.RecordFeedback("success", score, duration)
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) getFeedback(c *gin.Context) {
	fb, err := s.service.GetFeedback(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, fb)
}

func (s *Server) findFeedback(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId query parameter is required"})
		return
	}

	fb, err := s.service.FindFeedback(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, fb)
}

func errorStatus(err error) int {
	var valErr *core.ValidationError
	switch {
	case errors.As(err, &valErr):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func outcomeFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid"
	case http.StatusGatewayTimeout:
		return "timeout"
	default:
		return "error"
	}
}
