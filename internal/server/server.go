// Package server provides the assessment persistence endpoint.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/harrison/bshape/internal/logger"
	"github.com/harrison/bshape/internal/models"
	"github.com/harrison/bshape/internal/submission"
)

// failureMessage is the only error text clients ever see.
const failureMessage = "Failed to submit assessment"

// Store persists submitted sessions.
type Store interface {
	Insert(ctx context.Context, sess *models.Session, ipAddress string) (*submission.Record, error)
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int

	// RateLimit is submissions per second per client address (0 = unlimited).
	RateLimit float64
	Burst     int
}

// Server exposes POST /api/submit-assessment, /health and /metrics.
type Server struct {
	echo     *echo.Echo
	store    Store
	log      logger.LevelLogger
	config   *Config
	limiters *clientLimiters
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// NewServer creates a new HTTP server.
func NewServer(store Store, log logger.LevelLogger, cfg *Config) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("submission store cannot be nil")
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	if cfg == nil {
		cfg = &Config{Host: "127.0.0.1", Port: 8080}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.BodyLimit("1M"))
	e.Use(requestLogger(log))

	s := &Server{
		echo:   e,
		store:  store,
		log:    log,
		config: cfg,
	}
	if cfg.RateLimit > 0 {
		s.limiters = newClientLimiters(cfg.RateLimit, cfg.Burst)
	}

	s.registerRoutes()
	return s, nil
}

func requestLogger(log logger.LevelLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// Let echo write the response so the status below is final
				c.Error(err)
			}
			duration := time.Since(start)
			status := c.Response().Status

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			RequestDuration.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).Observe(duration.Seconds())

			log.LogInfo(fmt.Sprintf("http request %s %s status=%d duration=%s request_id=%s",
				c.Request().Method,
				c.Request().RequestURI,
				status,
				duration.Round(time.Microsecond),
				c.Response().Header().Get(echo.HeaderXRequestID),
			))
			return nil
		}
	}
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.POST(submission.SubmitPath, s.handleSubmit)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleSubmit(c echo.Context) error {
	ip := c.RealIP()
	if ip == "" {
		ip = submission.UnknownAddress
	}

	if s.limiters != nil && !s.limiters.allow(ip) {
		SubmissionsTotal.WithLabelValues(resultRateLimited).Inc()
		s.log.LogWarn(fmt.Sprintf("rate limited submission from %s", ip))
		return c.JSON(http.StatusTooManyRequests, submission.Response{Error: "Too many submissions"})
	}

	var sess models.Session
	if err := c.Bind(&sess); err != nil {
		SubmissionsTotal.WithLabelValues(resultInvalid).Inc()
		s.log.LogWarn(fmt.Sprintf("invalid submission body: %v", err))
		return c.JSON(http.StatusBadRequest, submission.Response{Error: "Invalid assessment payload"})
	}
	if sess.ID == "" {
		SubmissionsTotal.WithLabelValues(resultInvalid).Inc()
		s.log.LogWarn("submission without a session id")
		return c.JSON(http.StatusBadRequest, submission.Response{Error: "Invalid assessment payload"})
	}
	if err := sess.Results.Validate(); err != nil {
		SubmissionsTotal.WithLabelValues(resultInvalid).Inc()
		s.log.LogWarn(fmt.Sprintf("submission %s rejected: %v", sess.ID, err))
		return c.JSON(http.StatusBadRequest, submission.Response{Error: "Invalid assessment payload"})
	}

	rec, err := s.store.Insert(c.Request().Context(), &sess, ip)
	if err != nil {
		SubmissionsTotal.WithLabelValues(resultFailed).Inc()
		s.log.LogError(fmt.Sprintf("error submitting assessment: %v", err))
		return c.JSON(http.StatusInternalServerError, submission.Response{Error: failureMessage})
	}

	SubmissionsTotal.WithLabelValues(resultStored).Inc()
	for sec, level := range rec.Levels() {
		RiskLevelsTotal.WithLabelValues(sec.String(), string(level)).Inc()
	}
	s.log.LogInfo(fmt.Sprintf("stored submission %s for session %s", rec.ID, rec.SessionID))

	return c.JSON(http.StatusOK, submission.Response{Success: true, ID: rec.ID})
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Address returns the listen address.
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// Start serves until Shutdown is called. A clean shutdown returns nil.
func (s *Server) Start() error {
	s.log.LogInfo(fmt.Sprintf("starting http server on %s", s.Address()))
	if err := s.echo.Start(s.Address()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.LogInfo("shutting down http server")
	return s.echo.Shutdown(ctx)
}
