// Package httpapi exposes the approval control surface and operational
// endpoints over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/agentnexus/copilot/pkg/engine/api"
	"github.com/agentnexus/copilot/pkg/engine/store"
	"github.com/agentnexus/copilot/pkg/observability"
)

// Config configures the HTTP server.
type Config struct {
	Host string
	Port int
}

// Server serves session inspection, the approve/reject gate, and metrics.
type Server struct {
	echo    *echo.Echo
	store   store.SessionStore
	metrics *observability.Metrics
	logger  *zap.Logger
	addr    string
}

// decisionRequest is the optional body for approve/reject.
type decisionRequest struct {
	Reason string `json:"reason"`
}

// New builds the server and wires its routes.
func New(cfg Config, sessions store.SessionStore, metrics *observability.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(logger))

	s := &Server{
		echo:    e,
		store:   sessions,
		metrics: metrics,
		logger:  logger,
		addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
	}

	e.GET("/health", s.health)
	e.GET("/sessions", s.listSessions)
	e.GET("/sessions/:id", s.getSession)
	e.POST("/sessions/:id/approve", s.approveSession)
	e.POST("/sessions/:id/reject", s.rejectSession)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	return s
}

// Start blocks serving HTTP until Shutdown or a listener error.
func (s *Server) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.addr))
	if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the underlying handler for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// Handlers
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listSessions(c echo.Context) error {
	ids, err := s.store.ListIDs(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{
		"sessions": ids,
		"count":    len(ids),
	})
}

func (s *Server) getSession(c echo.Context) error {
	sess, err := s.store.Load(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "session not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, sess)
}

func (s *Server) approveSession(c echo.Context) error {
	id := c.Param("id")

	var req decisionRequest
	_ = c.Bind(&req)
	if req.Reason == "" {
		req.Reason = "Approved via API"
	}

	if err := s.store.GrantApproval(c.Request().Context(), id); err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "session not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	s.logger.Info("session approved",
		zap.String("session_id", id),
		zap.String("reason", req.Reason),
	)
	return c.JSON(http.StatusOK, map[string]string{
		"session_id": id,
		"status":     "approved",
		"reason":     req.Reason,
		"next":       "re-run the request to execute the approved step",
	})
}

func (s *Server) rejectSession(c echo.Context) error {
	id := c.Param("id")

	var req decisionRequest
	_ = c.Bind(&req)
	if req.Reason == "" {
		req.Reason = "Rejected: false positive"
	}

	ctx := c.Request().Context()
	sess, err := s.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "session not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	sess.SetApproved(false)
	sess.MarkRejected()
	sess.AppendTurn(api.RoleUser, "Remediation rejected by operator: "+req.Reason)
	if err := s.store.Save(ctx, id, sess); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	s.metrics.FalsePositive()
	s.logger.Info("session rejected",
		zap.String("session_id", id),
		zap.String("reason", req.Reason),
	)
	return c.JSON(http.StatusOK, map[string]string{
		"session_id": id,
		"status":     "rejected",
		"reason":     req.Reason,
	})
}

// requestLogger logs one structured line per request.
func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("http request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
			)
			return nil
		},
	})
}
