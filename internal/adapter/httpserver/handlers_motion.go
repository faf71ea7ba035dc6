package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/afrodev/NoTrust-iot-smartcam/internal/adapter/metrics"
	"github.com/afrodev/NoTrust-iot-smartcam/internal/domain"
	apperrors "github.com/afrodev/NoTrust-iot-smartcam/internal/platform/errors"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

func (s *Server) registerMotionRoutes() {
	s.echo.GET("/motion", s.handleMotionSocket)
	// The browser UI dials the API-prefixed path.
	s.echo.GET("/api/motion", s.handleMotionSocket)
	s.echo.GET("/api/motion/latest", s.handleLatestReading)
}

// handleMotionSocket turns the request into a live viewer connection and blocks
// until the viewer leaves.
func (s *Server) handleMotionSocket(c echo.Context) error {
	req := c.Request()

	// Only real upgrade attempts consume a connection slot; anything else is
	// rejected by the acceptor with 400.
	if websocket.IsWebSocketUpgrade(req) {
		ip := c.RealIP()
		ok, reason := s.limits.Acquire(ip)
		if !ok {
			if s.broadcastMetrics != nil {
				s.broadcastMetrics.ConnectionsRejected.WithLabelValues(metrics.ReasonCapacity).Inc()
			}
			return apperrors.UnavailableError("viewer connection limit reached").
				WithField("reason", string(reason)).
				WithField("limit", s.limits.Max())
		}
		defer s.limits.Release(ip)
	}

	err := s.acceptor.Accept(c.Response(), req)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrUpgradeRejected):
		return apperrors.ValidationError("expected a websocket upgrade request").WithCause(err)
	case errors.Is(err, domain.ErrHandshakeFailed):
		// The upgrader already answered the client.
		slog.InfoContext(req.Context(), "WebSocket handshake failed", "remote_addr", req.RemoteAddr, "error", err)
		return nil
	default:
		return apperrors.InternalError("failed to accept viewer", err)
	}
}

func (s *Server) handleLatestReading(c echo.Context) error {
	if err := c.JSON(http.StatusOK, s.readings.Current()); err != nil {
		return fmt.Errorf("failed to write reading response: %w", err)
	}
	return nil
}
