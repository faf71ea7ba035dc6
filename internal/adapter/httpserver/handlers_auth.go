package httpserver

import (
	"fmt"
	"net/http"

	apperrors "github.com/afrodev/NoTrust-iot-smartcam/internal/platform/errors"
	"github.com/labstack/echo/v4"
)

func (s *Server) registerAuthRoutes() {
	limiter := newRateLimiter(s.config.RateLimitPerSecond, s.config.RateLimitBurst)

	auth := s.echo.Group("/api/auth", limiter)
	auth.POST("/signin", s.handleSignIn)
	auth.POST("/signout", s.handleSignOut)
	auth.GET("/status", s.handleAuthStatus)
}

// handleSignIn marks the session as authenticated. There are no credentials; the
// flag only drives what the UI shows.
func (s *Server) handleSignIn(c echo.Context) error {
	return s.setAuthenticated(c, true)
}

func (s *Server) handleSignOut(c echo.Context) error {
	return s.setAuthenticated(c, false)
}

func (s *Server) setAuthenticated(c echo.Context, authenticated bool) error {
	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		// An undecodable cookie (e.g. after a secret rotation) is replaced.
		session, err = s.sessionStore.New(c.Request(), sessionName)
		if err != nil {
			return apperrors.InternalError("failed to create session", err)
		}
	}

	if authenticated {
		session.Values[sessionKeyAuthenticated] = true
	} else {
		delete(session.Values, sessionKeyAuthenticated)
		session.Options.MaxAge = -1
	}
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return apperrors.InternalError("failed to save session", err)
	}

	if err := c.JSON(http.StatusOK, map[string]any{}); err != nil {
		return fmt.Errorf("failed to write auth response: %w", err)
	}
	return nil
}

func (s *Server) isAuthenticated(c echo.Context) bool {
	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		return false
	}
	authenticated, _ := session.Values[sessionKeyAuthenticated].(bool)
	return authenticated
}

func (s *Server) handleAuthStatus(c echo.Context) error {
	if err := c.JSON(http.StatusOK, map[string]bool{"authenticated": s.isAuthenticated(c)}); err != nil {
		return fmt.Errorf("failed to write auth status: %w", err)
	}
	return nil
}
