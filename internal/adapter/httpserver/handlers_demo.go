package httpserver

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

func (s *Server) registerDemoRoutes() {
	s.echo.GET("/hello", s.handleHello)
	s.echo.GET("/stream", s.handleStream)
}

func (s *Server) handleHello(c echo.Context) error {
	if err := c.JSON(http.StatusOK, map[string]string{"message": "Hello from the Go API!"}); err != nil {
		return fmt.Errorf("failed to write hello response: %w", err)
	}
	return nil
}

func (s *Server) handleStream(c echo.Context) error {
	if err := c.JSON(http.StatusOK, map[string]string{"message": "You are now viewing the security camera stream!"}); err != nil {
		return fmt.Errorf("failed to write stream response: %w", err)
	}
	return nil
}
