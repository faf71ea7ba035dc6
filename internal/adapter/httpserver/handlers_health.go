package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/afrodev/NoTrust-iot-smartcam/internal/platform/version"
	"github.com/labstack/echo/v4"
)

const (
	startupProbeTimeout   = 2 * time.Second
	readinessProbeTimeout = 5 * time.Second
)

// HealthCheck is a named health check function.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

func (s *Server) registerHealthRoutes() {
	s.echo.GET("/health/startup", s.handleStartup)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/version", s.handleVersion)
}

func (s *Server) handleStartup(c echo.Context) error {
	return s.runHealthChecks(c, "startup", startupProbeTimeout)
}

func (s *Server) handleLiveness(c echo.Context) error {
	uptime := time.Since(s.startTime).Seconds()

	response := map[string]any{
		"status": "ok",
		"uptime": uptime,
	}
	if s.limits != nil {
		response["viewers"] = s.limits.Current()
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to write liveness response: %w", err)
	}

	return nil
}

func (s *Server) handleReadiness(c echo.Context) error {
	return s.runHealthChecks(c, "ready", readinessProbeTimeout)
}

type probeResult struct {
	failedCheck string
	err         error
}

// runHealthChecks runs the checks in order and reports the first failure.
// Concurrent probes of the same kind share one run, so the run is not bound to the
// request that started it.
func (s *Server) runHealthChecks(c echo.Context, probe string, timeout time.Duration) error {
	v, _, _ := s.probeGroup.Do(probe, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), timeout)
		defer cancel()

		for _, hc := range s.healthChecks {
			if err := hc.Check(ctx); err != nil {
				return probeResult{failedCheck: hc.Name, err: err}, nil
			}
		}
		return probeResult{}, nil
	})

	if res := v.(probeResult); res.err != nil {
		response := map[string]any{
			"status":       "unhealthy",
			"failed_check": res.failedCheck,
			"error":        res.err.Error(),
		}
		if err := c.JSON(http.StatusServiceUnavailable, response); err != nil {
			return fmt.Errorf("failed to send JSON response: %w", err)
		}
		return nil
	}

	if err := c.JSON(http.StatusOK, map[string]string{"status": "ready"}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleVersion(c echo.Context) error {
	if err := c.JSON(http.StatusOK, version.Get()); err != nil {
		return fmt.Errorf("failed to write version response: %w", err)
	}
	return nil
}
