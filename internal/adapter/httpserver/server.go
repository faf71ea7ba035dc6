package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/afrodev/NoTrust-iot-smartcam/internal/adapter/metrics"
	"github.com/afrodev/NoTrust-iot-smartcam/internal/domain"
	"github.com/afrodev/NoTrust-iot-smartcam/internal/platform/config"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"
)

// motionAcceptor upgrades a request into a live motion subscription.
type motionAcceptor interface {
	Accept(w http.ResponseWriter, r *http.Request) error
}

// readingSource exposes the last broadcast reading.
type readingSource interface {
	Current() domain.Reading
}

type Deps struct {
	Acceptor         motionAcceptor
	Readings         readingSource
	HealthChecks     []HealthCheck
	Registry         *prometheus.Registry
	BroadcastMetrics *metrics.BroadcastMetrics
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	acceptor motionAcceptor
	readings readingSource
	limits   *ConnectionLimits

	sessionStore *sessions.CookieStore
	healthChecks []HealthCheck
	probeGroup   singleflight.Group
	startTime    time.Time

	registry         *prometheus.Registry
	httpMetrics      *metrics.HTTPMetrics
	broadcastMetrics *metrics.BroadcastMetrics
}

func NewServer(cfg *config.Config, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	// Forwarding headers are client-controlled; limits key on the peer address.
	e.IPExtractor = echo.ExtractIPDirect()

	srv := &Server{
		echo:             e,
		config:           cfg,
		acceptor:         deps.Acceptor,
		readings:         deps.Readings,
		limits:           NewConnectionLimits(int64(cfg.MaxWebSocketConnections), cfg.MaxWebSocketConnectionsPerIP),
		sessionStore:     setupSessionStore(cfg),
		healthChecks:     deps.HealthChecks,
		startTime:        time.Now(),
		registry:         deps.Registry,
		broadcastMetrics: deps.BroadcastMetrics,
	}
	if deps.Registry != nil {
		srv.httpMetrics = metrics.NewHTTPMetrics(deps.Registry)
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones. Hijacked WebSocket
// connections are not tracked by the HTTP server; the broadcast engine closes them.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// ServeHTTP lets tests and embedding servers drive the router directly.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

const (
	sessionName             = "smartcam-session"
	sessionKeyAuthenticated = "authenticated"
)

func setupSessionStore(cfg *config.Config) *sessions.CookieStore {
	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}
	return sessionStore
}
